package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nimasrn/debt-tracker/internal/idempotency"
	"github.com/nimasrn/debt-tracker/internal/model"
	xhttp "github.com/nimasrn/debt-tracker/pkg/http"
	"github.com/nimasrn/debt-tracker/pkg/logger"
)

const contentTypeJSON = "application/json; charset=utf-8"

var validate = validator.New()

type errorResponse struct {
	Error     string            `json:"error"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// readJSON decodes the body into dst and runs its validate tags.
func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	if err := json.Unmarshal(ctx.PostBody(), dst); err != nil {
		return fmt.Errorf("%w: invalid JSON: %s", model.ErrInvalidArgument, err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		return &validationError{err: err}
	}
	return nil
}

type validationError struct {
	err error
}

func (e *validationError) Error() string {
	return fmt.Sprintf("%s: request validation failed", model.ErrInvalidArgument)
}

func (e *validationError) Unwrap() error { return model.ErrInvalidArgument }

func (e *validationError) fields() map[string]string {
	var ve validator.ValidationErrors
	if !errors.As(e.err, &ve) {
		return nil
	}
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		msg := fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		out[fe.Field()] = msg
	}
	return out
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Error("[http] encode response", "error", err)
		status = xhttp.StatusInternalServerError
		b = []byte(`{"error":"internal server error"}`)
	}
	ctx.Response.Header.Set("Content-Type", contentTypeJSON)
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeFile(ctx *xhttp.RequestCtx, contentType, filename string, body []byte) {
	ctx.Response.Header.Set("Content-Type", contentType)
	ctx.Response.Header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	ctx.Response.SetStatusCode(xhttp.StatusOK)
	ctx.Response.SetBodyRaw(body)
}

// writeError maps domain errors onto HTTP statuses. Unexpected errors are
// logged and hidden from the client.
func writeError(ctx *xhttp.RequestCtx, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error(), RequestID: xhttp.RequestID(ctx)}

	var ve *validationError
	if errors.As(err, &ve) {
		resp.Fields = ve.fields()
	}
	if status == xhttp.StatusInternalServerError {
		logger.Error("[http] request failed",
			"method", string(ctx.Method()),
			"path", string(ctx.Path()),
			"request_id", resp.RequestID,
			"error", err)
		resp.Error = "internal server error"
	}
	writeJSON(ctx, status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidArgument):
		return xhttp.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return xhttp.StatusNotFound
	case errors.Is(err, idempotency.ErrInFlight):
		return xhttp.StatusConflict
	case errors.Is(err, idempotency.ErrKeyReused):
		return xhttp.StatusUnprocessableEntity
	}
	return xhttp.StatusInternalServerError
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return strings.TrimSpace(string(ctx.QueryArgs().Peek(key)))
}

// pathID reads a positive integer path parameter set by the router.
func pathID(ctx *xhttp.RequestCtx, name string) (int64, error) {
	raw, _ := ctx.UserValue(name).(string)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", model.ErrInvalidArgument, name)
	}
	return id, nil
}

func queryInt64(ctx *xhttp.RequestCtx, key string) (*int64, error) {
	v := query(ctx, key)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", model.ErrInvalidArgument, key)
	}
	return &n, nil
}

func queryTime(ctx *xhttp.RequestCtx, key string) (*time.Time, error) {
	v := query(ctx, key)
	if v == "" {
		return nil, nil
	}
	t, err := parseTime(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339 or YYYY-MM-DD", model.ErrInvalidArgument, key)
	}
	return &t, nil
}

func parseTime(s string) (time.Time, error) {
	// Accept RFC3339 or YYYY-MM-DD
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// optionalTime parses a body date field; empty means unset.
func optionalTime(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := parseTime(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC3339 or YYYY-MM-DD", model.ErrInvalidArgument, field)
	}
	return t, nil
}
