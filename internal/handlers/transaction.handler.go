package handlers

import (
	"context"
	"fmt"

	"github.com/fasthttp/router"
	"github.com/nimasrn/debt-tracker/internal/idempotency"
	"github.com/nimasrn/debt-tracker/internal/model"
	xhttp "github.com/nimasrn/debt-tracker/pkg/http"
	"github.com/nimasrn/debt-tracker/pkg/logger"
	"github.com/shopspring/decimal"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
)

type TransactionService interface {
	Add(ctx context.Context, p model.TransactionCreateRequest) (*model.AddTransactionResult, error)
	Update(ctx context.Context, p model.TransactionUpdateRequest) (*model.Transaction, error)
	Delete(ctx context.Context, id int64) (*model.Transaction, error)
	Get(ctx context.Context, id int64) (*model.Transaction, error)
	Search(ctx context.Context, filter model.TransactionFilter) ([]*model.Transaction, error)
}

// IdempotencyStore guards POST /transactions against double posting.
type IdempotencyStore interface {
	Begin(ctx context.Context, key string, payload []byte) (*idempotency.Claim, *idempotency.Response, error)
	Complete(ctx context.Context, claim *idempotency.Claim, resp idempotency.Response) error
	Release(ctx context.Context, claim *idempotency.Claim) error
}

type TransactionHandler struct {
	svc  TransactionService
	idem IdempotencyStore
}

func RegisterTransactionRoutes(e *router.Group, h *TransactionHandler) {
	e.POST("/transactions", h.CreateTransaction)
	e.PUT("/transactions", h.UpdateTransaction)
	e.GET("/transactions", h.ListTransactions)
	e.GET("/transactions/{id}", h.GetTransaction)
	e.DELETE("/transactions/{id}", h.DeleteTransaction)
	e.GET("/customers/{id}/transactions", h.ListCustomerTransactions)
}

// NewTransactionHandler builds the handler. idem may be nil, in which case the
// Idempotency-Key header is ignored.
func NewTransactionHandler(transactionService TransactionService, idem IdempotencyStore) *TransactionHandler {
	return &TransactionHandler{
		svc:  transactionService,
		idem: idem,
	}
}

type createTransactionRequest struct {
	CustomerID  int64           `json:"customer_id" validate:"gte=0"`
	Type        string          `json:"type" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=255"`
	Date        string          `json:"date"`
}

type updateTransactionRequest struct {
	ID          int64           `json:"id" validate:"required,gt=0"`
	CustomerID  int64           `json:"customer_id" validate:"gte=0"`
	Type        string          `json:"type" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=255"`
	Date        string          `json:"date"`
}

type transactionListResponse struct {
	Items []*model.Transaction `json:"items"`
	Total int                  `json:"total"`
}

func (h *TransactionHandler) CreateTransaction(ctx *xhttp.RequestCtx) {
	key := string(ctx.Request.Header.Peek(HeaderIdempotencyKey))
	if key == "" || h.idem == nil {
		h.createTransaction(ctx)
		return
	}

	claim, stored, err := h.idem.Begin(xhttp.Context(ctx), key, ctx.PostBody())
	if err != nil {
		writeError(ctx, err)
		return
	}
	if stored != nil {
		ctx.Response.Header.Set("Content-Type", stored.ContentType)
		ctx.Response.Header.Set(HeaderReplayed, "true")
		ctx.Response.SetStatusCode(stored.Status)
		ctx.Response.SetBody(stored.Body)
		return
	}

	defer h.settle(ctx, key, claim)
	h.createTransaction(ctx)
}

// settle stores the response for replay, or frees the key when the request
// failed on the server side or panicked.
func (h *TransactionHandler) settle(ctx *xhttp.RequestCtx, key string, claim *idempotency.Claim) {
	r := recover()
	status := ctx.Response.StatusCode()
	if r != nil || status >= xhttp.StatusInternalServerError {
		if err := h.idem.Release(xhttp.Context(ctx), claim); err != nil {
			logger.Warn("[transactions] release idempotency lock", "key", key, "error", err)
		}
		if r != nil {
			panic(r)
		}
		return
	}
	resp := idempotency.Response{
		Status:      status,
		ContentType: string(ctx.Response.Header.ContentType()),
		Body:        append([]byte(nil), ctx.Response.Body()...),
	}
	if err := h.idem.Complete(xhttp.Context(ctx), claim, resp); err != nil {
		logger.Error("[transactions] store idempotent response", "key", key, "error", err)
	}
}

func (h *TransactionHandler) createTransaction(ctx *xhttp.RequestCtx) {
	var req createTransactionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, err)
		return
	}
	date, err := optionalTime("date", req.Date)
	if err != nil {
		writeError(ctx, err)
		return
	}
	res, err := h.svc.Add(xhttp.Context(ctx), model.TransactionCreateRequest{
		CustomerID:  req.CustomerID,
		Type:        model.TransactionType(req.Type),
		Amount:      req.Amount,
		Description: req.Description,
		Date:        date,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, res)
}

func (h *TransactionHandler) UpdateTransaction(ctx *xhttp.RequestCtx) {
	var req updateTransactionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, err)
		return
	}
	date, err := optionalTime("date", req.Date)
	if err != nil {
		writeError(ctx, err)
		return
	}
	txn, err := h.svc.Update(xhttp.Context(ctx), model.TransactionUpdateRequest{
		ID:          req.ID,
		CustomerID:  req.CustomerID,
		Type:        model.TransactionType(req.Type),
		Amount:      req.Amount,
		Description: req.Description,
		Date:        date,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, txn)
}

func (h *TransactionHandler) GetTransaction(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx, "id")
	if err != nil {
		writeError(ctx, err)
		return
	}
	txn, err := h.svc.Get(xhttp.Context(ctx), id)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, txn)
}

func (h *TransactionHandler) DeleteTransaction(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx, "id")
	if err != nil {
		writeError(ctx, err)
		return
	}
	txn, err := h.svc.Delete(xhttp.Context(ctx), id)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, txn)
}

// ListTransactions applies any of customer_id, start_date and end_date. A
// date range needs both ends.
func (h *TransactionHandler) ListTransactions(ctx *xhttp.RequestCtx) {
	var (
		f   model.TransactionFilter
		err error
	)
	if f.CustomerID, err = queryInt64(ctx, "customer_id"); err != nil {
		writeError(ctx, err)
		return
	}
	if f.From, err = queryTime(ctx, "start_date"); err != nil {
		writeError(ctx, err)
		return
	}
	if f.To, err = queryTime(ctx, "end_date"); err != nil {
		writeError(ctx, err)
		return
	}
	if (f.From == nil) != (f.To == nil) {
		writeError(ctx, fmt.Errorf("%w: start_date and end_date must be given together", model.ErrInvalidArgument))
		return
	}
	h.writeList(ctx, f)
}

func (h *TransactionHandler) ListCustomerTransactions(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx, "id")
	if err != nil {
		writeError(ctx, err)
		return
	}
	h.writeList(ctx, model.TransactionFilter{CustomerID: &id})
}

func (h *TransactionHandler) writeList(ctx *xhttp.RequestCtx, f model.TransactionFilter) {
	items, err := h.svc.Search(xhttp.Context(ctx), f)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, transactionListResponse{Items: items, Total: len(items)})
}
