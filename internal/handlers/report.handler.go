package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/fasthttp/router"
	"github.com/nimasrn/debt-tracker/internal/model"
	xhttp "github.com/nimasrn/debt-tracker/pkg/http"
)

type ReportService interface {
	GenerateBill(ctx context.Context, customerID int64, start, end time.Time) ([]byte, error)
	GenerateReport(ctx context.Context, q model.ReportQuery) ([]byte, error)
}

// FileFormat describes the documents ReportService produces.
type FileFormat interface {
	ContentType() string
	FileExtension() string
}

type ReportHandler struct {
	svc    ReportService
	format FileFormat
}

func RegisterReportRoutes(e *router.Group, h *ReportHandler) {
	e.GET("/customers/{id}/bill", h.GetBill)
	e.GET("/reports/transactions", h.GetTransactionReport)
}

func NewReportHandler(reportService ReportService, format FileFormat) *ReportHandler {
	return &ReportHandler{
		svc:    reportService,
		format: format,
	}
}

func (h *ReportHandler) GetBill(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx, "id")
	if err != nil {
		writeError(ctx, err)
		return
	}
	start, err := queryTime(ctx, "start_date")
	if err != nil {
		writeError(ctx, err)
		return
	}
	end, err := queryTime(ctx, "end_date")
	if err != nil {
		writeError(ctx, err)
		return
	}
	if start == nil || end == nil {
		writeError(ctx, fmt.Errorf("%w: start_date and end_date are required", model.ErrInvalidArgument))
		return
	}

	out, err := h.svc.GenerateBill(xhttp.Context(ctx), id, *start, *end)
	if err != nil {
		writeError(ctx, err)
		return
	}
	name := fmt.Sprintf("bill-%d-%s-%s.%s", id, start.Format("20060102"), end.Format("20060102"), h.format.FileExtension())
	writeFile(ctx, h.format.ContentType(), name, out)
}

// GetTransactionReport renders the rows selected by type (all, customer,
// date or both). Unknown types fall back to all.
func (h *ReportHandler) GetTransactionReport(ctx *xhttp.RequestCtx) {
	q := model.ReportQuery{Kind: model.ParseReportKind(query(ctx, "type"))}
	var err error
	if q.CustomerID, err = queryInt64(ctx, "customer_id"); err != nil {
		writeError(ctx, err)
		return
	}
	if q.Start, err = queryTime(ctx, "start_date"); err != nil {
		writeError(ctx, err)
		return
	}
	if q.End, err = queryTime(ctx, "end_date"); err != nil {
		writeError(ctx, err)
		return
	}

	out, err := h.svc.GenerateReport(xhttp.Context(ctx), q)
	if err != nil {
		writeError(ctx, err)
		return
	}
	name := fmt.Sprintf("transactions-%s-%s.%s", q.Kind, time.Now().UTC().Format("20060102150405"), h.format.FileExtension())
	writeFile(ctx, h.format.ContentType(), name, out)
}
