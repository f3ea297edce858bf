package handlers

import (
	"testing"

	"github.com/nimasrn/debt-tracker/internal/model"
	"github.com/nimasrn/debt-tracker/test/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestReportHandler_GetBill(t *testing.T) {
	svc := new(MockReportService)
	h := NewReportHandler(svc, testFormat{})

	svc.On("GenerateBill", mock.Anything, int64(4), helpers.Day(2024, 1, 1), helpers.Day(2024, 1, 31)).
		Return([]byte("PK"), nil)

	ctx := setupTestContext("GET", "/customers/4/bill?start_date=2024-01-01&end_date=2024-01-31", nil)
	ctx.SetUserValue("id", "4")
	h.GetBill(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.Equal(t, "application/vnd.test", string(ctx.Response.Header.ContentType()))
	assert.Equal(t, `attachment; filename="bill-4-20240101-20240131.xlsx"`, string(ctx.Response.Header.Peek("Content-Disposition")))
	assert.Equal(t, "PK", string(ctx.Response.Body()))
}

func TestReportHandler_GetBill_Errors(t *testing.T) {
	svc := new(MockReportService)
	h := NewReportHandler(svc, testFormat{})

	ctx := setupTestContext("GET", "/customers/4/bill?start_date=2024-01-01", nil)
	ctx.SetUserValue("id", "4")
	h.GetBill(ctx)
	assert.Equal(t, 400, ctx.Response.StatusCode())

	svc.On("GenerateBill", mock.Anything, int64(5), mock.Anything, mock.Anything).Return(nil, model.ErrCustomerNotFound)
	ctx = setupTestContext("GET", "/customers/5/bill?start_date=2024-01-01&end_date=2024-01-02", nil)
	ctx.SetUserValue("id", "5")
	h.GetBill(ctx)
	assert.Equal(t, 404, ctx.Response.StatusCode())
}

func TestReportHandler_GetTransactionReport(t *testing.T) {
	svc := new(MockReportService)
	h := NewReportHandler(svc, testFormat{})

	svc.On("GenerateReport", mock.Anything, mock.MatchedBy(func(q model.ReportQuery) bool {
		return q.Kind == model.ReportKindBoth && q.CustomerID != nil && *q.CustomerID == 3 &&
			q.Start != nil && q.End != nil
	})).Return([]byte("PK"), nil)

	ctx := setupTestContext("GET", "/reports/transactions?type=both&customer_id=3&start_date=2024-01-01&end_date=2024-02-01", nil)
	h.GetTransactionReport(ctx)
	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Header.Peek("Content-Disposition")), "transactions-both-")

	svc.On("GenerateReport", mock.Anything, model.ReportQuery{Kind: model.ReportKindAll}).Return([]byte("PK"), nil)
	ctx = setupTestContext("GET", "/reports/transactions?type=weird", nil)
	h.GetTransactionReport(ctx)
	assert.Equal(t, 200, ctx.Response.StatusCode())

	ctx = setupTestContext("GET", "/reports/transactions?customer_id=x", nil)
	h.GetTransactionReport(ctx)
	assert.Equal(t, 400, ctx.Response.StatusCode())
	svc.AssertExpectations(t)
}
