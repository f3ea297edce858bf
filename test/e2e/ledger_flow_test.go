package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/nimasrn/debt-tracker/internal/handlers"
	"github.com/nimasrn/debt-tracker/internal/idempotency"
	"github.com/nimasrn/debt-tracker/internal/model"
	"github.com/nimasrn/debt-tracker/internal/queue"
	"github.com/nimasrn/debt-tracker/internal/reconciler"
	"github.com/nimasrn/debt-tracker/internal/report"
	"github.com/nimasrn/debt-tracker/internal/repository"
	"github.com/nimasrn/debt-tracker/internal/services"
	xhttp "github.com/nimasrn/debt-tracker/pkg/http"
	"github.com/nimasrn/debt-tracker/pkg/store"
	"github.com/nimasrn/debt-tracker/test/helpers"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"github.com/xuri/excelize/v2"
)

type TestEnvironment struct {
	DB         *store.DB
	Queue      *queue.Queue
	Reconciler *reconciler.Reconciler
	Client     *fasthttp.Client
}

func setupE2EEnvironment(t *testing.T) *TestEnvironment {
	db := helpers.SetupTestDB(t)
	_, adapter := helpers.SetupTestRedis(t)

	q, err := queue.NewQueue(adapter, queue.QueueConfig{
		Name:              "ledger-events",
		ConsumerGroup:     "reconciler",
		ConsumerName:      "e2e",
		VisibilityTimeout: time.Second,
		PollInterval:      20 * time.Millisecond,
		EnableDLQ:         true,
	})
	require.NoError(t, err)

	customerRepo := repository.NewCustomerRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)

	customerService := services.NewCustomerService(customerRepo)
	transactionService := services.NewTransactionService(customerRepo, transactionRepo,
		services.WithEventPublisher(queue.NewEventPublisher(q)))
	renderer := report.NewExcel()
	reportService := services.NewReportService(customerRepo, transactionService, renderer)
	idem := idempotency.NewService(adapter, idempotency.DefaultConfig())

	s := xhttp.CreateServer()
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.RequestIDMiddleware)
	s.Use(xhttp.RequestLoggerMiddleware)

	g := s.Group("/api/v1")
	handlers.RegisterHealthRoutes(g, handlers.NewHealthHandler(map[string]handlers.HealthCheck{
		"db":    db.Ping,
		"redis": adapter.Ping,
	}))
	handlers.RegisterCustomerRoutes(g, handlers.NewCustomerHandler(customerService))
	handlers.RegisterTransactionRoutes(g, handlers.NewTransactionHandler(transactionService, idem))
	handlers.RegisterReportRoutes(g, handlers.NewReportHandler(reportService, renderer))

	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = s.Serve(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Server.ShutdownWithContext(ctx)
		_ = ln.Close()
	})

	return &TestEnvironment{
		DB:         db,
		Queue:      q,
		Reconciler: reconciler.New(customerRepo, transactionRepo, false),
		Client: &fasthttp.Client{
			Dial: func(string) (net.Conn, error) { return ln.Dial() },
		},
	}
}

type response struct {
	Status  int
	Body    []byte
	Headers map[string]string
}

func (e *TestEnvironment) do(t *testing.T, method, path string, body any, headers map[string]string) response {
	t.Helper()
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("http://ledger.test" + path)
	req.Header.SetMethod(method)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		req.Header.SetContentType("application/json")
		req.SetBody(b)
	}
	require.NoError(t, e.Client.DoTimeout(req, resp, 5*time.Second))

	out := response{
		Status:  resp.StatusCode(),
		Body:    append([]byte(nil), resp.Body()...),
		Headers: map[string]string{},
	}
	for _, k := range []string{"Content-Type", "Content-Disposition", handlers.HeaderReplayed, xhttp.HeaderRequestID} {
		out.Headers[k] = string(resp.Header.Peek(k))
	}
	return out
}

func decode[T any](t *testing.T, r response) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(r.Body, &v), string(r.Body))
	return v
}

func (e *TestEnvironment) post(t *testing.T, customerID int64, typ, amount, date string) *model.AddTransactionResult {
	t.Helper()
	r := e.do(t, "POST", "/api/v1/transactions", map[string]any{
		"customer_id": customerID,
		"type":        typ,
		"amount":      amount,
		"date":        date,
	}, nil)
	require.Equal(t, 201, r.Status, string(r.Body))
	res := decode[model.AddTransactionResult](t, r)
	return &res
}

func (e *TestEnvironment) debt(t *testing.T, id int64) decimal.Decimal {
	t.Helper()
	r := e.do(t, "GET", fmt.Sprintf("/api/v1/customers/%d", id), nil, nil)
	require.Equal(t, 200, r.Status)
	return decode[model.Customer](t, r).TotalDebt
}

func TestE2E_LedgerFlow(t *testing.T) {
	env := setupE2EEnvironment(t)

	r := env.do(t, "GET", "/api/v1/health", nil, nil)
	require.Equal(t, 200, r.Status)

	r = env.do(t, "POST", "/api/v1/customers", map[string]string{"name": "Alice", "phone": "555-0101"}, nil)
	require.Equal(t, 201, r.Status, string(r.Body))
	alice := decode[model.Customer](t, r)
	assert.NotEmpty(t, r.Headers[xhttp.HeaderRequestID])

	// debit 100, retried with the same key
	key := map[string]string{handlers.HeaderIdempotencyKey: "order-1"}
	body := map[string]any{"customer_id": alice.ID, "type": "Debit", "amount": "100", "date": "2024-01-05"}
	first := env.do(t, "POST", "/api/v1/transactions", body, key)
	require.Equal(t, 201, first.Status, string(first.Body))
	retry := env.do(t, "POST", "/api/v1/transactions", body, key)
	require.Equal(t, 201, retry.Status)
	assert.Equal(t, "true", retry.Headers[handlers.HeaderReplayed])
	assert.True(t, decimal.NewFromInt(100).Equal(env.debt(t, alice.ID)))

	credit := env.post(t, alice.ID, "Credit", "40", "2024-01-10")
	assert.True(t, decimal.NewFromInt(60).Equal(env.debt(t, alice.ID)))

	env.post(t, alice.ID, "Debit", "50", "2024-01-20T15:30:00Z")
	assert.True(t, decimal.NewFromInt(110).Equal(env.debt(t, alice.ID)))

	r = env.do(t, "DELETE", fmt.Sprintf("/api/v1/transactions/%d", credit.Transaction.ID), nil, nil)
	require.Equal(t, 200, r.Status)
	assert.True(t, decimal.NewFromInt(150).Equal(env.debt(t, alice.ID)))

	// validation never touches the ledger
	r = env.do(t, "POST", "/api/v1/transactions", map[string]any{"customer_id": alice.ID, "type": "Invalid", "amount": 5}, nil)
	assert.Equal(t, 400, r.Status)
	r = env.do(t, "POST", "/api/v1/transactions", map[string]any{"customer_id": alice.ID, "type": "Debit", "amount": 0}, nil)
	assert.Equal(t, 400, r.Status)

	orphan := env.post(t, 999, "Debit", "7.5", "2024-01-06")
	assert.Equal(t, model.ResolutionProvisioned, orphan.Resolution)
	assert.Equal(t, model.UnknownCustomerName, orphan.Customer.Name)

	r = env.do(t, "GET", fmt.Sprintf("/api/v1/transactions?customer_id=%d&start_date=2024-01-05&end_date=2024-01-19", alice.ID), nil, nil)
	require.Equal(t, 200, r.Status)
	list := decode[struct {
		Items []*model.Transaction `json:"items"`
		Total int                  `json:"total"`
	}](t, r)
	assert.Equal(t, 1, list.Total)

	r = env.do(t, "GET", fmt.Sprintf("/api/v1/customers/%d/bill?start_date=2024-01-01&end_date=2024-01-31", alice.ID), nil, nil)
	require.Equal(t, 200, r.Status)
	assert.Equal(t, report.ContentTypeXLSX, r.Headers["Content-Type"])
	assert.Contains(t, r.Headers["Content-Disposition"], fmt.Sprintf("bill-%d-20240101-20240131.xlsx", alice.ID))

	f, err := excelize.OpenReader(bytes.NewReader(r.Body))
	require.NoError(t, err)
	rows, err := f.GetRows(report.SheetBill)
	require.NoError(t, err)
	last := rows[len(rows)-1]
	assert.Equal(t, "Total Debt", last[0])
	assert.Equal(t, "150.00", last[1])

	r = env.do(t, "GET", "/api/v1/reports/transactions?type=date&start_date=2024-01-06&end_date=2024-01-06", nil, nil)
	require.Equal(t, 200, r.Status)
	f, err = excelize.OpenReader(bytes.NewReader(r.Body))
	require.NoError(t, err)
	rows, err = f.GetRows(report.SheetTransactions)
	require.NoError(t, err)
	assert.Len(t, rows, 2, "header plus the orphan debit")

	helpers.RequireLedgerConsistent(t, env.DB)
}

func TestE2E_ReconcilerFollowsEvents(t *testing.T) {
	env := setupE2EEnvironment(t)

	r := env.do(t, "POST", "/api/v1/customers", map[string]string{"name": "Bob"}, nil)
	require.Equal(t, 201, r.Status)
	bob := decode[model.Customer](t, r)

	res := env.post(t, bob.ID, "Debit", "20", "2024-02-01")
	r = env.do(t, "PUT", "/api/v1/transactions", map[string]any{
		"id":          res.Transaction.ID,
		"customer_id": bob.ID,
		"type":        "Credit",
		"amount":      "5",
	}, nil)
	require.Equal(t, 200, r.Status, string(r.Body))
	assert.True(t, decimal.NewFromInt(-5).Equal(env.debt(t, bob.ID)))

	service := reconciler.NewService(env.Queue, env.Reconciler, 2)
	require.NoError(t, service.Start())
	defer service.Stop(time.Second)

	helpers.AssertEventually(t, 3*time.Second, func() bool {
		return env.Reconciler.Stats().Snapshot().Checked >= 2
	}, "reconciler did not consume the ledger events")

	snap := env.Reconciler.Stats().Snapshot()
	assert.Zero(t, snap.Drifted)
	assert.Zero(t, snap.Failed)

	stats, err := env.Queue.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalMessages)
}
