package services

import (
	"context"
	"testing"
	"time"

	"github.com/nimasrn/debt-tracker/internal/model"
	"github.com/nimasrn/debt-tracker/internal/repository"
	"github.com/nimasrn/debt-tracker/pkg/store"
	"github.com/nimasrn/debt-tracker/test/fixtures"
	"github.com/nimasrn/debt-tracker/test/helpers"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ledger struct {
	db        *store.DB
	svc       *TransactionService
	customers *CustomerService
}

func newLedger(t *testing.T, opts ...TransactionServiceOption) *ledger {
	db := helpers.SetupTestDB(t)
	customerRepo := repository.NewCustomerRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	return &ledger{
		db:        db,
		svc:       NewTransactionService(customerRepo, transactionRepo, opts...),
		customers: NewCustomerService(customerRepo),
	}
}

func (l *ledger) debt(t *testing.T, id int64) decimal.Decimal {
	return helpers.GetCustomer(t, l.db, id).TotalDebt
}

func assertDebt(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s got %s", want, got)
}

func TestTransactionService_Scenario(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	c, err := l.customers.Create(ctx, fixtures.TestCustomerAlice)
	require.NoError(t, err)
	assertDebt(t, "0", c.TotalDebt)

	day := helpers.Day(2024, time.March, 1)

	debit, err := l.svc.Add(ctx, fixtures.Debit(c.ID, "100", day))
	require.NoError(t, err)
	assert.Equal(t, model.ResolutionResolved, debit.Resolution)
	assertDebt(t, "100", debit.Customer.TotalDebt)
	assertDebt(t, "100", l.debt(t, c.ID))

	credit, err := l.svc.Add(ctx, fixtures.Credit(c.ID, "40", day))
	require.NoError(t, err)
	assertDebt(t, "60", l.debt(t, c.ID))

	updated, err := l.svc.Update(ctx, fixtures.Update(debit.Transaction.ID, c.ID, model.TransactionTypeDebit, "150"))
	require.NoError(t, err)
	assertDebt(t, "150", updated.Amount)
	assertDebt(t, "110", l.debt(t, c.ID))

	deleted, err := l.svc.Delete(ctx, credit.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, credit.Transaction.ID, deleted.ID)
	assertDebt(t, "150", l.debt(t, c.ID))

	helpers.RequireLedgerConsistent(t, l.db)
}

func TestTransactionService_AddThenDeleteRestoresDebt(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	c := helpers.CreateTestCustomer(t, l.db, "A", "0")
	_, err := l.svc.Add(ctx, fixtures.Debit(c.ID, "33.33", time.Now()))
	require.NoError(t, err)
	before := l.debt(t, c.ID)

	for _, req := range []model.TransactionCreateRequest{
		fixtures.Debit(c.ID, "12.5", time.Now()),
		fixtures.Credit(c.ID, "99.99", time.Now()),
	} {
		res, err := l.svc.Add(ctx, req)
		require.NoError(t, err)
		_, err = l.svc.Delete(ctx, res.Transaction.ID)
		require.NoError(t, err)
		assert.True(t, before.Equal(l.debt(t, c.ID)))
	}
	helpers.RequireLedgerConsistent(t, l.db)
}

func TestTransactionService_ValidationCreatesNothing(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	invalidType := fixtures.Debit(999, "10", time.Now())
	invalidType.Type = "Invalid"
	_, err := l.svc.Add(ctx, invalidType)
	assert.ErrorIs(t, err, model.ErrInvalidTransactionType)
	assert.Contains(t, err.Error(), "invalid transaction type")

	for _, amount := range []string{"0", "-10"} {
		_, err = l.svc.Add(ctx, fixtures.Debit(999, amount, time.Now()))
		assert.ErrorIs(t, err, model.ErrNonPositiveAmount)
	}

	_, err = l.svc.Add(ctx, fixtures.Debit(999, "0.125", time.Now()))
	assert.ErrorIs(t, err, model.ErrAmountPrecision)

	assert.Zero(t, helpers.CountCustomers(t, l.db))
	assert.Zero(t, helpers.CountTransactions(t, l.db))
}

func TestTransactionService_ProvisionsUnknownCustomer(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	res, err := l.svc.Add(ctx, fixtures.Credit(999, "25", time.Now()))
	require.NoError(t, err)

	assert.Equal(t, model.ResolutionProvisioned, res.Resolution)
	assert.Equal(t, model.UnknownCustomerName, res.Customer.Name)
	assert.Empty(t, res.Customer.Phone)
	assert.Empty(t, res.Customer.Address)
	assert.Equal(t, res.Customer.ID, res.Transaction.CustomerID)

	stored := helpers.GetCustomer(t, l.db, res.Customer.ID)
	assertDebt(t, "-25", stored.TotalDebt)
	assert.Equal(t, int64(1), helpers.CountCustomers(t, l.db))
	helpers.RequireLedgerConsistent(t, l.db)
}

func TestTransactionService_CreatedAtIsKeptByDefault(t *testing.T) {
	fixed := time.Date(2031, 1, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	l := newLedger(t, WithClock(func() time.Time { return fixed }))
	c := helpers.CreateTestCustomer(t, l.db, "A", "0")
	_, err := l.svc.Add(ctx, fixtures.Debit(c.ID, "1", time.Now()))
	require.NoError(t, err)
	assert.True(t, c.CreatedAt.Equal(helpers.GetCustomer(t, l.db, c.ID).CreatedAt))

	touching := newLedger(t, WithClock(func() time.Time { return fixed }), WithTouchCustomerCreatedAt(true))
	c = helpers.CreateTestCustomer(t, touching.db, "B", "0")
	dated := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	res, err := touching.svc.Add(ctx, fixtures.Debit(c.ID, "1", dated))
	require.NoError(t, err)
	assert.True(t, dated.Equal(res.Customer.CreatedAt))
	assert.True(t, dated.Equal(helpers.GetCustomer(t, touching.db, c.ID).CreatedAt), "created_at takes the transaction date")
}

func TestTransactionService_UpdateMovesBalanceBetweenCustomers(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	a := helpers.CreateTestCustomer(t, l.db, "A", "0")
	b := helpers.CreateTestCustomer(t, l.db, "B", "0")

	res, err := l.svc.Add(ctx, fixtures.Debit(a.ID, "80", time.Now()))
	require.NoError(t, err)

	updated, err := l.svc.Update(ctx, fixtures.Update(res.Transaction.ID, b.ID, model.TransactionTypeDebit, "30"))
	require.NoError(t, err)
	assert.Equal(t, b.ID, updated.CustomerID)

	assertDebt(t, "0", l.debt(t, a.ID))
	assertDebt(t, "30", l.debt(t, b.ID))
	helpers.RequireLedgerConsistent(t, l.db)
}

func TestTransactionService_UpdateToMissingCustomerFails(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	a := helpers.CreateTestCustomer(t, l.db, "A", "0")
	res, err := l.svc.Add(ctx, fixtures.Debit(a.ID, "80", time.Now()))
	require.NoError(t, err)

	_, err = l.svc.Update(ctx, fixtures.Update(res.Transaction.ID, 999, model.TransactionTypeDebit, "80"))
	assert.ErrorIs(t, err, model.ErrCustomerNotFound)

	assertDebt(t, "80", l.debt(t, a.ID))
	got, err := l.svc.Get(ctx, res.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.CustomerID)
}

func TestTransactionService_UpdateSkipsDeletedCustomer(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	a := helpers.CreateTestCustomer(t, l.db, "A", "0")
	res, err := l.svc.Add(ctx, fixtures.Debit(a.ID, "40", helpers.Day(2024, 1, 1)))
	require.NoError(t, err)

	// drop the customer row only, leaving its transaction behind
	require.NoError(t, l.db.Write(ctx).Exec("DELETE FROM customers WHERE id = ?", a.ID).Error)

	updated, err := l.svc.Update(ctx, fixtures.Update(res.Transaction.ID, a.ID, model.TransactionTypeDebit, "70"))
	require.NoError(t, err)
	assertDebt(t, "70", updated.Amount)
	assert.Zero(t, helpers.CountCustomers(t, l.db))

	got, err := l.svc.Get(ctx, res.Transaction.ID)
	require.NoError(t, err)
	assertDebt(t, "70", got.Amount)
}

func TestTransactionService_UpdateRoundTripRestores(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	a := helpers.CreateTestCustomer(t, l.db, "A", "0")
	res, err := l.svc.Add(ctx, fixtures.Debit(a.ID, "10", helpers.Day(2024, 1, 1)))
	require.NoError(t, err)
	before := l.debt(t, a.ID)

	_, err = l.svc.Update(ctx, fixtures.Update(res.Transaction.ID, a.ID, model.TransactionTypeCredit, "75"))
	require.NoError(t, err)
	_, err = l.svc.Update(ctx, fixtures.Update(res.Transaction.ID, a.ID, model.TransactionTypeDebit, "10"))
	require.NoError(t, err)

	assert.True(t, before.Equal(l.debt(t, a.ID)))
	got, err := l.svc.Get(ctx, res.Transaction.ID)
	require.NoError(t, err)
	assert.True(t, helpers.Day(2024, 1, 1).Equal(got.Date), "date kept when not supplied")
}

func TestTransactionService_NotFound(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	_, err := l.svc.Update(ctx, fixtures.Update(12345, 1, model.TransactionTypeDebit, "1"))
	assert.ErrorIs(t, err, model.ErrTransactionNotFound)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = l.svc.Delete(ctx, 12345)
	assert.ErrorIs(t, err, model.ErrTransactionNotFound)

	_, err = l.svc.Delete(ctx, 0)
	assert.ErrorIs(t, err, model.ErrMissingID)

	_, err = l.svc.Update(ctx, fixtures.Update(0, 1, model.TransactionTypeDebit, "1"))
	assert.ErrorIs(t, err, model.ErrMissingID)
}

func TestTransactionService_DateRangeBoundaries(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	c := helpers.CreateTestCustomer(t, l.db, "A", "0")

	start := helpers.Day(2024, 1, 10)
	end := helpers.Day(2024, 1, 20)
	dates := []time.Time{
		start.AddDate(0, 0, -1),
		start,
		start.Add(13 * time.Hour),
		end.Add(23*time.Hour + 59*time.Minute),
		end.AddDate(0, 0, 1),
	}
	var created []int64
	for _, d := range dates {
		res, err := l.svc.Add(ctx, fixtures.Debit(c.ID, "1", d))
		require.NoError(t, err)
		created = append(created, res.Transaction.ID)
	}

	got, err := l.svc.FilterByDateRange(ctx, start.Add(9*time.Hour), end)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, created[1:4], []int64{got[0].ID, got[1].ID, got[2].ID})

	other := helpers.CreateTestCustomer(t, l.db, "B", "0")
	_, err = l.svc.Add(ctx, fixtures.Debit(other.ID, "1", start))
	require.NoError(t, err)

	got, err = l.svc.FilterByCustomerAndDateRange(ctx, c.ID, start, end)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = l.svc.FilterByCustomer(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	all, err := l.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 6)
}

func TestTransactionService_ReportTransactions(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	c := helpers.CreateTestCustomer(t, l.db, "A", "0")
	_, err := l.svc.Add(ctx, fixtures.Debit(c.ID, "1", helpers.Day(2024, 5, 5)))
	require.NoError(t, err)

	rows, err := l.svc.ReportTransactions(ctx, model.ReportQuery{Kind: model.ReportKindCustomer})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NotNil(t, rows)

	rows, err = l.svc.ReportTransactions(ctx, model.ReportQuery{Kind: model.ReportKindCustomer, CustomerID: &c.ID})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, err = l.svc.ReportTransactions(ctx, model.ReportQuery{Kind: model.ParseReportKind("nonsense")})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
