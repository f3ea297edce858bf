package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/debt-tracker/internal/model"
	"github.com/nimasrn/debt-tracker/internal/repository"
	"github.com/nimasrn/debt-tracker/pkg/redis"
	"github.com/nimasrn/debt-tracker/pkg/store"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// SetupTestDB opens a private in-memory sqlite database with the ledger
// schema. A single connection keeps every query on the same database.
func SetupTestDB(t *testing.T) *store.DB {
	t.Helper()
	gdb, err := store.Create(store.Config{Driver: store.DriverSQLite, Path: ":memory:", MaxOpenConns: 1}, false)
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(gdb))

	db := store.New(gdb, gdb)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, redis.New(client, "test:")
}

func CreateTestCustomer(t *testing.T, db *store.DB, name string, debt string) *model.Customer {
	t.Helper()
	c, err := repository.NewCustomerRepository(db).Create(context.Background(), &model.Customer{
		Name:      name,
		TotalDebt: decimal.RequireFromString(debt),
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return c
}

func GetCustomer(t *testing.T, db *store.DB, id int64) *model.Customer {
	t.Helper()
	c, err := repository.NewCustomerRepository(db).GetByID(context.Background(), id)
	require.NoError(t, err)
	return c
}

func CountTransactions(t *testing.T, db *store.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Read(context.Background()).Model(&repository.TransactionEntity{}).Count(&n).Error)
	return n
}

func CountCustomers(t *testing.T, db *store.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Read(context.Background()).Model(&repository.CustomerEntity{}).Count(&n).Error)
	return n
}

// RequireLedgerConsistent fails the test when any customer's TotalDebt
// differs from the signed sum of its transactions.
func RequireLedgerConsistent(t *testing.T, db *store.DB) {
	t.Helper()
	ctx := context.Background()
	customers, err := repository.NewCustomerRepository(db).List(ctx)
	require.NoError(t, err)

	txns := repository.NewTransactionRepository(db)
	for _, c := range customers {
		sum, err := txns.SumEffectByCustomer(ctx, c.ID)
		require.NoError(t, err)
		require.True(t, sum.Equal(c.TotalDebt), "customer %d: total_debt=%s ledger=%s", c.ID, c.TotalDebt, sum)
	}
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func Day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func Ptr[T any](v T) *T {
	return &v
}
