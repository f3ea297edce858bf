package repository

import (
	"context"
	"testing"
	"time"

	"github.com/nimasrn/debt-tracker/internal/model"
	"github.com/nimasrn/debt-tracker/pkg/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *store.DB {
	gdb, err := store.Create(store.Config{Driver: store.DriverSQLite, Path: ":memory:", MaxOpenConns: 1}, false)
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(gdb))

	db := store.New(gdb, gdb)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedCustomer(t *testing.T, db *store.DB, name string, debt string) *model.Customer {
	c, err := NewCustomerRepository(db).Create(context.Background(), &model.Customer{
		Name:      name,
		TotalDebt: decimal.RequireFromString(debt),
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	return c
}

func seedTransaction(t *testing.T, db *store.DB, customerID int64, typ model.TransactionType, amount string, date time.Time) *model.Transaction {
	txn, err := NewTransactionRepository(db).Create(context.Background(), &model.Transaction{
		CustomerID: customerID,
		Type:       typ,
		Amount:     decimal.RequireFromString(amount),
		Date:       date,
	})
	require.NoError(t, err)
	return txn
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
