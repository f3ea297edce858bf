package services

import (
	"context"
	"time"

	"github.com/nimasrn/debt-tracker/internal/model"
	"github.com/shopspring/decimal"
)

type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) (*model.Customer, error)
	GetByID(ctx context.Context, id int64) (*model.Customer, error)
	GetForUpdate(ctx context.Context, id int64) (*model.Customer, error)
	List(ctx context.Context) ([]*model.Customer, error)
	UpdateProfile(ctx context.Context, customer *model.Customer) error
	UpdateBalance(ctx context.Context, id int64, totalDebt decimal.Decimal, createdAt *time.Time) error
	Delete(ctx context.Context, id int64) error
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	Update(ctx context.Context, txn *model.Transaction) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*model.Transaction, error)
	GetForUpdate(ctx context.Context, id int64) (*model.Transaction, error)
	List(ctx context.Context, filter model.TransactionFilter) ([]*model.Transaction, error)
}

// EventPublisher receives ledger events after the mutation has committed.
type EventPublisher interface {
	Publish(ctx context.Context, event *model.LedgerEvent) error
}
