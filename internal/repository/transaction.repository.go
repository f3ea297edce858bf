package repository

import (
	"context"
	"errors"

	"github.com/nimasrn/debt-tracker/internal/model"
	"github.com/nimasrn/debt-tracker/pkg/store"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransactionRepository struct {
	*store.DB
}

func NewTransactionRepository(db *store.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	entity := toTransactionEntity(txn)
	entity.ID = 0

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toTransactionModel(entity), nil
}

// Update writes every mutable column, zero values included.
func (r *TransactionRepository) Update(ctx context.Context, txn *model.Transaction) error {
	entity := toTransactionEntity(txn)
	result := r.Write(ctx).
		Model(&TransactionEntity{ID: entity.ID}).
		Select("customer_id", "type", "amount", "description", "date").
		Updates(entity)
	return result.Error
}

func (r *TransactionRepository) Delete(ctx context.Context, id int64) error {
	result := r.Write(ctx).Where("id = ?", id).Delete(&TransactionEntity{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrTransactionNotFound
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*model.Transaction, error) {
	return r.get(r.Read(ctx), id)
}

// GetForUpdate locks the transaction row until the surrounding transaction ends.
func (r *TransactionRepository) GetForUpdate(ctx context.Context, id int64) (*model.Transaction, error) {
	return r.get(r.Write(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *TransactionRepository) get(db *gorm.DB, id int64) (*model.Transaction, error) {
	var entity TransactionEntity
	if err := db.Where("id = ?", id).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrTransactionNotFound
		}
		return nil, err
	}
	return toTransactionModel(&entity), nil
}

// List returns the transactions matching every set predicate of filter,
// ordered by id. An empty filter returns the whole ledger.
func (r *TransactionRepository) List(ctx context.Context, filter model.TransactionFilter) ([]*model.Transaction, error) {
	query := r.Read(ctx).Model(&TransactionEntity{})

	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	from, to := filter.DateBounds()
	if from != nil {
		query = query.Where("date >= ?", *from)
	}
	if to != nil {
		query = query.Where("date < ?", *to)
	}

	var entities []*TransactionEntity
	if err := query.Order("id").Find(&entities).Error; err != nil {
		return nil, err
	}
	return toTransactionModels(entities), nil
}

// SumEffectByCustomer recomputes a customer's debt from the ledger rows.
func (r *TransactionRepository) SumEffectByCustomer(ctx context.Context, customerID int64) (decimal.Decimal, error) {
	var row struct {
		Total decimal.NullDecimal
	}
	err := r.Read(ctx).
		Model(&TransactionEntity{}).
		Select("SUM(CASE WHEN type = ? THEN amount ELSE -amount END) AS total", string(model.TransactionTypeDebit)).
		Where("customer_id = ?", customerID).
		Scan(&row).
		Error
	if err != nil {
		return decimal.Zero, err
	}
	if !row.Total.Valid {
		return decimal.Zero, nil
	}
	return row.Total.Decimal, nil
}
