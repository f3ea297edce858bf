package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nimasrn/debt-tracker/internal/model"
	"github.com/nimasrn/debt-tracker/pkg/store"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CustomerRepository struct {
	*store.DB
}

func NewCustomerRepository(db *store.DB) *CustomerRepository {
	return &CustomerRepository{
		db,
	}
}

func (r *CustomerRepository) Create(ctx context.Context, customer *model.Customer) (*model.Customer, error) {
	entity := toCustomerEntity(customer)
	entity.ID = 0

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toCustomerModel(entity), nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*model.Customer, error) {
	var entity CustomerEntity
	err := r.Read(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrCustomerNotFound
		}
		return nil, err
	}
	return toCustomerModel(&entity), nil
}

// GetForUpdate reads the customer row and locks it until the surrounding
// transaction ends. Must run inside WithinTransaction to hold the lock.
func (r *CustomerRepository) GetForUpdate(ctx context.Context, id int64) (*model.Customer, error) {
	var entity CustomerEntity
	err := r.Write(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrCustomerNotFound
		}
		return nil, err
	}
	return toCustomerModel(&entity), nil
}

func (r *CustomerRepository) List(ctx context.Context) ([]*model.Customer, error) {
	var entities []*CustomerEntity
	if err := r.Read(ctx).Order("id").Find(&entities).Error; err != nil {
		return nil, err
	}
	return toCustomerModels(entities), nil
}

// ListIDs returns every customer id in ascending order.
func (r *CustomerRepository) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.Read(ctx).
		Model(&CustomerEntity{}).
		Order("id").
		Pluck("id", &ids).
		Error
	return ids, err
}

// UpdateProfile overwrites the descriptive columns only. The balance columns
// belong to the ledger engine.
func (r *CustomerRepository) UpdateProfile(ctx context.Context, customer *model.Customer) error {
	return r.Write(ctx).
		Model(&CustomerEntity{}).
		Where("id = ?", customer.ID).
		Updates(map[string]any{
			"name":    customer.Name,
			"phone":   customer.Phone,
			"address": customer.Address,
		}).
		Error
}

// UpdateBalance stores a new total debt. createdAt is written too when not nil.
func (r *CustomerRepository) UpdateBalance(ctx context.Context, id int64, totalDebt decimal.Decimal, createdAt *time.Time) error {
	values := map[string]any{"total_debt": totalDebt}
	if createdAt != nil {
		values["created_at"] = createdAt.UTC()
	}

	result := r.Write(ctx).
		Model(&CustomerEntity{}).
		Where("id = ?", id).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

// Delete removes the customer and its transactions in one transaction.
func (r *CustomerRepository) Delete(ctx context.Context, id int64) error {
	return r.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := r.Write(ctx).Where("customer_id = ?", id).Delete(&TransactionEntity{}).Error; err != nil {
			return err
		}
		result := r.Write(ctx).Where("id = ?", id).Delete(&CustomerEntity{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return model.ErrCustomerNotFound
		}
		return nil
	})
}
