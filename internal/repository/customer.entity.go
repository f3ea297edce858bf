package repository

import (
	"time"

	"github.com/nimasrn/debt-tracker/internal/model"
	"github.com/shopspring/decimal"
)

type CustomerEntity struct {
	ID           int64                `db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	Name         string               `db:"name"       gorm:"column:name;type:varchar(100);not null"`
	Phone        string               `db:"phone"      gorm:"column:phone;type:varchar(15)"`
	Address      string               `db:"address"    gorm:"column:address;type:varchar(255)"`
	TotalDebt    decimal.Decimal      `db:"total_debt" gorm:"column:total_debt;type:decimal(18,2);not null;default:0"`
	CreatedAt    time.Time            `db:"created_at" gorm:"column:created_at;not null"`
	Transactions []*TransactionEntity `db:"-"          gorm:"foreignKey:CustomerID;references:ID;constraint:OnDelete:CASCADE"`
}

func (CustomerEntity) TableName() string {
	return "customers"
}

func toCustomerEntity(m *model.Customer) *CustomerEntity {
	if m == nil {
		return nil
	}
	return &CustomerEntity{
		ID:        m.ID,
		Name:      m.Name,
		Phone:     m.Phone,
		Address:   m.Address,
		TotalDebt: m.TotalDebt,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

func toCustomerModel(e *CustomerEntity) *model.Customer {
	if e == nil {
		return nil
	}
	return &model.Customer{
		ID:        e.ID,
		Name:      e.Name,
		Phone:     e.Phone,
		Address:   e.Address,
		TotalDebt: e.TotalDebt,
		CreatedAt: e.CreatedAt.UTC(),
	}
}

func toCustomerModels(entities []*CustomerEntity) []*model.Customer {
	models := make([]*model.Customer, len(entities))
	for i, e := range entities {
		models[i] = toCustomerModel(e)
	}
	return models
}
