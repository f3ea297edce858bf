package repository

import (
	"time"

	"github.com/nimasrn/debt-tracker/internal/model"
	"github.com/shopspring/decimal"
)

type TransactionEntity struct {
	ID          int64           `db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	CustomerID  int64           `db:"customer_id" gorm:"column:customer_id;not null;index"`
	Type        string          `db:"type"        gorm:"column:type;type:varchar(10);not null"`
	Amount      decimal.Decimal `db:"amount"      gorm:"column:amount;type:decimal(18,2);not null"`
	Description string          `db:"description" gorm:"column:description;type:varchar(255)"`
	Date        time.Time       `db:"date"        gorm:"column:date;not null;index"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	if m == nil {
		return nil
	}
	return &TransactionEntity{
		ID:          m.ID,
		CustomerID:  m.CustomerID,
		Type:        string(m.Type),
		Amount:      m.Amount,
		Description: m.Description,
		Date:        m.Date.UTC(),
	}
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	return &model.Transaction{
		ID:          e.ID,
		CustomerID:  e.CustomerID,
		Type:        model.TransactionType(e.Type),
		Amount:      e.Amount,
		Description: e.Description,
		Date:        e.Date.UTC(),
	}
}

func toTransactionModels(entities []*TransactionEntity) []*model.Transaction {
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		models[i] = toTransactionModel(e)
	}
	return models
}
