package fixtures

import (
	"time"

	"github.com/nimasrn/debt-tracker/internal/model"
	"github.com/shopspring/decimal"
)

var (
	TestCustomerAlice = model.CustomerCreateRequest{
		Name:    "Alice Smith",
		Phone:   "555-0101",
		Address: "12 Market Street",
	}

	TestCustomerBob = model.CustomerCreateRequest{
		Name:    "Bob Jones",
		Phone:   "555-0102",
		Address: "7 Harbour Road",
	}
)

func Debit(customerID int64, amount string, date time.Time) model.TransactionCreateRequest {
	return model.TransactionCreateRequest{
		CustomerID:  customerID,
		Type:        model.TransactionTypeDebit,
		Amount:      decimal.RequireFromString(amount),
		Description: "debit " + amount,
		Date:        date,
	}
}

func Credit(customerID int64, amount string, date time.Time) model.TransactionCreateRequest {
	return model.TransactionCreateRequest{
		CustomerID:  customerID,
		Type:        model.TransactionTypeCredit,
		Amount:      decimal.RequireFromString(amount),
		Description: "credit " + amount,
		Date:        date,
	}
}

func Update(id, customerID int64, typ model.TransactionType, amount string) model.TransactionUpdateRequest {
	return model.TransactionUpdateRequest{
		ID:          id,
		CustomerID:  customerID,
		Type:        typ,
		Amount:      decimal.RequireFromString(amount),
		Description: "updated",
	}
}
