package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeCredit TransactionType = "Credit"
	TransactionTypeDebit  TransactionType = "Debit"
)

func (t TransactionType) Valid() bool {
	return t == TransactionTypeCredit || t == TransactionTypeDebit
}

// SignedEffect is the only piece of balance arithmetic in the ledger: a debit
// raises what the customer owes, a credit lowers it.
func SignedEffect(t TransactionType, amount decimal.Decimal) decimal.Decimal {
	if t == TransactionTypeDebit {
		return amount
	}
	return amount.Neg()
}

type Transaction struct {
	ID          int64           `json:"id"`
	CustomerID  int64           `json:"customer_id"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
}

func (t *Transaction) Effect() decimal.Decimal {
	return SignedEffect(t.Type, t.Amount)
}

// AmountScale matches the NUMERIC(18,2) columns amounts and balances are
// stored in.
const AmountScale = 2

func validateFinancials(t TransactionType, amount decimal.Decimal) error {
	if !t.Valid() {
		return ErrInvalidTransactionType
	}
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return ErrAmountPrecision
	}
	return nil
}

// TransactionCreateRequest is the input for posting a new transaction.
type TransactionCreateRequest struct {
	CustomerID  int64
	Type        TransactionType
	Amount      decimal.Decimal
	Description string
	Date        time.Time
}

func (p TransactionCreateRequest) Validate() error {
	return validateFinancials(p.Type, p.Amount)
}

func (p TransactionCreateRequest) Transaction() *Transaction {
	return &Transaction{
		CustomerID:  p.CustomerID,
		Type:        p.Type,
		Amount:      p.Amount,
		Description: p.Description,
		Date:        p.Date.UTC(),
	}
}

// TransactionUpdateRequest replaces the financial fields of a transaction.
// A zero Date keeps the stored one.
type TransactionUpdateRequest struct {
	ID          int64
	CustomerID  int64
	Type        TransactionType
	Amount      decimal.Decimal
	Description string
	Date        time.Time
}

func (p TransactionUpdateRequest) Validate() error {
	if p.ID <= 0 {
		return ErrMissingID
	}
	return validateFinancials(p.Type, p.Amount)
}

// Apply copies the mutable fields of the request onto t.
func (p TransactionUpdateRequest) Apply(t *Transaction) {
	t.Type = p.Type
	t.Amount = p.Amount
	t.Description = p.Description
	t.CustomerID = p.CustomerID
	if !p.Date.IsZero() {
		t.Date = p.Date.UTC()
	}
}

// CustomerResolution tells which branch AddTransaction took for the customer.
type CustomerResolution int

const (
	// ResolutionResolved means the referenced customer existed.
	ResolutionResolved CustomerResolution = iota + 1
	// ResolutionProvisioned means an "Unknown" customer was created.
	ResolutionProvisioned
)

func (r CustomerResolution) String() string {
	switch r {
	case ResolutionResolved:
		return "resolved"
	case ResolutionProvisioned:
		return "provisioned"
	}
	return "unknown"
}

func (r CustomerResolution) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *CustomerResolution) UnmarshalText(b []byte) error {
	switch string(b) {
	case "resolved":
		*r = ResolutionResolved
	case "provisioned":
		*r = ResolutionProvisioned
	default:
		return fmt.Errorf("%w: unknown resolution %q", ErrInvalidArgument, b)
	}
	return nil
}

type AddTransactionResult struct {
	Transaction *Transaction       `json:"transaction"`
	Customer    *Customer          `json:"customer"`
	Resolution  CustomerResolution `json:"resolution"`
}
