package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// UnknownCustomerName is given to customers provisioned for orphan transactions.
const UnknownCustomerName = "Unknown"

type Customer struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone"`
	Address   string          `json:"address"`
	TotalDebt decimal.Decimal `json:"total_debt"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewUnknownCustomer builds the placeholder customer for a transaction whose
// customer id does not resolve. Its debt starts at the transaction's effect.
func NewUnknownCustomer(initialDebt decimal.Decimal, now time.Time) *Customer {
	return &Customer{
		Name:      UnknownCustomerName,
		Phone:     "",
		Address:   "",
		TotalDebt: initialDebt,
		CreatedAt: now,
	}
}

const (
	MaxCustomerNameLen    = 100
	MaxCustomerPhoneLen   = 15
	MaxCustomerAddressLen = 255
)

type CustomerCreateRequest struct {
	Name    string
	Phone   string
	Address string
}

func (p CustomerCreateRequest) Validate() error {
	return validateProfile(p.Name, p.Phone, p.Address)
}

func validateProfile(name, phone, address string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	if utf8.RuneCountInString(name) > MaxCustomerNameLen {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidArgument, MaxCustomerNameLen)
	}
	if utf8.RuneCountInString(phone) > MaxCustomerPhoneLen {
		return fmt.Errorf("%w: phone exceeds %d characters", ErrInvalidArgument, MaxCustomerPhoneLen)
	}
	if utf8.RuneCountInString(address) > MaxCustomerAddressLen {
		return fmt.Errorf("%w: address exceeds %d characters", ErrInvalidArgument, MaxCustomerAddressLen)
	}
	return nil
}

type CustomerUpdateRequest struct {
	ID      int64
	Name    string
	Phone   string
	Address string
}

func (p CustomerUpdateRequest) Validate() error {
	if p.ID <= 0 {
		return ErrMissingID
	}
	return validateProfile(p.Name, p.Phone, p.Address)
}
