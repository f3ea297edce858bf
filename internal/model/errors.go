package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks input the ledger refuses to apply.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound marks a referenced customer or transaction that does not exist.
	ErrNotFound = errors.New("not found")

	ErrInvalidTransactionType = fmt.Errorf("%w: invalid transaction type, use 'Debit' or 'Credit'", ErrInvalidArgument)
	ErrNonPositiveAmount      = fmt.Errorf("%w: non-positive amount", ErrInvalidArgument)
	ErrAmountPrecision        = fmt.Errorf("%w: amount has more than %d decimal places", ErrInvalidArgument, AmountScale)
	ErrMissingID              = fmt.Errorf("%w: id is required", ErrInvalidArgument)

	ErrCustomerNotFound    = fmt.Errorf("customer %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
)
