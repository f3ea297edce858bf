package model

import "time"

type LedgerEventType string

const (
	LedgerEventTransactionCreated LedgerEventType = "transaction.created"
	LedgerEventTransactionUpdated LedgerEventType = "transaction.updated"
	LedgerEventTransactionDeleted LedgerEventType = "transaction.deleted"
)

// LedgerEvent is published after a ledger mutation commits. CustomerIDs lists
// every customer whose balance the mutation touched.
type LedgerEvent struct {
	Type          LedgerEventType `json:"type"`
	TransactionID int64           `json:"transaction_id"`
	CustomerIDs   []int64         `json:"customer_ids"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
