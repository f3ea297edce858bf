package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Bill is one customer's statement for a date window. Balance covers the
// window only, TotalDebt is the customer's all-time figure.
type Bill struct {
	Customer     *Customer       `json:"customer"`
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	Transactions []*Transaction  `json:"transactions"`
	TotalDebits  decimal.Decimal `json:"total_debits"`
	TotalCredits decimal.Decimal `json:"total_credits"`
	Balance      decimal.Decimal `json:"balance"`
	TotalDebt    decimal.Decimal `json:"total_debt"`
}

func NewBill(customer *Customer, from, to time.Time, txns []*Transaction) *Bill {
	sorted := make([]*Transaction, len(txns))
	copy(sorted, txns)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].Date.Before(sorted[j].Date)
	})

	debits, credits := decimal.Zero, decimal.Zero
	for _, t := range sorted {
		switch t.Type {
		case TransactionTypeDebit:
			debits = debits.Add(t.Amount)
		case TransactionTypeCredit:
			credits = credits.Add(t.Amount)
		}
	}

	return &Bill{
		Customer:     customer,
		From:         from,
		To:           to,
		Transactions: sorted,
		TotalDebits:  debits,
		TotalCredits: credits,
		Balance:      debits.Sub(credits),
		TotalDebt:    customer.TotalDebt,
	}
}
