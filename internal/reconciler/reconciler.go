package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nimasrn/debt-tracker/internal/model"
	"github.com/nimasrn/debt-tracker/pkg/logger"
	"github.com/nimasrn/debt-tracker/pkg/prom"
	"github.com/shopspring/decimal"
)

type Result string

const (
	ResultConsistent Result = "consistent"
	ResultDrift      Result = "drift"
	ResultRepaired   Result = "repaired"
	// ResultMissing means the customer was deleted before the check ran.
	ResultMissing Result = "missing"
)

type CustomerStore interface {
	GetForUpdate(ctx context.Context, id int64) (*model.Customer, error)
	ListIDs(ctx context.Context) ([]int64, error)
	UpdateBalance(ctx context.Context, id int64, totalDebt decimal.Decimal, createdAt *time.Time) error
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type LedgerSummer interface {
	SumEffectByCustomer(ctx context.Context, customerID int64) (decimal.Decimal, error)
}

// Reconciler compares each customer's stored TotalDebt with the signed sum of
// its transactions.
type Reconciler struct {
	customers CustomerStore
	ledger    LedgerSummer
	repair    bool
	stats     *Stats
}

// New builds a Reconciler. With repair set, drift is corrected by writing the
// recomputed sum back to the customer.
func New(customers CustomerStore, ledger LedgerSummer, repair bool) *Reconciler {
	return &Reconciler{
		customers: customers,
		ledger:    ledger,
		repair:    repair,
		stats:     NewStats(),
	}
}

func (r *Reconciler) Stats() *Stats {
	return r.stats
}

// Check verifies one customer. The customer row is locked while summing so a
// concurrent posting cannot be seen half applied.
func (r *Reconciler) Check(ctx context.Context, customerID int64) (Result, error) {
	start := time.Now()
	result := ResultConsistent

	err := r.customers.WithinTransaction(ctx, func(ctx context.Context) error {
		c, err := r.customers.GetForUpdate(ctx, customerID)
		if errors.Is(err, model.ErrCustomerNotFound) {
			result = ResultMissing
			return nil
		}
		if err != nil {
			return fmt.Errorf("load customer: %w", err)
		}

		sum, err := r.ledger.SumEffectByCustomer(ctx, customerID)
		if err != nil {
			return fmt.Errorf("sum ledger: %w", err)
		}
		if sum.Equal(c.TotalDebt) {
			return nil
		}

		logger.Warn("[reconciler] balance drift",
			"customer_id", customerID,
			"total_debt", c.TotalDebt.String(),
			"ledger_sum", sum.String(),
			"repair", r.repair)
		result = ResultDrift
		if !r.repair {
			return nil
		}
		if err := r.customers.UpdateBalance(ctx, customerID, sum, nil); err != nil {
			return fmt.Errorf("repair balance: %w", err)
		}
		result = ResultRepaired
		return nil
	})
	if err != nil {
		r.stats.recordFailure()
		prom.IncReconcileCheck("error")
		return "", err
	}

	r.stats.record(result, time.Since(start))
	prom.IncReconcileCheck(string(result))
	if result == ResultRepaired {
		prom.IncReconcileRepair()
		logger.Info("[reconciler] balance repaired", "customer_id", customerID)
	}
	return result, nil
}

// Sweep checks every customer once. It stops at the first error.
func (r *Reconciler) Sweep(ctx context.Context) (map[Result]int, error) {
	ids, err := r.customers.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	counts := make(map[Result]int)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return counts, err
		}
		res, err := r.Check(ctx, id)
		if err != nil {
			return counts, fmt.Errorf("check customer %d: %w", id, err)
		}
		counts[res]++
	}
	logger.Info("[reconciler] sweep finished",
		"customers", len(ids),
		"drift", counts[ResultDrift]+counts[ResultRepaired],
		"repaired", counts[ResultRepaired])
	return counts, nil
}
