package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/nimasrn/debt-tracker/internal/model"
	"github.com/nimasrn/debt-tracker/pkg/logger"
	"github.com/nimasrn/debt-tracker/pkg/prom"
	"github.com/shopspring/decimal"
)

type TransactionServiceOption func(*TransactionService)

func WithEventPublisher(p EventPublisher) TransactionServiceOption {
	return func(s *TransactionService) { s.publisher = p }
}

func WithClock(now func() time.Time) TransactionServiceOption {
	return func(s *TransactionService) { s.now = now }
}

// WithTouchCustomerCreatedAt makes Add overwrite an existing customer's
// CreatedAt with the transaction date, as older deployments did.
func WithTouchCustomerCreatedAt(enabled bool) TransactionServiceOption {
	return func(s *TransactionService) { s.touchCreatedAt = enabled }
}

// TransactionService owns every write to the ledger and keeps each customer's
// TotalDebt equal to the signed sum of its transactions.
type TransactionService struct {
	customerRepo    CustomerRepository
	transactionRepo TransactionRepository
	publisher       EventPublisher
	now             func() time.Time
	touchCreatedAt  bool
}

func NewTransactionService(customerRepo CustomerRepository, transactionRepo TransactionRepository, opts ...TransactionServiceOption) *TransactionService {
	s := &TransactionService{
		customerRepo:    customerRepo,
		transactionRepo: transactionRepo,
		now:             time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Add posts a transaction. An unknown customer id provisions an "Unknown"
// customer whose debt starts at the transaction's effect.
func (s *TransactionService) Add(ctx context.Context, p model.TransactionCreateRequest) (*model.AddTransactionResult, error) {
	start := time.Now()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	txn := p.Transaction()
	if txn.Date.IsZero() {
		txn.Date = now
	}
	effect := txn.Effect()

	result := &model.AddTransactionResult{}
	err := s.customerRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		customer, err := s.customerRepo.GetForUpdate(ctx, txn.CustomerID)
		switch {
		case errors.Is(err, model.ErrCustomerNotFound):
			customer, err = s.customerRepo.Create(ctx, model.NewUnknownCustomer(effect, now))
			if err != nil {
				return fmt.Errorf("provision customer: %w", err)
			}
			txn.CustomerID = customer.ID
			result.Resolution = model.ResolutionProvisioned
		case err != nil:
			return fmt.Errorf("load customer: %w", err)
		default:
			customer.TotalDebt = customer.TotalDebt.Add(effect)
			var touched *time.Time
			if s.touchCreatedAt {
				customer.CreatedAt = txn.Date
				touched = &txn.Date
			}
			if err := s.customerRepo.UpdateBalance(ctx, customer.ID, customer.TotalDebt, touched); err != nil {
				return fmt.Errorf("update balance: %w", err)
			}
			result.Resolution = model.ResolutionResolved
		}

		created, err := s.transactionRepo.Create(ctx, txn)
		if err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		result.Transaction = created
		result.Customer = customer
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Resolution == model.ResolutionProvisioned {
		prom.IncCustomerProvisioned()
		logger.Info("[ledger] provisioned customer for orphan transaction",
			"requested_customer_id", p.CustomerID,
			"customer_id", result.Customer.ID,
			"transaction_id", result.Transaction.ID)
	}
	s.record("add", result.Transaction.Type, start)
	s.publish(ctx, model.LedgerEventTransactionCreated, result.Transaction.ID, result.Customer.ID)
	return result, nil
}

// Update replaces a transaction's financial fields and moves the balance
// difference onto the affected customers.
func (s *TransactionService) Update(ctx context.Context, p model.TransactionUpdateRequest) (*model.Transaction, error) {
	start := time.Now()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var updated *model.Transaction
	var oldCustomerID int64
	err := s.customerRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.transactionRepo.GetForUpdate(ctx, p.ID)
		if err != nil {
			return err
		}
		old := *existing
		oldCustomerID = old.CustomerID
		p.Apply(existing)

		customers, err := s.lockCustomers(ctx, old.CustomerID, existing.CustomerID)
		if err != nil {
			return err
		}

		if old.CustomerID == existing.CustomerID {
			if err := s.adjust(ctx, customers, existing.CustomerID, existing.Effect().Sub(old.Effect()), existing.ID); err != nil {
				return err
			}
		} else {
			if _, ok := customers[existing.CustomerID]; !ok {
				return model.ErrCustomerNotFound
			}
			if err := s.adjust(ctx, customers, old.CustomerID, old.Effect().Neg(), existing.ID); err != nil {
				return err
			}
			if err := s.adjust(ctx, customers, existing.CustomerID, existing.Effect(), existing.ID); err != nil {
				return err
			}
		}

		if err := s.transactionRepo.Update(ctx, existing); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		updated = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record("update", updated.Type, start)
	s.publish(ctx, model.LedgerEventTransactionUpdated, updated.ID, oldCustomerID, updated.CustomerID)
	return updated, nil
}

// Delete removes a transaction and reverses its effect on the customer.
func (s *TransactionService) Delete(ctx context.Context, id int64) (*model.Transaction, error) {
	start := time.Now()
	if id <= 0 {
		return nil, model.ErrMissingID
	}

	var deleted *model.Transaction
	err := s.customerRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.transactionRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		customers, err := s.lockCustomers(ctx, existing.CustomerID)
		if err != nil {
			return err
		}
		if err := s.adjust(ctx, customers, existing.CustomerID, existing.Effect().Neg(), existing.ID); err != nil {
			return err
		}

		if err := s.transactionRepo.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		deleted = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record("delete", deleted.Type, start)
	s.publish(ctx, model.LedgerEventTransactionDeleted, deleted.ID, deleted.CustomerID)
	return deleted, nil
}

// lockCustomers locks the given customers in ascending id order so two
// mutations touching the same pair never wait on each other in a cycle.
// Missing customers are left out of the result.
func (s *TransactionService) lockCustomers(ctx context.Context, ids ...int64) (map[int64]*model.Customer, error) {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	locked := make(map[int64]*model.Customer, len(ids))
	for _, id := range ids {
		c, err := s.customerRepo.GetForUpdate(ctx, id)
		if errors.Is(err, model.ErrCustomerNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load customer %d: %w", id, err)
		}
		locked[id] = c
	}
	return locked, nil
}

// adjust adds delta to a locked customer's debt. A customer that no longer
// exists is skipped.
func (s *TransactionService) adjust(ctx context.Context, customers map[int64]*model.Customer, customerID int64, delta decimal.Decimal, transactionID int64) error {
	c, ok := customers[customerID]
	if !ok {
		logger.Warn("[ledger] customer missing, balance adjustment skipped",
			"customer_id", customerID,
			"transaction_id", transactionID,
			"delta", delta.String())
		return nil
	}
	c.TotalDebt = c.TotalDebt.Add(delta)
	if err := s.customerRepo.UpdateBalance(ctx, c.ID, c.TotalDebt, nil); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return nil
}

func (s *TransactionService) record(op string, typ model.TransactionType, start time.Time) {
	prom.IncLedgerTransaction(op, string(typ))
	prom.ObserveLedgerOperation(op, time.Since(start).Seconds())
}

func (s *TransactionService) publish(ctx context.Context, typ model.LedgerEventType, transactionID int64, customerIDs ...int64) {
	if s.publisher == nil {
		return
	}
	customerIDs = slices.Compact(slices.Sorted(slices.Values(customerIDs)))
	event := &model.LedgerEvent{
		Type:          typ,
		TransactionID: transactionID,
		CustomerIDs:   customerIDs,
		OccurredAt:    s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		prom.IncEventPublishFailure()
		logger.Error("[ledger] event publish failed", "type", typ, "transaction_id", transactionID, "error", err)
	}
}

func (s *TransactionService) Get(ctx context.Context, id int64) (*model.Transaction, error) {
	return s.transactionRepo.GetByID(ctx, id)
}

func (s *TransactionService) List(ctx context.Context) ([]*model.Transaction, error) {
	return s.transactionRepo.List(ctx, model.TransactionFilter{})
}

func (s *TransactionService) FilterByCustomer(ctx context.Context, customerID int64) ([]*model.Transaction, error) {
	return s.transactionRepo.List(ctx, model.TransactionFilter{CustomerID: &customerID})
}

// FilterByDateRange matches on calendar day only, both ends inclusive.
func (s *TransactionService) FilterByDateRange(ctx context.Context, start, end time.Time) ([]*model.Transaction, error) {
	return s.transactionRepo.List(ctx, model.TransactionFilter{From: &start, To: &end})
}

func (s *TransactionService) FilterByCustomerAndDateRange(ctx context.Context, customerID int64, start, end time.Time) ([]*model.Transaction, error) {
	return s.transactionRepo.List(ctx, model.TransactionFilter{CustomerID: &customerID, From: &start, To: &end})
}

// Search applies whichever predicates are set on filter.
func (s *TransactionService) Search(ctx context.Context, filter model.TransactionFilter) ([]*model.Transaction, error) {
	return s.transactionRepo.List(ctx, filter)
}

// ReportTransactions selects rows for a report. A kind whose parameters are
// missing selects nothing.
func (s *TransactionService) ReportTransactions(ctx context.Context, q model.ReportQuery) ([]*model.Transaction, error) {
	filter, ok := q.Filter()
	if !ok {
		return []*model.Transaction{}, nil
	}
	return s.transactionRepo.List(ctx, filter)
}
