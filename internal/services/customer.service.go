package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nimasrn/debt-tracker/internal/model"
	"github.com/nimasrn/debt-tracker/pkg/logger"
	"github.com/shopspring/decimal"
)

type CustomerService struct {
	customerRepo CustomerRepository
	now          func() time.Time
}

func NewCustomerService(customerRepo CustomerRepository) *CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		now:          time.Now,
	}
}

// Create registers a customer with no debt.
func (s *CustomerService) Create(ctx context.Context, p model.CustomerCreateRequest) (*model.Customer, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Address = strings.TrimSpace(p.Address)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	created, err := s.customerRepo.Create(ctx, &model.Customer{
		Name:      p.Name,
		Phone:     p.Phone,
		Address:   p.Address,
		TotalDebt: decimal.Zero,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return created, nil
}

// Update changes the profile fields. TotalDebt is never taken from input.
func (s *CustomerService) Update(ctx context.Context, p model.CustomerUpdateRequest) (*model.Customer, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Address = strings.TrimSpace(p.Address)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var updated *model.Customer
	err := s.customerRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		c, err := s.customerRepo.GetForUpdate(ctx, p.ID)
		if err != nil {
			return err
		}
		c.Name, c.Phone, c.Address = p.Name, p.Phone, p.Address
		if err := s.customerRepo.UpdateProfile(ctx, c); err != nil {
			return fmt.Errorf("update customer: %w", err)
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the customer together with its transactions.
func (s *CustomerService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return model.ErrMissingID
	}
	if err := s.customerRepo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info("[customer] deleted with its transactions", "customer_id", id)
	return nil
}

func (s *CustomerService) Get(ctx context.Context, id int64) (*model.Customer, error) {
	return s.customerRepo.GetByID(ctx, id)
}

func (s *CustomerService) List(ctx context.Context) ([]*model.Customer, error) {
	return s.customerRepo.List(ctx)
}
