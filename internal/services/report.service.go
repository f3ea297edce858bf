package services

import (
	"context"
	"fmt"
	"time"

	"github.com/nimasrn/debt-tracker/internal/model"
)

// Renderer turns ledger rows into a downloadable document.
type Renderer interface {
	RenderTransactions(rows []*model.Transaction) ([]byte, error)
	RenderBill(bill *model.Bill) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type CustomerReader interface {
	GetByID(ctx context.Context, id int64) (*model.Customer, error)
}

type TransactionQuery interface {
	FilterByCustomerAndDateRange(ctx context.Context, customerID int64, start, end time.Time) ([]*model.Transaction, error)
	ReportTransactions(ctx context.Context, q model.ReportQuery) ([]*model.Transaction, error)
}

type ReportService struct {
	customers    CustomerReader
	transactions TransactionQuery
	renderer     Renderer
}

func NewReportService(customers CustomerReader, transactions TransactionQuery, renderer Renderer) *ReportService {
	return &ReportService{
		customers:    customers,
		transactions: transactions,
		renderer:     renderer,
	}
}

func (s *ReportService) Renderer() Renderer {
	return s.renderer
}

// BuildBill collects one customer's transactions between start and end
// (whole days, inclusive) and totals them.
func (s *ReportService) BuildBill(ctx context.Context, customerID int64, start, end time.Time) (*model.Bill, error) {
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	txns, err := s.transactions.FilterByCustomerAndDateRange(ctx, customerID, start, end)
	if err != nil {
		return nil, fmt.Errorf("load bill transactions: %w", err)
	}
	return model.NewBill(customer, model.DayStart(start), model.DayStart(end), txns), nil
}

func (s *ReportService) GenerateBill(ctx context.Context, customerID int64, start, end time.Time) ([]byte, error) {
	bill, err := s.BuildBill(ctx, customerID, start, end)
	if err != nil {
		return nil, err
	}
	out, err := s.renderer.RenderBill(bill)
	if err != nil {
		return nil, fmt.Errorf("render bill: %w", err)
	}
	return out, nil
}

func (s *ReportService) GenerateReport(ctx context.Context, q model.ReportQuery) ([]byte, error) {
	rows, err := s.transactions.ReportTransactions(ctx, q)
	if err != nil {
		return nil, err
	}
	out, err := s.renderer.RenderTransactions(rows)
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return out, nil
}
