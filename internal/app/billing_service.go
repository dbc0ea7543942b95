package app

import (
	"context"
	"errors"
	"time"

	"restoadmin/internal/domain"
)

// BillingService encapsulates the bill history use cases.
type BillingService struct {
	repo domain.BillingRepository
}

// NewBillingService creates a BillingService backed by the given repository.
func NewBillingService(repo domain.BillingRepository) *BillingService {
	return &BillingService{repo: repo}
}

// List returns a page of bills. Dates must be YYYY-MM-DD and from must not be after to.
func (s *BillingService) List(ctx context.Context, f domain.BillFilter) (*domain.BillPage, error) {
	var from, to time.Time
	var err error
	if f.FromDate != "" {
		if from, err = time.Parse("2006-01-02", f.FromDate); err != nil {
			return nil, &domain.ValidationError{Field: "from_date", Message: "Invalid date, expected YYYY-MM-DD"}
		}
	}
	if f.ToDate != "" {
		if to, err = time.Parse("2006-01-02", f.ToDate); err != nil {
			return nil, &domain.ValidationError{Field: "to_date", Message: "Invalid date, expected YYYY-MM-DD"}
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, &domain.ValidationError{Field: "from_date", Message: "Start date is after end date"}
	}
	if f.Page < 1 {
		f.Page = 1
	}
	return s.repo.ListBills(ctx, f)
}

// Get returns one bill. Items are never nil.
func (s *BillingService) Get(ctx context.Context, id int64) (*domain.Bill, error) {
	b, err := s.repo.GetBill(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Items == nil {
		b.Items = []domain.BillItem{}
	}
	return b, nil
}

// Delete removes a bill.
func (s *BillingService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("invalid bill id")
	}
	return s.repo.DeleteBill(ctx, id)
}

// MonthlyRevenue returns revenue per month of year; year 0 means the current year.
func (s *BillingService) MonthlyRevenue(ctx context.Context, year int) ([]domain.MonthlyRevenue, error) {
	if year == 0 {
		year = time.Now().Year()
	}
	return s.repo.MonthlyRevenue(ctx, year)
}
