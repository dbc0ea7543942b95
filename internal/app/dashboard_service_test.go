package app_test

import (
	"context"
	"errors"
	"testing"

	"restoadmin/internal/app"
	"restoadmin/internal/domain"
)

type mockDashboardRepo struct {
	statisticsFn func(ctx context.Context) (*domain.DashboardStatistics, error)
	weeklyFn     func(ctx context.Context) ([]float64, error)
	monthlyFn    func(ctx context.Context) ([]float64, error)
	topFn        func(ctx context.Context) (*domain.TopSelling, error)
}

func (m *mockDashboardRepo) Statistics(ctx context.Context) (*domain.DashboardStatistics, error) {
	if m.statisticsFn != nil {
		return m.statisticsFn(ctx)
	}
	return &domain.DashboardStatistics{}, nil
}

func (m *mockDashboardRepo) WeeklyRevenue(ctx context.Context) ([]float64, error) {
	if m.weeklyFn != nil {
		return m.weeklyFn(ctx)
	}
	return nil, nil
}

func (m *mockDashboardRepo) MonthlyRevenue(ctx context.Context) ([]float64, error) {
	if m.monthlyFn != nil {
		return m.monthlyFn(ctx)
	}
	return nil, nil
}

func (m *mockDashboardRepo) TopSelling(ctx context.Context) (*domain.TopSelling, error) {
	if m.topFn != nil {
		return m.topFn(ctx)
	}
	return &domain.TopSelling{}, nil
}

func TestOverview_NormalisesSeries(t *testing.T) {
	repo := &mockDashboardRepo{
		statisticsFn: func(_ context.Context) (*domain.DashboardStatistics, error) {
			return &domain.DashboardStatistics{TotalOrders: 12, TotalRevenue: 3500000}, nil
		},
		weeklyFn: func(_ context.Context) ([]float64, error) {
			return []float64{100, 200, 300}, nil
		},
		monthlyFn: func(_ context.Context) ([]float64, error) {
			return make([]float64, 14), nil
		},
	}

	svc := app.NewDashboardService(repo)
	ov, err := svc.Overview(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ov.WeeklyRevenue) != 7 {
		t.Fatalf("expected 7 weekly values, got %d", len(ov.WeeklyRevenue))
	}
	if ov.WeeklyRevenue[2] != 300 || ov.WeeklyRevenue[6] != 0 {
		t.Errorf("unexpected weekly series %v", ov.WeeklyRevenue)
	}
	if len(ov.MonthlyRevenue) != 12 {
		t.Errorf("expected 12 monthly values, got %d", len(ov.MonthlyRevenue))
	}
	if ov.Statistics.TotalOrders != 12 {
		t.Errorf("expected 12 orders, got %d", ov.Statistics.TotalOrders)
	}
}

func TestOverview_StatisticsError(t *testing.T) {
	repo := &mockDashboardRepo{
		statisticsFn: func(_ context.Context) (*domain.DashboardStatistics, error) {
			return nil, &domain.APIError{Status: 502}
		},
	}

	svc := app.NewDashboardService(repo)
	if _, err := svc.Overview(context.Background()); domain.Classify(err) != domain.KindServer {
		t.Fatalf("expected server error, got %v", err)
	}
}

func TestOverview_TopSellingOptional(t *testing.T) {
	repo := &mockDashboardRepo{
		topFn: func(_ context.Context) (*domain.TopSelling, error) {
			return nil, errors.New("boom")
		},
	}

	svc := app.NewDashboardService(repo)
	ov, err := svc.Overview(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ov.TopSelling.Food == nil || ov.TopSelling.Drinks == nil {
		t.Error("expected empty, non-nil best seller lists")
	}
}
