package rest

import (
	"context"
	"net/http"

	"restoadmin/internal/domain"
)

// DashboardAPI implements domain.DashboardRepository against the dashboard service.
type DashboardAPI struct {
	c *Client
}

var _ domain.DashboardRepository = (*DashboardAPI)(nil)

// NewDashboardAPI creates a DashboardAPI.
func NewDashboardAPI(c *Client) *DashboardAPI {
	return &DashboardAPI{c: c}
}

func (a *DashboardAPI) Statistics(ctx context.Context) (*domain.DashboardStatistics, error) {
	var out domain.DashboardStatistics
	if err := a.c.Do(ctx, http.MethodGet, "/dashboard/statistics/", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *DashboardAPI) WeeklyRevenue(ctx context.Context) ([]float64, error) {
	var out []float64
	err := a.c.Do(ctx, http.MethodGet, "/dashboard/weekly-revenue/", nil, nil, &out)
	return out, err
}

func (a *DashboardAPI) MonthlyRevenue(ctx context.Context) ([]float64, error) {
	var out []float64
	err := a.c.Do(ctx, http.MethodGet, "/dashboard/monthly-revenue/", nil, nil, &out)
	return out, err
}

func (a *DashboardAPI) TopSelling(ctx context.Context) (*domain.TopSelling, error) {
	var out domain.TopSelling
	if err := a.c.Do(ctx, http.MethodGet, "/dashboard/top-selling/", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
