package domain

import "context"

// DashboardStatistics are the headline numbers of the dashboard.
type DashboardStatistics struct {
	TotalRevenue   Amount `json:"total_revenue"`
	TotalOrders    int    `json:"total_orders"`
	TotalCustomers int    `json:"total_customers"`
	TodayRevenue   Amount `json:"today_revenue"`
	TodayOrders    int    `json:"today_orders"`
}

// TopItem is one entry of a top-selling list.
type TopItem struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Sold  int     `json:"sold"`
	Trend string  `json:"trend"`
}

// TopSelling groups the best sellers by category.
type TopSelling struct {
	Food   []TopItem `json:"food"`
	Drinks []TopItem `json:"drinks"`
}

// DashboardRepository is the port for the dashboard service.
type DashboardRepository interface {
	Statistics(ctx context.Context) (*DashboardStatistics, error)
	WeeklyRevenue(ctx context.Context) ([]float64, error)
	MonthlyRevenue(ctx context.Context) ([]float64, error)
	TopSelling(ctx context.Context) (*TopSelling, error)
}
