package app

import (
	"context"
	"fmt"
	"log"

	"restoadmin/internal/domain"
)

// DashboardService assembles the dashboard overview.
type DashboardService struct {
	repo domain.DashboardRepository
}

// NewDashboardService creates a DashboardService backed by the given repository.
func NewDashboardService(repo domain.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// Overview is everything the dashboard screen shows at once.
type Overview struct {
	Statistics     domain.DashboardStatistics `json:"statistics"`
	WeeklyRevenue  []float64                  `json:"weeklyRevenue"`
	MonthlyRevenue []float64                  `json:"monthlyRevenue"`
	TopSelling     domain.TopSelling          `json:"topSelling"`
}

// Overview fetches statistics, revenue series and best sellers. Weekly
// revenue always has 7 values and monthly revenue 12; missing entries are 0.
func (s *DashboardService) Overview(ctx context.Context) (*Overview, error) {
	stats, err := s.repo.Statistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("statistics: %w", err)
	}
	weekly, err := s.repo.WeeklyRevenue(ctx)
	if err != nil {
		return nil, fmt.Errorf("weekly revenue: %w", err)
	}
	monthly, err := s.repo.MonthlyRevenue(ctx)
	if err != nil {
		return nil, fmt.Errorf("monthly revenue: %w", err)
	}

	out := &Overview{
		WeeklyRevenue:  normalise(weekly, 7),
		MonthlyRevenue: normalise(monthly, 12),
		TopSelling:     domain.TopSelling{Food: []domain.TopItem{}, Drinks: []domain.TopItem{}},
	}
	if stats != nil {
		out.Statistics = *stats
	}

	// A top-selling failure is logged and the rest of the overview returned.
	top, err := s.repo.TopSelling(ctx)
	if err != nil {
		log.Printf("dashboard: top selling: %v", err)
		return out, nil
	}
	if top != nil {
		if top.Food != nil {
			out.TopSelling.Food = top.Food
		}
		if top.Drinks != nil {
			out.TopSelling.Drinks = top.Drinks
		}
	}
	return out, nil
}

// normalise pads or truncates values to exactly n entries.
func normalise(values []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, values)
	return out
}
