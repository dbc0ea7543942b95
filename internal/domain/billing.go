package domain

import (
	"context"
	"time"
)

// BillItem is a line of a bill as sent to the billing service.
type BillItem struct {
	MenuItemID int64  `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
	Price      Amount `json:"price"`
	ItemName   string `json:"item_name,omitempty"`
}

// BillRequest creates a bill, optionally redeeming loyalty points.
type BillRequest struct {
	Customer         string     `json:"customer"`
	Phone            string     `json:"phone"`
	Date             string     `json:"date"`
	TableID          string     `json:"table_id,omitempty"`
	TableName        string     `json:"table_name,omitempty"`
	Total            float64    `json:"total"`
	OriginalTotal    float64    `json:"original_total"`
	Items            []BillItem `json:"items,omitempty"`
	CustomerID       *int64     `json:"customer_id"`
	PointsUsed       int        `json:"points_used"`
	PointsDiscount   float64    `json:"points_discount"`
	ShouldEarnPoints bool       `json:"should_earn_points"`
}

// Bill is a stored bill.
type Bill struct {
	ID             int64      `json:"id"`
	Customer       string     `json:"customer"`
	Phone          string     `json:"phone"`
	Date           string     `json:"date"`
	Total          Amount     `json:"total"`
	TotalAmount    Amount     `json:"total_amount,omitempty"`
	PointsUsed     int        `json:"points_used,omitempty"`
	PointsDiscount Amount     `json:"points_discount,omitempty"`
	Items          []BillItem `json:"items"`
	ItemsCount     int        `json:"items_count,omitempty"`
	TableStatusNew string     `json:"table_status_new,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

// BillFilter narrows a bill listing. Empty fields are not sent.
type BillFilter struct {
	FromDate string
	ToDate   string
	Search   string
	Page     int
}

// BillPage is one page of bills.
type BillPage struct {
	Count   int    `json:"count"`
	Results []Bill `json:"results"`
}

// MonthlyRevenue is the revenue of one calendar month.
type MonthlyRevenue struct {
	Month   int    `json:"month"`
	Revenue Amount `json:"revenue"`
}

// BillingRepository is the port for the billing and table services.
type BillingRepository interface {
	CreateBill(ctx context.Context, req BillRequest, idempotencyKey string) (*Bill, error)
	CreateTableBill(ctx context.Context, req BillRequest, idempotencyKey string) (*Bill, error)
	ListBills(ctx context.Context, f BillFilter) (*BillPage, error)
	GetBill(ctx context.Context, id int64) (*Bill, error)
	DeleteBill(ctx context.Context, id int64) error
	MonthlyRevenue(ctx context.Context, year int) ([]MonthlyRevenue, error)
}

// LoyaltyTransaction is an entry of a customer's points history.
type LoyaltyTransaction struct {
	ID        int64      `json:"id"`
	Points    int        `json:"points"`
	Type      string     `json:"transaction_type"`
	Reason    string     `json:"reason,omitempty"`
	BillID    *int64     `json:"bill_id,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// PointsAdjustment adds (positive) or removes (negative) points manually.
type PointsAdjustment struct {
	Points int    `json:"points"`
	Reason string `json:"reason"`
}

// CustomerRepository is the port for the customer service.
type CustomerRepository interface {
	SearchCustomers(ctx context.Context, query string, limit int) ([]Customer, error)
	GetCustomer(ctx context.Context, id int64) (*Customer, error)
	LoyaltyHistory(ctx context.Context, id int64) ([]LoyaltyTransaction, error)
	AdjustPoints(ctx context.Context, id int64, adj PointsAdjustment) (*Customer, error)
}
