package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"restoadmin/internal/domain"
)

// BillingAPI implements domain.BillingRepository. Regular bills go to the
// billing service, table bills to the table service.
type BillingAPI struct {
	billing *Client
	tables  *Client
}

var _ domain.BillingRepository = (*BillingAPI)(nil)

// NewBillingAPI creates a BillingAPI.
func NewBillingAPI(billing, tables *Client) *BillingAPI {
	return &BillingAPI{billing: billing, tables: tables}
}

func (a *BillingAPI) CreateBill(ctx context.Context, req domain.BillRequest, idempotencyKey string) (*domain.Bill, error) {
	var out domain.Bill
	if err := a.billing.Do(ctx, http.MethodPost, "/bills/", nil, req, &out, WithHeader("Idempotency-Key", idempotencyKey)); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *BillingAPI) CreateTableBill(ctx context.Context, req domain.BillRequest, idempotencyKey string) (*domain.Bill, error) {
	in := struct {
		Date           string  `json:"date"`
		Customer       string  `json:"customer"`
		Phone          string  `json:"phone"`
		CustomerID     *int64  `json:"customer_id"`
		PointsUsed     int     `json:"points_used"`
		PointsDiscount float64 `json:"points_discount"`
	}{req.Date, req.Customer, req.Phone, req.CustomerID, req.PointsUsed, req.PointsDiscount}

	var out struct {
		domain.Bill
		Nested *domain.Bill `json:"bill"`
	}
	path := "/" + url.PathEscape(req.TableID) + "/create_bill/"
	if err := a.tables.Do(ctx, http.MethodPost, path, nil, in, &out, WithHeader("Idempotency-Key", idempotencyKey)); err != nil {
		return nil, err
	}

	bill := out.Bill
	if out.Nested != nil {
		if bill.ID == 0 {
			bill.ID = out.Nested.ID
		}
		bill.Customer = firstNonEmpty(out.Nested.Customer, bill.Customer)
		bill.Phone = firstNonEmpty(out.Nested.Phone, bill.Phone)
	}
	return &bill, nil
}

func (a *BillingAPI) ListBills(ctx context.Context, f domain.BillFilter) (*domain.BillPage, error) {
	q := url.Values{}
	if f.FromDate != "" {
		q.Set("from_date", f.FromDate)
	}
	if f.ToDate != "" {
		q.Set("to_date", f.ToDate)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}

	var raw json.RawMessage
	if err := a.billing.Do(ctx, http.MethodGet, "/bills/", q, nil, &raw); err != nil {
		return nil, err
	}
	var page domain.BillPage
	if raw = bytes.TrimSpace(raw); len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("decode bills: %w", err)
		}
	} else {
		bills, err := decodeList[domain.Bill](raw)
		if err != nil {
			return nil, err
		}
		page = domain.BillPage{Count: len(bills), Results: bills}
	}
	if page.Results == nil {
		page.Results = []domain.Bill{}
	}
	return &page, nil
}

func (a *BillingAPI) GetBill(ctx context.Context, id int64) (*domain.Bill, error) {
	var out domain.Bill
	if err := a.billing.Do(ctx, http.MethodGet, fmt.Sprintf("/bills/%d/", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *BillingAPI) DeleteBill(ctx context.Context, id int64) error {
	return a.billing.Do(ctx, http.MethodDelete, fmt.Sprintf("/bills/%d/", id), nil, nil, nil)
}

// MonthlyRevenue reads the 12-value revenue array of year.
func (a *BillingAPI) MonthlyRevenue(ctx context.Context, year int) ([]domain.MonthlyRevenue, error) {
	q := url.Values{}
	q.Set("year", strconv.Itoa(year))

	var values []domain.Amount
	if err := a.billing.Do(ctx, http.MethodGet, "/bills/monthly_revenue/", q, nil, &values); err != nil {
		return nil, err
	}
	out := make([]domain.MonthlyRevenue, 0, len(values))
	for i, v := range values {
		out = append(out, domain.MonthlyRevenue{Month: i + 1, Revenue: v})
	}
	return out, nil
}
