package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"restoadmin/internal/domain"
)

// CustomerAPI implements domain.CustomerRepository against the customer service.
type CustomerAPI struct {
	c *Client
}

var _ domain.CustomerRepository = (*CustomerAPI)(nil)

// NewCustomerAPI creates a CustomerAPI.
func NewCustomerAPI(c *Client) *CustomerAPI {
	return &CustomerAPI{c: c}
}

func (a *CustomerAPI) SearchCustomers(ctx context.Context, query string, limit int) ([]domain.Customer, error) {
	q := url.Values{}
	q.Set("search", query)
	q.Set("limit", strconv.Itoa(limit))

	var raw json.RawMessage
	if err := a.c.Do(ctx, http.MethodGet, "/api/customers/", q, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[domain.Customer](raw)
}

func (a *CustomerAPI) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	var out domain.Customer
	if err := a.c.Do(ctx, http.MethodGet, fmt.Sprintf("/api/customers/%d/", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *CustomerAPI) LoyaltyHistory(ctx context.Context, id int64) ([]domain.LoyaltyTransaction, error) {
	var raw json.RawMessage
	if err := a.c.Do(ctx, http.MethodGet, fmt.Sprintf("/api/customers/%d/loyalty_history/", id), nil, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[domain.LoyaltyTransaction](raw)
}

func (a *CustomerAPI) AdjustPoints(ctx context.Context, id int64, adj domain.PointsAdjustment) (*domain.Customer, error) {
	var out struct {
		domain.Customer
		Nested *domain.Customer `json:"customer"`
	}
	if err := a.c.Do(ctx, http.MethodPost, fmt.Sprintf("/api/customers/%d/loyalty_points/", id), nil, adj, &out); err != nil {
		return nil, err
	}
	if out.Nested != nil {
		return out.Nested, nil
	}
	return &out.Customer, nil
}
