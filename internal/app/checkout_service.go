package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"restoadmin/internal/domain"

	"github.com/google/uuid"
)

const (
	minSearchLength = 2
	searchLimit     = 10
)

// Checkout is a bill submission: the cart plus where and when it was served.
type Checkout struct {
	domain.Cart
	Date      string `json:"date,omitempty"`
	TableID   string `json:"table_id,omitempty"`
	TableName string `json:"table_name,omitempty"`
}

// UnmarshalJSON decodes a checkout form and applies the cart rules the
// setters would have: a customer whose name or phone was edited away is
// deselected, an absent pointsToUse with usePoints set redeems the maximum,
// and explicit values are clamped. Unknown fields are rejected.
func (c *Checkout) UnmarshalJSON(b []byte) error {
	var w struct {
		domain.Cart
		Date        string `json:"date"`
		TableID     string `json:"table_id"`
		TableName   string `json:"table_name"`
		PointsToUse *int   `json:"pointsToUse"`
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return err
	}

	*c = Checkout{Cart: w.Cart, Date: w.Date, TableID: w.TableID, TableName: w.TableName}
	c.Normalize()
	switch {
	case !c.UsePoints:
		c.PointsToUse = 0
	case w.PointsToUse == nil:
		c.SetUsePoints(true)
	default:
		c.SetPointsToUse(*w.PointsToUse)
	}
	return nil
}

// CheckoutService handles the payment screen: customer lookup, bill
// submission with loyalty redemption and manual point adjustments.
type CheckoutService struct {
	customers domain.CustomerRepository
	billing   domain.BillingRepository
	now       func() time.Time
}

// NewCheckoutService creates a CheckoutService.
func NewCheckoutService(customers domain.CustomerRepository, billing domain.BillingRepository) *CheckoutService {
	return &CheckoutService{customers: customers, billing: billing, now: time.Now}
}

// SearchCustomers looks customers up by name or phone. Queries shorter than
// two characters return no results without contacting the service.
func (s *CheckoutService) SearchCustomers(ctx context.Context, query string) ([]domain.Customer, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minSearchLength {
		return []domain.Customer{}, nil
	}
	customers, err := s.customers.SearchCustomers(ctx, query, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search customers: %w", err)
	}
	if customers == nil {
		customers = []domain.Customer{}
	}
	return customers, nil
}

// Quote prices the cart without submitting it.
func (s *CheckoutService) Quote(c Checkout) (domain.RedemptionQuote, error) {
	if err := c.ValidateItems(); err != nil {
		return domain.RedemptionQuote{}, err
	}
	return c.Cart.Quote(), nil
}

// Submit validates the checkout and creates the bill. Table checkouts are
// billed through the table service, everything else through billing.
func (s *CheckoutService) Submit(ctx context.Context, c Checkout) (*domain.Bill, error) {
	req, err := s.BuildBillRequest(c)
	if err != nil {
		return nil, err
	}

	key := uuid.NewString()
	var bill *domain.Bill
	if req.TableID != "" {
		log.Printf("checkout: creating bill from table %s", req.TableID)
		bill, err = s.billing.CreateTableBill(ctx, req, key)
	} else {
		bill, err = s.billing.CreateBill(ctx, req, key)
	}
	if err != nil {
		return nil, fmt.Errorf("create bill: %w", err)
	}
	if bill.Customer == "" {
		bill.Customer = req.Customer
	}
	if bill.Phone == "" {
		bill.Phone = req.Phone
	}
	log.Printf("checkout: bill %d created, %d points redeemed", bill.ID, req.PointsUsed)
	return bill, nil
}

// BuildBillRequest turns a checkout into the billing payload.
func (s *CheckoutService) BuildBillRequest(c Checkout) (domain.BillRequest, error) {
	name := strings.TrimSpace(c.CustomerName)
	phone := strings.TrimSpace(c.Phone)
	switch {
	case name == "":
		return domain.BillRequest{}, &domain.ValidationError{Field: "customer", Message: "Customer name is required"}
	case phone == "":
		return domain.BillRequest{}, &domain.ValidationError{Field: "phone", Message: "Phone number is required"}
	case c.TableID == "" && len(c.Items) == 0:
		return domain.BillRequest{}, &domain.ValidationError{Field: "items", Message: "Select at least one item"}
	}
	if err := c.ValidateItems(); err != nil {
		return domain.BillRequest{}, err
	}

	cart := c.Cart
	cart.Normalize()
	q := cart.Quote()
	date := c.Date
	if date == "" {
		date = s.now().Format("2006-01-02")
	}

	req := domain.BillRequest{
		Customer:         name,
		Phone:            phone,
		Date:             date,
		TableID:          c.TableID,
		TableName:        c.TableName,
		PointsUsed:       q.PointsToUse,
		PointsDiscount:   q.PointsDiscount,
		ShouldEarnPoints: !cart.UsePoints || q.PointsToUse == 0,
	}
	if cart.SelectedCustomer != nil {
		id := cart.SelectedCustomer.ID
		req.CustomerID = &id
	}
	if c.TableID == "" {
		req.Total = q.FinalAmount
		req.OriginalTotal = q.TotalAmount
		req.Items = make([]domain.BillItem, 0, len(c.Items))
		for _, it := range c.Items {
			req.Items = append(req.Items, domain.BillItem{
				MenuItemID: it.ID,
				Quantity:   it.Quantity,
				Price:      domain.Amount(it.Price.Value()),
				ItemName:   it.Name,
			})
		}
	}
	return req, nil
}

// AdjustPoints adds or removes loyalty points by hand.
func (s *CheckoutService) AdjustPoints(ctx context.Context, customerID int64, adj domain.PointsAdjustment) (*domain.Customer, error) {
	if adj.Points == 0 {
		return nil, &domain.ValidationError{Field: "points", Message: "Points must not be zero"}
	}
	if strings.TrimSpace(adj.Reason) == "" {
		return nil, &domain.ValidationError{Field: "reason", Message: "A reason is required"}
	}
	return s.customers.AdjustPoints(ctx, customerID, adj)
}

// LoyaltyHistory lists a customer's points transactions.
func (s *CheckoutService) LoyaltyHistory(ctx context.Context, customerID int64) ([]domain.LoyaltyTransaction, error) {
	return s.customers.LoyaltyHistory(ctx, customerID)
}

// Customer returns one customer.
func (s *CheckoutService) Customer(ctx context.Context, id int64) (*domain.Customer, error) {
	return s.customers.GetCustomer(ctx, id)
}
