package domain

import "math"

// PointsToValueRate is the currency value of one loyalty point.
const PointsToValueRate = 1000

// Customer is a loyalty-program member.
type Customer struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Email         string `json:"email,omitempty"`
	LoyaltyPoints int    `json:"loyalty_points"`
}

// CartItem is one line of the checkout cart.
type CartItem struct {
	ID       int64  `json:"id"`
	Name     string `json:"name,omitempty"`
	Price    Price  `json:"price"`
	Quantity int    `json:"quantity"`
}

// Cart is the checkout form state: items, the customer fields and the
// redemption toggle. Use the methods to change it so that the redemption
// reset rules hold.
type Cart struct {
	Items            []CartItem `json:"items"`
	SelectedCustomer *Customer  `json:"selectedCustomer"`
	CustomerName     string     `json:"customer"`
	Phone            string     `json:"phone"`
	UsePoints        bool       `json:"usePoints"`
	PointsToUse      int        `json:"pointsToUse"`
}

// RedemptionQuote is derived from a Cart and never stored.
type RedemptionQuote struct {
	TotalAmount     float64 `json:"totalAmount"`
	MaxPointsCanUse int     `json:"maxPointsCanUse"`
	PointsToUse     int     `json:"pointsToUse"`
	PointsDiscount  float64 `json:"pointsDiscount"`
	FinalAmount     float64 `json:"finalAmount"`
}

// TotalAmount is the sum of quantity times price over all items. Lines with
// a quantity below 1 or a negative price count as zero.
func (c *Cart) TotalAmount() float64 {
	var total float64
	for _, it := range c.Items {
		price := it.Price.Value()
		if it.Quantity < 1 || price < 0 {
			continue
		}
		total += float64(it.Quantity) * price
	}
	return total
}

// ValidateItems rejects lines with a quantity below 1 or a negative price.
func (c *Cart) ValidateItems() error {
	for _, it := range c.Items {
		if it.Quantity < 1 {
			return &ValidationError{Field: "items", Message: "Item quantity must be at least 1"}
		}
		if it.Price.Value() < 0 {
			return &ValidationError{Field: "items", Message: "Item price cannot be negative"}
		}
	}
	return nil
}

// MaxPointsCanUse caps redemption at both the customer's balance and the cart value.
func (c *Cart) MaxPointsCanUse() int {
	if c.SelectedCustomer == nil {
		return 0
	}
	balance := max(0, c.SelectedCustomer.LoyaltyPoints)
	byValue := math.Floor(c.TotalAmount() / PointsToValueRate)
	if byValue < float64(balance) {
		return max(0, int(byValue))
	}
	return balance
}

// Normalize deselects the customer, and so resets redemption, when the name
// or phone field no longer matches the selected customer.
func (c *Cart) Normalize() {
	if c.SelectedCustomer == nil {
		return
	}
	if c.CustomerName != c.SelectedCustomer.Name || c.Phone != c.SelectedCustomer.Phone {
		c.ClearCustomer()
	}
}

// Quote computes the redemption for the current cart. It does not modify c.
func (c *Cart) Quote() RedemptionQuote {
	n := *c
	n.Normalize()

	total := n.TotalAmount()
	maxPoints := n.MaxPointsCanUse()

	points := 0
	if n.UsePoints {
		points = clamp(n.PointsToUse, 0, maxPoints)
	}
	discount := float64(points) * PointsToValueRate

	return RedemptionQuote{
		TotalAmount:     total,
		MaxPointsCanUse: maxPoints,
		PointsToUse:     points,
		PointsDiscount:  discount,
		FinalAmount:     math.Max(0, total-discount),
	}
}

// SelectCustomer attaches a customer, copies their name and phone into the
// form and resets redemption.
func (c *Cart) SelectCustomer(cust Customer) {
	c.SelectedCustomer = &cust
	c.CustomerName = cust.Name
	c.Phone = cust.Phone
	c.resetRedemption()
}

// ClearCustomer detaches the selected customer and resets redemption.
func (c *Cart) ClearCustomer() {
	c.SelectedCustomer = nil
	c.resetRedemption()
}

// SetCustomerName edits the name field. Moving it away from the selected
// customer's name deselects that customer.
func (c *Cart) SetCustomerName(name string) {
	c.CustomerName = name
	if c.SelectedCustomer != nil && name != c.SelectedCustomer.Name {
		c.ClearCustomer()
	}
}

// SetPhone edits the phone field. Moving it away from the selected
// customer's phone deselects that customer.
func (c *Cart) SetPhone(phone string) {
	c.Phone = phone
	if c.SelectedCustomer != nil && phone != c.SelectedCustomer.Phone {
		c.ClearCustomer()
	}
}

// SetUsePoints toggles redemption. Enabling it redeems the maximum.
func (c *Cart) SetUsePoints(on bool) {
	c.UsePoints = on
	if on {
		c.PointsToUse = c.MaxPointsCanUse()
		return
	}
	c.PointsToUse = 0
}

// SetPointsToUse sets the number of points to redeem, clamped to [0, MaxPointsCanUse].
func (c *Cart) SetPointsToUse(n int) {
	c.PointsToUse = clamp(n, 0, c.MaxPointsCanUse())
}

// AddItem appends item, or bumps the quantity when the same id is already in the cart.
func (c *Cart) AddItem(item CartItem) {
	for i := range c.Items {
		if c.Items[i].ID == item.ID {
			c.Items[i].Quantity++
			return
		}
	}
	item.Quantity = 1
	c.Items = append(c.Items, item)
}

// SetQuantity changes the quantity of an item; quantities below 1 become 1.
func (c *Cart) SetQuantity(id int64, quantity int) {
	for i := range c.Items {
		if c.Items[i].ID == id {
			c.Items[i].Quantity = max(1, quantity)
			return
		}
	}
}

// RemoveItem drops the item with the given id.
func (c *Cart) RemoveItem(id int64) {
	out := c.Items[:0]
	for _, it := range c.Items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	c.Items = out
}

func (c *Cart) resetRedemption() {
	c.UsePoints = false
	c.PointsToUse = 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
