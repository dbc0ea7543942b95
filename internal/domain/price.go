package domain

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var (
	nonNumeric     = regexp.MustCompile(`[^\d.,]`)
	leadingDecimal = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)`)
)

// Price is a menu price as sent by the menu service: either a JSON number or
// a currency-formatted string such as "45,000 VND".
type Price struct {
	Amount float64
	Text   string
	isText bool
}

// NumberPrice returns a numeric Price.
func NumberPrice(v float64) Price {
	return Price{Amount: v}
}

// TextPrice returns a Price given as formatted text.
func TextPrice(s string) Price {
	return Price{Text: s, isText: true}
}

// Value returns the numeric value of the price. Text prices are parsed with
// ParsePrice; unparsable text yields 0.
func (p Price) Value() float64 {
	if p.isText {
		return ParsePrice(p.Text)
	}
	return p.Amount
}

// UnmarshalJSON accepts a number or a string.
func (p *Price) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*p = NumberPrice(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*p = TextPrice(s)
	return nil
}

// MarshalJSON writes the price back in the form it was received.
func (p Price) MarshalJSON() ([]byte, error) {
	if p.isText {
		return json.Marshal(p.Text)
	}
	return json.Marshal(p.Amount)
}

// ParsePrice extracts the first decimal value from a formatted price string.
// Everything except digits, '.' and ',' is dropped, commas are treated as
// thousands separators, and the longest leading decimal literal is parsed.
// It never fails: unparsable input yields 0.
func ParsePrice(s string) float64 {
	cleaned := strings.ReplaceAll(nonNumeric.ReplaceAllString(s, ""), ",", "")
	lit := leadingDecimal.FindString(cleaned)
	if lit == "" {
		return 0
	}
	v, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return 0
	}
	return v
}

// Amount is a money value that services may encode as a JSON number or as a
// decimal string ("125000.00").
type Amount float64

// UnmarshalJSON accepts a number, a numeric string or null.
func (a *Amount) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*a = Amount(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*a = Amount(ParsePrice(s))
	return nil
}
