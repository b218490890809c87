package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// ExpiryLayout is the calendar-date format used for expiry keys and transport.
	ExpiryLayout = "2006-01-02"
	// NoExpiryKey identifies the undated batch of an item.
	NoExpiryKey = "none"
)

// Batch is a quantity of one named item sharing a single expiry key.
type Batch struct {
	Name      string
	Quantity  int
	Expiry    *time.Time
	UnitCost  decimal.Decimal
	UnitPrice decimal.Decimal
}

// NewBatch builds a batch with a normalized name and a date-only expiry.
func NewBatch(name string, quantity int, expiry *time.Time) Batch {
	return Batch{
		Name:     NormalizeName(name),
		Quantity: quantity,
		Expiry:   normalizeExpiry(expiry),
	}
}

// WithPricing returns a copy carrying the given unit cost and price.
func (b Batch) WithPricing(cost, price decimal.Decimal) Batch {
	b.UnitCost = cost
	b.UnitPrice = price
	return b
}

// HasExpiry reports whether the batch is dated.
func (b Batch) HasExpiry() bool {
	return b.Expiry != nil
}

// ExpiryKey returns the identity of the batch within its item group.
func (b Batch) ExpiryKey() string {
	return FormatExpiry(b.Expiry)
}

// ExpiresBefore reports whether the batch is dated strictly before the cutoff day.
func (b Batch) ExpiresBefore(cutoff time.Time) bool {
	if b.Expiry == nil {
		return false
	}
	return b.Expiry.Before(dateOf(cutoff))
}

// CostValue is quantity times unit cost.
func (b Batch) CostValue() decimal.Decimal {
	return b.UnitCost.Mul(decimal.NewFromInt(int64(b.Quantity)))
}

// PriceValue is quantity times unit price.
func (b Batch) PriceValue() decimal.Decimal {
	return b.UnitPrice.Mul(decimal.NewFromInt(int64(b.Quantity)))
}

// Clone copies the batch so the expiry pointer is never shared between owners.
func (b Batch) Clone() Batch {
	if b.Expiry != nil {
		expiry := *b.Expiry
		b.Expiry = &expiry
	}
	return b
}

// CompareFEFO orders batches first-expire-first-out: dated batches before
// undated ones, dated batches by ascending day, undated batches equal.
func CompareFEFO(a, b Batch) int {
	switch {
	case a.Expiry == nil && b.Expiry == nil:
		return 0
	case a.Expiry == nil:
		return 1
	case b.Expiry == nil:
		return -1
	default:
		return a.Expiry.Compare(*b.Expiry)
	}
}

// NormalizeName folds item names to their case-insensitive key.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidateName rejects names the name,quantity record format cannot hold.
// The name is expected in its normalized form.
func ValidateName(name string) error {
	if name == "" {
		return NewInvalidCommand("item name is required")
	}
	if strings.ContainsAny(name, ",\r\n") {
		return NewInvalidCommand(fmt.Sprintf("item name %q must not contain commas or line breaks", name))
	}
	return nil
}

// ParseExpiry parses a YYYY-MM-DD expiry. Empty input and "none" mean undated.
func ParseExpiry(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, NoExpiryKey) {
		return nil, nil
	}
	parsed, err := time.Parse(ExpiryLayout, raw)
	if err != nil {
		return nil, NewParseDateError(raw, err)
	}
	return &parsed, nil
}

// FormatExpiry renders an expiry key; undated batches render as "none".
func FormatExpiry(expiry *time.Time) string {
	if expiry == nil {
		return NoExpiryKey
	}
	return expiry.Format(ExpiryLayout)
}

// Date returns the UTC midnight of the given calendar day.
func Date(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func normalizeExpiry(expiry *time.Time) *time.Time {
	if expiry == nil {
		return nil
	}
	d := dateOf(*expiry)
	return &d
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
