package domain

import (
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger groups batches by case-insensitive item name. Within a name the
// batches are kept sorted by CompareFEFO with at most one batch per expiry
// key, and every stored quantity is positive. A Ledger is not safe for
// concurrent use; callers serialize access.
type Ledger struct {
	groups map[string][]Batch
	names  []string
	logger *slog.Logger
}

// Withdrawal records how much was taken from one batch during Consume.
type Withdrawal struct {
	Expiry   *time.Time
	Quantity int
	Depleted bool
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger used to report rejected mutations.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLedger returns an empty ledger.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		groups: map[string][]Batch{},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Add merges the batch into the ledger. A batch whose name and expiry key
// match an existing batch increases its quantity; otherwise it is inserted
// at its FEFO position. Invalid batches, and batches that would push the
// item's total past math.MaxInt, are reported and leave the ledger untouched.
func (l *Ledger) Add(batch Batch) error {
	batch = NewBatch(batch.Name, batch.Quantity, batch.Expiry).WithPricing(batch.UnitCost, batch.UnitPrice)
	if err := validateBatch(batch); err != nil {
		l.reject("add", batch.Name, err)
		return err
	}
	if headroom := l.Headroom(batch.Name); batch.Quantity > headroom {
		err := NewStockOverflow(batch.Name, batch.Quantity, headroom)
		l.reject("add", batch.Name, err)
		return err
	}
	batches, exists := l.groups[batch.Name]
	idx, found := slices.BinarySearchFunc(batches, batch, CompareFEFO)
	if found {
		batches[idx].Quantity += batch.Quantity
		return nil
	}
	if !exists {
		l.names = append(l.names, batch.Name)
	}
	l.groups[batch.Name] = slices.Insert(batches, idx, batch)
	return nil
}

// Delete removes the batch whose expiry matches exactly. A nil expiry only
// matches the undated batch.
func (l *Ledger) Delete(name string, expiry *time.Time) error {
	name = NormalizeName(name)
	idx, err := l.locate(name, expiry)
	if err != nil {
		l.reject("delete", name, err)
		return err
	}
	l.removeAt(name, idx)
	return nil
}

// Edit overwrites the quantity of the batch whose expiry matches exactly.
func (l *Ledger) Edit(name string, expiry *time.Time, quantity int) error {
	name = NormalizeName(name)
	if quantity <= 0 {
		err := NewInvalidQuantity(name, quantity)
		l.reject("edit", name, err)
		return err
	}
	idx, err := l.locate(name, expiry)
	if err != nil {
		l.reject("edit", name, err)
		return err
	}
	current := l.groups[name][idx].Quantity
	if headroom := l.Headroom(name) + current; quantity > headroom {
		err := NewStockOverflow(name, quantity, headroom)
		l.reject("edit", name, err)
		return err
	}
	l.groups[name][idx].Quantity = quantity
	return nil
}

// Consume withdraws quantity units of name, depleting the earliest-expiring
// batches first. When the request exceeds the total stock nothing is
// withdrawn and a StockUnderflow error is returned.
func (l *Ledger) Consume(name string, quantity int) ([]Withdrawal, error) {
	name = NormalizeName(name)
	if quantity <= 0 {
		err := NewInvalidQuantity(name, quantity)
		l.reject("consume", name, err)
		return nil, err
	}
	available := l.StockCount(name)
	if quantity > available {
		return nil, NewStockUnderflow(name, quantity, available)
	}

	var withdrawals []Withdrawal
	remaining := quantity
	for remaining > 0 {
		head := l.groups[name][0]
		switch {
		case head.Quantity == remaining:
			withdrawals = append(withdrawals, Withdrawal{Expiry: head.Clone().Expiry, Quantity: remaining, Depleted: true})
			l.removeAt(name, 0)
			remaining = 0
		case head.Quantity > remaining:
			withdrawals = append(withdrawals, Withdrawal{Expiry: head.Clone().Expiry, Quantity: remaining})
			l.groups[name][0].Quantity -= remaining
			remaining = 0
		default:
			withdrawals = append(withdrawals, Withdrawal{Expiry: head.Clone().Expiry, Quantity: head.Quantity, Depleted: true})
			l.removeAt(name, 0)
			remaining -= head.Quantity
		}
	}
	return withdrawals, nil
}

// ExpiringBefore returns a new ledger holding copies of the dated batches
// that expire strictly before the cutoff day.
func (l *Ledger) ExpiringBefore(cutoff time.Time) *Ledger {
	out := NewLedger(WithLogger(l.logger))
	for _, name := range l.names {
		for _, b := range l.groups[name] {
			if b.ExpiresBefore(cutoff) {
				_ = out.Add(b)
			}
		}
	}
	return out
}

// BelowOrAt returns copies of the batches whose quantity is at most threshold.
func (l *Ledger) BelowOrAt(threshold int) []Batch {
	var out []Batch
	for _, name := range l.names {
		for _, b := range l.groups[name] {
			if b.Quantity <= threshold {
				out = append(out, b.Clone())
			}
		}
	}
	return out
}

// StockCount sums the quantities of every batch of name.
func (l *Ledger) StockCount(name string) int {
	total := 0
	for _, b := range l.groups[NormalizeName(name)] {
		total += b.Quantity
	}
	return total
}

// Headroom is how many more units of name the ledger can hold. Add and Edit
// keep every item total within math.MaxInt, so StockCount never overflows.
func (l *Ledger) Headroom(name string) int {
	return math.MaxInt - l.StockCount(name)
}

// TotalBatchCount counts batches across all names.
func (l *Ledger) TotalBatchCount() int {
	total := 0
	for _, batches := range l.groups {
		total += len(batches)
	}
	return total
}

// Len returns the number of item groups.
func (l *Ledger) Len() int {
	return len(l.names)
}

// Has reports whether an item group exists for name.
func (l *Ledger) Has(name string) bool {
	_, ok := l.groups[NormalizeName(name)]
	return ok
}

// Names lists item names in insertion order.
func (l *Ledger) Names() []string {
	return slices.Clone(l.names)
}

// AllBatches flattens the ledger in name insertion order, FEFO within a name.
func (l *Ledger) AllBatches() []Batch {
	out := make([]Batch, 0, l.TotalBatchCount())
	for _, name := range l.names {
		for _, b := range l.groups[name] {
			out = append(out, b.Clone())
		}
	}
	return out
}

// BatchesNamed returns copies of the batches of one item in FEFO order.
func (l *Ledger) BatchesNamed(name string) []Batch {
	batches := l.groups[NormalizeName(name)]
	if len(batches) == 0 {
		return nil
	}
	out := make([]Batch, len(batches))
	for i, b := range batches {
		out[i] = b.Clone()
	}
	return out
}

// Valuation sums cost and price value over every batch.
func (l *Ledger) Valuation() (cost, price decimal.Decimal) {
	for _, batches := range l.groups {
		for _, b := range batches {
			cost = cost.Add(b.CostValue())
			price = price.Add(b.PriceValue())
		}
	}
	return cost, price
}

// Clone deep-copies the ledger.
func (l *Ledger) Clone() *Ledger {
	out := &Ledger{
		groups: make(map[string][]Batch, len(l.groups)),
		names:  slices.Clone(l.names),
		logger: l.logger,
	}
	for name, batches := range l.groups {
		copied := make([]Batch, len(batches))
		for i, b := range batches {
			copied[i] = b.Clone()
		}
		out.groups[name] = copied
	}
	return out
}

func (l *Ledger) locate(name string, expiry *time.Time) (int, error) {
	batches, ok := l.groups[name]
	if !ok {
		return 0, NewNoSuchItemGroup(name)
	}
	target := Batch{Expiry: normalizeExpiry(expiry)}
	idx, found := slices.BinarySearchFunc(batches, target, CompareFEFO)
	if !found {
		return 0, NewItemNotFound(name, FormatExpiry(target.Expiry))
	}
	return idx, nil
}

func (l *Ledger) removeAt(name string, idx int) {
	batches := slices.Delete(l.groups[name], idx, idx+1)
	if len(batches) > 0 {
		l.groups[name] = batches
		return
	}
	delete(l.groups, name)
	if i := slices.Index(l.names, name); i >= 0 {
		l.names = slices.Delete(l.names, i, i+1)
	}
}

func (l *Ledger) reject(op, name string, err error) {
	l.logger.Warn("ledger mutation rejected",
		slog.String("op", op),
		slog.String("item", name),
		slog.String("error", err.Error()),
	)
}

func validateBatch(b Batch) error {
	if err := ValidateName(b.Name); err != nil {
		return err
	}
	if b.Quantity <= 0 {
		return NewInvalidQuantity(b.Name, b.Quantity)
	}
	if b.UnitCost.IsNegative() || b.UnitPrice.IsNegative() {
		return &Error{Kind: KindInvalidQuantity, Item: b.Name, Requested: b.Quantity, Detail: "unit cost and price must not be negative"}
	}
	return nil
}
