package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	invdomain "github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
)

// OrderType decides the direction of the transactions an order produces.
type OrderType string

const (
	OrderPurchase OrderType = "PURCHASE"
	OrderDispense OrderType = "DISPENSE"
)

// ParseOrderType accepts either type case-insensitively.
func ParseOrderType(raw string) (OrderType, error) {
	switch t := OrderType(strings.ToUpper(strings.TrimSpace(raw))); t {
	case OrderPurchase, OrderDispense:
		return t, nil
	default:
		return "", invdomain.NewInvalidCommand("order type must be PURCHASE or DISPENSE")
	}
}

// TransactionType maps the order type to the movement direction it produces.
func (t OrderType) TransactionType() TransactionType {
	if t == OrderPurchase {
		return TransactionIncoming
	}
	return TransactionOutgoing
}

// Order groups requested stock movements. Its items live in a private ledger
// that never shares batches with the live stock ledger. Status changes only
// through Fulfill and Cancel.
type Order struct {
	ID        uuid.UUID
	Type      OrderType
	CreatedAt time.Time
	Notes     string

	status         Status
	fulfilledAt    *time.Time
	items          *invdomain.Ledger
	transactionIDs []uuid.UUID
}

// NewOrder builds a pending order holding copies of items. An order must name
// at least one batch; an empty order is rejected as InvalidCommand.
func NewOrder(id uuid.UUID, typ OrderType, items []invdomain.Batch, notes string, createdAt time.Time) (*Order, error) {
	if id == uuid.Nil {
		return nil, invdomain.NewInvalidCommand("order id is required")
	}
	if _, err := ParseOrderType(string(typ)); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, invdomain.NewInvalidCommand("order requires at least one item")
	}
	o := &Order{
		ID:        id,
		Type:      typ,
		CreatedAt: createdAt,
		Notes:     notes,
		status:    StatusPending,
		items:     invdomain.NewLedger(),
	}
	for _, item := range items {
		if err := o.AddItem(item); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// OrderSnapshot carries persisted order state for RestoreOrder.
type OrderSnapshot struct {
	ID             uuid.UUID
	Type           OrderType
	Status         Status
	CreatedAt      time.Time
	FulfilledAt    *time.Time
	Notes          string
	Items          []invdomain.Batch
	TransactionIDs []uuid.UUID
}

// RestoreOrder rebuilds an order from persisted state without replaying the lifecycle.
func RestoreOrder(s OrderSnapshot) (*Order, error) {
	if !s.Status.Known() {
		return nil, invdomain.NewInvalidCommand(fmt.Sprintf("unknown order status %q", s.Status))
	}
	if _, err := ParseOrderType(string(s.Type)); err != nil {
		return nil, err
	}
	o := &Order{
		ID:             s.ID,
		Type:           s.Type,
		CreatedAt:      s.CreatedAt,
		Notes:          s.Notes,
		status:         s.Status,
		items:          invdomain.NewLedger(),
		transactionIDs: slices.Clone(s.TransactionIDs),
	}
	if s.FulfilledAt != nil {
		at := *s.FulfilledAt
		o.fulfilledAt = &at
	}
	for _, item := range s.Items {
		if err := o.items.Add(item); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Snapshot exports the order state.
func (o *Order) Snapshot() OrderSnapshot {
	return OrderSnapshot{
		ID:             o.ID,
		Type:           o.Type,
		Status:         o.status,
		CreatedAt:      o.CreatedAt,
		FulfilledAt:    o.FulfilledAt(),
		Notes:          o.Notes,
		Items:          o.Items(),
		TransactionIDs: o.TransactionIDs(),
	}
}

// Status returns the current lifecycle status.
func (o *Order) Status() Status { return o.status }

// IsPending reports whether the order can still be fulfilled or cancelled.
func (o *Order) IsPending() bool { return o.status == StatusPending }

// FulfilledAt returns a copy of the fulfillment time, nil until fulfilled.
func (o *Order) FulfilledAt() *time.Time {
	if o.fulfilledAt == nil {
		return nil
	}
	at := *o.fulfilledAt
	return &at
}

// TransactionIDs lists the transactions produced by fulfillment.
func (o *Order) TransactionIDs() []uuid.UUID {
	return slices.Clone(o.transactionIDs)
}

// AddItem merges a copy of batch into the requested items.
func (o *Order) AddItem(batch invdomain.Batch) error {
	if !o.IsPending() {
		return invdomain.NewInvalidCommand(fmt.Sprintf("cannot add items to a %s order", o.status))
	}
	return o.items.Add(batch.Clone())
}

// Items returns copies of the requested batches, items in insertion order.
func (o *Order) Items() []invdomain.Batch {
	return o.items.AllBatches()
}

// ItemLedger returns a copy of the requested items as a ledger.
func (o *Order) ItemLedger() *invdomain.Ledger {
	return o.items.Clone()
}

// ListItems renders one "name: quantity (expiry)" line per requested batch.
func (o *Order) ListItems() []string {
	batches := o.items.AllBatches()
	out := make([]string, 0, len(batches))
	for _, b := range batches {
		out = append(out, fmt.Sprintf("%s: %d (%s)", b.Name, b.Quantity, b.ExpiryKey()))
	}
	return out
}

// Fulfill moves a pending order to FULFILLED and records the produced transactions.
func (o *Order) Fulfill(at time.Time, transactionIDs []uuid.UUID) error {
	next, err := Transition(o.status, StatusFulfilled)
	if err != nil {
		return err
	}
	o.status = next
	o.fulfilledAt = &at
	o.transactionIDs = slices.Clone(transactionIDs)
	return nil
}

// Cancel moves a pending order to CANCELLED.
func (o *Order) Cancel() error {
	next, err := Transition(o.status, StatusCancelled)
	if err != nil {
		return err
	}
	o.status = next
	return nil
}

// Clone deep-copies the order, item ledger included.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.fulfilledAt = o.FulfilledAt()
	clone.items = o.items.Clone()
	clone.transactionIDs = o.TransactionIDs()
	return &clone
}
