package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	invdomain "github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
)

// TransactionType is the direction of a stock movement.
type TransactionType string

const (
	TransactionIncoming TransactionType = "INCOMING"
	TransactionOutgoing TransactionType = "OUTGOING"
)

// ParseTransactionType accepts either direction case-insensitively.
func ParseTransactionType(raw string) (TransactionType, error) {
	switch t := TransactionType(strings.ToUpper(strings.TrimSpace(raw))); t {
	case TransactionIncoming, TransactionOutgoing:
		return t, nil
	default:
		return "", invdomain.NewInvalidCommand("transaction type must be INCOMING or OUTGOING")
	}
}

// Transaction is an immutable record of one stock movement.
type Transaction struct {
	ID        uuid.UUID
	ItemName  string
	Quantity  int
	Type      TransactionType
	Timestamp time.Time
	Notes     string
	OrderID   uuid.NullUUID
}

// NewTransaction validates and constructs a transaction.
func NewTransaction(id uuid.UUID, item string, quantity int, typ TransactionType, at time.Time, notes string, orderID uuid.NullUUID) (Transaction, error) {
	tx := Transaction{
		ID:        id,
		ItemName:  invdomain.NormalizeName(item),
		Quantity:  quantity,
		Type:      typ,
		Timestamp: at,
		Notes:     notes,
		OrderID:   orderID,
	}
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// Validate enforces transaction invariants.
func (t Transaction) Validate() error {
	if t.ID == uuid.Nil {
		return invdomain.NewInvalidCommand("transaction id is required")
	}
	if err := invdomain.ValidateName(t.ItemName); err != nil {
		return err
	}
	if t.Quantity <= 0 {
		return invdomain.NewInvalidQuantity(t.ItemName, t.Quantity)
	}
	if _, err := ParseTransactionType(string(t.Type)); err != nil {
		return err
	}
	return nil
}

// Within reports whether the timestamp lies in [start, end].
func (t Transaction) Within(start, end time.Time) bool {
	return !t.Timestamp.Before(start) && !t.Timestamp.After(end)
}

// LinkedTo reports whether the transaction was produced by the given order.
func (t Transaction) LinkedTo(orderID uuid.UUID) bool {
	return t.OrderID.Valid && t.OrderID.UUID == orderID
}
