package types

import (
	"time"

	"github.com/google/uuid"

	invdomain "github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
	"github.com/Apurer/stock-ledger/internal/domains/movements/domain"
)

// FulfillmentNotes is attached to every transaction produced by fulfilling an order.
const FulfillmentNotes = "Order fulfillment"

// TransactionInput records a single stock movement. IdempotencyKey is optional.
type TransactionInput struct {
	Name           string
	Quantity       int
	Type           domain.TransactionType
	Notes          string
	OrderID        uuid.NullUUID
	IdempotencyKey string
}

// OrderInput captures a new order. Items are copied into the order.
type OrderInput struct {
	Type  domain.OrderType
	Items []invdomain.Batch
	Notes string
}

// FulfillmentResult is the fulfilled order with the transactions it produced.
type FulfillmentResult struct {
	Order        *domain.Order
	Transactions []domain.Transaction
}

// OrderReference identifies an order in workflow payloads.
type OrderReference struct {
	OrderID string
}

// FulfillmentReceipt is the serializable outcome of a fulfillment, used where the
// order aggregate cannot travel (workflow payloads).
type FulfillmentReceipt struct {
	OrderID        string
	Status         string
	FulfilledAt    time.Time
	TransactionIDs []string
}

// NewFulfillmentReceipt summarizes a fulfillment result.
func NewFulfillmentReceipt(result *FulfillmentResult) FulfillmentReceipt {
	if result == nil || result.Order == nil {
		return FulfillmentReceipt{}
	}
	receipt := FulfillmentReceipt{
		OrderID: result.Order.ID.String(),
		Status:  string(result.Order.Status()),
	}
	if at := result.Order.FulfilledAt(); at != nil {
		receipt.FulfilledAt = *at
	}
	for _, tx := range result.Transactions {
		receipt.TransactionIDs = append(receipt.TransactionIDs, tx.ID.String())
	}
	return receipt
}
