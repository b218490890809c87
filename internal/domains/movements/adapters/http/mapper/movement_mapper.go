package mapper

import (
	"errors"
	"time"

	"github.com/google/uuid"

	invmapper "github.com/Apurer/stock-ledger/internal/domains/inventory/adapters/http/mapper"
	invdomain "github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
	movtypes "github.com/Apurer/stock-ledger/internal/domains/movements/application/types"
	"github.com/Apurer/stock-ledger/internal/domains/movements/domain"
)

var errMissingItems = errors.New("items are required")

// CreateTransaction is the inbound payload for recording a movement.
type CreateTransaction struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Type     string `json:"type"`
	Notes    string `json:"notes,omitempty"`
	OrderID  string `json:"orderId,omitempty"`
}

// Transaction is the HTTP representation of a recorded movement.
type Transaction struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes,omitempty"`
	OrderID   *string   `json:"orderId,omitempty"`
}

// CreateOrder is the inbound payload for a new order.
type CreateOrder struct {
	Type  string               `json:"type"`
	Items []invmapper.AddBatch `json:"items"`
	Notes string               `json:"notes,omitempty"`
}

// Order is the HTTP representation of an order.
type Order struct {
	ID             string            `json:"id"`
	Type           string            `json:"type"`
	Status         string            `json:"status"`
	CreatedAt      time.Time         `json:"createdAt"`
	FulfilledAt    *time.Time        `json:"fulfilledAt,omitempty"`
	Notes          string            `json:"notes,omitempty"`
	Items          []invmapper.Batch `json:"items"`
	TransactionIDs []string          `json:"transactionIds,omitempty"`
}

// Fulfillment is the response to a fulfilled order.
type Fulfillment struct {
	Order        Order         `json:"order"`
	Transactions []Transaction `json:"transactions"`
}

// ToTransactionInput maps an inbound payload to the application input.
func ToTransactionInput(payload CreateTransaction) (movtypes.TransactionInput, error) {
	typ, err := domain.ParseTransactionType(payload.Type)
	if err != nil {
		return movtypes.TransactionInput{}, err
	}
	input := movtypes.TransactionInput{
		Name:     payload.Name,
		Quantity: payload.Quantity,
		Type:     typ,
		Notes:    payload.Notes,
	}
	if payload.OrderID != "" {
		id, err := uuid.Parse(payload.OrderID)
		if err != nil {
			return movtypes.TransactionInput{}, invdomain.NewInvalidCommand("orderId must be a UUID")
		}
		input.OrderID = uuid.NullUUID{UUID: id, Valid: true}
	}
	return input, nil
}

// ToOrderInput maps an inbound order payload.
func ToOrderInput(payload CreateOrder) (movtypes.OrderInput, error) {
	typ, err := domain.ParseOrderType(payload.Type)
	if err != nil {
		return movtypes.OrderInput{}, err
	}
	if len(payload.Items) == 0 {
		return movtypes.OrderInput{}, errMissingItems
	}
	items := make([]invdomain.Batch, 0, len(payload.Items))
	for _, raw := range payload.Items {
		item, err := invmapper.ToAddBatchInput(raw)
		if err != nil {
			return movtypes.OrderInput{}, err
		}
		items = append(items, invdomain.NewBatch(item.Name, item.Quantity, item.Expiry).WithPricing(item.UnitCost, item.UnitPrice))
	}
	return movtypes.OrderInput{Type: typ, Items: items, Notes: payload.Notes}, nil
}

// FromDomainTransaction converts a transaction to the transport representation.
func FromDomainTransaction(tx domain.Transaction) Transaction {
	out := Transaction{
		ID:        tx.ID.String(),
		Name:      tx.ItemName,
		Quantity:  tx.Quantity,
		Type:      string(tx.Type),
		Timestamp: tx.Timestamp,
		Notes:     tx.Notes,
	}
	if tx.OrderID.Valid {
		id := tx.OrderID.UUID.String()
		out.OrderID = &id
	}
	return out
}

// FromDomainTransactions converts a list, never returning nil.
func FromDomainTransactions(txs []domain.Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, FromDomainTransaction(tx))
	}
	return out
}

// FromDomainOrder converts an order to the transport representation.
func FromDomainOrder(order *domain.Order) Order {
	if order == nil {
		return Order{}
	}
	out := Order{
		ID:          order.ID.String(),
		Type:        string(order.Type),
		Status:      string(order.Status()),
		CreatedAt:   order.CreatedAt,
		FulfilledAt: order.FulfilledAt(),
		Notes:       order.Notes,
		Items:       invmapper.FromDomainBatches(order.Items()),
	}
	for _, id := range order.TransactionIDs() {
		out.TransactionIDs = append(out.TransactionIDs, id.String())
	}
	return out
}

// FromDomainOrders converts a list, never returning nil.
func FromDomainOrders(orders []*domain.Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, order := range orders {
		out = append(out, FromDomainOrder(order))
	}
	return out
}

// FromFulfillmentResult converts a fulfillment.
func FromFulfillmentResult(result *movtypes.FulfillmentResult) Fulfillment {
	if result == nil {
		return Fulfillment{Transactions: []Transaction{}}
	}
	return Fulfillment{
		Order:        FromDomainOrder(result.Order),
		Transactions: FromDomainTransactions(result.Transactions),
	}
}
