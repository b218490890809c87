package ports

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Apurer/stock-ledger/internal/domains/movements/domain"
)

var ErrNotFound = errors.New("order not found")

// Journal persists the append-only transaction log and the order list.
type Journal interface {
	AppendTransactions(ctx context.Context, txs ...domain.Transaction) error
	SaveOrder(ctx context.Context, order *domain.Order) error
	// RecordFulfillment stores the fulfilled order and its transactions as one unit.
	RecordFulfillment(ctx context.Context, order *domain.Order, txs []domain.Transaction) error
	Order(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	Orders(ctx context.Context) ([]*domain.Order, error)
	Transactions(ctx context.Context) ([]domain.Transaction, error)
}
