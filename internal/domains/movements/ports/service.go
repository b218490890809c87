package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	movtypes "github.com/Apurer/stock-ledger/internal/domains/movements/application/types"
	"github.com/Apurer/stock-ledger/internal/domains/movements/domain"
)

// Service exposes stock movement and order use cases to adapters.
type Service interface {
	CreateTransaction(ctx context.Context, input movtypes.TransactionInput) (domain.Transaction, error)
	CreateOrder(ctx context.Context, input movtypes.OrderInput) (*domain.Order, error)
	FulfillOrder(ctx context.Context, id uuid.UUID) (*movtypes.FulfillmentResult, error)
	CancelOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	Order(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	Orders(ctx context.Context) ([]*domain.Order, error)
	AllTransactions(ctx context.Context) ([]domain.Transaction, error)
	TransactionsFor(ctx context.Context, name string) ([]domain.Transaction, error)
	TransactionsInRange(ctx context.Context, start, end time.Time) ([]domain.Transaction, error)
}
