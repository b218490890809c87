package ports

import (
	"context"
	"time"

	invtypes "github.com/Apurer/stock-ledger/internal/domains/inventory/application/types"
	"github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
)

// Service exposes inventory use cases to adapters.
type Service interface {
	AddBatch(ctx context.Context, input invtypes.AddBatchInput) (domain.Batch, error)
	EditBatch(ctx context.Context, input invtypes.EditBatchInput) (domain.Batch, error)
	DeleteBatch(ctx context.Context, input invtypes.BatchIdentifier) error
	Batches(ctx context.Context, name string) ([]domain.Batch, error)
	StockCount(ctx context.Context, name string) (int, error)
	ExpiringBefore(ctx context.Context, cutoff time.Time) ([]domain.Batch, error)
	LowStock(ctx context.Context, threshold int) ([]domain.Batch, error)
	Report(ctx context.Context) (domain.Report, error)
	Flush(ctx context.Context) error
	// Atomically runs fn against the live ledger while holding the session lock.
	Atomically(ctx context.Context, fn func(*domain.Ledger) error) error
}
