package ports

import (
	"context"

	"github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
)

// Storage persists the ledger outside the process.
type Storage interface {
	// Save replaces the stored ledger. Failures are reported as domain SaveError.
	Save(ctx context.Context, ledger *domain.Ledger) error
	// Load reads the stored ledger. Malformed records are skipped and returned in the
	// slice; the final error is set only when the source cannot be read at all.
	Load(ctx context.Context) (*domain.Ledger, []error, error)
}
