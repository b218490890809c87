package ports

import (
	"context"

	invdomain "github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
)

// StockLedger grants exclusive access to the live inventory ledger.
type StockLedger interface {
	Atomically(ctx context.Context, fn func(*invdomain.Ledger) error) error
}
