package ports

import (
	"context"

	"github.com/google/uuid"

	movtypes "github.com/Apurer/stock-ledger/internal/domains/movements/application/types"
)

// FulfillmentOrchestrator runs order fulfillment, durably or inline.
type FulfillmentOrchestrator interface {
	FulfillOrder(ctx context.Context, id uuid.UUID) (*movtypes.FulfillmentResult, error)
}
