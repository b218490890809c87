package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	movtypes "github.com/Apurer/stock-ledger/internal/domains/movements/application/types"
	orderactivities "github.com/Apurer/stock-ledger/internal/platform/temporal/activities/orders"
)

// RunOrderFulfillmentSequence applies an order to the ledger and then mirrors
// the resulting ledger. A failed mirror does not undo the fulfillment.
func RunOrderFulfillmentSequence(ctx workflow.Context, ref movtypes.OrderReference) (*movtypes.FulfillmentReceipt, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("order fulfillment sequence started", "orderId", ref.OrderID)
	fulfillOptions := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
		},
	}
	mirrorOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		HeartbeatTimeout:    10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    5 * time.Second,
			MaximumAttempts:    3,
		},
	}

	var receipt movtypes.FulfillmentReceipt
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, fulfillOptions), orderactivities.FulfillOrderActivityName, ref).Get(ctx, &receipt)
	if err != nil {
		logger.Error("order fulfillment sequence failed", "orderId", ref.OrderID, "error", err)
		return nil, err
	}
	logger.Info("order fulfillment sequence applied", "orderId", ref.OrderID, "transactions", len(receipt.TransactionIDs))

	if err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, mirrorOptions), orderactivities.MirrorLedgerActivityName, ref).Get(ctx, nil); err != nil {
		logger.Warn("order fulfillment sequence mirror failed", "orderId", ref.OrderID, "error", err)
		return &receipt, nil
	}
	logger.Info("order fulfillment sequence mirrored", "orderId", ref.OrderID)
	return &receipt, nil
}
