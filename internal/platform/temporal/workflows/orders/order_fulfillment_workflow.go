package orders

import (
	"go.temporal.io/sdk/workflow"

	movtypes "github.com/Apurer/stock-ledger/internal/domains/movements/application/types"
	"github.com/Apurer/stock-ledger/internal/platform/temporal/sequences"
)

const (
	// FulfillmentWorkflowName is the public identifier for registering the workflow.
	FulfillmentWorkflowName = "orders.workflows.Fulfillment"
	// FulfillmentTaskQueue is the queue consumed by the worker processing order workflows.
	FulfillmentTaskQueue = "ORDER_FULFILLMENT"
)

// FulfillmentWorkflowInput captures the order to fulfill.
type FulfillmentWorkflowInput struct {
	Order   movtypes.OrderReference
	TraceID string
}

// FulfillmentWorkflow orchestrates the activities that fulfill an order.
func FulfillmentWorkflow(ctx workflow.Context, input FulfillmentWorkflowInput) (*movtypes.FulfillmentReceipt, error) {
	logger := workflow.GetLogger(ctx)
	orderID := input.Order.OrderID
	logger.Info("FulfillmentWorkflow started", withTraceID(input.TraceID, "orderId", orderID)...)
	receipt, err := sequences.RunOrderFulfillmentSequence(ctx, input.Order)
	if err != nil {
		logger.Error("FulfillmentWorkflow failed", withTraceID(input.TraceID, "orderId", orderID, "error", err)...)
		return nil, err
	}
	logger.Info("FulfillmentWorkflow completed", withTraceID(input.TraceID, "orderId", orderID, "status", receipt.Status)...)
	return receipt, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
