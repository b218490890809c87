package workflows

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	movtypes "github.com/Apurer/stock-ledger/internal/domains/movements/application/types"
	"github.com/Apurer/stock-ledger/internal/domains/movements/domain"
	"github.com/Apurer/stock-ledger/internal/domains/movements/ports"
	orderactivities "github.com/Apurer/stock-ledger/internal/platform/temporal/activities/orders"
	orderworkflows "github.com/Apurer/stock-ledger/internal/platform/temporal/workflows/orders"
)

var (
	_ ports.FulfillmentOrchestrator = (*TemporalFulfillment)(nil)
	_ ports.FulfillmentOrchestrator = (*InlineFulfillment)(nil)
)

// TemporalFulfillment runs order fulfillment as a Temporal workflow.
type TemporalFulfillment struct {
	client    client.Client
	taskQueue string
	service   ports.Service
}

// NewTemporalFulfillment wires a Temporal client into the orchestrator. The
// service is used to read back the fulfilled order once the workflow returns.
func NewTemporalFulfillment(c client.Client, service ports.Service) *TemporalFulfillment {
	return &TemporalFulfillment{client: c, taskQueue: orderworkflows.FulfillmentTaskQueue, service: service}
}

// FulfillOrder starts, or joins, the fulfillment workflow of one order and
// waits for its result.
func (o *TemporalFulfillment) FulfillOrder(ctx context.Context, id uuid.UUID) (*movtypes.FulfillmentResult, error) {
	if o == nil || o.client == nil || o.service == nil {
		return nil, errors.New("temporal order fulfillment not configured")
	}
	workflowID := buildFulfillmentWorkflowID(id)
	options := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: o.taskQueue,
	}
	options.WorkflowExecutionErrorWhenAlreadyStarted = true
	input := orderworkflows.FulfillmentWorkflowInput{
		Order:   movtypes.OrderReference{OrderID: id.String()},
		TraceID: workflowTraceID(ctx),
	}

	var receipt movtypes.FulfillmentReceipt
	run, err := o.client.ExecuteWorkflow(ctx, options, orderworkflows.FulfillmentWorkflow, input)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if !errors.As(err, &alreadyStarted) {
			return nil, err
		}
		run = o.client.GetWorkflow(ctx, workflowID, alreadyStarted.RunId)
	}
	if err := run.Get(ctx, &receipt); err != nil {
		return nil, orderactivities.FromApplicationError(err)
	}
	return o.resolve(ctx, id)
}

func (o *TemporalFulfillment) resolve(ctx context.Context, id uuid.UUID) (*movtypes.FulfillmentResult, error) {
	order, err := o.service.Order(ctx, id)
	if err != nil {
		return nil, err
	}
	all, err := o.service.AllTransactions(ctx)
	if err != nil {
		return nil, err
	}
	var linked []domain.Transaction
	for _, tx := range all {
		if tx.LinkedTo(id) {
			linked = append(linked, tx)
		}
	}
	return &movtypes.FulfillmentResult{Order: order, Transactions: linked}, nil
}

// InlineFulfillment executes the service directly without Temporal, useful for tests or dev fallbacks.
type InlineFulfillment struct {
	service ports.Service
}

// NewInlineFulfillment wraps the movements service for synchronous execution.
func NewInlineFulfillment(service ports.Service) *InlineFulfillment {
	return &InlineFulfillment{service: service}
}

// FulfillOrder delegates to the application service without durable orchestration.
func (o *InlineFulfillment) FulfillOrder(ctx context.Context, id uuid.UUID) (*movtypes.FulfillmentResult, error) {
	if o == nil || o.service == nil {
		return nil, errors.New("inline order fulfillment not configured")
	}
	return o.service.FulfillOrder(ctx, id)
}

// Fulfillment of an order is keyed by the order alone so concurrent requests
// join one execution.
func buildFulfillmentWorkflowID(id uuid.UUID) string {
	return fmt.Sprintf("order-fulfillment-%s", id)
}

func workflowTraceID(ctx context.Context) string {
	span := oteltrace.SpanFromContext(ctx)
	if span == nil {
		return ""
	}
	spanCtx := span.SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	traceID := spanCtx.TraceID()
	if !traceID.IsValid() {
		return ""
	}
	return traceID.String()
}
