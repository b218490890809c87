package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"

	invdomain "github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
	invports "github.com/Apurer/stock-ledger/internal/domains/inventory/ports"
	movapp "github.com/Apurer/stock-ledger/internal/domains/movements/application"
	movtypes "github.com/Apurer/stock-ledger/internal/domains/movements/application/types"
	movdomain "github.com/Apurer/stock-ledger/internal/domains/movements/domain"
	movports "github.com/Apurer/stock-ledger/internal/domains/movements/ports"
)

const (
	// FulfillOrderActivityName applies a pending order to the live ledger.
	FulfillOrderActivityName = "orders.activities.FulfillOrder"
	// MirrorLedgerActivityName copies the ledger to the configured mirror store.
	MirrorLedgerActivityName = "orders.activities.MirrorLedger"
)

// Activities groups activities that operate on orders and the stock they move.
type Activities struct {
	movements movports.Service
	stock     movports.StockLedger
	mirror    invports.Storage
}

// NewActivities wires the collaborators into the Temporal activities bundle.
// mirror may be nil, in which case MirrorLedger is a no-op.
func NewActivities(movements movports.Service, stock movports.StockLedger, mirror invports.Storage) *Activities {
	return &Activities{movements: movements, stock: stock, mirror: mirror}
}

// FulfillOrder fulfills the referenced order. A retry that finds the order
// already fulfilled returns the recorded outcome instead of failing.
func (a *Activities) FulfillOrder(ctx context.Context, input movtypes.OrderReference) (*movtypes.FulfillmentReceipt, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.movements == nil {
		logger.Error("fulfill order activity not initialized", "orderId", input.OrderID)
		return nil, errors.New("fulfill order activity not initialized")
	}
	id, err := uuid.Parse(input.OrderID)
	if err != nil {
		return nil, ToApplicationError(invdomain.NewInvalidCommand("order id must be a UUID"))
	}

	logger.Info("FulfillOrder activity started", "orderId", input.OrderID)
	result, err := a.movements.FulfillOrder(ctx, id)
	if errors.Is(err, movapp.ErrOrderNotPending) && activity.GetInfo(ctx).Attempt > 1 {
		if receipt, ok := a.priorReceipt(ctx, id); ok {
			logger.Info("FulfillOrder already applied in prior attempt", "orderId", input.OrderID)
			return receipt, nil
		}
	}
	if err != nil {
		logger.Error("FulfillOrder activity failed", "orderId", input.OrderID, "error", err)
		return nil, ToApplicationError(err)
	}
	receipt := movtypes.NewFulfillmentReceipt(result)
	logger.Info("FulfillOrder activity completed", "orderId", input.OrderID, "transactions", len(receipt.TransactionIDs))
	return &receipt, nil
}

// MirrorLedger snapshots the live ledger into the mirror store.
func (a *Activities) MirrorLedger(ctx context.Context, input movtypes.OrderReference) error {
	logger := activity.GetLogger(ctx)
	if a == nil || a.stock == nil {
		logger.Error("mirror ledger activity not initialized", "orderId", input.OrderID)
		return errors.New("mirror ledger activity not initialized")
	}
	if a.mirror == nil {
		logger.Info("ledger mirror not configured; skipping", "orderId", input.OrderID)
		return nil
	}

	var hb mirrorHeartbeat
	if activity.HasHeartbeatDetails(ctx) {
		_ = activity.GetHeartbeatDetails(ctx, &hb)
	}
	if hb.Completed {
		logger.Info("MirrorLedger already completed in prior attempt; skipping", "orderId", input.OrderID)
		return nil
	}

	var snapshot *invdomain.Ledger
	if err := a.stock.Atomically(ctx, func(l *invdomain.Ledger) error {
		snapshot = l.Clone()
		return nil
	}); err != nil {
		logger.Error("MirrorLedger failed to snapshot ledger", "orderId", input.OrderID, "error", err)
		return err
	}
	if err := a.mirror.Save(ctx, snapshot); err != nil {
		logger.Error("MirrorLedger failed", "orderId", input.OrderID, "error", err)
		return err
	}
	activity.RecordHeartbeat(ctx, mirrorHeartbeat{Completed: true})
	logger.Info("MirrorLedger activity completed", "orderId", input.OrderID, "batches", snapshot.TotalBatchCount())
	return nil
}

func (a *Activities) priorReceipt(ctx context.Context, id uuid.UUID) (*movtypes.FulfillmentReceipt, bool) {
	order, err := a.movements.Order(ctx, id)
	if err != nil || order.Status() != movdomain.StatusFulfilled {
		return nil, false
	}
	receipt := movtypes.FulfillmentReceipt{
		OrderID: order.ID.String(),
		Status:  string(order.Status()),
	}
	if at := order.FulfilledAt(); at != nil {
		receipt.FulfilledAt = *at
	}
	for _, txID := range order.TransactionIDs() {
		receipt.TransactionIDs = append(receipt.TransactionIDs, txID.String())
	}
	return &receipt, true
}

type mirrorHeartbeat struct {
	Completed bool
}
