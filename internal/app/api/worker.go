package api

import (
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	invports "github.com/Apurer/stock-ledger/internal/domains/inventory/ports"
	movports "github.com/Apurer/stock-ledger/internal/domains/movements/ports"
	orderactivities "github.com/Apurer/stock-ledger/internal/platform/temporal/activities/orders"
	orderworkflows "github.com/Apurer/stock-ledger/internal/platform/temporal/workflows/orders"
)

// startFulfillmentWorker runs the order fulfillment worker inside the API process.
// Activities act on the live ledger held by this process, so the worker cannot run elsewhere.
func startFulfillmentWorker(
	c client.Client,
	movements movports.Service,
	stock movports.StockLedger,
	mirror invports.Storage,
	logger *slog.Logger,
) (func(), error) {
	w := worker.New(c, orderworkflows.FulfillmentTaskQueue, worker.Options{})
	orderworkflows.Register(w, orderactivities.NewActivities(movements, stock, mirror))
	if err := w.Start(); err != nil {
		return nil, err
	}
	logger.Info("worker listening", slog.String("taskQueue", orderworkflows.FulfillmentTaskQueue))
	return func() {
		w.Stop()
		logger.Info("Temporal worker stopped")
	}, nil
}
