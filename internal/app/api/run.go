package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"gorm.io/gorm"

	ledgerserver "github.com/Apurer/stock-ledger/go"

	invobs "github.com/Apurer/stock-ledger/internal/domains/inventory/adapters/observability"
	invpostgres "github.com/Apurer/stock-ledger/internal/domains/inventory/adapters/persistence/postgres"
	"github.com/Apurer/stock-ledger/internal/domains/inventory/adapters/textfile"
	invapp "github.com/Apurer/stock-ledger/internal/domains/inventory/application"
	invdomain "github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
	invports "github.com/Apurer/stock-ledger/internal/domains/inventory/ports"
	movmemory "github.com/Apurer/stock-ledger/internal/domains/movements/adapters/memory"
	movobs "github.com/Apurer/stock-ledger/internal/domains/movements/adapters/observability"
	movpostgres "github.com/Apurer/stock-ledger/internal/domains/movements/adapters/persistence/postgres"
	movworkflows "github.com/Apurer/stock-ledger/internal/domains/movements/adapters/workflows"
	movapp "github.com/Apurer/stock-ledger/internal/domains/movements/application"
	movports "github.com/Apurer/stock-ledger/internal/domains/movements/ports"
	platformobservability "github.com/Apurer/stock-ledger/internal/platform/observability"
	platformpostgres "github.com/Apurer/stock-ledger/internal/platform/postgres"
)

const serviceName = "stock-ledger-api"

// Run boots the stock ledger HTTP API with observability, storage, and workflows wired.
// It blocks until ctx is cancelled or the server fails, then flushes the ledger to its file.
func Run(ctx context.Context, cfg Config) error {
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	db, cleanupDB := platformpostgres.ConnectAndMigrate(ctx, cfg.PostgresDSN, logger)
	defer cleanupDB()

	storage := textfile.NewStorage(cfg.LedgerFile)
	ledger, err := loadLedger(ctx, storage, logger)
	if err != nil {
		return err
	}
	coreInventory := invapp.NewService(ledger, storage,
		invapp.WithLogger(logger),
		invapp.WithLowStockThreshold(cfg.LowStockThreshold),
	)
	gauges, err := platformobservability.RegisterLedgerGauges(instruments.Meter("internal.inventory.ledger"), ledgerSize(coreInventory))
	if err != nil {
		logger.Warn("ledger gauges unavailable", slog.String("error", err.Error()))
	} else {
		defer func() { _ = gauges.Unregister() }()
	}
	inventory := invobs.New(
		coreInventory,
		invobs.WithLogger(logger),
		invobs.WithTracer(instruments.Tracer("internal.inventory.application")),
		invobs.WithMeter(instruments.Meter("internal.inventory.application")),
	)

	manager := movapp.NewManager(inventory, buildJournal(db, logger),
		movapp.WithLogger(logger),
		movapp.WithIdempotencyStore(buildIdempotencyStore(db)),
	)
	movements := movobs.New(
		manager,
		movobs.WithLogger(logger),
		movobs.WithTracer(instruments.Tracer("internal.movements.application")),
		movobs.WithMeter(instruments.Meter("internal.movements.application")),
	)

	var fulfillment movports.FulfillmentOrchestrator = movworkflows.NewInlineFulfillment(movements)
	if temporalClient, err := connectTemporalClient(cfg, instruments); err != nil {
		logger.Warn("Temporal workflows unavailable, fulfilling orders inline", slog.String("error", err.Error()))
	} else {
		defer temporalClient.Close()
		stopWorker, err := startFulfillmentWorker(temporalClient, movements, inventory, buildMirror(db), logger)
		if err != nil {
			logger.Warn("Temporal worker failed to start, fulfilling orders inline", slog.String("error", err.Error()))
		} else {
			defer stopWorker()
			fulfillment = movworkflows.NewTemporalFulfillment(temporalClient, movements)
			logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
		}
	}

	ledgerserver.SetErrorLogger(logger)
	handlers := ledgerserver.ApiHandleFunctions{
		InventoryAPI:   ledgerserver.NewInventoryAPI(inventory, cfg.ExpiryWindow()),
		TransactionAPI: ledgerserver.NewTransactionAPI(movements),
		OrderAPI:       ledgerserver.NewOrderAPI(movements, fulfillment),
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), otelgin.Middleware(serviceName))
	router := ledgerserver.NewRouterWithGinEngine(engine, handlers)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("stock ledger API listening", slog.String("addr", server.Addr))
		serveErr <- server.ListenAndServe()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("stock ledger API shutdown failed", slog.String("error", err.Error()))
		}
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("stock ledger API server exited", slog.String("addr", server.Addr), slog.String("error", err.Error()))
			runErr = err
		}
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := inventory.Flush(flushCtx); err != nil {
		return errors.Join(runErr, fmt.Errorf("flush ledger on shutdown: %w", err))
	}
	logger.Info("ledger saved", slog.String("path", storage.Path()))
	return runErr
}

// loadLedger reads the ledger file. Malformed lines are logged and skipped; only an
// unreadable file stops startup.
func loadLedger(ctx context.Context, storage invports.Storage, logger *slog.Logger) (*invdomain.Ledger, error) {
	ledger, problems, err := storage.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	for _, problem := range problems {
		logger.Warn("skipped ledger record", slog.String("error", problem.Error()))
	}
	logger.Info("ledger loaded",
		slog.Int("items", ledger.Len()),
		slog.Int("batches", ledger.TotalBatchCount()),
		slog.Int("skipped", len(problems)),
	)
	return ledger, nil
}

func ledgerSize(inventory invports.Service) func(context.Context) (platformobservability.LedgerSize, error) {
	return func(ctx context.Context) (platformobservability.LedgerSize, error) {
		var size platformobservability.LedgerSize
		err := inventory.Atomically(ctx, func(ledger *invdomain.Ledger) error {
			size = platformobservability.LedgerSize{Items: ledger.Len(), Batches: ledger.TotalBatchCount()}
			return nil
		})
		return size, err
	}
}

func buildJournal(db *gorm.DB, logger *slog.Logger) movports.Journal {
	if db == nil {
		return movmemory.NewJournal()
	}
	logger.Info("movement journal configured with postgres")
	return movpostgres.NewJournal(db)
}

func buildIdempotencyStore(db *gorm.DB) movports.IdempotencyStore {
	if db == nil {
		return movmemory.NewIdempotencyStore()
	}
	return movpostgres.NewIdempotencyStore(db)
}

// buildMirror returns the Postgres ledger snapshot store, or nil when Postgres is not configured.
func buildMirror(db *gorm.DB) invports.Storage {
	if db == nil {
		return nil
	}
	return invpostgres.NewSnapshotStore(db)
}

func connectTemporalClient(cfg Config, instruments *platformobservability.Instruments) (client.Client, error) {
	if cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED env")
	}
	tracerOptions := temporalotel.TracerOptions{}
	if instruments != nil {
		tracerOptions.Tracer = instruments.Tracer("temporal-client")
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(effectiveLogger(instruments)),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}

func effectiveLogger(instruments *platformobservability.Instruments) *slog.Logger {
	if instruments != nil && instruments.Logger != nil {
		return instruments.Logger
	}
	return slog.Default()
}
