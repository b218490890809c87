package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	invpostgres "github.com/Apurer/stock-ledger/internal/domains/inventory/adapters/persistence/postgres"
	"github.com/Apurer/stock-ledger/internal/domains/inventory/adapters/textfile"
	invports "github.com/Apurer/stock-ledger/internal/domains/inventory/ports"
	platformpostgres "github.com/Apurer/stock-ledger/internal/platform/postgres"
)

// ledger-export writes the Postgres ledger mirror to a name,quantity text file.
func main() {
	out := flag.String("out", "", "target file (defaults to LEDGER_FILE)")
	flag.Parse()

	_ = godotenv.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err := run(ctx, *out, logger)
	cancel()
	if err != nil {
		logger.Error("ledger export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, out string, logger *slog.Logger) error {
	target := strings.TrimSpace(out)
	if target == "" {
		target = strings.TrimSpace(os.Getenv("LEDGER_FILE"))
	}
	if target == "" {
		return errors.New("no target file: pass -out or set LEDGER_FILE")
	}

	db, cleanup := platformpostgres.ConnectAndMigrate(ctx, os.Getenv("POSTGRES_DSN"), logger)
	defer cleanup()
	if db == nil {
		return errors.New("POSTGRES_DSN not set or connection failed; cannot export ledger")
	}

	return export(ctx, invpostgres.NewSnapshotStore(db), textfile.NewStorage(target), logger)
}

// export copies every readable record from source into target. Records the
// source cannot parse are logged and left out of the export.
func export(ctx context.Context, source, target invports.Storage, logger *slog.Logger) error {
	ledger, problems, err := source.Load(ctx)
	if err != nil {
		return fmt.Errorf("read ledger mirror: %w", err)
	}
	for _, problem := range problems {
		logger.Warn("skipped ledger record", slog.String("error", problem.Error()))
	}
	if err := target.Save(ctx, ledger); err != nil {
		return fmt.Errorf("write ledger file: %w", err)
	}
	logger.Info("ledger export completed",
		slog.Int("items", ledger.Len()),
		slog.Int("batches", ledger.TotalBatchCount()),
		slog.Int("skipped", len(problems)),
	)
	return nil
}
