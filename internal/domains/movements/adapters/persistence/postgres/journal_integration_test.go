//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	invdomain "github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
	"github.com/Apurer/stock-ledger/internal/domains/movements/domain"
	"github.com/Apurer/stock-ledger/internal/domains/movements/ports"
	"github.com/Apurer/stock-ledger/internal/platform/migrations"
)

func setupJournalPostgresContainer(t *testing.T) (*gorm.DB, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("ledger_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = migrations.Run(db)
	require.NoError(t, err)

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		pgContainer.Terminate(ctx)
	}

	return db, cleanup
}

func TestJournal_AppendAndListTransactions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupJournalPostgresContainer(t)
	defer cleanup()

	journal := NewJournal(db)
	ctx := context.Background()
	at := time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)

	first, err := domain.NewTransaction(uuid.New(), "aspirin", 10, domain.TransactionIncoming, at, "delivery", uuid.NullUUID{})
	require.NoError(t, err)
	second, err := domain.NewTransaction(uuid.New(), "aspirin", 4, domain.TransactionOutgoing, at, "", uuid.NullUUID{})
	require.NoError(t, err)
	require.NoError(t, journal.AppendTransactions(ctx, first, second))

	txs, err := journal.Transactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, first.ID, txs[0].ID)
	assert.Equal(t, second.ID, txs[1].ID)
	assert.False(t, txs[0].OrderID.Valid)
	assert.True(t, txs[0].Timestamp.Equal(at))
}

func TestJournal_RecordFulfillmentPersistsOrderAndLinks(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupJournalPostgresContainer(t)
	defer cleanup()

	journal := NewJournal(db)
	ctx := context.Background()
	created := time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC)

	order, err := domain.NewOrder(uuid.New(), domain.OrderDispense,
		[]invdomain.Batch{invdomain.NewBatch("aspirin", 3, invdomain.Date(2025, 8, 1))}, "ward 3", created)
	require.NoError(t, err)
	require.NoError(t, journal.SaveOrder(ctx, order))

	tx, err := domain.NewTransaction(uuid.New(), "aspirin", 3, domain.TransactionOutgoing, created.Add(time.Hour),
		"Order fulfillment", uuid.NullUUID{UUID: order.ID, Valid: true})
	require.NoError(t, err)
	require.NoError(t, order.Fulfill(created.Add(time.Hour), []uuid.UUID{tx.ID}))
	require.NoError(t, journal.RecordFulfillment(ctx, order, []domain.Transaction{tx}))

	stored, err := journal.Order(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFulfilled, stored.Status())
	assert.Equal(t, []uuid.UUID{tx.ID}, stored.TransactionIDs())
	assert.Equal(t, "2025-08-01", stored.Items()[0].ExpiryKey())

	txs, err := journal.Transactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].LinkedTo(order.ID))

	_, err = journal.Order(ctx, uuid.New())
	assert.ErrorIs(t, err, ports.ErrNotFound)
}
