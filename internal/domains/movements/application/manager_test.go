package application

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	invapp "github.com/Apurer/stock-ledger/internal/domains/inventory/application"
	invtypes "github.com/Apurer/stock-ledger/internal/domains/inventory/application/types"
	invdomain "github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
	movmemory "github.com/Apurer/stock-ledger/internal/domains/movements/adapters/memory"
	movtypes "github.com/Apurer/stock-ledger/internal/domains/movements/application/types"
	"github.com/Apurer/stock-ledger/internal/domains/movements/domain"
)

type failingJournal struct {
	*movmemory.Journal
	err error
}

func (f *failingJournal) AppendTransactions(context.Context, ...domain.Transaction) error {
	return f.err
}

func (f *failingJournal) RecordFulfillment(context.Context, *domain.Order, []domain.Transaction) error {
	return f.err
}

type fixture struct {
	inventory *invapp.Service
	journal   *movmemory.Journal
	manager   *Manager
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		inventory: invapp.NewService(nil, nil),
		journal:   movmemory.NewJournal(),
		now:       time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC),
	}
	f.manager = NewManager(f.inventory, f.journal, WithClock(func() time.Time { return f.now }))
	return f
}

func (f *fixture) stock(t *testing.T, name string) int {
	t.Helper()
	count, err := f.inventory.StockCount(context.Background(), name)
	require.NoError(t, err)
	return count
}

func (f *fixture) add(t *testing.T, name string, qty int, expiry *time.Time) {
	t.Helper()
	_, err := f.inventory.AddBatch(context.Background(), invtypes.AddBatchInput{Name: name, Quantity: qty, Expiry: expiry})
	require.NoError(t, err)
}

func TestCreateTransaction_IncomingAddsUndatedStock(t *testing.T) {
	f := newFixture(t)
	tx, err := f.manager.CreateTransaction(context.Background(), movtypes.TransactionInput{
		Name: "Aspirin", Quantity: 30, Type: domain.TransactionIncoming, Notes: "delivery",
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, tx.ID)
	require.Equal(t, f.now, tx.Timestamp)
	require.Equal(t, 30, f.stock(t, "aspirin"))

	batches, err := f.inventory.Batches(context.Background(), "aspirin")
	require.NoError(t, err)
	require.Nil(t, batches[0].Expiry)
}

func TestCreateTransaction_OutgoingConsumesFEFO(t *testing.T) {
	f := newFixture(t)
	f.add(t, "panadol", 20, nil)
	f.add(t, "panadol", 10, invdomain.Date(2025, 1, 1))

	_, err := f.manager.CreateTransaction(context.Background(), movtypes.TransactionInput{
		Name: "panadol", Quantity: 25, Type: domain.TransactionOutgoing,
	})
	require.NoError(t, err)

	batches, err := f.inventory.Batches(context.Background(), "panadol")
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.Nil(t, batches[0].Expiry)
	require.Equal(t, 5, batches[0].Quantity)
}

func TestCreateTransaction_UnderflowRecordsNothing(t *testing.T) {
	f := newFixture(t)
	f.add(t, "insulin", 2, nil)

	_, err := f.manager.CreateTransaction(context.Background(), movtypes.TransactionInput{
		Name: "insulin", Quantity: 3, Type: domain.TransactionOutgoing,
	})
	require.ErrorIs(t, err, invdomain.ErrStockUnderflow)
	require.Equal(t, 2, f.stock(t, "insulin"))

	txs, err := f.manager.AllTransactions(context.Background())
	require.NoError(t, err)
	require.Empty(t, txs)
}

func TestCreateTransaction_InvalidInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.CreateTransaction(context.Background(), movtypes.TransactionInput{
		Name: "insulin", Quantity: 0, Type: domain.TransactionIncoming,
	})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, err, invdomain.ErrInvalidQuantity)
}

func TestCreateTransaction_JournalFailureLeavesLedgerUntouched(t *testing.T) {
	inventory := invapp.NewService(nil, nil)
	journal := &failingJournal{Journal: movmemory.NewJournal(), err: errors.New("connection reset")}
	manager := NewManager(inventory, journal)

	_, err := manager.CreateTransaction(context.Background(), movtypes.TransactionInput{
		Name: "saline", Quantity: 5, Type: domain.TransactionIncoming,
	})
	require.ErrorIs(t, err, invdomain.ErrSave)

	count, err := inventory.StockCount(context.Background(), "saline")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestFulfillOrder_DispenseOnEmptyInventory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.manager.CreateOrder(ctx, movtypes.OrderInput{
		Type:  domain.OrderDispense,
		Items: []invdomain.Batch{invdomain.NewBatch("aspirin", 100, nil)},
		Notes: "ward 3",
	})
	require.NoError(t, err)

	_, err = f.manager.FulfillOrder(ctx, order.ID)
	require.ErrorIs(t, err, invdomain.ErrStockUnderflow)

	stored, err := f.manager.Order(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, stored.Status())
	require.Nil(t, stored.FulfilledAt())

	txs, err := f.manager.AllTransactions(ctx)
	require.NoError(t, err)
	require.Empty(t, txs)
}

func TestFulfillOrder_LinksOneTransactionPerBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, "aspirin", 50, nil)
	f.add(t, "zinc", 10, invdomain.Date(2025, 6, 1))

	order, err := f.manager.CreateOrder(ctx, movtypes.OrderInput{
		Type: domain.OrderDispense,
		Items: []invdomain.Batch{
			invdomain.NewBatch("aspirin", 20, nil),
			invdomain.NewBatch("aspirin", 5, invdomain.Date(2025, 3, 1)),
			invdomain.NewBatch("zinc", 4, nil),
		},
	})
	require.NoError(t, err)

	result, err := f.manager.FulfillOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 3)
	require.Equal(t, domain.StatusFulfilled, result.Order.Status())
	require.NotNil(t, result.Order.FulfilledAt())
	require.Equal(t, f.now, *result.Order.FulfilledAt())

	for _, tx := range result.Transactions {
		require.True(t, tx.LinkedTo(order.ID))
		require.Equal(t, domain.TransactionOutgoing, tx.Type)
		require.Equal(t, movtypes.FulfillmentNotes, tx.Notes)
	}
	require.Len(t, result.Order.TransactionIDs(), 3)
	require.Equal(t, 25, f.stock(t, "aspirin"))
	require.Equal(t, 6, f.stock(t, "zinc"))

	stored, err := f.manager.Order(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusFulfilled, stored.Status())
}

func TestFulfillOrder_AggregatedDemandIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, "aspirin", 30, nil)
	f.add(t, "zinc", 10, nil)

	order, err := f.manager.CreateOrder(ctx, movtypes.OrderInput{
		Type: domain.OrderDispense,
		Items: []invdomain.Batch{
			invdomain.NewBatch("zinc", 5, nil),
			invdomain.NewBatch("aspirin", 20, nil),
			invdomain.NewBatch("aspirin", 15, invdomain.Date(2025, 2, 1)),
		},
	})
	require.NoError(t, err)

	_, err = f.manager.FulfillOrder(ctx, order.ID)
	var ledgerErr *invdomain.Error
	require.ErrorAs(t, err, &ledgerErr)
	require.Equal(t, invdomain.KindStockUnderflow, ledgerErr.Kind)
	require.Equal(t, "aspirin", ledgerErr.Item)
	require.Equal(t, 35, ledgerErr.Requested)
	require.Equal(t, 30, ledgerErr.Available)

	require.Equal(t, 10, f.stock(t, "zinc"))
	require.Equal(t, 30, f.stock(t, "aspirin"))
}

func TestFulfillOrder_PurchaseAddsRequestedBatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.manager.CreateOrder(ctx, movtypes.OrderInput{
		Type:  domain.OrderPurchase,
		Items: []invdomain.Batch{invdomain.NewBatch("amoxil", 12, invdomain.Date(2026, 1, 1))},
	})
	require.NoError(t, err)

	result, err := f.manager.FulfillOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TransactionIncoming, result.Transactions[0].Type)

	batches, err := f.inventory.Batches(ctx, "amoxil")
	require.NoError(t, err)
	require.Equal(t, "2026-01-01", batches[0].ExpiryKey())
	require.Equal(t, 12, batches[0].Quantity)
}

func TestFulfillOrder_OnlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.manager.CreateOrder(ctx, movtypes.OrderInput{
		Type:  domain.OrderPurchase,
		Items: []invdomain.Batch{invdomain.NewBatch("gauze", 3, nil)},
	})
	require.NoError(t, err)
	_, err = f.manager.FulfillOrder(ctx, order.ID)
	require.NoError(t, err)

	_, err = f.manager.FulfillOrder(ctx, order.ID)
	require.ErrorIs(t, err, ErrOrderNotPending)
	require.ErrorIs(t, err, invdomain.ErrInvalidCommand)
	require.Equal(t, 3, f.stock(t, "gauze"))

	_, err = f.manager.CancelOrder(ctx, order.ID)
	require.ErrorIs(t, err, ErrOrderNotPending)
}

func TestFulfillOrder_JournalFailureLeavesEverythingUntouched(t *testing.T) {
	inventory := invapp.NewService(nil, nil)
	journal := &failingJournal{Journal: movmemory.NewJournal()}
	manager := NewManager(inventory, journal)
	ctx := context.Background()

	order, err := manager.CreateOrder(ctx, movtypes.OrderInput{
		Type:  domain.OrderPurchase,
		Items: []invdomain.Batch{invdomain.NewBatch("gauze", 3, nil)},
	})
	require.NoError(t, err)

	journal.err = errors.New("disk full")
	_, err = manager.FulfillOrder(ctx, order.ID)
	require.ErrorIs(t, err, invdomain.ErrSave)

	stored, err := manager.Order(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, stored.Status())
	count, err := inventory.StockCount(ctx, "gauze")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestCancelOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.manager.CreateOrder(ctx, movtypes.OrderInput{
		Type:  domain.OrderDispense,
		Items: []invdomain.Batch{invdomain.NewBatch("gauze", 3, nil)},
	})
	require.NoError(t, err)

	cancelled, err := f.manager.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, cancelled.Status())

	_, err = f.manager.FulfillOrder(ctx, order.ID)
	require.ErrorIs(t, err, ErrOrderNotPending)
}

func TestOrder_UnknownIsItemNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Order(context.Background(), uuid.New())
	require.ErrorIs(t, err, invdomain.ErrItemNotFound)

	_, err = f.manager.FulfillOrder(context.Background(), uuid.New())
	require.ErrorIs(t, err, invdomain.ErrItemNotFound)
}

func TestOrders_ReturnsCopiesInCreationOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		_, err := f.manager.CreateOrder(ctx, movtypes.OrderInput{
			Type:  domain.OrderPurchase,
			Items: []invdomain.Batch{invdomain.NewBatch(name, 1, nil)},
		})
		require.NoError(t, err)
	}

	orders, err := f.manager.Orders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	require.Equal(t, "a", orders[0].Items()[0].Name)

	require.NoError(t, orders[0].Cancel())
	again, err := f.manager.Orders(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, again[0].Status())
}

func TestTransactionQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	record := func(name string, at time.Time) {
		f.now = at
		_, err := f.manager.CreateTransaction(ctx, movtypes.TransactionInput{Name: name, Quantity: 1, Type: domain.TransactionIncoming})
		require.NoError(t, err)
	}
	jan1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	jan15 := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	feb1 := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	record("aspirin", jan1)
	record("zinc", jan15)
	record("Aspirin", feb1)

	forAspirin, err := f.manager.TransactionsFor(ctx, "ASPIRIN")
	require.NoError(t, err)
	require.Len(t, forAspirin, 2)

	inRange, err := f.manager.TransactionsInRange(ctx, jan1, jan15)
	require.NoError(t, err)
	require.Len(t, inRange, 2)
	require.Equal(t, "aspirin", inRange[0].ItemName)
	require.Equal(t, "zinc", inRange[1].ItemName)

	_, err = f.manager.TransactionsInRange(ctx, feb1, jan1)
	require.ErrorIs(t, err, ErrInvalidInput)

	all, err := f.manager.AllTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestCreateTransaction_IncomingPastMaxIntRecordsNothing(t *testing.T) {
	f := newFixture(t)
	f.add(t, "saline", math.MaxInt, nil)

	_, err := f.manager.CreateTransaction(context.Background(), movtypes.TransactionInput{
		Name: "saline", Quantity: 1, Type: domain.TransactionIncoming,
	})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, err, invdomain.ErrInvalidQuantity)
	require.Equal(t, math.MaxInt, f.stock(t, "saline"))

	txs, err := f.manager.AllTransactions(context.Background())
	require.NoError(t, err)
	require.Empty(t, txs)
}

func TestCreateTransaction_RejectsUnstorableName(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.CreateTransaction(context.Background(), movtypes.TransactionInput{
		Name: "vitamin c, 500mg", Quantity: 1, Type: domain.TransactionIncoming,
	})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, err, invdomain.ErrInvalidCommand)

	txs, err := f.manager.AllTransactions(context.Background())
	require.NoError(t, err)
	require.Empty(t, txs)
}

func TestFulfillOrder_PurchasePastMaxIntIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, "saline", math.MaxInt-5, nil)

	order, err := f.manager.CreateOrder(ctx, movtypes.OrderInput{
		Type: domain.OrderPurchase,
		Items: []invdomain.Batch{
			invdomain.NewBatch("gauze", 4, nil),
			invdomain.NewBatch("saline", 3, invdomain.Date(2026, 1, 1)),
			invdomain.NewBatch("saline", 3, nil),
		},
	})
	require.NoError(t, err)

	_, err = f.manager.FulfillOrder(ctx, order.ID)
	require.ErrorIs(t, err, invdomain.ErrInvalidQuantity)
	require.Zero(t, f.stock(t, "gauze"))
	require.Equal(t, math.MaxInt-5, f.stock(t, "saline"))

	stored, err := f.manager.Order(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, stored.Status())
	txs, err := f.manager.AllTransactions(ctx)
	require.NoError(t, err)
	require.Empty(t, txs)
}
