package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	invdomain "github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
	movtypes "github.com/Apurer/stock-ledger/internal/domains/movements/application/types"
	"github.com/Apurer/stock-ledger/internal/domains/movements/domain"
	"github.com/Apurer/stock-ledger/internal/domains/movements/ports"
)

// Manager records stock movements and drives orders through their lifecycle.
// Each check against the ledger and the mutation that follows happen inside a
// single StockLedger.Atomically call, and the journal is written before the
// ledger so a journal failure leaves stock untouched.
type Manager struct {
	mu      sync.Mutex
	stock   ports.StockLedger
	journal ports.Journal
	logger  *slog.Logger
	now     func() time.Time
	newID   func() uuid.UUID

	idempotency ports.IdempotencyStore
}

// Option customises the manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock overrides the clock used for transaction and fulfillment timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator overrides how transaction and order identifiers are minted.
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(m *Manager) {
		if newID != nil {
			m.newID = newID
		}
	}
}

// WithIdempotencyStore enables replay of movements submitted with an idempotency key.
func WithIdempotencyStore(store ports.IdempotencyStore) Option {
	return func(m *Manager) {
		m.idempotency = store
	}
}

// NewManager wires the manager with the live ledger and the journal.
func NewManager(stock ports.StockLedger, journal ports.Journal, opts ...Option) *Manager {
	m := &Manager{
		stock:   stock,
		journal: journal,
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
		newID:   uuid.New,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// CreateTransaction records one movement and applies it to the ledger.
// INCOMING adds an undated batch; OUTGOING withdraws FEFO and fails with
// StockUnderflow, recording nothing, when stock is short. A request repeating
// a known idempotency key returns the original transaction without touching
// the ledger again.
func (m *Manager) CreateTransaction(ctx context.Context, input movtypes.TransactionInput) (domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.TrimSpace(input.IdempotencyKey)
	if m.idempotency == nil {
		key = ""
	}
	var fingerprint string
	if key != "" {
		var (
			previous *domain.Transaction
			err      error
		)
		fingerprint, previous, err = m.replay(ctx, key, input)
		if err != nil {
			return domain.Transaction{}, err
		}
		if previous != nil {
			m.logger.InfoContext(ctx, "transaction replayed", slog.String("key", key), slog.String("transaction_id", previous.ID.String()))
			return *previous, nil
		}
	}

	tx, err := domain.NewTransaction(m.newID(), input.Name, input.Quantity, input.Type, m.now().UTC(), input.Notes, input.OrderID)
	if err != nil {
		return domain.Transaction{}, mapError(err)
	}
	err = m.stock.Atomically(ctx, func(ledger *invdomain.Ledger) error {
		if err := checkItems(ledger, tx.Type, []invdomain.Batch{invdomain.NewBatch(tx.ItemName, tx.Quantity, nil)}); err != nil {
			return err
		}
		if err := m.journal.AppendTransactions(ctx, tx); err != nil {
			return journalError(err)
		}
		return applyTransaction(ledger, tx)
	})
	if err != nil {
		m.logger.WarnContext(ctx, "transaction rejected",
			slog.String("item", tx.ItemName), slog.String("type", string(tx.Type)), slog.String("error", err.Error()))
		return domain.Transaction{}, mapError(err)
	}
	if key != "" {
		m.remember(ctx, key, fingerprint, tx)
	}
	return tx, nil
}

// CreateOrder stores a new pending order. Orders without items are rejected
// because fulfilling one would record nothing.
func (m *Manager) CreateOrder(ctx context.Context, input movtypes.OrderInput) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, err := domain.NewOrder(m.newID(), input.Type, input.Items, input.Notes, m.now().UTC())
	if err != nil {
		return nil, mapError(err)
	}
	if err := m.journal.SaveOrder(ctx, order); err != nil {
		return nil, journalError(err)
	}
	return order.Clone(), nil
}

// FulfillOrder applies every requested item of a pending order. Outgoing demand
// is aggregated per item and checked against stock before anything changes, so
// either every item is applied or none is. On success one transaction per
// requested batch is recorded and linked to the order.
func (m *Manager) FulfillOrder(ctx context.Context, id uuid.UUID) (*movtypes.FulfillmentResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, err := m.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.IsPending() {
		return nil, notPending(order, domain.StatusFulfilled)
	}

	items := order.Items()
	direction := order.Type.TransactionType()
	at := m.now().UTC()
	orderRef := uuid.NullUUID{UUID: order.ID, Valid: true}
	txs := make([]domain.Transaction, 0, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		tx, err := domain.NewTransaction(m.newID(), item.Name, item.Quantity, direction, at, movtypes.FulfillmentNotes, orderRef)
		if err != nil {
			return nil, mapError(err)
		}
		txs = append(txs, tx)
		ids = append(ids, tx.ID)
	}
	fulfilled := order.Clone()
	if err := fulfilled.Fulfill(at, ids); err != nil {
		return nil, mapError(err)
	}

	err = m.stock.Atomically(ctx, func(ledger *invdomain.Ledger) error {
		if err := checkItems(ledger, direction, items); err != nil {
			return err
		}
		if err := m.journal.RecordFulfillment(ctx, fulfilled, txs); err != nil {
			return journalError(err)
		}
		for _, item := range items {
			if err := applyItem(ledger, direction, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		m.logger.WarnContext(ctx, "order fulfillment rejected",
			slog.String("order.id", id.String()), slog.String("error", err.Error()))
		return nil, mapError(err)
	}
	m.logger.InfoContext(ctx, "order fulfilled",
		slog.String("order.id", id.String()), slog.Int("transactions", len(txs)))
	return &movtypes.FulfillmentResult{Order: fulfilled.Clone(), Transactions: slices.Clone(txs)}, nil
}

// CancelOrder moves a pending order to CANCELLED without touching stock.
func (m *Manager) CancelOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, err := m.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.IsPending() {
		return nil, notPending(order, domain.StatusCancelled)
	}
	if err := order.Cancel(); err != nil {
		return nil, mapError(err)
	}
	if err := m.journal.SaveOrder(ctx, order); err != nil {
		return nil, journalError(err)
	}
	return order.Clone(), nil
}

// Order returns a copy of one order. Unknown ids are ItemNotFound.
func (m *Manager) Order(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadOrder(ctx, id)
}

// Orders lists every order in creation order.
func (m *Manager) Orders(ctx context.Context) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.journal.Orders(ctx)
}

// AllTransactions lists the journal in append order.
func (m *Manager) AllTransactions(ctx context.Context) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.journal.Transactions(ctx)
}

// TransactionsFor lists the movements of one item.
func (m *Manager) TransactionsFor(ctx context.Context, name string) ([]domain.Transaction, error) {
	name = invdomain.NormalizeName(name)
	return m.filter(ctx, func(tx domain.Transaction) bool { return tx.ItemName == name })
}

// TransactionsInRange lists movements with start <= timestamp <= end.
func (m *Manager) TransactionsInRange(ctx context.Context, start, end time.Time) ([]domain.Transaction, error) {
	if end.Before(start) {
		return nil, mapError(invdomain.NewInvalidCommand("range end is before start"))
	}
	return m.filter(ctx, func(tx domain.Transaction) bool { return tx.Within(start, end) })
}

func (m *Manager) filter(ctx context.Context, keep func(domain.Transaction) bool) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all, err := m.journal.Transactions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Transaction, 0, len(all))
	for _, tx := range all {
		if keep(tx) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (m *Manager) loadOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := m.journal.Order(ctx, id)
	if errors.Is(err, ports.ErrNotFound) {
		return nil, &invdomain.Error{Kind: invdomain.KindItemNotFound, Detail: fmt.Sprintf("order %s", id)}
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func notPending(order *domain.Order, target domain.Status) error {
	_, err := domain.Transition(order.Status(), target)
	return fmt.Errorf("%w: %w", ErrOrderNotPending, err)
}

// checkItems sums quantities per item and verifies the whole movement fits
// before anything is journaled: outgoing totals must not exceed stock and
// incoming totals must not push stock past math.MaxInt. Item lists come from
// a single movement or an order ledger, so per-item sums cannot overflow.
func checkItems(ledger *invdomain.Ledger, direction domain.TransactionType, items []invdomain.Batch) error {
	totals := map[string]int{}
	var names []string
	for _, item := range items {
		if _, seen := totals[item.Name]; !seen {
			names = append(names, item.Name)
		}
		totals[item.Name] += item.Quantity
	}
	for _, name := range names {
		if direction == domain.TransactionIncoming {
			if headroom := ledger.Headroom(name); totals[name] > headroom {
				return invdomain.NewStockOverflow(name, totals[name], headroom)
			}
			continue
		}
		if available := ledger.StockCount(name); totals[name] > available {
			return invdomain.NewStockUnderflow(name, totals[name], available)
		}
	}
	return nil
}

func applyTransaction(ledger *invdomain.Ledger, tx domain.Transaction) error {
	return applyItem(ledger, tx.Type, invdomain.NewBatch(tx.ItemName, tx.Quantity, nil))
}

func applyItem(ledger *invdomain.Ledger, direction domain.TransactionType, item invdomain.Batch) error {
	if direction == domain.TransactionIncoming {
		return ledger.Add(item)
	}
	_, err := ledger.Consume(item.Name, item.Quantity)
	return err
}

var _ ports.Service = (*Manager)(nil)
