package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	invtypes "github.com/Apurer/stock-ledger/internal/domains/inventory/application/types"
	"github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
	"github.com/Apurer/stock-ledger/internal/domains/inventory/ports"
)

// DefaultLowStockThreshold applies when LowStock is called without a positive threshold.
const DefaultLowStockThreshold = 10

// Service owns the live session ledger. Every read and write goes through mu,
// so a single writer mutates the ledger at any time.
type Service struct {
	mu        sync.Mutex
	ledger    *domain.Ledger
	storage   ports.Storage
	logger    *slog.Logger
	now       func() time.Time
	threshold int
}

// Option customises the service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used for reports.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLowStockThreshold sets the default threshold used by LowStock.
func WithLowStockThreshold(threshold int) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.threshold = threshold
		}
	}
}

// NewService wraps ledger as the session ledger. A nil ledger starts empty and
// a nil storage makes Flush fail with a SaveError.
func NewService(ledger *domain.Ledger, storage ports.Storage, opts ...Option) *Service {
	s := &Service{
		ledger:    ledger,
		storage:   storage,
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
		threshold: DefaultLowStockThreshold,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.ledger == nil {
		s.ledger = domain.NewLedger(domain.WithLogger(s.logger))
	}
	return s
}

// AddBatch merges a received batch into the ledger and returns the resulting batch.
func (s *Service) AddBatch(_ context.Context, input invtypes.AddBatchInput) (domain.Batch, error) {
	batch := domain.NewBatch(input.Name, input.Quantity, input.Expiry).WithPricing(input.UnitCost, input.UnitPrice)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ledger.Add(batch); err != nil {
		return domain.Batch{}, mapError(err)
	}
	return s.find(batch.Name, batch.Expiry)
}

// EditBatch overwrites the quantity of one exact batch.
func (s *Service) EditBatch(_ context.Context, input invtypes.EditBatchInput) (domain.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ledger.Edit(input.Name, input.Expiry, input.Quantity); err != nil {
		return domain.Batch{}, mapError(err)
	}
	return s.find(input.Name, input.Expiry)
}

// DeleteBatch removes one exact batch.
func (s *Service) DeleteBatch(_ context.Context, input invtypes.BatchIdentifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return mapError(s.ledger.Delete(input.Name, input.Expiry))
}

// Batches lists the batches of name, or every batch when name is empty.
func (s *Service) Batches(_ context.Context, name string) ([]domain.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if domain.NormalizeName(name) == "" {
		return s.ledger.AllBatches(), nil
	}
	if !s.ledger.Has(name) {
		return nil, domain.NewNoSuchItemGroup(domain.NormalizeName(name))
	}
	return s.ledger.BatchesNamed(name), nil
}

// StockCount sums the stock of one item; unknown items count zero.
func (s *Service) StockCount(_ context.Context, name string) (int, error) {
	if domain.NormalizeName(name) == "" {
		return 0, mapError(domain.NewInvalidCommand("item name is required"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.StockCount(name), nil
}

// ExpiringBefore lists dated batches expiring strictly before cutoff.
func (s *Service) ExpiringBefore(_ context.Context, cutoff time.Time) ([]domain.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.ExpiringBefore(cutoff).AllBatches(), nil
}

// LowStock lists batches at or below threshold. Non-positive thresholds use the configured default.
func (s *Service) LowStock(_ context.Context, threshold int) ([]domain.Batch, error) {
	if threshold <= 0 {
		threshold = s.threshold
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.BelowOrAt(threshold), nil
}

// Report flattens the ledger for reporting tools.
func (s *Service) Report(_ context.Context) (domain.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.BuildReport(s.ledger, s.now().UTC()), nil
}

// Flush writes the current ledger through the storage port.
func (s *Service) Flush(ctx context.Context) error {
	if s.storage == nil {
		return domain.NewSaveError("storage", errors.New("storage not configured"))
	}
	s.mu.Lock()
	snapshot := s.ledger.Clone()
	s.mu.Unlock()

	if err := s.storage.Save(ctx, snapshot); err != nil {
		s.logger.ErrorContext(ctx, "ledger flush failed", slog.String("error", err.Error()))
		return err
	}
	s.logger.InfoContext(ctx, "ledger flushed", slog.Int("batches", snapshot.TotalBatchCount()))
	return nil
}

// Atomically runs fn against the live ledger under the session lock. fn must
// not retain the ledger after returning.
func (s *Service) Atomically(ctx context.Context, fn func(*domain.Ledger) error) error {
	if fn == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.ledger)
}

func (s *Service) find(name string, expiry *time.Time) (domain.Batch, error) {
	target := domain.NewBatch(name, 0, expiry)
	for _, b := range s.ledger.BatchesNamed(name) {
		if b.ExpiryKey() == target.ExpiryKey() {
			return b, nil
		}
	}
	return domain.Batch{}, domain.NewItemNotFound(target.Name, target.ExpiryKey())
}

var _ ports.Service = (*Service)(nil)
