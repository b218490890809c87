package observability

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	invtypes "github.com/Apurer/stock-ledger/internal/domains/inventory/application/types"
	"github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
	"github.com/Apurer/stock-ledger/internal/domains/inventory/ports"
)

const tracerName = "github.com/Apurer/stock-ledger/internal/domains/inventory/adapters/observability/service"

// Service decorates the inventory service with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wraps the core inventory service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  slog.New(slog.DiscardHandler),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return s
}

func (s *Service) AddBatch(ctx context.Context, input invtypes.AddBatchInput) (domain.Batch, error) {
	expiry := domain.FormatExpiry(input.Expiry)
	ctx, span := s.tracer.Start(ctx, "InventoryService.AddBatch",
		trace.WithAttributes(attribute.String("item.name", input.Name), attribute.String("batch.expiry", expiry), attribute.Int("batch.quantity", input.Quantity)))
	defer span.End()

	result, err := s.inner.AddBatch(ctx, input)
	if err != nil {
		return domain.Batch{}, s.handleError(ctx, span, err, "failed to add batch", slog.String("item", input.Name), slog.String("expiry", expiry))
	}
	s.metrics.recordAdded(ctx, input.Quantity)
	s.logInfo(ctx, "batch added", slog.String("item", result.Name), slog.String("expiry", result.ExpiryKey()), slog.Int("quantity", result.Quantity))
	return result, nil
}

func (s *Service) EditBatch(ctx context.Context, input invtypes.EditBatchInput) (domain.Batch, error) {
	expiry := domain.FormatExpiry(input.Expiry)
	ctx, span := s.tracer.Start(ctx, "InventoryService.EditBatch",
		trace.WithAttributes(attribute.String("item.name", input.Name), attribute.String("batch.expiry", expiry)))
	defer span.End()

	result, err := s.inner.EditBatch(ctx, input)
	if err != nil {
		return domain.Batch{}, s.handleError(ctx, span, err, "failed to edit batch", slog.String("item", input.Name), slog.String("expiry", expiry))
	}
	s.logInfo(ctx, "batch edited", slog.String("item", result.Name), slog.String("expiry", result.ExpiryKey()), slog.Int("quantity", result.Quantity))
	return result, nil
}

func (s *Service) DeleteBatch(ctx context.Context, input invtypes.BatchIdentifier) error {
	expiry := domain.FormatExpiry(input.Expiry)
	ctx, span := s.tracer.Start(ctx, "InventoryService.DeleteBatch",
		trace.WithAttributes(attribute.String("item.name", input.Name), attribute.String("batch.expiry", expiry)))
	defer span.End()

	if err := s.inner.DeleteBatch(ctx, input); err != nil {
		return s.handleError(ctx, span, err, "failed to delete batch", slog.String("item", input.Name), slog.String("expiry", expiry))
	}
	s.logInfo(ctx, "batch deleted", slog.String("item", input.Name), slog.String("expiry", expiry))
	return nil
}

func (s *Service) Batches(ctx context.Context, name string) ([]domain.Batch, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.Batches", trace.WithAttributes(attribute.String("item.name", name)))
	defer span.End()

	result, err := s.inner.Batches(ctx, name)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list batches", slog.String("item", name))
	}
	span.SetAttributes(attribute.Int("batches.count", len(result)))
	return result, nil
}

func (s *Service) StockCount(ctx context.Context, name string) (int, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.StockCount", trace.WithAttributes(attribute.String("item.name", name)))
	defer span.End()

	result, err := s.inner.StockCount(ctx, name)
	if err != nil {
		return 0, s.handleError(ctx, span, err, "failed to count stock", slog.String("item", name))
	}
	span.SetAttributes(attribute.Int("stock.count", result))
	return result, nil
}

func (s *Service) ExpiringBefore(ctx context.Context, cutoff time.Time) ([]domain.Batch, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.ExpiringBefore",
		trace.WithAttributes(attribute.String("cutoff", cutoff.Format(domain.ExpiryLayout))))
	defer span.End()

	result, err := s.inner.ExpiringBefore(ctx, cutoff)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list expiring batches")
	}
	span.SetAttributes(attribute.Int("batches.count", len(result)))
	if len(result) > 0 {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "batches expiring soon",
			slog.String("cutoff", cutoff.Format(domain.ExpiryLayout)), slog.Int("batches", len(result)))
	}
	return result, nil
}

func (s *Service) LowStock(ctx context.Context, threshold int) ([]domain.Batch, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.LowStock", trace.WithAttributes(attribute.Int("threshold", threshold)))
	defer span.End()

	result, err := s.inner.LowStock(ctx, threshold)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list low stock")
	}
	span.SetAttributes(attribute.Int("batches.count", len(result)))
	return result, nil
}

func (s *Service) Report(ctx context.Context) (domain.Report, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.Report")
	defer span.End()

	result, err := s.inner.Report(ctx)
	if err != nil {
		return domain.Report{}, s.handleError(ctx, span, err, "failed to build report")
	}
	span.SetAttributes(attribute.Int("report.batches", result.BatchCount), attribute.Int("report.items", len(result.Items)))
	return result, nil
}

func (s *Service) Flush(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "InventoryService.Flush")
	defer span.End()

	s.logInfo(ctx, "flushing ledger")
	if err := s.inner.Flush(ctx); err != nil {
		return s.handleError(ctx, span, err, "failed to flush ledger")
	}
	s.metrics.recordFlush(ctx)
	return nil
}

func (s *Service) Atomically(ctx context.Context, fn func(*domain.Ledger) error) error {
	ctx, span := s.tracer.Start(ctx, "InventoryService.Atomically")
	defer span.End()

	if err := s.inner.Atomically(ctx, fn); err != nil {
		if errors.Is(err, domain.ErrStockUnderflow) {
			s.metrics.recordUnderflow(ctx)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logError(ctx, msg, err, attrs...)
	return err
}

type serviceMetrics struct {
	unitsAdded      metric.Int64Counter
	stockUnderflows metric.Int64Counter
	flushes         metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	unitsAdded, _ := m.Int64Counter("inventory.service.units_added", metric.WithDescription("Units received into stock"))
	stockUnderflows, _ := m.Int64Counter("inventory.service.stock_underflows", metric.WithDescription("Withdrawals rejected for insufficient stock"))
	flushes, _ := m.Int64Counter("inventory.service.flushes", metric.WithDescription("Ledger flushes to storage"))
	return serviceMetrics{unitsAdded: unitsAdded, stockUnderflows: stockUnderflows, flushes: flushes}
}

func (m serviceMetrics) recordAdded(ctx context.Context, quantity int) {
	if m.unitsAdded != nil {
		m.unitsAdded.Add(ctx, int64(quantity))
	}
}

func (m serviceMetrics) recordUnderflow(ctx context.Context) {
	if m.stockUnderflows != nil {
		m.stockUnderflows.Add(ctx, 1)
	}
}

func (m serviceMetrics) recordFlush(ctx context.Context) {
	if m.flushes != nil {
		m.flushes.Add(ctx, 1)
	}
}

var _ ports.Service = (*Service)(nil)
