package observability

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	invdomain "github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
	movtypes "github.com/Apurer/stock-ledger/internal/domains/movements/application/types"
	"github.com/Apurer/stock-ledger/internal/domains/movements/domain"
	"github.com/Apurer/stock-ledger/internal/domains/movements/ports"
)

const tracerName = "github.com/Apurer/stock-ledger/internal/domains/movements/adapters/observability/service"

// Service decorates the movements service with tracing, logging, and metrics.
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

// New wraps the core movements service.
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

func (s *Service) CreateTransaction(ctx context.Context, input movtypes.TransactionInput) (domain.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "MovementsService.CreateTransaction",
		trace.WithAttributes(attribute.String("item.name", input.Name), attribute.String("transaction.type", string(input.Type)), attribute.Int("transaction.quantity", input.Quantity)))
	defer span.End()

	s.logInfo(ctx, "recording transaction", slog.String("item", input.Name), slog.String("type", string(input.Type)), slog.Int("quantity", input.Quantity))
	result, err := s.inner.CreateTransaction(ctx, input)
	if err != nil {
		s.metrics.recordRejected(ctx, err)
		return domain.Transaction{}, s.handleError(ctx, span, err, "failed to record transaction", slog.String("item", input.Name))
	}
	s.metrics.recordTransaction(ctx, result)
	span.SetAttributes(attribute.String("transaction.id", result.ID.String()))
	s.logInfo(ctx, "transaction recorded", slog.String("transaction.id", result.ID.String()), slog.String("item", result.ItemName))
	return result, nil
}

func (s *Service) CreateOrder(ctx context.Context, input movtypes.OrderInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "MovementsService.CreateOrder",
		trace.WithAttributes(attribute.String("order.type", string(input.Type)), attribute.Int("order.items", len(input.Items))))
	defer span.End()

	result, err := s.inner.CreateOrder(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to create order", slog.String("type", string(input.Type)))
	}
	s.metrics.recordOrder(ctx, "created", result.Type)
	span.SetAttributes(attribute.String("order.id", result.ID.String()))
	s.logInfo(ctx, "order created", slog.String("order.id", result.ID.String()), slog.String("type", string(result.Type)))
	return result, nil
}

func (s *Service) FulfillOrder(ctx context.Context, id uuid.UUID) (*movtypes.FulfillmentResult, error) {
	ctx, span := s.tracer.Start(ctx, "MovementsService.FulfillOrder", trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	s.logInfo(ctx, "fulfilling order", slog.String("order.id", id.String()))
	result, err := s.inner.FulfillOrder(ctx, id)
	if err != nil {
		s.metrics.recordRejected(ctx, err)
		return nil, s.handleError(ctx, span, err, "failed to fulfill order", slog.String("order.id", id.String()))
	}
	s.metrics.recordOrder(ctx, "fulfilled", result.Order.Type)
	for _, tx := range result.Transactions {
		s.metrics.recordTransaction(ctx, tx)
	}
	span.SetAttributes(attribute.Int("order.transactions", len(result.Transactions)))
	s.logInfo(ctx, "order fulfilled", slog.String("order.id", id.String()), slog.Int("transactions", len(result.Transactions)))
	return result, nil
}

func (s *Service) CancelOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "MovementsService.CancelOrder", trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	result, err := s.inner.CancelOrder(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to cancel order", slog.String("order.id", id.String()))
	}
	s.metrics.recordOrder(ctx, "cancelled", result.Type)
	s.logInfo(ctx, "order cancelled", slog.String("order.id", id.String()))
	return result, nil
}

func (s *Service) Order(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "MovementsService.Order", trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	result, err := s.inner.Order(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load order", slog.String("order.id", id.String()))
	}
	span.SetAttributes(attribute.String("order.status", string(result.Status())))
	return result, nil
}

func (s *Service) Orders(ctx context.Context) ([]*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "MovementsService.Orders")
	defer span.End()

	result, err := s.inner.Orders(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list orders")
	}
	span.SetAttributes(attribute.Int("orders.count", len(result)))
	return result, nil
}

func (s *Service) AllTransactions(ctx context.Context) ([]domain.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "MovementsService.AllTransactions")
	defer span.End()

	result, err := s.inner.AllTransactions(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list transactions")
	}
	span.SetAttributes(attribute.Int("transactions.count", len(result)))
	return result, nil
}

func (s *Service) TransactionsFor(ctx context.Context, name string) ([]domain.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "MovementsService.TransactionsFor", trace.WithAttributes(attribute.String("item.name", name)))
	defer span.End()

	result, err := s.inner.TransactionsFor(ctx, name)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list item transactions", slog.String("item", name))
	}
	span.SetAttributes(attribute.Int("transactions.count", len(result)))
	return result, nil
}

func (s *Service) TransactionsInRange(ctx context.Context, start, end time.Time) ([]domain.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "MovementsService.TransactionsInRange",
		trace.WithAttributes(attribute.String("range.start", start.Format(time.RFC3339)), attribute.String("range.end", end.Format(time.RFC3339))))
	defer span.End()

	result, err := s.inner.TransactionsInRange(ctx, start, end)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list transactions in range")
	}
	span.SetAttributes(attribute.Int("transactions.count", len(result)))
	return result, nil
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
	transactions    metric.Int64Counter
	units           metric.Int64Counter
	orders          metric.Int64Counter
	stockUnderflows metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	transactions, _ := m.Int64Counter("movements.service.transactions", metric.WithDescription("Number of recorded transactions"))
	units, _ := m.Int64Counter("movements.service.units_moved", metric.WithDescription("Units moved by recorded transactions"))
	orders, _ := m.Int64Counter("movements.service.orders", metric.WithDescription("Order lifecycle events"))
	stockUnderflows, _ := m.Int64Counter("movements.service.stock_underflows", metric.WithDescription("Movements rejected for insufficient stock"))
	return serviceMetrics{transactions: transactions, units: units, orders: orders, stockUnderflows: stockUnderflows}
}

func (m serviceMetrics) recordTransaction(ctx context.Context, tx domain.Transaction) {
	attrs := metric.WithAttributes(attribute.String("transaction.type", string(tx.Type)))
	if m.transactions != nil {
		m.transactions.Add(ctx, 1, attrs)
	}
	if m.units != nil {
		m.units.Add(ctx, int64(tx.Quantity), attrs)
	}
}

func (m serviceMetrics) recordOrder(ctx context.Context, event string, typ domain.OrderType) {
	if m.orders != nil {
		m.orders.Add(ctx, 1, metric.WithAttributes(attribute.String("order.event", event), attribute.String("order.type", string(typ))))
	}
}

func (m serviceMetrics) recordRejected(ctx context.Context, err error) {
	if m.stockUnderflows != nil && errors.Is(err, invdomain.ErrStockUnderflow) {
		m.stockUnderflows.Add(ctx, 1)
	}
}

var _ ports.Service = (*Service)(nil)
