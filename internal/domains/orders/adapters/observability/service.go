package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/localborga/milling-orders/internal/domains/orders/domain"
	"github.com/localborga/milling-orders/internal/domains/orders/ports"
)

const tracerName = "github.com/localborga/milling-orders/internal/domains/orders/adapters/observability/service"

// Service decorates the orders application port with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracer injects a tracer implementation.
func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

// WithMeter injects the meter used to create service metrics instruments.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wires a decorator around the core service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
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
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	return s
}

// PlaceOrder persists a new order with instrumentation.
func (s *Service) PlaceOrder(ctx context.Context, input ports.PlaceOrderInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.PlaceOrder",
		trace.WithAttributes(
			attribute.String("order.item_name", input.Draft.ItemName),
			attribute.Bool("order.idempotent", input.IdempotencyKey != ""),
		))
	defer span.End()

	result, err := s.inner.PlaceOrder(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to place order", slog.String("order.item_name", input.Draft.ItemName))
	}
	span.SetAttributes(attribute.Int64("order.id", result.ID))
	s.metrics.recordPlaced(ctx, result.MillingStyle != nil)
	s.logInfo(ctx, "order placed",
		slog.Int64("order.id", result.ID),
		slog.String("order.total_price", result.TotalPrice.StringFixed(2)))
	return result, nil
}

// ListOrders returns every order for the operator console.
func (s *Service) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListOrders")
	defer span.End()

	result, err := s.inner.ListOrders(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list orders")
	}
	span.SetAttributes(attribute.Int("order.result.count", len(result)))
	return result, nil
}

// Track reads a single order snapshot.
func (s *Service) Track(ctx context.Context, id int64) (*domain.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Track", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	result, err := s.inner.Track(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			// Unknown ids are a normal outcome for anonymous tracking.
			span.SetAttributes(attribute.Bool("order.found", false))
			return nil, err
		}
		return nil, s.handleError(ctx, span, err, "failed to track order", slog.Int64("order.id", id))
	}
	span.SetAttributes(attribute.String("order.status", result.Status.String()))
	return result, nil
}

// TransitionStatus moves an order through the lifecycle.
func (s *Service) TransitionStatus(ctx context.Context, id int64, target domain.Status) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.TransitionStatus",
		trace.WithAttributes(
			attribute.Int64("order.id", id),
			attribute.String("order.status.target", target.String()),
		))
	defer span.End()

	result, err := s.inner.TransitionStatus(ctx, id, target)
	if err != nil {
		s.metrics.recordRejected(ctx, target)
		return nil, s.handleError(ctx, span, err, "failed to transition order",
			slog.Int64("order.id", id),
			slog.String("order.status.target", target.String()))
	}
	s.metrics.recordTransition(ctx, result.Status)
	s.logInfo(ctx, "order status changed",
		slog.Int64("order.id", result.ID),
		slog.String("order.status", result.Status.String()))
	return result, nil
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if s.logger != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
	}
	return err
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type serviceMetrics struct {
	ordersPlaced        metric.Int64Counter
	transitions         metric.Int64Counter
	transitionsRejected metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	ordersPlaced, _ := m.Int64Counter("orders.service.placed", metric.WithDescription("Number of orders placed"))
	transitions, _ := m.Int64Counter("orders.service.transitions", metric.WithDescription("Number of committed status transitions"))
	rejected, _ := m.Int64Counter("orders.service.transitions_rejected", metric.WithDescription("Number of refused status transitions"))
	return serviceMetrics{
		ordersPlaced:        ordersPlaced,
		transitions:         transitions,
		transitionsRejected: rejected,
	}
}

func (m serviceMetrics) recordPlaced(ctx context.Context, custom bool) {
	addCounter(ctx, m.ordersPlaced, 1, attribute.Bool("order.custom_milling", custom))
}

func (m serviceMetrics) recordTransition(ctx context.Context, status domain.Status) {
	addCounter(ctx, m.transitions, 1, attribute.String("order.status", status.String()))
}

func (m serviceMetrics) recordRejected(ctx context.Context, target domain.Status) {
	addCounter(ctx, m.transitionsRejected, 1, attribute.String("order.status.target", target.String()))
}

func addCounter(ctx context.Context, counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

var _ ports.Service = (*Service)(nil)
