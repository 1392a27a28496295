package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/localborga/milling-orders/internal/domains/orders/domain"
	"github.com/localborga/milling-orders/internal/domains/orders/ports"
)

// DefaultOperationTimeout bounds store round-trips made on behalf of a caller.
const DefaultOperationTimeout = 5 * time.Second

const publishTimeout = 2 * time.Second

// Service orchestrates order placement, tracking and the status lifecycle.
type Service struct {
	repo        ports.Repository
	publisher   ports.Publisher
	idempotency ports.IdempotencyStore
	logger      *slog.Logger
	now         func() time.Time
	timeout     time.Duration

	orderLocks *keyedMutex[int64]
	keyLocks   *keyedMutex[string]
}

type Option func(*Service)

// WithPublisher sets where status events go after a committed transition.
func WithPublisher(p ports.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithIdempotencyStore enables Idempotency-Key replay for order placement.
func WithIdempotencyStore(store ports.IdempotencyStore) Option {
	return func(s *Service) {
		s.idempotency = store
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source for deterministic testing.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithOperationTimeout bounds each use case; zero or negative disables the bound.
func WithOperationTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

func NewService(repo ports.Repository, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		publisher:  ports.NoopPublisher,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        time.Now,
		timeout:    DefaultOperationTimeout,
		orderLocks: newKeyedMutex[int64](),
		keyLocks:   newKeyedMutex[string](),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// PlaceOrder persists a draft as a pending order. A repeated idempotency key replays the first
// order. Once the order is created it is returned even if its key could not be recorded.
func (s *Service) PlaceOrder(ctx context.Context, input ports.PlaceOrderInput) (*domain.Order, error) {
	draft := input.Draft.Normalize()
	if err := draft.Validate(); err != nil {
		return nil, mapError(err)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key := strings.TrimSpace(input.IdempotencyKey)
	if key == "" || s.idempotency == nil {
		order, err := s.repo.Create(ctx, draft)
		return order, mapStoreError(err)
	}

	unlock, err := s.keyLocks.Lock(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	defer unlock()

	hash, err := FingerprintDraft(draft)
	if err != nil {
		return nil, err
	}
	existing, err := s.idempotency.Get(ctx, key)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if existing != nil {
		return s.replay(ctx, existing, hash)
	}

	order, err := s.repo.Create(ctx, draft)
	if err != nil {
		return nil, mapStoreError(err)
	}
	stored, err := s.idempotency.Save(ctx, ports.IdempotencyRecord{Key: key, RequestHash: hash, OrderID: order.ID})
	switch {
	case errors.Is(err, ports.ErrIdempotencyConflict) && stored != nil:
		// Another replica won the race for this key; answer with its order.
		s.logger.WarnContext(ctx, "idempotency key claimed concurrently",
			slog.String("idempotency.key", key),
			slog.Int64("order.id", order.ID),
			slog.Int64("order.id.stored", stored.OrderID))
		return s.replay(ctx, stored, hash)
	case err != nil:
		// The order is committed. Failing here would invite a retry that places it twice.
		s.logger.ErrorContext(ctx, "order placed without idempotency record",
			slog.String("idempotency.key", key),
			slog.Int64("order.id", order.ID),
			slog.String("error", err.Error()))
	}
	return order, nil
}

func (s *Service) replay(ctx context.Context, record *ports.IdempotencyRecord, hash string) (*domain.Order, error) {
	if record.RequestHash != hash {
		return nil, ports.ErrIdempotencyConflict
	}
	order, err := s.repo.GetByID(ctx, record.OrderID)
	return order, mapStoreError(err)
}

// ListOrders returns every order, newest first.
func (s *Service) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	orders, err := s.repo.List(ctx)
	return orders, mapStoreError(err)
}

// Track is the anonymous read path: the current state of one order, straight from the store.
func (s *Service) Track(ctx context.Context, id int64) (*domain.Snapshot, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	snapshot := order.Snapshot()
	return &snapshot, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

var _ ports.Service = (*Service)(nil)
