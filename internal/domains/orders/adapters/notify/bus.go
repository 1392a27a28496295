// Package notify fans order status events out to live subscribers inside one process.
package notify

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/localborga/milling-orders/internal/domains/orders/domain"
	"github.com/localborga/milling-orders/internal/domains/orders/ports"
)

// DefaultBufferSize is the per-subscriber queue length.
const DefaultBufferSize = 16

var (
	_ ports.Publisher  = (*Bus)(nil)
	_ ports.Subscriber = (*Bus)(nil)
)

// Bus is the in-process broadcaster for status events.
//
// Publish never blocks on a subscriber. A subscriber whose buffer is full is evicted and its
// channel closed, so a stalled client cannot delay anyone else.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool

	buffer int
	logger *slog.Logger
}

type Option func(*Bus)

// WithBufferSize sets the per-subscriber queue length. Values below one are ignored.
func WithBufferSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subs:   map[uint64]*Subscription{},
		buffer: DefaultBufferSize,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Subscription is one live feed. Its channel closes on Close, eviction, bus shutdown or
// cancellation of the context passed to Subscribe.
type Subscription struct {
	id   uint64
	bus  *Bus
	ch   chan domain.StatusChanged
	once sync.Once
	done chan struct{}
}

func (s *Subscription) Events() <-chan domain.StatusChanged {
	return s.ch
}

// Done closes once the subscription has ended for any reason.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) Close() {
	s.bus.Unsubscribe(s)
}

// Subscribe opens a feed. No events published before the call are delivered.
func (b *Bus) Subscribe(ctx context.Context) (ports.Subscription, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ports.ErrBusUnavailable
	}
	b.nextID++
	sub := &Subscription{
		id:   b.nextID,
		bus:  b,
		ch:   make(chan domain.StatusChanged, b.buffer),
		done: make(chan struct{}),
	}
	b.subs[sub.id] = sub
	b.mu.Unlock()

	if ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				b.Unsubscribe(sub)
			case <-sub.done:
			}
		}()
	}
	return sub, nil
}

// Unsubscribe ends a feed. It is safe to call more than once and with foreign subscriptions.
func (b *Bus) Unsubscribe(sub ports.Subscription) {
	s, ok := sub.(*Subscription)
	if !ok || s == nil || s.bus != b {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(s)
}

// removeLocked must hold b.mu for writing; channel sends happen under the read lock,
// so closing here cannot race a send.
func (b *Bus) removeLocked(s *Subscription) {
	s.once.Do(func() {
		delete(b.subs, s.id)
		close(s.ch)
		close(s.done)
	})
}

// Publish delivers event to every current subscriber. Having no subscribers is not an error.
func (b *Bus) Publish(ctx context.Context, event domain.StatusChanged) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ports.ErrBusUnavailable
	}
	var slow []*Subscription
	for _, sub := range b.subs {
		select {
		case sub.ch <- event:
		default:
			slow = append(slow, sub)
		}
	}
	b.mu.RUnlock()

	if len(slow) == 0 {
		return nil
	}
	b.mu.Lock()
	for _, sub := range slow {
		b.removeLocked(sub)
	}
	b.mu.Unlock()
	b.logger.WarnContext(ctx, "evicted slow status subscribers",
		slog.Int("subscribers.evicted", len(slow)),
		slog.Int64("order.id", event.OrderID))
	return nil
}

// Len reports the number of live subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription. Later publishes and subscribes return ErrBusUnavailable.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		b.removeLocked(sub)
	}
}
