// Package pgrelay carries status events between API replicas over PostgreSQL LISTEN/NOTIFY.
package pgrelay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/localborga/milling-orders/internal/domains/orders/adapters/notify"
	"github.com/localborga/milling-orders/internal/domains/orders/domain"
	"github.com/localborga/milling-orders/internal/domains/orders/ports"
)

const (
	minReconnectInterval = 500 * time.Millisecond
	maxReconnectInterval = 30 * time.Second
	pingInterval         = 90 * time.Second
)

var _ ports.Publisher = (*Relay)(nil)

// Relay publishes with pg_notify and listens on a dedicated lib/pq connection. Like the Redis
// relay it feeds every received notification, its own included, into the local publisher.
type Relay struct {
	db      *gorm.DB
	dsn     string
	channel string
	local   ports.Publisher
	logger  *slog.Logger
}

type Option func(*Relay)

func WithChannel(channel string) Option {
	return func(r *Relay) {
		if channel != "" {
			r.channel = channel
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New builds a relay. dsn opens the listener connection; db is used for NOTIFY.
func New(db *gorm.DB, dsn string, local ports.Publisher, opts ...Option) *Relay {
	r := &Relay{
		db:      db,
		dsn:     dsn,
		channel: domain.StatusChangedEventName,
		local:   local,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Relay) Publish(ctx context.Context, event domain.StatusChanged) error {
	if r.db == nil {
		return fmt.Errorf("%w: postgres relay not configured", ports.ErrBusUnavailable)
	}
	payload, err := notify.Encode(event)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", r.channel, string(payload)).Error; err != nil {
		return fmt.Errorf("%w: pg_notify: %w", ports.ErrBusUnavailable, err)
	}
	return nil
}

// Run listens until ctx is done. lib/pq reconnects on its own; notifications sent while
// disconnected are lost, which trackers cover by re-reading the order.
func (r *Relay) Run(ctx context.Context) error {
	if r.dsn == "" {
		return errors.New("postgres relay requires a DSN")
	}
	listener := pq.NewListener(r.dsn, minReconnectInterval, maxReconnectInterval, r.onListenerEvent)
	defer listener.Close()
	if err := listener.Listen(r.channel); err != nil {
		return fmt.Errorf("listen %s: %w", r.channel, err)
	}
	r.logger.InfoContext(ctx, "postgres relay listening", slog.String("channel", r.channel))

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-listener.Notify:
			if !ok {
				return nil
			}
			// A nil notification marks a reconnect.
			if n == nil {
				continue
			}
			r.forward(ctx, []byte(n.Extra))
		case <-ticker.C:
			if err := listener.Ping(); err != nil {
				r.logger.WarnContext(ctx, "postgres relay ping failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (r *Relay) onListenerEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
		attrs := []any{slog.Int("event", int(ev))}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		r.logger.Warn("postgres relay connection problem", attrs...)
	case pq.ListenerEventReconnected:
		r.logger.Info("postgres relay reconnected")
	}
}

func (r *Relay) forward(ctx context.Context, payload []byte) {
	event, err := notify.Decode(payload)
	if err != nil {
		r.logger.WarnContext(ctx, "dropping malformed notification", slog.String("error", err.Error()))
		return
	}
	if err := r.local.Publish(ctx, event); err != nil {
		r.logger.WarnContext(ctx, "local delivery of relayed event failed",
			slog.Int64("order.id", event.OrderID),
			slog.String("error", err.Error()))
	}
}
