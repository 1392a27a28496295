// Package redisrelay carries status events between API replicas over Redis pub/sub.
package redisrelay

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/localborga/milling-orders/internal/domains/orders/adapters/notify"
	"github.com/localborga/milling-orders/internal/domains/orders/domain"
	"github.com/localborga/milling-orders/internal/domains/orders/ports"
)

var _ ports.Publisher = (*Relay)(nil)

// Relay publishes events to a Redis channel and replays every message it receives from that
// channel, including its own, into the local publisher. Replicas therefore see each event once.
type Relay struct {
	client  redis.UniversalClient
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

// NewClient dials Redis with the relay's defaults.
func NewClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password})
}

func New(client redis.UniversalClient, local ports.Publisher, opts ...Option) *Relay {
	r := &Relay{
		client:  client,
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

// Publish sends the event to every replica subscribed to the channel.
func (r *Relay) Publish(ctx context.Context, event domain.StatusChanged) error {
	payload, err := notify.Encode(event)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("%w: redis publish: %w", ports.ErrBusUnavailable, err)
	}
	return nil
}

// Run forwards channel messages to the local publisher until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()
	// Wait for the subscription confirmation so no publish after Run starts is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", r.channel, err)
	}
	r.logger.InfoContext(ctx, "redis relay subscribed", slog.String("channel", r.channel))

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.forward(ctx, []byte(msg.Payload))
		}
	}
}

func (r *Relay) forward(ctx context.Context, payload []byte) {
	event, err := notify.Decode(payload)
	if err != nil {
		r.logger.WarnContext(ctx, "dropping malformed relay message", slog.String("error", err.Error()))
		return
	}
	if err := r.local.Publish(ctx, event); err != nil {
		r.logger.WarnContext(ctx, "local delivery of relayed event failed",
			slog.Int64("order.id", event.OrderID),
			slog.String("error", err.Error()))
	}
}
