package ports

import (
	"context"
	"errors"

	"github.com/localborga/milling-orders/internal/domains/orders/domain"
)

// ErrBusUnavailable reports that a status event could not be fanned out.
var ErrBusUnavailable = errors.New("notification bus unavailable")

// Publisher delivers status events to whoever is listening. Delivery is best-effort.
type Publisher interface {
	Publish(ctx context.Context, event domain.StatusChanged) error
}

// Subscription is a live feed of status events. Close is idempotent.
type Subscription interface {
	Events() <-chan domain.StatusChanged
	Close()
}

// Subscriber opens live feeds of status events.
type Subscriber interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// NoopPublisher drops every event.
var NoopPublisher Publisher = noopPublisher{}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.StatusChanged) error { return nil }
