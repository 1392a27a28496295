package ports

import (
	"context"

	"github.com/localborga/milling-orders/internal/domains/orders/domain"
)

// PlaceOrderInput is a draft plus an optional idempotency key.
type PlaceOrderInput struct {
	Draft          domain.Draft
	IdempotencyKey string
}

// Service exposes order use cases to adapters.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	Track(ctx context.Context, id int64) (*domain.Snapshot, error)
	TransitionStatus(ctx context.Context, id int64, target domain.Status) (*domain.Order, error)
}
