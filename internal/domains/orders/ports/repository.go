package ports

import (
	"context"
	"errors"

	"github.com/localborga/milling-orders/internal/domains/orders/domain"
)

var ErrNotFound = errors.New("order not found")

// Repository is the durable order store. It owns the canonical status per order id.
type Repository interface {
	// Create assigns an id and the pending status.
	Create(ctx context.Context, draft domain.Draft) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	// UpdateStatus moves the order from one status to another in a single compare-and-set.
	// It returns ErrNotFound for unknown ids and a *domain.TransitionError naming the stored
	// status when the order is no longer in from.
	UpdateStatus(ctx context.Context, id int64, from, to domain.Status) (*domain.Order, error)
	// List returns every order, newest first.
	List(ctx context.Context) ([]*domain.Order, error)
}
