package ports

import (
	"context"

	"github.com/localborga/milling-orders/internal/domains/catalog/domain"
)

// Service exposes catalog queries to adapters.
type Service interface {
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}
