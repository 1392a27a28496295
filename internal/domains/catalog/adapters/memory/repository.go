package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/localborga/milling-orders/internal/domains/catalog/domain"
	"github.com/localborga/milling-orders/internal/domains/catalog/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository is an in-memory catalog used for development and tests.
type Repository struct {
	mu       sync.RWMutex
	products map[int64]*domain.Product
}

func NewRepository() *Repository {
	return &Repository{products: map[int64]*domain.Product{}}
}

// NewSeededRepository returns a catalog pre-loaded with the house staples.
func NewSeededRepository() *Repository {
	r := NewRepository()
	for _, p := range DefaultProducts() {
		_ = r.Put(p)
	}
	return r
}

// DefaultProducts lists the staples sold when no database is configured.
func DefaultProducts() []*domain.Product {
	return []*domain.Product{
		{ID: 1, Name: "Premium White Gari", UnitPrice: decimal.RequireFromString("15.99"), Category: "Gari", Description: "Fine grained, crispy white gari.", Premium: true},
		{ID: 2, Name: "Yellow Gari (With Oil)", UnitPrice: decimal.RequireFromString("18.50"), Category: "Gari", Description: "Rich yellow gari processed with premium palm oil."},
		{ID: 3, Name: "Hausa Koko Mix", UnitPrice: decimal.RequireFromString("12.00"), Category: "Flour", Description: "Spiced millet flour for authentic breakfast porridge."},
		{ID: 4, Name: "Fermented Corn Dough", UnitPrice: decimal.RequireFromString("10.50"), Category: "Dough", Description: "Perfectly aged for Banku or Kenkey."},
	}
}

// Put inserts or replaces a product.
func (r *Repository) Put(product *domain.Product) error {
	if product == nil {
		return errors.New("product is nil")
	}
	clone := *product
	if err := clone.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[clone.ID] = &clone
	return nil
}

func (r *Repository) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	product, ok := r.products[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	clone := *product
	return &clone, nil
}

func (r *Repository) List(_ context.Context) ([]*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*domain.Product, 0, len(r.products))
	for _, product := range r.products {
		clone := *product
		list = append(list, &clone)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}
