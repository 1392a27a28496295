package mapper

import (
	"github.com/localborga/milling-orders/internal/domains/catalog/domain"
	"github.com/localborga/milling-orders/internal/shared/money"
)

// Product is the storefront representation of a shelf item.
type Product struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Price       money.Amount `json:"price"`
	Category    string       `json:"category"`
	Description string       `json:"description,omitempty"`
	Image       string       `json:"image,omitempty"`
	IsPremium   bool         `json:"isPremium"`
}

func FromProduct(p *domain.Product) Product {
	return Product{
		ID:          p.ID,
		Name:        p.Name,
		Price:       money.New(p.UnitPrice),
		Category:    p.Category,
		Description: p.Description,
		Image:       p.ImageURL,
		IsPremium:   p.Premium,
	}
}

func FromProducts(products []*domain.Product) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		out = append(out, FromProduct(p))
	}
	return out
}
