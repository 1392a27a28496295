package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidProductID = errors.New("product id must be greater than zero")
	ErrEmptyName        = errors.New("product name is required")
	ErrInvalidPrice     = errors.New("product price must be greater than zero")
	ErrEmptyCategory    = errors.New("product category is required")
)

// Product is a shelf item offered in the storefront catalog.
type Product struct {
	ID          int64
	Name        string
	UnitPrice   decimal.Decimal
	Category    string
	Description string
	ImageURL    string
	Premium     bool
}

// Validate enforces the catalog invariants.
func (p *Product) Validate() error {
	if p.ID <= 0 {
		return ErrInvalidProductID
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if !p.UnitPrice.IsPositive() {
		return ErrInvalidPrice
	}
	if strings.TrimSpace(p.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}
