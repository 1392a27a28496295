package application

import (
	"context"

	"github.com/localborga/milling-orders/internal/domains/catalog/domain"
	"github.com/localborga/milling-orders/internal/domains/catalog/ports"
)

// Service answers catalog queries. The catalog is owned elsewhere; this side only reads.
type Service struct {
	repo ports.Repository
}

func NewService(repo ports.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

var _ ports.Service = (*Service)(nil)
