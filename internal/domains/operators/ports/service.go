package ports

import (
	"context"

	"github.com/localborga/milling-orders/internal/domains/operators/domain"
)

// Service authenticates operators of the order desk.
type Service interface {
	Login(ctx context.Context, password string) (*domain.Token, error)
	Authenticate(ctx context.Context, token string) (*domain.Principal, error)
	Logout(ctx context.Context, token string) error
}
