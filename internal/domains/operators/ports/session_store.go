package ports

import (
	"context"
	"errors"
	"time"

	"github.com/localborga/milling-orders/internal/domains/operators/domain"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists issued operator sessions.
type SessionStore interface {
	Save(ctx context.Context, session domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	// PurgeExpired removes sessions that expired at or before now and reports how many went.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
