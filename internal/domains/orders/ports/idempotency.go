package ports

import (
	"context"
	"errors"
	"time"
)

// ErrIdempotencyConflict means the key already placed a different order or a different draft.
var ErrIdempotencyConflict = errors.New("idempotency conflict")

// DefaultIdempotencyRetention is how long a checkout retry can still replay its first order.
const DefaultIdempotencyRetention = 24 * time.Hour

// IdempotencyRecord binds an Idempotency-Key to the draft fingerprint and the order it placed.
// Records are written once and never updated.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	OrderID     int64
	CreatedAt   time.Time
}

// Matches reports whether other claims the same key for the same draft and order.
func (r IdempotencyRecord) Matches(other IdempotencyRecord) bool {
	return r.RequestHash == other.RequestHash && r.OrderID == other.OrderID
}

type IdempotencyStore interface {
	// Get returns the record for key, or nil when the key is unknown.
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	// Save claims record.Key. When the key is already claimed the stored record is returned,
	// together with ErrIdempotencyConflict unless it Matches.
	Save(ctx context.Context, record IdempotencyRecord) (*IdempotencyRecord, error)
	// PurgeBefore forgets keys claimed before cutoff and reports how many were removed.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
