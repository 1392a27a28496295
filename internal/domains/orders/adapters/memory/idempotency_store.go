package memory

import (
	"context"
	"sync"
	"time"

	"github.com/localborga/milling-orders/internal/domains/orders/ports"
)

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore keeps checkout keys in process memory.
type IdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]ports.IdempotencyRecord
	now  func() time.Time
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{keys: map[string]ports.IdempotencyRecord{}, now: time.Now}
}

func (s *IdempotencyStore) Get(_ context.Context, key string) (*ports.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.keys[key]; ok {
		return &record, nil
	}
	return nil, nil
}

func (s *IdempotencyStore) Save(_ context.Context, record ports.IdempotencyRecord) (*ports.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if claimed, ok := s.keys[record.Key]; ok {
		if !claimed.Matches(record) {
			return &claimed, ports.ErrIdempotencyConflict
		}
		return &claimed, nil
	}
	record.CreatedAt = s.now()
	s.keys[record.Key] = record
	return &record, nil
}

func (s *IdempotencyStore) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for key, record := range s.keys {
		if record.CreatedAt.Before(cutoff) {
			delete(s.keys, key)
			purged++
		}
	}
	return purged, nil
}
