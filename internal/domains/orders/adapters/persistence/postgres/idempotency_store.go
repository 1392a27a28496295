package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/localborga/milling-orders/internal/domains/orders/ports"
)

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore claims checkout keys in order_idempotency_keys. Concurrent claims on one
// key are settled by the primary key: the losing insert does nothing and reads the winner.
type IdempotencyStore struct {
	db *gorm.DB
}

func NewIdempotencyStore(db *gorm.DB) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

type idempotencyKeyRow struct {
	Key         string    `gorm:"primaryKey;column:key;size:255"`
	RequestHash string    `gorm:"column:request_hash;size:128;not null"`
	OrderID     int64     `gorm:"column:order_id;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;index"`
}

func (idempotencyKeyRow) TableName() string { return "order_idempotency_keys" }

func (s *IdempotencyStore) Get(ctx context.Context, key string) (*ports.IdempotencyRecord, error) {
	var row idempotencyKeyRow
	err := s.db.WithContext(ctx).Where("key = ?", key).Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("load idempotency key: %w", err)
	}
	return &ports.IdempotencyRecord{
		Key:         row.Key,
		RequestHash: row.RequestHash,
		OrderID:     row.OrderID,
		CreatedAt:   row.CreatedAt,
	}, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, record ports.IdempotencyRecord) (*ports.IdempotencyRecord, error) {
	row := idempotencyKeyRow{Key: record.Key, RequestHash: record.RequestHash, OrderID: record.OrderID}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if result.Error != nil {
		return nil, fmt.Errorf("claim idempotency key: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		record.CreatedAt = row.CreatedAt
		return &record, nil
	}
	claimed, err := s.Get(ctx, record.Key)
	if err != nil {
		return nil, err
	}
	if claimed == nil {
		return nil, fmt.Errorf("idempotency key %q vanished after conflicting insert", record.Key)
	}
	if !claimed.Matches(record) {
		return claimed, ports.ErrIdempotencyConflict
	}
	return claimed, nil
}

func (s *IdempotencyStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&idempotencyKeyRow{})
	if result.Error != nil {
		return 0, fmt.Errorf("purge idempotency keys: %w", result.Error)
	}
	return result.RowsAffected, nil
}
