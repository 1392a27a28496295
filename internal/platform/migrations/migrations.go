package migrations

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Run applies the schema for the bounded contexts. Adapters never automigrate on their own.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&productRecord{},
		&orderRecord{},
		&idempotencyRecord{},
		&sessionRecord{},
	)
}

// Product schema mirrors the catalog Postgres adapter.
type productRecord struct {
	ID          int64           `gorm:"primaryKey;column:id"`
	Name        string          `gorm:"column:name"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2)"`
	Category    string          `gorm:"column:category;index"`
	Description string          `gorm:"column:description"`
	Image       string          `gorm:"column:image"`
	IsPremium   bool            `gorm:"column:is_premium"`
	CreatedAt   time.Time       `gorm:"column:created_at"`
}

func (productRecord) TableName() string { return "products" }

// Order schema mirrors the orders Postgres adapter.
type orderRecord struct {
	ID           int64            `gorm:"primaryKey;autoIncrement;column:id"`
	ItemName     string           `gorm:"column:item_name;not null"`
	MillingStyle *string          `gorm:"column:milling_style"`
	WeightKg     *decimal.Decimal `gorm:"column:weight_kg;type:numeric(8,2)"`
	TotalPrice   decimal.Decimal  `gorm:"column:total_price;type:numeric(12,2);not null"`
	Status       string           `gorm:"column:status;type:varchar(32);not null;index"`
	CreatedAt    time.Time        `gorm:"column:created_at;index"`
	UpdatedAt    time.Time        `gorm:"column:updated_at"`
}

func (orderRecord) TableName() string { return "orders" }

// Idempotency schema mirrors the orders idempotency store.
type idempotencyRecord struct {
	Key         string    `gorm:"primaryKey;column:key;size:255"`
	RequestHash string    `gorm:"column:request_hash;size:128;not null"`
	OrderID     int64     `gorm:"column:order_id;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;index"`
}

func (idempotencyRecord) TableName() string { return "order_idempotency_keys" }

// Session schema mirrors the operator session store.
type sessionRecord struct {
	ID        string    `gorm:"primaryKey;column:id;size:64"`
	Role      string    `gorm:"column:role;size:32"`
	ExpiresAt time.Time `gorm:"column:expires_at;index"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
}

func (sessionRecord) TableName() string { return "operator_sessions" }
