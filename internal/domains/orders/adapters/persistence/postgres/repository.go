package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/localborga/milling-orders/internal/domains/orders/domain"
	"github.com/localborga/milling-orders/internal/domains/orders/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists orders in PostgreSQL using GORM. Schema is owned by platform/migrations.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// orderRecord maps the order aggregate to the orders table.
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

// Create inserts a pending order; the id comes from the bigserial sequence.
func (r *Repository) Create(ctx context.Context, draft domain.Draft) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	order, err := domain.NewOrder(0, draft, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	record := toRecord(order)
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return record.toDomain(), nil
}

// GetByID fetches an order by identifier.
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record orderRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// UpdateStatus writes the status column only while the row still holds from, so replicas
// racing on one order cannot both commit. The losing writer learns the stored status.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to domain.Status) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if !to.IsValid() {
		return nil, domain.ErrInvalidStatus
	}
	var record orderRecord
	result := r.db.WithContext(ctx).
		Model(&record).
		Clauses(clause.Returning{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]any{
			"status":     string(to),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &domain.TransitionError{From: current.Status, To: to}
	}
	return record.toDomain(), nil
}

// List returns every order, newest first.
func (r *Repository) List(ctx context.Context) ([]*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []orderRecord
	if err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(records))
	for i := range records {
		orders = append(orders, records[i].toDomain())
	}
	return orders, nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres order repository not configured")
	}
	return nil
}

func toRecord(order *domain.Order) orderRecord {
	return orderRecord{
		ID:           order.ID,
		ItemName:     order.ItemName,
		MillingStyle: order.MillingStyle,
		WeightKg:     order.WeightKg,
		TotalPrice:   order.TotalPrice,
		Status:       string(order.Status),
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
	}
}

func (r orderRecord) toDomain() *domain.Order {
	return &domain.Order{
		ID:           r.ID,
		ItemName:     r.ItemName,
		MillingStyle: r.MillingStyle,
		WeightKg:     r.WeightKg,
		TotalPrice:   r.TotalPrice,
		Status:       domain.Status(r.Status),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
