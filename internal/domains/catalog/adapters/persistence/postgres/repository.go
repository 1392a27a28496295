package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/localborga/milling-orders/internal/domains/catalog/domain"
	"github.com/localborga/milling-orders/internal/domains/catalog/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository reads the catalog from PostgreSQL using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed catalog. Caller manages DB lifecycle and schema.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

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

// Seed inserts products that do not exist yet.
func (r *Repository) Seed(ctx context.Context, products []*domain.Product) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	for _, p := range products {
		if p == nil {
			continue
		}
		rec := toRecord(p)
		if err := r.db.WithContext(ctx).Where("id = ?", rec.ID).FirstOrCreate(&rec).Error; err != nil {
			return err
		}
	}
	return nil
}

// List returns products ordered by id.
func (r *Repository) List(ctx context.Context) ([]*domain.Product, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []productRecord
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	products := make([]*domain.Product, 0, len(records))
	for i := range records {
		products = append(products, records[i].toDomain())
	}
	return products, nil
}

// GetByID fetches a product by identifier.
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record productRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres catalog repository not configured")
	}
	return nil
}

func toRecord(p *domain.Product) productRecord {
	return productRecord{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.UnitPrice,
		Category:    p.Category,
		Description: p.Description,
		Image:       p.ImageURL,
		IsPremium:   p.Premium,
	}
}

func (r productRecord) toDomain() *domain.Product {
	return &domain.Product{
		ID:          r.ID,
		Name:        r.Name,
		UnitPrice:   r.Price,
		Category:    r.Category,
		Description: r.Description,
		ImageURL:    r.Image,
		Premium:     r.IsPremium,
	}
}
