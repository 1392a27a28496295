package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/localborga/milling-orders/internal/domains/orders/domain"
	"github.com/localborga/milling-orders/internal/domains/orders/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository is an in-memory order store. Ids increase monotonically from 1.
type Repository struct {
	mu     sync.RWMutex
	orders map[int64]*domain.Order
	nextID int64
	now    func() time.Time
}

func NewRepository() *Repository {
	return &Repository{orders: map[int64]*domain.Order{}, now: time.Now}
}

// WithClock overrides the time source for deterministic testing.
func (r *Repository) WithClock(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

func (r *Repository) Create(_ context.Context, draft domain.Draft) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, err := domain.NewOrder(r.nextID+1, draft, r.now())
	if err != nil {
		return nil, err
	}
	r.nextID = order.ID
	r.orders[order.ID] = order
	return clone(order), nil
}

func (r *Repository) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return clone(order), nil
}

func (r *Repository) UpdateStatus(_ context.Context, id int64, from, to domain.Status) (*domain.Order, error) {
	if !to.IsValid() {
		return nil, domain.ErrInvalidStatus
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if order.Status != from {
		return nil, &domain.TransitionError{From: order.Status, To: to}
	}
	order.Status = to
	order.UpdatedAt = r.now()
	return clone(order), nil
}

func (r *Repository) List(_ context.Context) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		list = append(list, clone(order))
	}
	// Ids are assigned in creation order, so descending id is newest first.
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list, nil
}

func clone(order *domain.Order) *domain.Order {
	c := *order
	if order.MillingStyle != nil {
		style := *order.MillingStyle
		c.MillingStyle = &style
	}
	if order.WeightKg != nil {
		w := *order.WeightKg
		c.WeightKg = &w
	}
	return &c
}
