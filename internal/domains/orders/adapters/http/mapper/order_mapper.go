package mapper

import (
	"time"

	"github.com/localborga/milling-orders/internal/domains/orders/domain"
	"github.com/localborga/milling-orders/internal/domains/orders/ports"
	"github.com/localborga/milling-orders/internal/shared/money"
)

// PlaceOrder is the inbound payload for POST /orders.
type PlaceOrder struct {
	ItemName     string        `json:"itemName"`
	MillingStyle *string       `json:"millingStyle,omitempty"`
	WeightKg     *money.Amount `json:"weightKg,omitempty"`
	TotalPrice   *money.Amount `json:"totalPrice"`
}

// UpdateStatus is the inbound payload for PATCH /orders/:id.
type UpdateStatus struct {
	Status string `json:"status" binding:"required"`
}

// Order is the HTTP representation of an order and of a tracking snapshot.
type Order struct {
	ID           int64         `json:"id"`
	ItemName     string        `json:"itemName"`
	MillingStyle *string       `json:"millingStyle"`
	WeightKg     *money.Amount `json:"weightKg"`
	TotalPrice   money.Amount  `json:"totalPrice"`
	Status       string        `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// OrderStatus is the reduced view returned after a status change.
type OrderStatus struct {
	ID       int64  `json:"id"`
	ItemName string `json:"itemName"`
	Status   string `json:"status"`
}

// OrderCreated wraps a freshly placed order.
type OrderCreated struct {
	Message string `json:"message"`
	Order   Order  `json:"order"`
}

// StatusUpdated wraps the result of a status change.
type StatusUpdated struct {
	Message string      `json:"message"`
	Order   OrderStatus `json:"order"`
}

// ToPlaceOrderInput converts the payload, carrying the optional Idempotency-Key header value.
func ToPlaceOrderInput(payload PlaceOrder, idempotencyKey string) ports.PlaceOrderInput {
	return ports.PlaceOrderInput{
		Draft: domain.Draft{
			ItemName:     payload.ItemName,
			MillingStyle: payload.MillingStyle,
			WeightKg:     payload.WeightKg.DecimalPtr(),
			TotalPrice:   payload.TotalPrice.DecimalPtr(),
		},
		IdempotencyKey: idempotencyKey,
	}
}

func FromOrder(order *domain.Order) Order {
	if order == nil {
		return Order{}
	}
	return FromSnapshot(order.Snapshot())
}

func FromSnapshot(s domain.Snapshot) Order {
	return Order{
		ID:           s.ID,
		ItemName:     s.ItemName,
		MillingStyle: s.MillingStyle,
		WeightKg:     money.Ptr(s.WeightKg),
		TotalPrice:   money.New(s.TotalPrice),
		Status:       s.Status.String(),
		CreatedAt:    s.CreatedAt.UTC(),
		UpdatedAt:    s.UpdatedAt.UTC(),
	}
}

func FromOrders(orders []*domain.Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, order := range orders {
		out = append(out, FromOrder(order))
	}
	return out
}

func NewOrderCreated(order *domain.Order) OrderCreated {
	return OrderCreated{Message: "Order created", Order: FromOrder(order)}
}

func NewStatusUpdated(order *domain.Order) StatusUpdated {
	return StatusUpdated{
		Message: "Status updated",
		Order:   OrderStatus{ID: order.ID, ItemName: order.ItemName, Status: order.Status.String()},
	}
}
