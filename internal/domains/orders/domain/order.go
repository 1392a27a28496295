package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrItemNameRequired   = errors.New("itemName is required")
	ErrTotalPriceRequired = errors.New("totalPrice is required")
	ErrInvalidTotalPrice  = errors.New("totalPrice must be greater than zero")
	ErrInvalidWeight      = errors.New("weightKg must be greater than zero")
	ErrInvalidStatus      = errors.New("order status is invalid")
	ErrIllegalTransition  = errors.New("illegal status transition")
)

// Draft is an order that has not been persisted yet.
type Draft struct {
	ItemName     string
	MillingStyle *string
	WeightKg     *decimal.Decimal
	TotalPrice   *decimal.Decimal
}

// Validate enforces the fields the store requires before assigning an id.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.ItemName) == "" {
		return ErrItemNameRequired
	}
	if d.TotalPrice == nil {
		return ErrTotalPriceRequired
	}
	if !d.TotalPrice.IsPositive() {
		return ErrInvalidTotalPrice
	}
	if d.WeightKg != nil && !d.WeightKg.IsPositive() {
		return ErrInvalidWeight
	}
	return nil
}

// Normalize trims text fields and drops empty optional values.
func (d Draft) Normalize() Draft {
	d.ItemName = strings.TrimSpace(d.ItemName)
	if d.MillingStyle != nil {
		style := strings.TrimSpace(*d.MillingStyle)
		if style == "" {
			d.MillingStyle = nil
		} else {
			d.MillingStyle = &style
		}
	}
	if d.TotalPrice != nil {
		price := d.TotalPrice.Round(2)
		d.TotalPrice = &price
	}
	return d
}

// Order is a placed order. Its status only changes through TransitionTo.
type Order struct {
	ID           int64
	ItemName     string
	MillingStyle *string
	WeightKg     *decimal.Decimal
	TotalPrice   decimal.Decimal
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewOrder materializes a validated draft as a pending order.
func NewOrder(id int64, draft Draft, now time.Time) (*Order, error) {
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	return &Order{
		ID:           id,
		ItemName:     draft.ItemName,
		MillingStyle: draft.MillingStyle,
		WeightKg:     draft.WeightKg,
		TotalPrice:   *draft.TotalPrice,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// TransitionTo moves the order to target and returns the event describing the change.
func (o *Order) TransitionTo(target Status, now time.Time) (StatusChanged, error) {
	if err := o.Status.ValidateTransition(target); err != nil {
		return StatusChanged{}, err
	}
	previous := o.Status
	o.Status = target
	o.UpdatedAt = now
	return StatusChanged{
		BaseEvent:      BaseEvent{Timestamp: now},
		OrderID:        o.ID,
		ItemName:       o.ItemName,
		Status:         target,
		PreviousStatus: previous,
	}, nil
}

// Snapshot returns the read model exposed to anonymous trackers.
func (o *Order) Snapshot() Snapshot {
	return Snapshot{
		ID:           o.ID,
		ItemName:     o.ItemName,
		MillingStyle: o.MillingStyle,
		WeightKg:     o.WeightKg,
		TotalPrice:   o.TotalPrice,
		Status:       o.Status,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

// Snapshot is a point-in-time copy of an order's state.
type Snapshot struct {
	ID           int64
	ItemName     string
	MillingStyle *string
	WeightKg     *decimal.Decimal
	TotalPrice   decimal.Decimal
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
