package orders

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	ordersapp "github.com/localborga/milling-orders/internal/domains/orders/application"
	"github.com/localborga/milling-orders/internal/domains/orders/domain"
	ordersports "github.com/localborga/milling-orders/internal/domains/orders/ports"
)

const (
	// PlaceOrderActivityName persists an order draft as a pending order.
	PlaceOrderActivityName = "orders.activities.PlaceOrder"

	// Application error types carried across the workflow boundary.
	ErrTypeInvalidInput        = "InvalidInput"
	ErrTypeIdempotencyConflict = "IdempotencyConflict"
)

// Activities groups activities that operate on the orders bounded context.
type Activities struct {
	service ordersports.Service
}

// NewActivities wires the orders service into the Temporal activities bundle.
func NewActivities(service ordersports.Service) *Activities {
	return &Activities{service: service}
}

// PlaceOrder stores the draft. Caller mistakes are non-retryable; store outages are retried.
func (a *Activities) PlaceOrder(ctx context.Context, input ordersports.PlaceOrderInput) (*domain.Order, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.service == nil {
		logger.Error("order placement activity not initialized")
		return nil, errors.New("order placement activity not initialized")
	}
	logger.Info("PlaceOrder activity started", "itemName", input.Draft.ItemName)
	order, err := a.service.PlaceOrder(ctx, input)
	if err != nil {
		logger.Error("PlaceOrder activity failed", "itemName", input.Draft.ItemName, "error", err)
		return nil, classify(err)
	}
	logger.Info("PlaceOrder activity completed", "orderId", order.ID)
	return order, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, ordersapp.ErrInvalidInput):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidInput, err)
	case errors.Is(err, ordersports.ErrIdempotencyConflict):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeIdempotencyConflict, err)
	default:
		return err
	}
}
