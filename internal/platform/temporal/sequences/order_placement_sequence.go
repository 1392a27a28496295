package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/localborga/milling-orders/internal/domains/orders/domain"
	ordersports "github.com/localborga/milling-orders/internal/domains/orders/ports"
	orderactivities "github.com/localborga/milling-orders/internal/platform/temporal/activities/orders"
)

// RunOrderPlacementSequence executes the activities needed to persist an order.
func RunOrderPlacementSequence(ctx workflow.Context, input ordersports.PlaceOrderInput) (*domain.Order, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("order placement sequence started", "itemName", input.Draft.ItemName)
	options := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
		},
	}

	var order domain.Order
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, options), orderactivities.PlaceOrderActivityName, input).Get(ctx, &order)
	if err != nil {
		logger.Error("order placement sequence failed", "itemName", input.Draft.ItemName, "error", err)
		return nil, err
	}
	logger.Info("order placement sequence persisted", "orderId", order.ID)
	return &order, nil
}
