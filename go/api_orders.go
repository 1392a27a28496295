package borgaserver

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	orderhttpmapper "github.com/localborga/milling-orders/internal/domains/orders/adapters/http/mapper"
	orderdomain "github.com/localborga/milling-orders/internal/domains/orders/domain"
	orderports "github.com/localborga/milling-orders/internal/domains/orders/ports"
)

// IdempotencyKeyHeader lets clients retry order placement safely.
const IdempotencyKeyHeader = "Idempotency-Key"

// OrderAPI wires HTTP transport with the orders service and placement workflows.
type OrderAPI struct {
	service   orderports.Service
	workflows orderports.WorkflowOrchestrator
}

// NewOrderAPI creates an OrderAPI. A nil orchestrator places orders directly through the service.
func NewOrderAPI(service orderports.Service, workflows orderports.WorkflowOrchestrator) OrderAPI {
	return OrderAPI{service: service, workflows: workflows}
}

// Post /api/orders
// Place an order
func (api *OrderAPI) PlaceOrder(c *gin.Context) {
	var payload orderhttpmapper.PlaceOrder
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}
	input := orderhttpmapper.ToPlaceOrderInput(payload, strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader)))
	order, err := api.placeOrder(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, orderhttpmapper.NewOrderCreated(order))
}

func (api *OrderAPI) placeOrder(ctx context.Context, input orderports.PlaceOrderInput) (*orderdomain.Order, error) {
	if api.workflows != nil {
		return api.workflows.PlaceOrder(ctx, input)
	}
	return api.service.PlaceOrder(ctx, input)
}

// Get /api/orders
// List every order, newest first
func (api *OrderAPI) ListOrders(c *gin.Context) {
	orders, err := api.service.ListOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderhttpmapper.FromOrders(orders))
}

// Get /api/orders/:id
// Track an order
func (api *OrderAPI) TrackOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	snapshot, err := api.service.Track(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderhttpmapper.FromSnapshot(*snapshot))
}

// Patch /api/orders/:id
// Move an order to the next production status
func (api *OrderAPI) UpdateOrderStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var payload orderhttpmapper.UpdateStatus
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}
	target, err := orderdomain.ParseStatus(payload.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	updated, err := api.service.TransitionStatus(c.Request.Context(), id, target)
	if err != nil {
		respondError(c, err)
		return
	}
	if principal, ok := operatorFromContext(c); ok {
		slog.InfoContext(c.Request.Context(), "order status set by operator",
			slog.Int64("order.id", updated.ID),
			slog.String("order.status", updated.Status.String()),
			slog.String("operator.session", principal.SessionID))
	}
	c.JSON(http.StatusOK, orderhttpmapper.NewStatusUpdated(updated))
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		responder.BadRequest(c, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}
