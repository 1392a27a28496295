package borgaserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	carthttpmapper "github.com/localborga/milling-orders/internal/domains/cart/adapters/http/mapper"
	cartapp "github.com/localborga/milling-orders/internal/domains/cart/application"
)

// CartAPI prices carts on the server and checks them out.
type CartAPI struct {
	service *cartapp.Service
}

func NewCartAPI(service *cartapp.Service) CartAPI {
	return CartAPI{service: service}
}

// Post /api/cart/quote
// Price a cart
func (api *CartAPI) Quote(c *gin.Context) {
	var payload carthttpmapper.CartRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}
	cart, err := api.service.Quote(c.Request.Context(), carthttpmapper.ToLineRequests(payload))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, carthttpmapper.FromCart(cart))
}

// Post /api/checkout
// Turn a cart into one order per line. The checkout key is echoed in the Idempotency-Key
// response header; the server issues one when the request carries none.
func (api *CartAPI) Checkout(c *gin.Context) {
	var payload carthttpmapper.CartRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}
	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	result, err := api.service.Checkout(c.Request.Context(), carthttpmapper.ToLineRequests(payload), key)
	if err != nil {
		var partial *cartapp.PartialCheckoutError
		if errors.As(err, &partial) {
			c.Header(IdempotencyKeyHeader, partial.Key)
			slog.ErrorContext(c.Request.Context(), "checkout partially placed",
				slog.String("idempotency.key", partial.Key),
				slog.Int("orders.placed", len(partial.Placed)),
				slog.String("error", partial.Err.Error()))
		}
		respondError(c, err)
		return
	}
	c.Header(IdempotencyKeyHeader, result.Key)
	c.JSON(http.StatusCreated, carthttpmapper.FromCheckout(result))
}
