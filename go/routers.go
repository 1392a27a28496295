package borgaserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BasePath prefixes every storefront and operator route.
const BasePath = "/api"

// Route is the information for every URI.
type Route struct {
	// Name is the name of this Route.
	Name string
	// Method is the string for the HTTP method. ex) GET, POST etc..
	Method string
	// Pattern is the pattern of the URI.
	Pattern string
	// HandlerFunc is the handler function of this route.
	HandlerFunc gin.HandlerFunc
	// Operator routes run behind the operator authentication middleware.
	Operator bool
}

// NewRouterWithGinEngine adds the routes to an existing gin engine. Operator routes without
// an OperatorAuth middleware are rejected outright.
func NewRouterWithGinEngine(router *gin.Engine, handleFunctions ApiHandleFunctions) *gin.Engine {
	for _, route := range getRoutes(handleFunctions) {
		if route.HandlerFunc == nil {
			route.HandlerFunc = DefaultHandleFunc
		}
		chain := []gin.HandlerFunc{route.HandlerFunc}
		if route.Operator {
			auth := handleFunctions.OperatorAuth
			if auth == nil {
				auth = denyOperator
			}
			chain = append([]gin.HandlerFunc{auth}, chain...)
		}
		switch route.Method {
		case http.MethodGet:
			router.GET(route.Pattern, chain...)
		case http.MethodPost:
			router.POST(route.Pattern, chain...)
		case http.MethodPut:
			router.PUT(route.Pattern, chain...)
		case http.MethodPatch:
			router.PATCH(route.Pattern, chain...)
		case http.MethodDelete:
			router.DELETE(route.Pattern, chain...)
		}
	}
	return router
}

// DefaultHandleFunc answers routes whose handler is not wired.
func DefaultHandleFunc(c *gin.Context) {
	c.String(http.StatusNotImplemented, "501 not implemented")
}

type ApiHandleFunctions struct {
	// Routes for the orders part of the API
	OrderAPI OrderAPI
	// Routes for the catalog part of the API
	ProductAPI ProductAPI
	// Routes for the cart part of the API
	CartAPI CartAPI
	// Routes for the operator session part of the API
	AdminAPI AdminAPI
	// Routes for the live status stream
	EventsAPI EventsAPI
	// OperatorAuth guards operator routes.
	OperatorAuth gin.HandlerFunc
}

func getRoutes(handleFunctions ApiHandleFunctions) []Route {
	return []Route{
		{
			"Healthz",
			http.MethodGet,
			"/healthz",
			Healthz,
			false,
		},
		{
			"ListProducts",
			http.MethodGet,
			BasePath + "/products",
			handleFunctions.ProductAPI.ListProducts,
			false,
		},
		{
			"GetProduct",
			http.MethodGet,
			BasePath + "/products/:id",
			handleFunctions.ProductAPI.GetProduct,
			false,
		},
		{
			"QuoteCart",
			http.MethodPost,
			BasePath + "/cart/quote",
			handleFunctions.CartAPI.Quote,
			false,
		},
		{
			"Checkout",
			http.MethodPost,
			BasePath + "/checkout",
			handleFunctions.CartAPI.Checkout,
			false,
		},
		{
			"PlaceOrder",
			http.MethodPost,
			BasePath + "/orders",
			handleFunctions.OrderAPI.PlaceOrder,
			false,
		},
		{
			"ListOrders",
			http.MethodGet,
			BasePath + "/orders",
			handleFunctions.OrderAPI.ListOrders,
			true,
		},
		{
			"TrackOrder",
			http.MethodGet,
			BasePath + "/orders/:id",
			handleFunctions.OrderAPI.TrackOrder,
			false,
		},
		{
			"UpdateOrderStatus",
			http.MethodPatch,
			BasePath + "/orders/:id",
			handleFunctions.OrderAPI.UpdateOrderStatus,
			true,
		},
		{
			"StreamStatusUpdates",
			http.MethodGet,
			BasePath + "/order-status-updates",
			handleFunctions.EventsAPI.StreamStatusUpdates,
			false,
		},
		{
			"AdminLogin",
			http.MethodPost,
			BasePath + "/admin/login",
			handleFunctions.AdminAPI.Login,
			false,
		},
		{
			"AdminLogout",
			http.MethodPost,
			BasePath + "/admin/logout",
			handleFunctions.AdminAPI.Logout,
			true,
		},
	}
}

// Get /healthz
// Liveness check
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
