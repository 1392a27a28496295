package borgaserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	cartapp "github.com/localborga/milling-orders/internal/domains/cart/application"
	catalogmemory "github.com/localborga/milling-orders/internal/domains/catalog/adapters/memory"
	catalogapp "github.com/localborga/milling-orders/internal/domains/catalog/application"
	operatorsmemory "github.com/localborga/milling-orders/internal/domains/operators/adapters/memory"
	operatorsapp "github.com/localborga/milling-orders/internal/domains/operators/application"
	ordermemory "github.com/localborga/milling-orders/internal/domains/orders/adapters/memory"
	"github.com/localborga/milling-orders/internal/domains/orders/adapters/notify"
	"github.com/localborga/milling-orders/internal/domains/orders/adapters/workflows"
	ordersapp "github.com/localborga/milling-orders/internal/domains/orders/application"
	"github.com/localborga/milling-orders/internal/domains/pricing"
	apierrors "github.com/localborga/milling-orders/internal/shared/errors"
)

const testAdminPassword = "millstone"

type testApp struct {
	router *gin.Engine
	orders *ordermemory.Repository
	bus    *notify.Bus
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWithOperators(t, operatorsapp.Config{AdminPassword: testAdminPassword, SigningSecret: "test-secret"})
}

func newTestAppWithOperators(t *testing.T, cfg operatorsapp.Config) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := ordermemory.NewRepository()
	bus := notify.NewBus()
	t.Cleanup(bus.Close)
	orders := ordersapp.NewService(repo,
		ordersapp.WithPublisher(bus),
		ordersapp.WithIdempotencyStore(ordermemory.NewIdempotencyStore()))
	placement := workflows.NewInlineOrderWorkflows(orders)
	catalog := catalogapp.NewService(catalogmemory.NewSeededRepository())
	cart := cartapp.NewService(catalog, pricing.MustEngine(pricing.DefaultConfig()), placement)
	operators := operatorsapp.NewService(cfg, operatorsapp.WithSessionStore(operatorsmemory.NewSessionStore()))

	handlers := ApiHandleFunctions{
		OrderAPI:     NewOrderAPI(orders, placement),
		ProductAPI:   NewProductAPI(catalog),
		CartAPI:      NewCartAPI(cart),
		AdminAPI:     NewAdminAPI(operators),
		EventsAPI:    NewEventsAPI(bus, DefaultHeartbeat, nil),
		OperatorAuth: RequireOperator(operators),
	}
	router := gin.New()
	router.Use(gin.Recovery())
	return &testApp{router: NewRouterWithGinEngine(router, handlers), orders: repo, bus: bus}
}

func (a *testApp) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) login(t *testing.T) map[string]string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/admin/login", `{"password":"`+testAdminPassword+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success)
	return map[string]string{"Authorization": "Bearer " + body.Token}
}

func (a *testApp) placeGari(t *testing.T) int64 {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/orders", `{"itemName":"Gari","millingStyle":"Fine","weightKg":20,"totalPrice":60}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var body struct {
		Order struct {
			ID int64 `json:"id"`
		} `json:"order"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Order.ID
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) apierrors.ProblemDetail {
	t.Helper()
	require.Equal(t, apierrors.ContentTypeProblemJSON, rec.Header().Get("Content-Type"))
	var problem apierrors.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem
}
