//go:build pact
// +build pact

package provider_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pact-foundation/pact-go/v2/models"
	pactprovider "github.com/pact-foundation/pact-go/v2/provider"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	borgaserver "github.com/localborga/milling-orders/go"
	cartapp "github.com/localborga/milling-orders/internal/domains/cart/application"
	catalogmemory "github.com/localborga/milling-orders/internal/domains/catalog/adapters/memory"
	catalogapp "github.com/localborga/milling-orders/internal/domains/catalog/application"
	operatorsapp "github.com/localborga/milling-orders/internal/domains/operators/application"
	ordermemory "github.com/localborga/milling-orders/internal/domains/orders/adapters/memory"
	"github.com/localborga/milling-orders/internal/domains/orders/adapters/notify"
	ordersobs "github.com/localborga/milling-orders/internal/domains/orders/adapters/observability"
	"github.com/localborga/milling-orders/internal/domains/orders/adapters/workflows"
	ordersapp "github.com/localborga/milling-orders/internal/domains/orders/application"
	orderdomain "github.com/localborga/milling-orders/internal/domains/orders/domain"
	ordersports "github.com/localborga/milling-orders/internal/domains/orders/ports"
	"github.com/localborga/milling-orders/internal/domains/pricing"
	pacttest "github.com/localborga/milling-orders/test/pact"
)

func TestOrdersProviderPact(t *testing.T) {
	gin.SetMode(gin.TestMode)

	app := newContractProviderApp(t)
	pactFile := filepath.ToSlash(pacttest.PactFile(t))
	if _, err := os.Stat(pactFile); errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pact file not found at %s - run the pact consumer tests first", pactFile)
	} else {
		require.NoError(t, err)
	}

	verifier := pactprovider.NewVerifier()
	stateHandlers := models.StateHandlers{
		pacttest.StateOrdersBaseline: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset(t)
			return nil, nil
		},
		pacttest.StateOrderExists: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset(t)
			if setup {
				app.seedOrder(t)
			}
			return nil, nil
		},
		pacttest.StateOrderMissing: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset(t)
			return nil, nil
		},
	}

	err := verifier.VerifyProvider(t, pactprovider.VerifyRequest{
		ProviderBaseURL: app.server.URL,
		Provider:        pacttest.ProviderName,
		PactFiles:       []string{pactFile},
		StateHandlers:   stateHandlers,
		BeforeEach: func() error {
			app.reset(t)
			return nil
		},
	})
	require.NoError(t, err)
}

// contractProviderApp serves a fresh in-memory stack per provider state.
type contractProviderApp struct {
	server  *httptest.Server
	current atomic.Pointer[providerStack]
}

type providerStack struct {
	router *gin.Engine
	orders ordersports.Service
	bus    *notify.Bus
}

func newContractProviderApp(t testing.TB) *contractProviderApp {
	t.Helper()
	app := &contractProviderApp{}
	app.reset(t)
	app.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.current.Load().router.ServeHTTP(w, r)
	}))
	t.Cleanup(func() {
		app.server.Close()
		app.current.Load().bus.Close()
	})
	return app
}

func (a *contractProviderApp) reset(t testing.TB) {
	t.Helper()
	bus := notify.NewBus()
	orders := ordersobs.New(ordersapp.NewService(ordermemory.NewRepository(),
		ordersapp.WithPublisher(bus),
		ordersapp.WithIdempotencyStore(ordermemory.NewIdempotencyStore())))
	placement := workflows.NewInlineOrderWorkflows(orders)
	catalog := catalogapp.NewService(catalogmemory.NewSeededRepository())
	cart := cartapp.NewService(catalog, pricing.MustEngine(pricing.DefaultConfig()), placement)
	operators := operatorsapp.NewService(operatorsapp.Config{AdminPassword: "pact-admin", SigningSecret: "pact-secret"})

	handlers := borgaserver.ApiHandleFunctions{
		OrderAPI:     borgaserver.NewOrderAPI(orders, placement),
		ProductAPI:   borgaserver.NewProductAPI(catalog),
		CartAPI:      borgaserver.NewCartAPI(cart),
		AdminAPI:     borgaserver.NewAdminAPI(operators),
		EventsAPI:    borgaserver.NewEventsAPI(bus, borgaserver.DefaultHeartbeat, nil),
		OperatorAuth: borgaserver.RequireOperator(operators),
	}
	router := gin.New()
	router.Use(gin.Recovery())
	stack := &providerStack{
		router: borgaserver.NewRouterWithGinEngine(router, handlers),
		orders: orders,
		bus:    bus,
	}
	if previous := a.current.Swap(stack); previous != nil {
		previous.bus.Close()
	}
}

func (a *contractProviderApp) seedOrder(t testing.TB) {
	t.Helper()
	style := "Fine"
	weight := decimal.NewFromInt(20)
	total := decimal.NewFromInt(60)
	order, err := a.current.Load().orders.PlaceOrder(context.Background(), ordersports.PlaceOrderInput{
		Draft: orderdomain.Draft{ItemName: "Gari", MillingStyle: &style, WeightKg: &weight, TotalPrice: &total},
	})
	require.NoError(t, err)
	require.Equal(t, pacttest.ExistingOrderID, order.ID)
}
