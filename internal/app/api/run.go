package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"gorm.io/gorm"

	borgaserver "github.com/localborga/milling-orders/go"

	cartapp "github.com/localborga/milling-orders/internal/domains/cart/application"
	catalogmemory "github.com/localborga/milling-orders/internal/domains/catalog/adapters/memory"
	catalogobs "github.com/localborga/milling-orders/internal/domains/catalog/adapters/observability"
	catalogpostgres "github.com/localborga/milling-orders/internal/domains/catalog/adapters/persistence/postgres"
	catalogapp "github.com/localborga/milling-orders/internal/domains/catalog/application"
	catalogports "github.com/localborga/milling-orders/internal/domains/catalog/ports"
	operatorsmemory "github.com/localborga/milling-orders/internal/domains/operators/adapters/memory"
	operatorspostgres "github.com/localborga/milling-orders/internal/domains/operators/adapters/persistence/postgres"
	operatorsapp "github.com/localborga/milling-orders/internal/domains/operators/application"
	operatorsports "github.com/localborga/milling-orders/internal/domains/operators/ports"
	ordersmemory "github.com/localborga/milling-orders/internal/domains/orders/adapters/memory"
	"github.com/localborga/milling-orders/internal/domains/orders/adapters/notify"
	ordersobs "github.com/localborga/milling-orders/internal/domains/orders/adapters/observability"
	orderspostgres "github.com/localborga/milling-orders/internal/domains/orders/adapters/persistence/postgres"
	"github.com/localborga/milling-orders/internal/domains/orders/adapters/relay/pgrelay"
	"github.com/localborga/milling-orders/internal/domains/orders/adapters/relay/redisrelay"
	"github.com/localborga/milling-orders/internal/domains/orders/adapters/sink/kafkasink"
	ordersworkflows "github.com/localborga/milling-orders/internal/domains/orders/adapters/workflows"
	ordersapp "github.com/localborga/milling-orders/internal/domains/orders/application"
	ordersports "github.com/localborga/milling-orders/internal/domains/orders/ports"
	"github.com/localborga/milling-orders/internal/domains/pricing"
	"github.com/localborga/milling-orders/internal/platform/jobs"
	"github.com/localborga/milling-orders/internal/platform/metrics"
	"github.com/localborga/milling-orders/internal/platform/migrations"
	platformobservability "github.com/localborga/milling-orders/internal/platform/observability"
	platformpostgres "github.com/localborga/milling-orders/internal/platform/postgres"
)

const serviceName = "borga-orders-api"

// relayRunner is a cross-replica relay whose Run loop forwards into the local bus.
type relayRunner interface {
	ordersports.Publisher
	Run(ctx context.Context) error
}

// Run boots the orders HTTP API with observability, stores, notification fan-out and workflows
// wired. It returns when ctx is cancelled or the server fails.
func Run(ctx context.Context) error {
	if err := LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	db, cleanupDB := connectDatabase(ctx, cfg, logger)
	defer cleanupDB()

	var background sync.WaitGroup
	runCtx, stopBackground := context.WithCancel(ctx)
	defer func() {
		stopBackground()
		background.Wait()
	}()

	// Status fan-out: local bus for SSE streams, optional relay across replicas, optional Kafka sink.
	bus := notify.NewBus(notify.WithBufferSize(cfg.SubscriberBuffer), notify.WithLogger(logger))
	defer bus.Close()
	var publisher ordersports.Publisher = bus
	if relay := buildRelay(cfg, db, bus, logger); relay != nil {
		publisher = relay
		background.Add(1)
		go func() {
			defer background.Done()
			if err := relay.Run(runCtx); err != nil {
				logger.Error("status relay stopped", slog.String("relay", cfg.NotifyRelay), slog.String("error", err.Error()))
			}
		}()
	}
	if len(cfg.KafkaBrokers) > 0 {
		sink := kafkasink.New(kafkasink.NewWriter(cfg.KafkaBrokers, cfg.KafkaStatusTopic))
		defer func() { _ = sink.Close() }()
		publisher = notify.NewFanout(publisher, sink)
		logger.Info("kafka status sink enabled", slog.String("topic", cfg.KafkaStatusTopic))
	}

	orderRepo, idempotency := buildOrderStores(db)
	orderService := ordersobs.New(
		ordersapp.NewService(orderRepo,
			ordersapp.WithPublisher(publisher),
			ordersapp.WithIdempotencyStore(idempotency),
			ordersapp.WithLogger(logger),
			ordersapp.WithOperationTimeout(cfg.OperationTimeout),
		),
		ordersobs.WithLogger(logger),
		ordersobs.WithTracer(instruments.Tracer("internal.orders.application")),
		ordersobs.WithMeter(instruments.Meter("internal.orders.application")),
	)
	var placement ordersports.WorkflowOrchestrator = ordersworkflows.NewInlineOrderWorkflows(orderService)
	if temporalClient, err := connectTemporalClient(cfg, db != nil, instruments); err != nil {
		logger.Warn("Temporal workflows unavailable, placing orders inline", slog.String("error", err.Error()))
	} else {
		defer temporalClient.Close()
		placement = ordersworkflows.NewTemporalOrderWorkflows(temporalClient)
		logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	}

	catalogService := catalogobs.New(
		catalogapp.NewService(buildCatalogRepository(ctx, db, logger)),
		catalogobs.WithLogger(logger),
		catalogobs.WithTracer(instruments.Tracer("internal.catalog.application")),
	)
	engine, err := pricing.NewEngine(cfg.Pricing)
	if err != nil {
		return err
	}
	cartService := cartapp.NewService(catalogService, engine, placement)

	sessions := buildSessionStore(db)
	operatorService := operatorsapp.NewService(operatorsapp.Config{
		AdminPassword: cfg.AdminPassword,
		SigningSecret: cfg.JWTSecret,
		TokenTTL:      cfg.OperatorTokenTTL,
	}, operatorsapp.WithSessionStore(sessions))
	if cfg.AdminPassword == "" || cfg.JWTSecret == "" {
		logger.Warn("ADMIN_PASSWORD or JWT_SECRET not set, operator login disabled")
	}
	if schedule := cfg.PurgeSchedule(); schedule != "" {
		for _, purge := range []*jobs.PurgeJob{
			jobs.NewSessionPurgeJob(sessions, schedule, logger),
			jobs.NewIdempotencyPurgeJob(idempotency, cfg.IdempotencyRetention, schedule, logger),
		} {
			if err := purge.Start(); err != nil {
				return fmt.Errorf("start purge job: %w", err)
			}
			defer purge.Stop()
		}
	}

	serverMetrics := metrics.NewServerMetrics("api")
	handlers := borgaserver.ApiHandleFunctions{
		OrderAPI:     borgaserver.NewOrderAPI(orderService, placement),
		ProductAPI:   borgaserver.NewProductAPI(catalogService),
		CartAPI:      borgaserver.NewCartAPI(cartService),
		AdminAPI:     borgaserver.NewAdminAPI(operatorService),
		EventsAPI:    borgaserver.NewEventsAPI(bus, borgaserver.DefaultHeartbeat, serverMetrics.Streams),
		OperatorAuth: borgaserver.RequireOperator(operatorService),
	}
	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(serviceName), serverMetrics.Middleware())
	router.GET("/metrics", gin.WrapH(serverMetrics.Handler()))
	router = borgaserver.NewRouterWithGinEngine(router, handlers)

	return serve(ctx, router, ":"+cfg.Port, logger)
}

func serve(ctx context.Context, handler http.Handler, addr string, logger *slog.Logger) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("orders API listening", slog.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("orders API server exited", slog.String("addr", addr), slog.String("error", err.Error()))
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Open event streams end when their request contexts are cancelled by Shutdown's deadline.
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	logger.Info("orders API stopped")
	return nil
}

func connectDatabase(ctx context.Context, cfg Config, logger *slog.Logger) (*gorm.DB, func()) {
	if cfg.PostgresDSN == "" {
		logger.Warn("POSTGRES_DSN not set, falling back to in-memory stores")
		return nil, func() {}
	}
	db, closeDB, err := platformpostgres.Connect(ctx, cfg.PostgresDSN, platformpostgres.OptionsFromEnv(logger))
	if err != nil {
		logger.Warn("failed to connect to postgres, falling back to memory", slog.String("error", err.Error()))
		return nil, func() {}
	}
	if err := migrations.Run(db.WithContext(ctx)); err != nil {
		logger.Warn("failed to migrate postgres schema, falling back to memory", slog.String("error", err.Error()))
		closeDB()
		return nil, func() {}
	}
	logger.Info("stores configured with postgres")
	return db, closeDB
}

func buildOrderStores(db *gorm.DB) (ordersports.Repository, ordersports.IdempotencyStore) {
	if db == nil {
		return ordersmemory.NewRepository(), ordersmemory.NewIdempotencyStore()
	}
	return orderspostgres.NewRepository(db), orderspostgres.NewIdempotencyStore(db)
}

func buildCatalogRepository(ctx context.Context, db *gorm.DB, logger *slog.Logger) catalogports.Repository {
	if db == nil {
		return catalogmemory.NewSeededRepository()
	}
	repo := catalogpostgres.NewRepository(db)
	if err := repo.Seed(ctx, catalogmemory.DefaultProducts()); err != nil {
		logger.Warn("failed to seed product catalog", slog.String("error", err.Error()))
	}
	return repo
}

func buildSessionStore(db *gorm.DB) operatorsports.SessionStore {
	if db == nil {
		return operatorsmemory.NewSessionStore()
	}
	return operatorspostgres.NewSessionStore(db)
}

func buildRelay(cfg Config, db *gorm.DB, bus *notify.Bus, logger *slog.Logger) relayRunner {
	switch cfg.NotifyRelay {
	case RelayRedis:
		logger.Info("redis status relay enabled", slog.String("addr", cfg.RedisAddr))
		return redisrelay.New(redisrelay.NewClient(cfg.RedisAddr, cfg.RedisPassword), bus, redisrelay.WithLogger(logger))
	case RelayPostgres:
		if db == nil {
			logger.Warn("postgres relay requested without a database, using the local bus only")
			return nil
		}
		logger.Info("postgres status relay enabled")
		return pgrelay.New(db, cfg.PostgresDSN, bus, pgrelay.WithLogger(logger))
	default:
		return nil
	}
}

// errNoSharedOrderStore keeps placement inline when the API runs on in-memory stores: the
// worker would create orders in its own process, invisible to Track and TransitionStatus here.
var errNoSharedOrderStore = errors.New("durable placement requires POSTGRES_DSN so the worker and the API share the order store")

func connectTemporalClient(cfg Config, sharedOrderStore bool, instruments *platformobservability.Instruments) (client.Client, error) {
	if !sharedOrderStore {
		return nil, errNoSharedOrderStore
	}
	if cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED env")
	}
	tracerOptions := temporalotel.TracerOptions{}
	if instruments != nil {
		tracerOptions.Tracer = instruments.Tracer("temporal-client")
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(effectiveLogger(instruments)),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}

func effectiveLogger(instruments *platformobservability.Instruments) *slog.Logger {
	if instruments != nil && instruments.Logger != nil {
		return instruments.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
