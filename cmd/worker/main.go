package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/joho/godotenv"

	ordersobs "github.com/localborga/milling-orders/internal/domains/orders/adapters/observability"
	orderspostgres "github.com/localborga/milling-orders/internal/domains/orders/adapters/persistence/postgres"
	ordersapp "github.com/localborga/milling-orders/internal/domains/orders/application"
	ordersports "github.com/localborga/milling-orders/internal/domains/orders/ports"
	"github.com/localborga/milling-orders/internal/platform/migrations"
	platformobservability "github.com/localborga/milling-orders/internal/platform/observability"
	platformpostgres "github.com/localborga/milling-orders/internal/platform/postgres"
	orderactivities "github.com/localborga/milling-orders/internal/platform/temporal/activities/orders"
	orderworkflows "github.com/localborga/milling-orders/internal/platform/temporal/workflows/orders"
)

func main() {
	ctx := context.Background()
	_ = godotenv.Load()
	const serviceName = "borga-orders-worker"
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	orderService, cleanup, err := buildOrderService(ctx, logger, instruments)
	if err != nil {
		logger.Error("worker needs the order store shared with the API", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cleanup()
	activities := orderactivities.NewActivities(orderService)

	tracerOptions := temporalotel.TracerOptions{Tracer: instruments.Tracer("temporal-worker")}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		logger.Error("failed to configure Temporal tracing interceptor", slog.String("error", err.Error()))
		os.Exit(1)
	}
	clientOptions := client.Options{
		HostPort:  envOrDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		Namespace: envOrDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		Logger:    workerlog.NewStructuredLogger(logger),
	}
	clientOptions.Interceptors = append(clientOptions.Interceptors, tracingInterceptor)
	temporalClient, err := client.Dial(clientOptions)
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, orderworkflows.OrderPlacementTaskQueue, placementWorkerOptions())
	w.RegisterWorkflowWithOptions(orderworkflows.OrderPlacementWorkflow, workflow.RegisterOptions{Name: orderworkflows.OrderPlacementWorkflowName})
	w.RegisterActivityWithOptions(activities.PlaceOrder, activity.RegisterOptions{Name: orderactivities.PlaceOrderActivityName})

	logger.Info("worker listening", slog.String("taskQueue", orderworkflows.OrderPlacementTaskQueue), slog.String("namespace", clientOptions.Namespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}

// buildOrderService wires the placement side only: the worker creates pending orders and never
// transitions them, so it publishes no status events. Orders must land in the store the API
// reads, so there is no in-memory fallback here.
func buildOrderService(ctx context.Context, logger *slog.Logger, instruments *platformobservability.Instruments) (ordersports.Service, func(), error) {
	db, closeDB, err := platformpostgres.Open(ctx, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.Run(db.WithContext(ctx)); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("migrate order schema: %w", err)
	}
	service := ordersapp.NewService(orderspostgres.NewRepository(db),
		ordersapp.WithIdempotencyStore(orderspostgres.NewIdempotencyStore(db)),
		ordersapp.WithLogger(logger),
	)
	logger.Info("worker order store configured with postgres")
	return ordersobs.New(service,
		ordersobs.WithLogger(logger),
		ordersobs.WithTracer(instruments.Tracer("internal.orders.application")),
		ordersobs.WithMeter(instruments.Meter("internal.orders.application")),
	), closeDB, nil
}

// placementWorkerOptions caps concurrent PlaceOrder activities so a backlog of storefront
// checkouts cannot exhaust the order store's connection pool.
func placementWorkerOptions() worker.Options {
	opts := worker.Options{MaxConcurrentActivityExecutionSize: 10}
	if n, err := strconv.Atoi(os.Getenv("WORKER_MAX_CONCURRENT_ACTIVITIES")); err == nil && n > 0 {
		opts.MaxConcurrentActivityExecutionSize = n
	}
	return opts
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
