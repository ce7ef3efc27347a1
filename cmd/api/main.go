package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gatepass/gatepass-backend/api/routes"
	"github.com/gatepass/gatepass-backend/internal/inventory"
	"github.com/gatepass/gatepass-backend/internal/orders"
	"github.com/gatepass/gatepass-backend/internal/payments"
	"github.com/gatepass/gatepass-backend/internal/refunds"
	"github.com/gatepass/gatepass-backend/internal/tickets"
	squarewebhook "github.com/gatepass/gatepass-backend/internal/webhooks/square"
	"github.com/gatepass/gatepass-backend/pkg/config"
	"github.com/gatepass/gatepass-backend/pkg/db"
	"github.com/gatepass/gatepass-backend/pkg/logger"
	"github.com/gatepass/gatepass-backend/pkg/metrics"
	"github.com/gatepass/gatepass-backend/pkg/migrate"
	"github.com/gatepass/gatepass-backend/pkg/outbox"
	"github.com/gatepass/gatepass-backend/pkg/outbox/idempotency"
	"github.com/gatepass/gatepass-backend/pkg/redis"
	"github.com/gatepass/gatepass-backend/pkg/square"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

// webhookDedupeTTL bounds how long processed Square event IDs are remembered.
const webhookDedupeTTL = 72 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap square client", err)
		os.Exit(1)
	}

	gateway, err := payments.NewGateway(squareClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ticketsRepo := tickets.NewRepository(dbClient.DB())
	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	inventoryStore := inventory.NewStore()

	ticketsSvc, err := tickets.NewService(ticketsRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create tickets service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(ordersRepo, dbClient, outboxSvc, inventoryStore, gateway, ticketsSvc, cfg.Checkout, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	refundsSvc, err := refunds.NewService(ordersRepo, ticketsRepo, dbClient, outboxSvc, inventoryStore, gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create refunds service", err)
		os.Exit(1)
	}

	dedupe, err := idempotency.NewManager(redisClient, webhookDedupeTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook dedupe manager", err)
		os.Exit(1)
	}

	webhookMetrics := metrics.NewWebhookMetrics(prometheus.DefaultRegisterer)
	webhookSvc, err := squarewebhook.NewService(squarewebhook.ServiceParams{
		Orders:  ordersSvc,
		Lookup:  ordersRepo,
		Dedupe:  dedupe,
		Metrics: webhookMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			redisClient,
			ordersSvc,
			refundsSvc,
			ticketsSvc,
			webhookSvc,
			squareClient,
			webhookMetrics,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
