package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tobiaseke/bulkroom-backend/api/routes"
	"github.com/tobiaseke/bulkroom-backend/internal/notifications"
	"github.com/tobiaseke/bulkroom-backend/internal/orders"
	"github.com/tobiaseke/bulkroom-backend/internal/payments"
	"github.com/tobiaseke/bulkroom-backend/internal/pricing"
	"github.com/tobiaseke/bulkroom-backend/internal/products"
	"github.com/tobiaseke/bulkroom-backend/internal/settlement"
	paystackwebhook "github.com/tobiaseke/bulkroom-backend/internal/webhooks/paystack"
	"github.com/tobiaseke/bulkroom-backend/pkg/config"
	"github.com/tobiaseke/bulkroom-backend/pkg/db"
	"github.com/tobiaseke/bulkroom-backend/pkg/logger"
	"github.com/tobiaseke/bulkroom-backend/pkg/mailer"
	"github.com/tobiaseke/bulkroom-backend/pkg/messaging"
	"github.com/tobiaseke/bulkroom-backend/pkg/metrics"
	"github.com/tobiaseke/bulkroom-backend/pkg/migrate"
	"github.com/tobiaseke/bulkroom-backend/pkg/paystack"
	"github.com/tobiaseke/bulkroom-backend/pkg/redis"
)

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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	schedule, err := pricing.ScheduleFromConfig(cfg.Fees)
	if err != nil {
		logg.Error(context.Background(), "invalid fee schedule", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	productsRepo := products.NewRepository(dbClient.DB())

	ordersSvc, err := orders.NewService(dbClient, ordersRepo, productsRepo, schedule)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	var mailSender interface {
		Send(ctx context.Context, msg mailer.Message) error
	}
	if cfg.Sendgrid.APIKey != "" {
		m, err := mailer.New(cfg.Sendgrid, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create mailer", err)
			os.Exit(1)
		}
		mailSender = m
	}

	var textSender interface {
		SendText(ctx context.Context, phone, text string) error
	}
	if cfg.Termii.APIKey != "" {
		s, err := messaging.New(cfg.Termii, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create text sender", err)
			os.Exit(1)
		}
		textSender = s
	}

	dispatcher, err := notifications.NewDispatcher(
		notifications.NewPartyRepository(dbClient.DB()), mailSender, textSender, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification dispatcher", err)
		os.Exit(1)
	}

	settlementSvc, err := settlement.NewService(dbClient, ordersRepo, ordersSvc, dispatcher, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	paystackClient, err := paystack.NewClient(context.Background(), cfg.Paystack, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paystack client", err)
		os.Exit(1)
	}

	paymentsSvc, err := payments.NewService(
		ordersRepo, payments.NewPartyRepository(dbClient.DB()), paystackClient, settlementSvc, cfg.Paystack.CallbackURL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	webhookGuard, err := paystackwebhook.NewIdempotencyGuard(redisClient, cfg.Cron.WebhookGuardTTL, "paystack-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	webhookMetrics := metrics.NewWebhookMetrics(prometheus.DefaultRegisterer)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			Orders:         ordersSvc,
			Payments:       paymentsSvc,
			Catalog:        productsRepo,
			Settlement:     settlementSvc,
			Paystack:       paystackClient,
			WebhookGuard:   webhookGuard,
			WebhookMetrics: webhookMetrics,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
