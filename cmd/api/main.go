package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/nordicloop/nordicloop-backend/api/routes"
	"github.com/nordicloop/nordicloop-backend/internal/accounts"
	"github.com/nordicloop/nordicloop-backend/internal/bids"
	"github.com/nordicloop/nordicloop-backend/internal/gateway"
	"github.com/nordicloop/nordicloop-backend/internal/ledger"
	"github.com/nordicloop/nordicloop-backend/internal/notifications"
	"github.com/nordicloop/nordicloop-backend/internal/payments"
	"github.com/nordicloop/nordicloop-backend/internal/payouts"
	"github.com/nordicloop/nordicloop-backend/internal/stats"
	"github.com/nordicloop/nordicloop-backend/internal/subscriptions"
	stripewebhook "github.com/nordicloop/nordicloop-backend/internal/webhooks/stripe"
	"github.com/nordicloop/nordicloop-backend/pkg/bigquery"
	"github.com/nordicloop/nordicloop-backend/pkg/config"
	"github.com/nordicloop/nordicloop-backend/pkg/db"
	"github.com/nordicloop/nordicloop-backend/pkg/logger"
	"github.com/nordicloop/nordicloop-backend/pkg/migrate"
	"github.com/nordicloop/nordicloop-backend/pkg/outbox"
	"github.com/nordicloop/nordicloop-backend/pkg/redis"
	"github.com/nordicloop/nordicloop-backend/pkg/stripe"
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

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe client", err)
		os.Exit(1)
	}

	stripeGateway, err := gateway.NewStripeGateway(stripeClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	subscriptionsService, err := subscriptions.NewService(subscriptions.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create subscriptions service", err)
		os.Exit(1)
	}

	accountsRepo := accounts.NewRepository(dbClient.DB())
	accountsService, err := accounts.NewService(accounts.ServiceParams{
		Repo:              accountsRepo,
		Gateway:           stripeGateway,
		Notifications:     notificationsService,
		Outbox:            outboxService,
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create accounts service", err)
		os.Exit(1)
	}

	payoutsService, err := payouts.NewService(payouts.ServiceParams{
		Repo:              payouts.NewRepository(dbClient.DB()),
		AccountsRepo:      accountsRepo,
		Gateway:           stripeGateway,
		Ledger:            ledgerService,
		Notifications:     notificationsService,
		Outbox:            outboxService,
		TransactionRunner: dbClient,
		Config:            cfg.Payout,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payouts service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:              payments.NewRepository(dbClient.DB()),
		BidsRepo:          bids.NewRepository(dbClient.DB()),
		AccountsRepo:      accountsRepo,
		Subscriptions:     subscriptionsService,
		Gateway:           stripeGateway,
		Ledger:            ledgerService,
		Payouts:           payoutsService,
		Notifications:     notificationsService,
		Outbox:            outboxService,
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Payments: paymentsService,
		Payouts:  payoutsService,
		Accounts: accountsService,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	// Stats serve from BigQuery; the API stays up without them and the
	// endpoint reports the dependency as unavailable.
	var statsService stats.Service
	if bqClient, bqErr := bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery, logg); bqErr != nil {
		logg.Warn(logg.WithField(context.Background(), "error", bqErr.Error()), "bigquery unavailable, admin stats disabled")
	} else {
		defer func() {
			if err := bqClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing bigquery client", err)
			}
		}()
		statsService, err = stats.NewService(bqClient, cfg.GCP.ProjectID, cfg.BigQuery.Dataset, cfg.BigQuery.SettlementEventsTable)
		if err != nil {
			logg.Error(context.Background(), "failed to create stats service", err)
			os.Exit(1)
		}
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
			paymentsService,
			accountsService,
			ledgerService,
			payoutsService,
			notificationsService,
			statsService,
			stripeClient,
			webhookService,
			webhookGuard,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
