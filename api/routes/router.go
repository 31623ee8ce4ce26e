package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nordicloop/nordicloop-backend/api/controllers"
	webhookcontrollers "github.com/nordicloop/nordicloop-backend/api/controllers/webhooks"
	"github.com/nordicloop/nordicloop-backend/api/middleware"
	"github.com/nordicloop/nordicloop-backend/internal/accounts"
	"github.com/nordicloop/nordicloop-backend/internal/ledger"
	"github.com/nordicloop/nordicloop-backend/internal/notifications"
	"github.com/nordicloop/nordicloop-backend/internal/payments"
	"github.com/nordicloop/nordicloop-backend/internal/payouts"
	"github.com/nordicloop/nordicloop-backend/internal/stats"
	stripewebhook "github.com/nordicloop/nordicloop-backend/internal/webhooks/stripe"
	"github.com/nordicloop/nordicloop-backend/pkg/config"
	"github.com/nordicloop/nordicloop-backend/pkg/db"
	"github.com/nordicloop/nordicloop-backend/pkg/logger"
	"github.com/nordicloop/nordicloop-backend/pkg/redis"
	"github.com/nordicloop/nordicloop-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	paymentsService payments.Service,
	accountsService accounts.Service,
	ledgerService ledger.Service,
	payoutsService payouts.Service,
	notificationsService notifications.Service,
	statsService stats.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	var redisP redis.Pinger
	if redisClient != nil {
		redisP = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Identity(logg))
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/payments", func(r chi.Router) {
			r.Get("/", controllers.ListPayments(paymentsService, logg))
			r.Post("/", controllers.CreatePayment(paymentsService, logg))
			r.Get("/{paymentId}", controllers.GetPayment(paymentsService, logg))
			r.Post("/{paymentId}/cancel", controllers.CancelPayment(paymentsService, logg))
			r.Post("/{paymentId}/confirm", controllers.ConfirmPayment(paymentsService, logg))
			r.Get("/{paymentId}/transactions", controllers.ListPaymentTransactions(paymentsService, ledgerService, logg))
		})

		r.Route("/v1/transactions", func(r chi.Router) {
			r.Get("/", controllers.ListCompanyTransactions(ledgerService, logg))
		})

		r.Route("/v1/payouts", func(r chi.Router) {
			r.Get("/", controllers.ListSellerPayouts(payoutsService, logg))
		})

		r.Route("/v1/accounts", func(r chi.Router) {
			r.Get("/me", controllers.SellerAccountProfile(accountsService, logg))
			r.Post("/me", controllers.SellerAccountOnboard(accountsService, logg))
			r.Post("/me/refresh", controllers.SellerAccountRefresh(accountsService, logg))
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Identity(logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Get("/ping", controllers.AdminPing())
		r.Route("/v1/payouts", func(r chi.Router) {
			r.Post("/run", controllers.AdminRunPayouts(payoutsService, logg))
		})
		r.Route("/v1/payments", func(r chi.Router) {
			r.Get("/stats", controllers.AdminPaymentStats(statsService, logg))
			r.Get("/{paymentId}/payout", controllers.AdminGetPayout(payoutsService, logg))
		})
	})

	return r
}
