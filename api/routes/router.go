package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gatepass/gatepass-backend/api/controllers"
	webhookcontrollers "github.com/gatepass/gatepass-backend/api/controllers/webhooks"
	"github.com/gatepass/gatepass-backend/api/middleware"
	"github.com/gatepass/gatepass-backend/internal/orders"
	"github.com/gatepass/gatepass-backend/internal/refunds"
	"github.com/gatepass/gatepass-backend/internal/tickets"
	"github.com/gatepass/gatepass-backend/pkg/config"
	"github.com/gatepass/gatepass-backend/pkg/db"
	"github.com/gatepass/gatepass-backend/pkg/logger"
	"github.com/gatepass/gatepass-backend/pkg/metrics"
	pkgredis "github.com/gatepass/gatepass-backend/pkg/redis"
	"github.com/gatepass/gatepass-backend/pkg/square"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP pkgredis.Pinger,
	idempotencyStore pkgredis.IdempotencyStore,
	ordersSvc orders.Service,
	refundsSvc refunds.Service,
	ticketsSvc tickets.Service,
	webhookSvc webhookcontrollers.SquareWebhookService,
	squareClient *square.Client,
	webhookMetrics *metrics.WebhookMetrics,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/payments", func(r chi.Router) {
			r.Post("/create-payment-intent", controllers.CreatePaymentIntent(ordersSvc, logg))
			r.Post("/confirm-payment", controllers.ConfirmPayment(ordersSvc, logg))
			r.Post("/refund", controllers.RefundPayment(refundsSvc, logg))
			r.Post("/webhook", webhookcontrollers.SquareWebhook(webhookSvc, squareClient, webhookMetrics, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/{orderId}", controllers.OrderDetail(ordersSvc, logg))
		})

		r.Route("/tickets", func(r chi.Router) {
			r.Post("/{scanCode}/redeem", controllers.RedeemTicket(ticketsSvc, logg))
		})
	})

	return r
}
