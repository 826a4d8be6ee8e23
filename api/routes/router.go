package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tobiaseke/bulkroom-backend/api/controllers"
	webhookcontrollers "github.com/tobiaseke/bulkroom-backend/api/controllers/webhooks"
	"github.com/tobiaseke/bulkroom-backend/api/middleware"
	"github.com/tobiaseke/bulkroom-backend/internal/orders"
	"github.com/tobiaseke/bulkroom-backend/internal/payments"
	"github.com/tobiaseke/bulkroom-backend/internal/products"
	"github.com/tobiaseke/bulkroom-backend/internal/settlement"
	"github.com/tobiaseke/bulkroom-backend/pkg/config"
	"github.com/tobiaseke/bulkroom-backend/pkg/logger"
	"github.com/tobiaseke/bulkroom-backend/pkg/metrics"
)

type pinger interface {
	Ping(context.Context) error
}

type signatureValidator interface {
	ValidateSignature(body []byte, signature string) bool
}

type webhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// RouterParams carry everything the HTTP surface needs.
type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             pinger
	Redis          pinger
	Orders         orders.Service
	Payments       payments.Service
	Catalog        products.Repository
	Settlement     settlement.Service
	Paystack       signatureValidator
	WebhookGuard   webhookGuard
	WebhookMetrics *metrics.WebhookMetrics
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.Redis))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paystack", webhookcontrollers.PaystackWebhook(
			params.Settlement, params.Paystack, params.WebhookGuard, params.WebhookMetrics, logg))
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Post("/", controllers.CreateOrder(params.Orders, logg))
		r.Get("/{orderId}", controllers.OrderDetail(params.Orders, logg))
		r.Post("/{orderId}/cancel", controllers.CancelOrder(params.Orders, logg))
		r.Post("/{orderId}/fulfill", controllers.FulfillOrder(params.Orders, logg))
		r.Post("/{orderId}/refund", controllers.RefundOrder(params.Orders, logg))
		r.Post("/{orderId}/pay", controllers.StartCheckout(params.Payments, logg))
		r.Post("/{orderId}/pay/confirm", controllers.ConfirmCheckout(params.Payments, logg))
	})

	r.Route("/api/v1/wholesalers", func(r chi.Router) {
		r.Get("/{wholesalerId}/products", controllers.WholesalerCatalog(params.Catalog, logg))
		r.Post("/{wholesalerId}/subaccount", controllers.RegisterSubaccount(params.Payments, logg))
	})

	return r
}
