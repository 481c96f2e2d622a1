package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shopbridge/shopbridge-backend/api/controllers"
	"github.com/shopbridge/shopbridge-backend/api/controllers/purchasing"
	"github.com/shopbridge/shopbridge-backend/api/middleware"
	"github.com/shopbridge/shopbridge-backend/internal/payments"
	product "github.com/shopbridge/shopbridge-backend/internal/products"
	"github.com/shopbridge/shopbridge-backend/internal/purchaseorders"
	"github.com/shopbridge/shopbridge-backend/internal/stocktransfers"
	"github.com/shopbridge/shopbridge-backend/pkg/config"
	"github.com/shopbridge/shopbridge-backend/pkg/db"
	"github.com/shopbridge/shopbridge-backend/pkg/logger"
	"github.com/shopbridge/shopbridge-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	ordersService purchaseorders.Service,
	paymentsService payments.Service,
	transfersService stocktransfers.Service,
	productService product.Service,
) http.Handler {
	var (
		idempotencyStore redis.IdempotencyStore
		redisPinger      controllers.Pinger
	)
	if redisClient != nil {
		idempotencyStore = redisClient
		redisPinger = redisClient
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/me", controllers.Whoami())
		r.Get("/shops/{shopId}/products", controllers.ShopProducts(productService, logg))
		r.Get("/products/{productId}", controllers.GetProduct(productService, logg))

		r.Route("/purchase-orders", func(r chi.Router) {
			r.Use(
				middleware.ShopContext(logg),
				middleware.Idempotency(idempotencyStore, cfg.Purchasing.IdempotencyTTL, logg),
			)

			r.Post("/", purchasing.CreateOrder(ordersService, logg))
			r.Get("/", purchasing.ListOrders(ordersService, logg))

			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", purchasing.GetOrder(ordersService, logg))
				r.Delete("/", purchasing.DeleteOrder(ordersService, logg))
				r.Put("/items", purchasing.UpdateOrderItems(ordersService, logg))
				r.Post("/transition", purchasing.TransitionOrder(ordersService, logg))
				r.Post("/payments", purchasing.RecordPayment(paymentsService, logg))
				r.Get("/payments", purchasing.ListPayments(paymentsService, logg))
				r.Post("/transfers", purchasing.TransferStock(transfersService, logg))
				r.Get("/transfers", purchasing.ListTransfers(transfersService, logg))
			})
		})
	})

	return r
}
