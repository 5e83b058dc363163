package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/marketplace-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/marketplace-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/marketplace-backend/api/controllers/orders"
	sellercontrollers "github.com/angelmondragon/marketplace-backend/api/controllers/seller"
	"github.com/angelmondragon/marketplace-backend/api/middleware"
	"github.com/angelmondragon/marketplace-backend/internal/analytics"
	"github.com/angelmondragon/marketplace-backend/internal/cart"
	"github.com/angelmondragon/marketplace-backend/internal/orders"
	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/redis"
)

// Dependencies are the services and clients the HTTP surface is built from.
// Redis and Metrics are optional.
type Dependencies struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        controllers.Pinger
	Redis     *redis.Client
	Metrics   http.Handler
	Cart      cart.Service
	Orders    orders.Service
	Analytics analytics.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg, logg := deps.Config, deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	// Interface values must stay nil when redis is not configured.
	var (
		idemStore middleware.IdempotencyStore
		limiter   middleware.FixedWindowLimiter
	)
	checks := map[string]controllers.Pinger{}
	if deps.DB != nil {
		checks["db"] = deps.DB
	}
	if deps.Redis != nil {
		idemStore = deps.Redis
		limiter = deps.Redis
		checks["redis"] = deps.Redis
	}

	checkoutPolicy := middleware.RateLimitPolicy{
		Name:   "checkout",
		Window: cfg.RateLimit.CheckoutWindow,
		Limit:  cfg.RateLimit.CheckoutLimit,
	}
	idempotency := middleware.Idempotency(idemStore, logg)
	checkoutLimit := middleware.RateLimit(checkoutPolicy, limiter, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, checks))
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.RequireRoles(logg, enums.RoleCustomer))
			r.Get("/", cartcontrollers.Fetch(deps.Cart, logg))
			r.Delete("/", cartcontrollers.Clear(deps.Cart, logg))
			r.Post("/{productId}", cartcontrollers.AddItem(deps.Cart, logg))
			r.Put("/{productId}", cartcontrollers.UpdateItem(deps.Cart, logg))
			r.Delete("/{productId}", cartcontrollers.RemoveItem(deps.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			customer := middleware.RequireRoles(logg, enums.RoleCustomer)
			r.With(customer, checkoutLimit, idempotency).Post("/", ordercontrollers.Create(deps.Orders, logg))
			r.With(customer).Get("/", ordercontrollers.List(deps.Orders, logg))
			r.With(middleware.RequireRoles(logg, enums.RoleCustomer, enums.RoleAdmin)).
				Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
			r.With(customer, idempotency).Put("/{orderId}/cancel", ordercontrollers.Cancel(deps.Orders, logg))
		})

		r.Route("/seller", func(r chi.Router) {
			r.Use(middleware.RequireRoles(logg, enums.RoleSeller, enums.RoleAdmin))
			r.Get("/orders", sellercontrollers.ListOrders(deps.Orders, logg))
			r.With(idempotency).Put("/orders/{orderId}/status", sellercontrollers.UpdateStatus(deps.Orders, logg))
			r.With(idempotency).Put("/orders/{orderId}/payment-status", sellercontrollers.UpdatePaymentStatus(deps.Orders, logg))
			r.Get("/stats", sellercontrollers.Stats(deps.Analytics, logg))
		})
	})

	return r
}
