package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kiranaconnect/kiranaconnect-backend/api/controllers"
	analyticscontrollers "github.com/kiranaconnect/kiranaconnect-backend/api/controllers/analytics"
	ordercontrollers "github.com/kiranaconnect/kiranaconnect-backend/api/controllers/orders"
	"github.com/kiranaconnect/kiranaconnect-backend/api/middleware"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/analytics"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/auth"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/inventory"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/orders"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/products"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/auth/session"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/config"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/logger"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/metrics"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/redis"
)

// Services are the domain services exposed over HTTP.
type Services struct {
	Auth      auth.Service
	Products  products.Service
	Inventory inventory.Service
	Orders    orders.Service
	Analytics analytics.Service
}

// Infra carries the shared plumbing. Redis, Hub, Metrics and Gatherer are optional.
type Infra struct {
	Store    controllers.Pinger
	Redis    *redis.Client
	Sessions session.AccessSessionChecker
	Hub      http.Handler
	Metrics  *metrics.Set
	Gatherer prometheus.Gatherer
}

type rateLimitStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

func NewRouter(cfg *config.Config, logg *logger.Logger, svc Services, infra Infra) http.Handler {
	r := chi.NewRouter()

	var httpMetrics *metrics.HTTPMetrics
	if infra.Metrics != nil {
		httpMetrics = infra.Metrics.HTTP
	}
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	// Keep the interfaces untyped-nil when Redis is absent so the
	// middleware sees a missing store rather than a nil client.
	var (
		idemStore   redis.IdempotencyStore
		limiter     rateLimitStore
		redisPinger controllers.Pinger
	)
	if infra.Redis != nil {
		idemStore = infra.Redis
		limiter = infra.Redis
		redisPinger = infra.Redis
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	cookie := cfg.Session.CookieName
	requireAuth := middleware.Auth(cfg.JWT, cookie, infra.Sessions, logg)
	optionalAuth := middleware.OptionalAuth(cfg.JWT, cookie, infra.Sessions, logg)
	adminOnly := middleware.RequireRole(logg, enums.UserRoleAdmin)
	// Inline so the idempotency rules see the fully matched route pattern.
	idem := middleware.Idempotency(idemStore, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, infra.Store, redisPinger))
	})

	if infra.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(infra.Gatherer, promhttp.HandlerOpts{}))
	}
	if infra.Hub != nil {
		r.Handle("/ws", infra.Hub)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, limiter, logg), idem).
			Post("/register", controllers.AuthRegister(svc.Auth, cfg.Session, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, limiter, logg)).
			Post("/login", controllers.AuthLogin(svc.Auth, cfg.Session, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/logout", controllers.AuthLogout(svc.Auth, cfg.Session, logg))
			r.Get("/me", controllers.AuthMe(svc.Auth, logg))
			r.Put("/me", controllers.AuthUpdateProfile(svc.Auth, logg))
		})
	})

	r.Route("/api/products", func(r chi.Router) {
		r.With(optionalAuth).Get("/", controllers.ProductList(svc.Products, logg))
		r.Get("/{productId}", controllers.ProductDetail(svc.Products, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, adminOnly)
			r.With(idem).Post("/", controllers.ProductCreate(svc.Products, logg))
			r.Put("/{productId}", controllers.ProductUpdate(svc.Products, logg))
			r.Delete("/{productId}", controllers.ProductDelete(svc.Products, logg))
			r.With(idem).Post("/{productId}/variants", controllers.ProductAddVariant(svc.Products, logg))
		})
	})

	r.Route("/api/inventory", func(r chi.Router) {
		r.Use(requireAuth, adminOnly)
		r.Get("/", controllers.InventoryList(svc.Inventory, logg))
		r.Get("/low-stock", controllers.InventoryLowStock(svc.Inventory, logg))
		r.With(idem).Put("/{productId}", controllers.InventoryUpdate(svc.Inventory, logg))
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Use(requireAuth)
		r.With(idem).Post("/", ordercontrollers.Place(svc.Orders, logg))
		r.Get("/", ordercontrollers.List(svc.Orders, logg))
		r.Get("/{orderId}", ordercontrollers.Detail(svc.Orders, logg))
		r.With(idem).Put("/{orderId}", ordercontrollers.UpdateStatus(svc.Orders, logg))
	})

	r.Route("/api/analytics", func(r chi.Router) {
		r.Use(requireAuth, adminOnly)
		r.Get("/", analyticscontrollers.Report(svc.Analytics, logg))
		r.Get("/overview", analyticscontrollers.Overview(svc.Analytics, logg))
		r.Get("/revenue", analyticscontrollers.Revenue(svc.Analytics, logg))
	})

	return r
}
