package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/ecommerce-admin/internal/config"
	"github.com/utafrali/ecommerce-admin/internal/notify"
	"github.com/utafrali/ecommerce-admin/internal/resource"
	"github.com/utafrali/ecommerce-admin/pkg/health"
	"github.com/utafrali/ecommerce-admin/pkg/middleware"
)

const serviceName = "admin-console"

// Stores groups the resource stores the console serves.
type Stores struct {
	Orders        *resource.OrderStore
	Pending       *resource.OrderStore
	Notifications *resource.NotificationStore
	Banners       *resource.BannerStore
	Storefront    *resource.BannerStore
}

func (s Stores) resetters() []Resetter {
	return []Resetter{s.Orders, s.Pending, s.Notifications, s.Banners}
}

// Dependencies is everything NewRouter wires into handlers.
type Dependencies struct {
	Stores        Stores
	Sessions      Sessions
	Tray          *notify.Tray
	Health        *health.Handler
	AdminResolver middleware.AdminResolver
	Logger        *slog.Logger
}

// NewRouter creates a chi router with all console routes registered. ctx
// bounds the rate limiter's background sweeper.
func NewRouter(ctx context.Context, cfg *config.Config, deps Dependencies) http.Handler {
	logger := deps.Logger
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		MaxAge:           cfg.CORSMaxAge,
		AllowCredentials: true,
		Environment:      cfg.Environment,
	}))
	r.Use(middleware.RateLimit(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger, deps.AdminResolver))

	// Health check endpoints
	r.Get("/health/live", deps.Health.LivenessHandler())
	r.Get("/health/ready", deps.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	stores := deps.Stores
	sessionHandler := NewSessionHandler(deps.Sessions, stores.resetters(), logger)
	orderHandler := NewOrderHandler(stores.Orders, logger)
	pendingHandler := NewOrderHandler(stores.Pending, logger)
	notificationHandler := NewNotificationHandler(stores.Notifications, logger)
	bannerHandler := NewBannerHandler(stores.Banners, stores.Storefront, logger)
	toastHandler := NewToastHandler(deps.Tray)

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(ContentTypeJSON)

		r.Post("/session", sessionHandler.Create)
		r.Get("/session", sessionHandler.Get)
		r.Delete("/session", sessionHandler.Delete)

		r.Route("/orders", func(r chi.Router) {
			r.Route("/pending", orderRoutes(pendingHandler))
			orderRoutes(orderHandler)(r)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.List)
			r.Post("/refresh", notificationHandler.Refresh)
			r.Patch("/read-all", notificationHandler.MarkAllAsRead)
			r.Patch("/{id}/read", notificationHandler.MarkAsRead)
			r.Delete("/{id}", notificationHandler.Delete)
		})

		r.Route("/banners", func(r chi.Router) {
			r.Get("/", bannerHandler.List)
			r.Post("/refresh", bannerHandler.Refresh)
			r.Patch("/{id}/active", bannerHandler.SetActive)
			r.Delete("/{id}", bannerHandler.Delete)
		})

		r.Get("/toasts", toastHandler.Drain)
	})

	r.With(middleware.CacheControl(cfg.StorefrontCacheSeconds)).
		Get("/storefront/banners", bannerHandler.Storefront)

	return r
}

func orderRoutes(h *OrderHandler) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/refresh", h.Refresh)
		r.Patch("/{id}/status", h.UpdateStatus)
		r.Delete("/{id}", h.Delete)
	}
}
