package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/ecommerce-admin/internal/auth"
	"github.com/utafrali/ecommerce-admin/internal/config"
	"github.com/utafrali/ecommerce-admin/internal/event"
	handler "github.com/utafrali/ecommerce-admin/internal/handler/http"
	"github.com/utafrali/ecommerce-admin/internal/notify"
	"github.com/utafrali/ecommerce-admin/internal/resource"
	"github.com/utafrali/ecommerce-admin/pkg/database"
	"github.com/utafrali/ecommerce-admin/pkg/health"
	"github.com/utafrali/ecommerce-admin/pkg/httpclient"
	pkgkafka "github.com/utafrali/ecommerce-admin/pkg/kafka"
	"github.com/utafrali/ecommerce-admin/pkg/tracing"
)

const serviceName = "admin-console"

// App wires together all dependencies and runs the admin console.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	events         *event.Notifier
	tracerShutdown func(context.Context) error
	httpServer     *http.Server

	// background bounds the rate limiter sweeper and the event publisher.
	background context.Context
	stop       context.CancelFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Insecure:       cfg.Environment != "production",
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, tracerShutdown: tracerShutdown}
	a.background, a.stop = context.WithCancel(context.Background())
	healthHandler := health.NewHandler()

	// Admin token storage.
	persistent, session, err := a.tokenStorage(ctx, healthHandler)
	if err != nil {
		a.stop()
		return nil, err
	}
	tokens := auth.NewTokenStore(persistent, session, cfg.SessionTTL)

	// Storefront backend client.
	client := httpclient.New(cfg.HTTPClient())
	var doer httpclient.Doer = client
	if cfg.BreakerEnabled {
		breaker := httpclient.NewCircuitBreakerClient(client, cfg.CircuitBreaker(), logger)
		healthHandler.RegisterNonCritical("backend_circuit", breaker.Check)
		doer = breaker
	}
	api, err := httpclient.NewAPI(cfg.BackendBaseURL, doer, logger)
	if err != nil {
		a.closeStorage()
		a.stop()
		return nil, err
	}
	healthHandler.RegisterNonCritical("backend", backendChecker(cfg.BackendBaseURL))

	// Toasts go to the tray, the log and, when enabled, Kafka.
	tray := notify.NewTray(cfg.ToastCapacity)
	notifier := notify.Multi{tray, notify.NewLogNotifier(logger)}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		a.events = event.NewNotifier(a.producer, 0, logger)
		go a.events.Run(a.background)
		notifier = append(notifier, a.events)
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	}

	deps := resource.Deps{
		API:      api,
		Auth:     auth.NewGate(tokens),
		Notifier: notifier,
		Logger:   logger,
	}
	public := deps
	public.Auth = auth.Public{}

	router := handler.NewRouter(a.background, cfg, handler.Dependencies{
		Stores: handler.Stores{
			Orders:        resource.NewOrderStore(deps),
			Pending:       resource.NewPendingOrderStore(deps),
			Notifications: resource.NewNotificationStore(deps),
			Banners:       resource.NewBannerStore(deps),
			Storefront:    resource.NewActiveBannerStore(public),
		},
		Sessions:      tokens,
		Tray:          tray,
		Health:        healthHandler,
		AdminResolver: auth.AdminResolver(tokens),
		Logger:        logger,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return a, nil
}

// tokenStorage returns the persistent and session slots for the admin token.
func (a *App) tokenStorage(ctx context.Context, h *health.Handler) (auth.Storage, auth.Storage, error) {
	if a.cfg.TokenStore != config.TokenStoreRedis {
		a.logger.Info("admin tokens kept in memory")
		return auth.NewMemoryStorage(), auth.NewMemoryStorage(), nil
	}

	rc := a.cfg.Redis()
	rdb, err := database.NewRedisClient(ctx, rc)
	if err != nil {
		return nil, nil, err
	}
	a.rdb = rdb
	a.logger.Info("connected to Redis",
		slog.String("addr", rc.Addr()),
		slog.Int("db", rc.DB),
	)
	h.Register("redis", database.RedisChecker(rdb))

	return auth.NewRedisStorage(rdb, auth.PersistentPrefix), auth.NewRedisStorage(rdb, auth.SessionPrefix), nil
}

// backendChecker dials the backend host. A console with an unreachable
// backend still serves sessions and toasts, so the check is non-critical.
func backendChecker(baseURL string) health.Checker {
	return func(ctx context.Context) error {
		u, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("parse backend URL: %w", err)
		}
		host := u.Host
		if u.Port() == "" {
			port := "80"
			if u.Scheme == "https" {
				port = "443"
			}
			host = net.JoinHostPort(u.Hostname(), port)
		}

		d := net.Dialer{Timeout: 2 * time.Second}
		conn, err := d.DialContext(ctx, "tcp", host)
		if err != nil {
			return fmt.Errorf("backend unreachable: %w", err)
		}
		_ = conn.Close()
		return nil
	}
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components: HTTP first, then the event
// queue, the Kafka producer, Redis and finally the tracer.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}

	if a.events != nil {
		if err := a.events.Close(shutdownCtx); err != nil {
			a.logger.Error("event queue close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	a.stop()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("kafka producer: %w", err))
		}
	}

	if err := a.closeStorage(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("redis: %w", err))
	}

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("tracer: %w", err))
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeStorage() error {
	if a.rdb == nil {
		return nil
	}
	return a.rdb.Close()
}
