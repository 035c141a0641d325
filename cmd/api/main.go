package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kiranaconnect/kiranaconnect-backend/api/routes"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/analytics"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/auth"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/inventory"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/notifications"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/orders"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/products"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/realtime"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/seed"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage/backend"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/users"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/auth/session"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/config"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/instance"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/logger"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/metrics"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/redis"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/whatsapp"
)

const shutdownTimeout = 15 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to open storage", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Error(context.Background(), "error closing storage", err)
		}
	}()

	if store.Empty() || cfg.FeatureFlags.AutoSeed {
		fixture, err := seed.DefaultFixture()
		if err != nil {
			logg.Error(ctx, "failed to load seed fixture", err)
			os.Exit(1)
		}
		if _, err := seed.Run(ctx, store.Store, fixture, seed.Options{Password: cfg.Password, Logger: logg}); err != nil {
			logg.Error(ctx, "failed to seed storage", err)
			os.Exit(1)
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Configured() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(ctx, "redis not configured; sessions are process-local and rate limits are off")
	}

	var sessionManager *session.Manager
	if redisClient != nil {
		sessionManager, err = session.NewManager(redisClient, cfg.JWT)
	} else {
		sessionManager, err = session.NewInMemoryManager(cfg.JWT)
	}
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metricSet := metrics.New(registry)

	instanceID := instance.ID(cfg.App.InstanceID)
	hubOpts := realtime.HubOptions{
		InstanceID:   instanceID,
		Channel:      cfg.Realtime.Channel,
		SendBuffer:   cfg.Realtime.SendBuffer,
		PingInterval: cfg.Realtime.PingInterval,
		Logger:       logg,
		Metrics:      metricSet.Realtime,
	}
	if redisClient != nil {
		hubOpts.Bridge = redisClient
	}
	hub := realtime.NewHub(hubOpts)
	go func() {
		if err := hub.Run(ctx); err != nil {
			logg.Error(ctx, "realtime bridge stopped", err)
		}
	}()

	whatsappClient := whatsapp.NewClient(cfg.WhatsApp)
	if !whatsappClient.Enabled() {
		logg.Warn(ctx, "whatsapp credentials missing; messages will be skipped")
	}
	notifier := notifications.NewService(notifications.ServiceParams{
		Broadcaster: hub,
		WhatsApp:    whatsappClient,
		Inventory:   store.Store,
		AlertNumber: cfg.WhatsApp.AlertNumber,
		Logger:      logg,
		Metrics:     metricSet.Notifications,
	})

	userService, err := users.NewService(store.Store)
	requireService(ctx, logg, "users", err)

	authService, err := auth.NewService(auth.ServiceParams{
		Store:          store.Store,
		Users:          userService,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	requireService(ctx, logg, "auth", err)

	productService, err := products.NewService(store.Store)
	requireService(ctx, logg, "products", err)

	inventoryService, err := inventory.NewService(store.Store)
	requireService(ctx, logg, "inventory", err)

	orderService, err := orders.NewService(orders.ServiceParams{
		Store:    store.Store,
		Users:    userService,
		Notifier: notifier,
		Logger:   logg,
		Metrics:  metricSet.Orders,
	})
	requireService(ctx, logg, "orders", err)

	analyticsService, err := analytics.NewService(store.Store)
	requireService(ctx, logg, "analytics", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instanceID,
		"storage":  store.Kind,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Services{
			Auth:      authService,
			Products:  productService,
			Inventory: inventoryService,
			Orders:    orderService,
			Analytics: analyticsService,
		}, routes.Infra{
			Store:    store.Store,
			Redis:    redisClient,
			Sessions: sessionManager,
			Hub:      hub,
			Metrics:  metricSet,
			Gatherer: registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "graceful shutdown failed", err)
	}
}

func requireService(ctx context.Context, logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "failed to create "+name+" service", err)
	os.Exit(1)
}
