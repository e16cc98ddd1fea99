package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-portal/internal/api/http"
	"github.com/spec-kit/ticket-portal/internal/api/http/handlers"
	"github.com/spec-kit/ticket-portal/internal/auth"
	"github.com/spec-kit/ticket-portal/internal/bootstrap"
	"github.com/spec-kit/ticket-portal/internal/config"
	"github.com/spec-kit/ticket-portal/internal/events"
	"github.com/spec-kit/ticket-portal/internal/observability"
	"github.com/spec-kit/ticket-portal/internal/persistence"
	"github.com/spec-kit/ticket-portal/internal/service"
	"github.com/spec-kit/ticket-portal/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer store.Close(context.Background())
	if err := store.Tickets.EnsureCounter(ctx); err != nil {
		logger.Fatal("failed to ensure ticket counter", zap.Error(err))
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	transport := bootstrap.NewTransport(cfg.Email)

	resolver := service.NewRoutingResolver(store.Settings, store.CountryManagers, cfg.Routing, cfg.Email.ReplyTo, logger)
	notifier := service.NewNotificationDispatcher(service.DispatcherDependencies{
		Tickets:   store.Tickets,
		Transport: transport,
		Events:    dispatcher,
		Email:     cfg.Email,
		BaseURL:   cfg.App.BaseURL,
		Logger:    logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  store.Tickets,
		PendingRepo: store.Pending,
		Resolver:    resolver,
		Dispatcher:  notifier,
		Events:      dispatcher,
		Config:      cfg.Notification,
		Logger:      logger,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		TicketRepo:  store.Tickets,
		PendingRepo: store.Pending,
		Resolver:    resolver,
		Dispatcher:  notifier,
		Locker:      bootstrap.NewLocker(redis, cfg.Email),
		Transport:   transport,
		Events:      dispatcher,
		Metrics:     metrics,
		Config:      cfg.Notification,
		Email:       cfg.Email,
		Logger:      logger,
	})
	settingsService := service.NewSettingsService(store, cfg.Routing, logger)
	pendingService := service.NewPendingService(store.Pending)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService, err := service.NewAuthService(cfg.Auth, tokens)
	if err != nil {
		logger.Fatal("failed to init admin auth", zap.Error(err))
	}

	worker.StartNotificationWorker(notificationService)
	monitor := worker.NewPendingMonitor(pendingService, metrics, cfg.Notification.MonitorInterval(), cfg.Notification.MonitorPendingWarnAt, logger)
	go monitor.Run(ctx)

	checks := map[string]handlers.Pinger{"store": store.Ping}
	if redis.Enabled() {
		checks["redis"] = redis.Ping
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:     cfg.App.RequestTimeout(),
		CORSOrigins: cfg.App.CORSAllowOrigins,
	})
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Notifications:  handlers.NewNotificationsHandler(notificationService, logger),
		Settings:       handlers.NewSettingsHandler(settingsService),
		Pending:        handlers.NewPendingHandler(pendingService),
		Auth:           handlers.NewAuthHandler(authService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Metrics:        metrics.Handler(),
		RateLimit:      httptransport.SubmissionLimiter(cfg.App.RateLimitPerMinute),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("store", cfg.Store.Driver), zap.String("transport", transport.Name()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
