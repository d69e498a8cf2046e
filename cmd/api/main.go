package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/incident-tracker/internal/api/http"
	"github.com/spec-kit/incident-tracker/internal/api/http/handlers"
	"github.com/spec-kit/incident-tracker/internal/clock"
	"github.com/spec-kit/incident-tracker/internal/config"
	"github.com/spec-kit/incident-tracker/internal/events"
	"github.com/spec-kit/incident-tracker/internal/notify"
	"github.com/spec-kit/incident-tracker/internal/observability"
	"github.com/spec-kit/incident-tracker/internal/persistence"
	"github.com/spec-kit/incident-tracker/internal/repository"
	"github.com/spec-kit/incident-tracker/internal/service"
	"github.com/spec-kit/incident-tracker/internal/worker"
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

	store, err := persistence.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
	}
	defer store.Close()

	sink, sinks, err := notify.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build notification sinks", zap.Error(err))
	}
	defer sinks.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	clk := clock.Real()
	dispatcher := events.NewInMemoryDispatcher()

	notificationService := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: repository.NewNotificationRepository(store, logger),
		Dispatcher:       dispatcher,
		Sink:             sink,
		Clock:            clk,
		Logger:           logger,
		Metrics:          metrics,
		Config:           cfg.Notification,
	})
	worker.StartNotificationWorker(notificationService)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repository.NewTicketRepository(store, logger),
		Dispatcher: dispatcher,
		Clock:      clk,
		Logger:     logger,
		Metrics:    metrics,
	})

	if cfg.Seed.Demo {
		if _, err := ticketService.SeedDemoData(ctx, cfg.Seed.File); err != nil {
			logger.Fatal("failed to seed demo data", zap.Error(err))
		}
	}

	if cfg.Escalation.Enabled {
		escalations := worker.NewEscalationWorker(ticketService, clk, cfg.Escalation.Interval, logger)
		go escalations.Run(ctx)
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.Storage.Backend, store),
		Tickets:       handlers.NewTicketsHandler(ticketService, clk),
		Notifications: handlers.NewNotificationsHandler(notificationService),
		Gatherer:      registry,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
