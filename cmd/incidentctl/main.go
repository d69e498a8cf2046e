// incidentctl manages incident tickets directly against the configured
// storage backend, without going through the HTTP API.
//
// Usage:
//
//	incidentctl <command> [flags] [args]
//
// Commands: seed, create, list, show, update, delete, comment, escalate,
// stats, notifications, ack. Every command accepts --output json|yaml.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

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
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(stdout)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// stdout carries command output
	cfg.Logger.Output = "stderr"
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.Logger.Level = "warn"
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	store, err := persistence.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	sink, sinks, err := notify.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build notification sinks: %w", err)
	}
	defer sinks.Close()

	env := newEnvironment(store, sink, clock.Real(), cfg.Notification, logger)
	return env.dispatch(ctx, args, stdout)
}

// environment holds the services a command runs against.
type environment struct {
	tickets       *service.TicketService
	notifications *service.NotificationService
	escalations   *worker.EscalationWorker
	clock         clock.Clock
}

func newEnvironment(store persistence.CollectionStore, sink notify.Sink, clk clock.Clock, notifyCfg config.NotificationConfig, logger *zap.Logger) *environment {
	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: repository.NewNotificationRepository(store, logger),
		Dispatcher:       dispatcher,
		Sink:             sink,
		Clock:            clk,
		Logger:           logger,
		Config:           notifyCfg,
	})
	worker.StartNotificationWorker(notifications)
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repository.NewTicketRepository(store, logger),
		Dispatcher: dispatcher,
		Clock:      clk,
		Logger:     logger,
	})
	return &environment{
		tickets:       tickets,
		notifications: notifications,
		escalations:   worker.NewEscalationWorker(tickets, clk, 0, logger),
		clock:         clk,
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `incidentctl manages incident tickets.

Usage:
  incidentctl <command> [flags] [args]

Commands:
  seed                 create the demo tickets when the store is empty
  create               create a ticket
  list                 list tickets with optional search, filters and sorting
  show <id>            show one ticket with its comments
  update <id>          change ticket fields
  delete <id>          delete a ticket
  comment <id>         add a comment to a ticket
  escalate             flag tickets that breached their SLA
  stats                show ticket counts
  notifications        list recent or unacknowledged notifications
  ack <id>             acknowledge a notification

Storage and notification delivery are configured through the same
environment variables as the API server (STORAGE_BACKEND, ...).
`)
}
