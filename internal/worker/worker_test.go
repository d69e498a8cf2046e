package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-tracker/internal/clock"
	"github.com/spec-kit/incident-tracker/internal/config"
	"github.com/spec-kit/incident-tracker/internal/domain"
	"github.com/spec-kit/incident-tracker/internal/events"
	"github.com/spec-kit/incident-tracker/internal/persistence"
	"github.com/spec-kit/incident-tracker/internal/repository"
	"github.com/spec-kit/incident-tracker/internal/service"
)

type countingScanner struct {
	calls chan struct{}
	err   error
}

func (s *countingScanner) CheckForEscalations(context.Context) ([]domain.Ticket, error) {
	s.calls <- struct{}{}
	return nil, s.err
}

func waitCall(t *testing.T, calls <-chan struct{}) {
	t.Helper()
	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("scanner not called")
	}
}

func TestEscalationWorkerScansOnEveryTick(t *testing.T) {
	clk := clock.Fake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	scanner := &countingScanner{calls: make(chan struct{}, 4), err: errors.New("transient")}
	w := NewEscalationWorker(scanner, clk, time.Minute, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	waitCall(t, scanner.calls)
	clk.Advance(time.Minute)
	waitCall(t, scanner.calls)
	clk.Advance(time.Minute)
	waitCall(t, scanner.calls)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorkersRecordEscalationNotification(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	clk := clock.Fake(start)
	store := persistence.NewMemoryStore()
	dispatcher := events.NewInMemoryDispatcher()

	notifications := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: repository.NewNotificationRepository(store, logger),
		Dispatcher:       dispatcher,
		Clock:            clk,
		Logger:           logger,
		Config:           config.NotificationConfig{},
	})
	StartNotificationWorker(notifications)
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repository.NewTicketRepository(store, logger),
		Dispatcher: dispatcher,
		Clock:      clk,
		Logger:     logger,
	})

	ticket, err := tickets.CreateTicket(ctx, service.TicketCreateInput{
		Title: "Outage", Description: "down", Priority: domain.TicketPriorityP1, ReportedBy: "a@x.com",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	w := NewEscalationWorker(tickets, clk, time.Minute, logger)
	clk.Set(start.Add(5 * time.Hour))
	escalated, err := w.RunOnce(ctx)
	if err != nil || len(escalated) != 1 || escalated[0].ID != ticket.ID {
		t.Fatalf("escalated = %+v, %v", escalated, err)
	}

	all, _ := notifications.GetAllNotifications(ctx)
	if len(all) != 2 {
		t.Fatalf("notifications = %+v", all)
	}
	if all[1].To != "manager@company.com" || all[1].Subject != "SLA Breach - Ticket "+ticket.ID+" Escalated" {
		t.Fatalf("escalation notice = %+v", all[1])
	}
}
