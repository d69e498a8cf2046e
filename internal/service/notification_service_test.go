package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/incident-tracker/internal/clock"
	"github.com/spec-kit/incident-tracker/internal/domain"
	"github.com/spec-kit/incident-tracker/internal/events"
	"github.com/spec-kit/incident-tracker/internal/persistence"
	"github.com/spec-kit/incident-tracker/internal/repository"
)

func sampleTicket() domain.Ticket {
	return domain.Ticket{
		ID:          "INC-ABC123",
		Title:       "Mobile App Crashes on iOS 17",
		Description: "Crash on profile open",
		Priority:    domain.TicketPriorityP2,
		Status:      domain.TicketStatusOpen,
		ReportedBy:  "bob.johnson@company.com",
		CreatedAt:   nineAM,
		UpdatedAt:   nineAM,
		SLADeadline: nineAM.Add(24 * time.Hour),
	}
}

func TestRecordTicketCreatedAddressing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	ticket := sampleTicket()
	unassigned, err := h.notifications.RecordTicketCreated(ctx, ticket)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if unassigned.To != defaultSupportAddress {
		t.Fatalf("to = %q", unassigned.To)
	}
	if unassigned.Subject != "New P2 Incident: Mobile App Crashes on iOS 17" {
		t.Fatalf("subject = %q", unassigned.Subject)
	}
	if !strings.HasPrefix(unassigned.ID, "EMAIL-") || unassigned.Acknowledged || !unassigned.SentAt.Equal(nineAM) {
		t.Fatalf("notification = %+v", unassigned)
	}
	for _, want := range []string{"Dear Support Team", "- ID: INC-ABC123", "- Reporter: bob.johnson@company.com", "Crash on profile open"} {
		if !strings.Contains(unassigned.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, unassigned.Body)
		}
	}

	ticket.AssignedTo = strPtr("mike.dev@company.com")
	assigned, _ := h.notifications.RecordTicketCreated(ctx, ticket)
	if assigned.To != "mike.dev@company.com" {
		t.Fatalf("to = %q", assigned.To)
	}

	if len(h.sink.msgs) != 2 || h.sink.msgs[1].ID != assigned.ID {
		t.Fatalf("sink got %+v", h.sink.msgs)
	}
}

func TestRecordTicketUpdatedGuidance(t *testing.T) {
	h := newHarness(t)
	ticket := sampleTicket()
	ticket.Status = domain.TicketStatusInProgress

	n, err := h.notifications.RecordTicketUpdated(context.Background(), ticket, domain.TicketStatusOpen)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if n.To != ticket.ReportedBy || n.Subject != "Ticket INC-ABC123 Status Updated: In Progress" {
		t.Fatalf("notification = %+v", n)
	}
	for _, want := range []string{"Assigned To: Unassigned", "Previous Status: Open", "continuing to work on your issue"} {
		if !strings.Contains(n.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, n.Body)
		}
	}
}

func TestRecordEscalationRoundsHoursOverdue(t *testing.T) {
	h := newHarness(t)
	ticket := sampleTicket()
	ticket.SLADeadline = nineAM.Add(4 * time.Hour)
	h.clock.Set(ticket.SLADeadline.Add(2*time.Hour + 40*time.Minute))

	n, err := h.notifications.RecordEscalation(context.Background(), ticket)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if n.To != managerAddress {
		t.Fatalf("to = %q", n.To)
	}
	if !strings.Contains(n.Body, "Time Overdue: 3 hours") || !strings.HasPrefix(n.Body, "URGENT: SLA BREACH ALERT") {
		t.Fatalf("body:\n%s", n.Body)
	}
}

func TestAcknowledgeNotification(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	first, _ := h.notifications.RecordTicketCreated(ctx, sampleTicket())
	second, _ := h.notifications.RecordEscalation(ctx, sampleTicket())

	ok, err := h.notifications.AcknowledgeNotification(ctx, first.ID)
	if err != nil || !ok {
		t.Fatalf("ack = %v, %v", ok, err)
	}
	pending, _ := h.notifications.GetUnacknowledgedNotifications(ctx)
	if len(pending) != 1 || pending[0].ID != second.ID {
		t.Fatalf("pending = %+v", pending)
	}

	ok, err = h.notifications.AcknowledgeNotification(ctx, first.ID)
	if err != nil || !ok {
		t.Fatalf("re-ack = %v, %v", ok, err)
	}
	ok, err = h.notifications.AcknowledgeNotification(ctx, "EMAIL-missing")
	if err != nil || ok {
		t.Fatalf("missing ack = %v, %v", ok, err)
	}
}

func TestGetRecentNotificationsWindowAndOrder(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	old, _ := h.notifications.RecordTicketCreated(ctx, sampleTicket())
	h.clock.Advance(20 * time.Hour)
	middle, _ := h.notifications.RecordTicketCreated(ctx, sampleTicket())
	h.clock.Advance(2 * time.Hour)
	newest, _ := h.notifications.RecordTicketCreated(ctx, sampleTicket())
	h.clock.Advance(3 * time.Hour)

	recent, err := h.notifications.GetRecentNotifications(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != newest.ID || recent[1].ID != middle.ID {
		t.Fatalf("recent = %+v", recent)
	}

	narrow, _ := h.notifications.GetRecentNotifications(ctx, 4)
	if len(narrow) != 1 || narrow[0].ID != newest.ID {
		t.Fatalf("narrow = %+v", narrow)
	}

	wide, _ := h.notifications.GetRecentNotifications(ctx, 48)
	if len(wide) != 3 || wide[2].ID != old.ID {
		t.Fatalf("wide = %+v", wide)
	}
}

func TestGetRecentNotificationsHugeWindowKeepsEverything(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	first, _ := h.notifications.RecordTicketCreated(ctx, sampleTicket())
	h.clock.Advance(time.Hour)

	for _, hours := range []int{24, 1_000_000, 2_562_047, 2_562_048, 3_000_000, 5_000_000, math.MaxInt} {
		recent, err := h.notifications.GetRecentNotifications(ctx, hours)
		if err != nil {
			t.Fatalf("recent(%d): %v", hours, err)
		}
		if len(recent) != 1 || recent[0].ID != first.ID {
			t.Fatalf("recent(%d) = %+v", hours, recent)
		}
	}
}

func TestDeliveryFailureKeepsRecord(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.sink.err = errors.New("relay down")

	n, err := h.notifications.RecordTicketCreated(ctx, sampleTicket())
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("err = %v, want ErrDeliveryFailed", err)
	}
	if n == nil {
		t.Fatal("record must be returned with delivery failure")
	}
	all, _ := h.notifications.GetAllNotifications(ctx)
	if len(all) != 1 || all[0].ID != n.ID {
		t.Fatalf("stored = %+v", all)
	}
}

func TestDeliveryFailureDoesNotFailTicketCreate(t *testing.T) {
	h := newHarness(t)
	h.sink.err = errors.New("relay down")

	ticket := h.create(t, domain.TicketPriorityP3, "a@x.com")
	if _, err := h.tickets.GetTicketByID(context.Background(), ticket.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if n := len(h.notificationsTo(t, defaultSupportAddress)); n != 1 {
		t.Fatalf("notifications = %d", n)
	}
}

func TestCommentAndDeleteEventsAreLoggedWithoutNotifying(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	store := persistence.NewMemoryStore()
	clk := clock.Fake(nineAM)
	dispatcher := events.NewInMemoryDispatcher()
	sink := &recordingSink{}

	notifications := NewNotificationService(NotificationDependencies{
		NotificationRepo: repository.NewNotificationRepository(store, logger),
		Dispatcher:       dispatcher,
		Sink:             sink,
		Clock:            clk,
		Logger:           logger,
	})
	notifications.RegisterHandlers()
	tickets := NewTicketService(TicketDependencies{
		TicketRepo: repository.NewTicketRepository(store, logger),
		Dispatcher: dispatcher,
		Clock:      clk,
		Logger:     logger,
	})

	ticket, err := tickets.CreateTicket(ctx, TicketCreateInput{Title: "VPN down", Description: "No tunnel", ReportedBy: "amy@company.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	comment, err := tickets.AddComment(ctx, ticket.ID, CommentInput{Author: "ops@company.com", Content: "Restarted the concentrator", Internal: true})
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	if ok, err := tickets.DeleteTicket(ctx, ticket.ID); !ok || err != nil {
		t.Fatalf("delete = %v, %v", ok, err)
	}

	commented := logs.FilterMessage("ticket comment added").All()
	if len(commented) != 1 {
		t.Fatalf("comment log entries = %d", len(commented))
	}
	fields := commented[0].ContextMap()
	if fields["ticket_id"] != ticket.ID || fields["comment_id"] != comment.ID || fields["internal"] != true {
		t.Fatalf("comment fields = %v", fields)
	}
	if fields["preview"] != "Restarted the concentrator" {
		t.Fatalf("preview = %v", fields["preview"])
	}

	deleted := logs.FilterMessage("ticket deleted").All()
	if len(deleted) != 1 || deleted[0].ContextMap()["ticket_id"] != ticket.ID {
		t.Fatalf("delete log entries = %+v", deleted)
	}

	// only the creation produced a notification
	all, _ := notifications.GetAllNotifications(ctx)
	if len(all) != 1 || len(sink.msgs) != 1 {
		t.Fatalf("notifications = %d, sent = %d", len(all), len(sink.msgs))
	}
}
