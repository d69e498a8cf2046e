package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-tracker/internal/clock"
	"github.com/spec-kit/incident-tracker/internal/config"
	"github.com/spec-kit/incident-tracker/internal/domain"
	"github.com/spec-kit/incident-tracker/internal/events"
	"github.com/spec-kit/incident-tracker/internal/notify"
	"github.com/spec-kit/incident-tracker/internal/observability"
	"github.com/spec-kit/incident-tracker/internal/repository"
)

var (
	// ErrNotificationNotFound is returned when no notification has the id.
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrDeliveryFailed means the record was persisted but the sink
	// rejected it.
	ErrDeliveryFailed = errors.New("notification delivery failed")
)

const (
	defaultSupportAddress = "support@company.com"
	defaultManagerAddress = "manager@company.com"
	defaultRecentWindow   = 24
	maxRecentWindowHours  = math.MaxInt64 / int64(time.Hour)
	deadlineLayout        = "2006-01-02 15:04 MST"
)

// NotificationService keeps the log of notifications sent about tickets.
type NotificationService struct {
	mu            sync.Mutex
	notifications repository.NotificationRepository
	dispatcher    events.Dispatcher
	sink          notify.Sink
	clock         clock.Clock
	logger        *zap.Logger
	metrics       *observability.Metrics
	cfg           config.NotificationConfig
}

// NotificationDependencies bundles collaborators for the notification log.
type NotificationDependencies struct {
	NotificationRepo repository.NotificationRepository
	Dispatcher       events.Dispatcher
	Sink             notify.Sink
	Clock            clock.Clock
	Logger           *zap.Logger
	Metrics          *observability.Metrics
	Config           config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := deps.Config
	if strings.TrimSpace(cfg.SupportAddress) == "" {
		cfg.SupportAddress = defaultSupportAddress
	}
	if strings.TrimSpace(cfg.ManagerAddress) == "" {
		cfg.ManagerAddress = defaultManagerAddress
	}
	return &NotificationService{
		notifications: deps.NotificationRepo,
		dispatcher:    deps.Dispatcher,
		sink:          deps.Sink,
		clock:         clk,
		logger:        logger,
		metrics:       deps.Metrics,
		cfg:           cfg,
	}
}

// RegisterHandlers subscribes to ticket events. Comments and deletions
// send no notification and are only written to the activity log.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketEscalated, n.handleTicketEscalated)
	n.dispatcher.Subscribe(events.EventTicketCommentAdded, n.handleTicketCommentAdded)
	n.dispatcher.Subscribe(events.EventTicketDeleted, n.handleTicketDeleted)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	_, err := n.RecordTicketCreated(ctx, payload.Ticket)
	return err
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	_, err := n.RecordTicketUpdated(ctx, payload.Ticket, payload.OldStatus)
	return err
}

func (n *NotificationService) handleTicketEscalated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketEscalatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	_, err := n.RecordEscalation(ctx, payload.Ticket)
	return err
}

func (n *NotificationService) handleTicketCommentAdded(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCommentAddedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.logger.Info("ticket comment added",
		zap.String("ticket_id", event.TicketID),
		zap.String("comment_id", payload.CommentID),
		zap.String("author", payload.Author),
		zap.Bool("internal", payload.Internal),
		zap.String("preview", payload.BodyPreview),
	)
	return nil
}

func (n *NotificationService) handleTicketDeleted(_ context.Context, event events.Event) error {
	n.logger.Info("ticket deleted", zap.String("ticket_id", event.TicketID))
	return nil
}

// RecordTicketCreated notifies the assignee, or the support desk when
// the ticket is unassigned.
func (n *NotificationService) RecordTicketCreated(ctx context.Context, ticket domain.Ticket) (*domain.Notification, error) {
	to := n.cfg.SupportAddress
	if ticket.AssignedTo != nil && *ticket.AssignedTo != "" {
		to = *ticket.AssignedTo
	}
	subject := fmt.Sprintf("New %s Incident: %s", ticket.Priority, ticket.Title)
	return n.record(ctx, "created", to, subject, ticketCreatedBody(ticket))
}

// RecordTicketUpdated tells the reporter the ticket moved from previous
// to its current status.
func (n *NotificationService) RecordTicketUpdated(ctx context.Context, ticket domain.Ticket, previous domain.TicketStatus) (*domain.Notification, error) {
	subject := fmt.Sprintf("Ticket %s Status Updated: %s", ticket.ID, ticket.Status)
	return n.record(ctx, "updated", ticket.ReportedBy, subject, ticketUpdatedBody(ticket, previous))
}

// RecordEscalation alerts the manager that the ticket breached its SLA.
func (n *NotificationService) RecordEscalation(ctx context.Context, ticket domain.Ticket) (*domain.Notification, error) {
	subject := fmt.Sprintf("SLA Breach - Ticket %s Escalated", ticket.ID)
	body := escalationBody(ticket, n.clock.Now())
	return n.record(ctx, "escalation", n.cfg.ManagerAddress, subject, body)
}

// AcknowledgeNotification marks the notification acknowledged. It
// reports false when no notification has the id.
func (n *NotificationService) AcknowledgeNotification(ctx context.Context, id string) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	all, err := n.notifications.LoadAll(ctx)
	if err != nil {
		return false, err
	}
	for i := range all {
		if all[i].ID != id {
			continue
		}
		if all[i].Acknowledged {
			return true, nil
		}
		all[i].Acknowledged = true
		if err := n.notifications.SaveAll(ctx, all); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// GetAllNotifications returns every notification in stored order.
func (n *NotificationService) GetAllNotifications(ctx context.Context) ([]domain.Notification, error) {
	return n.notifications.LoadAll(ctx)
}

// GetRecentNotifications returns notifications sent within the last hours,
// newest first. A non-positive window means 24 hours; a window too large
// to express as a time.Duration covers every notification.
func (n *NotificationService) GetRecentNotifications(ctx context.Context, hours int) ([]domain.Notification, error) {
	if hours <= 0 {
		hours = defaultRecentWindow
	}
	all, err := n.notifications.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	var cutoff time.Time
	if int64(hours) <= maxRecentWindowHours {
		cutoff = n.clock.Now().Add(-time.Duration(hours) * time.Hour)
	}
	recent := make([]domain.Notification, 0, len(all))
	for _, item := range all {
		if item.SentAt.After(cutoff) {
			recent = append(recent, item)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].SentAt.After(recent[j].SentAt)
	})
	return recent, nil
}

// GetUnacknowledgedNotifications returns notifications not yet
// acknowledged, in stored order.
func (n *NotificationService) GetUnacknowledgedNotifications(ctx context.Context) ([]domain.Notification, error) {
	all, err := n.notifications.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]domain.Notification, 0, len(all))
	for _, item := range all {
		if !item.Acknowledged {
			pending = append(pending, item)
		}
	}
	return pending, nil
}

// record appends and persists the notification, then hands it to the
// sink. A sink failure leaves the record in place.
func (n *NotificationService) record(ctx context.Context, kind, to, subject, body string) (*domain.Notification, error) {
	item := domain.Notification{
		ID:      "EMAIL-" + shortID(),
		To:      to,
		Subject: subject,
		Body:    body,
		SentAt:  n.clock.Now(),
	}

	n.mu.Lock()
	all, err := n.notifications.LoadAll(ctx)
	if err == nil {
		err = n.notifications.SaveAll(ctx, append(all, item))
	}
	n.mu.Unlock()
	if err != nil {
		return nil, err
	}
	n.metrics.NotificationRecorded(kind)

	if n.sink == nil {
		return &item, nil
	}
	msg := notify.Message{ID: item.ID, From: n.cfg.EmailFrom, To: item.To, Subject: item.Subject, Body: item.Body, SentAt: item.SentAt}
	if err := n.sink.Send(ctx, msg); err != nil {
		n.metrics.DeliveryFailed()
		n.logger.Warn("notification delivery failed",
			zap.String("notification_id", item.ID),
			zap.String("to", item.To),
			zap.Error(err))
		return &item, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return &item, nil
}

func ticketCreatedBody(t domain.Ticket) string {
	var b strings.Builder
	b.WriteString("Dear Support Team,\n\n")
	fmt.Fprintf(&b, "A new %s incident has been created and requires your attention.\n\n", t.Priority)
	b.WriteString("Ticket Details:\n")
	fmt.Fprintf(&b, "- ID: %s\n", t.ID)
	fmt.Fprintf(&b, "- Title: %s\n", t.Title)
	fmt.Fprintf(&b, "- Priority: %s\n", t.Priority)
	fmt.Fprintf(&b, "- Reporter: %s\n", t.ReportedBy)
	fmt.Fprintf(&b, "- SLA Deadline: %s\n\n", t.SLADeadline.UTC().Format(deadlineLayout))
	fmt.Fprintf(&b, "Description:\n%s\n\n", t.Description)
	b.WriteString("Please review and take appropriate action.\n\n")
	b.WriteString("Best regards,\nIncident Management System")
	return b.String()
}

func ticketUpdatedBody(t domain.Ticket, previous domain.TicketStatus) string {
	assignee := "Unassigned"
	if t.AssignedTo != nil && *t.AssignedTo != "" {
		assignee = *t.AssignedTo
	}
	guidance := "We are continuing to work on your issue and will keep you updated."
	if t.Status == domain.TicketStatusResolved {
		guidance = "Your issue has been resolved. If you continue to experience problems, please reopen this ticket."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", t.ReportedBy)
	b.WriteString("Your ticket has been updated with a new status.\n\n")
	b.WriteString("Ticket Details:\n")
	fmt.Fprintf(&b, "- ID: %s\n", t.ID)
	fmt.Fprintf(&b, "- Title: %s\n", t.Title)
	fmt.Fprintf(&b, "- Previous Status: %s\n", previous)
	fmt.Fprintf(&b, "- Current Status: %s\n", t.Status)
	fmt.Fprintf(&b, "- Assigned To: %s\n\n", assignee)
	fmt.Fprintf(&b, "%s\n\n", guidance)
	b.WriteString("You can view the full ticket details in the support portal.\n\n")
	b.WriteString("Best regards,\nSupport Team")
	return b.String()
}

func escalationBody(t domain.Ticket, now time.Time) string {
	overdue := int(math.Round(now.Sub(t.SLADeadline).Hours()))

	var b strings.Builder
	b.WriteString("URGENT: SLA BREACH ALERT\n\n")
	fmt.Fprintf(&b, "Ticket %s has exceeded its SLA deadline and requires immediate attention.\n\n", t.ID)
	b.WriteString("Critical Details:\n")
	fmt.Fprintf(&b, "- Title: %s\n", t.Title)
	fmt.Fprintf(&b, "- Priority: %s\n", t.Priority)
	fmt.Fprintf(&b, "- Current Status: %s\n", t.Status)
	fmt.Fprintf(&b, "- SLA Deadline: %s\n", t.SLADeadline.UTC().Format(deadlineLayout))
	fmt.Fprintf(&b, "- Time Overdue: %d hours\n\n", overdue)
	b.WriteString("Immediate action is required to prevent further customer impact.\n\n")
	b.WriteString("Please review and escalate as necessary.\n\n")
	b.WriteString("Incident Management System")
	return b.String()
}
