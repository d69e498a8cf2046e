package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-tracker/internal/clock"
	"github.com/spec-kit/incident-tracker/internal/domain"
	"github.com/spec-kit/incident-tracker/internal/events"
	"github.com/spec-kit/incident-tracker/internal/observability"
	"github.com/spec-kit/incident-tracker/internal/repository"
)

// ErrTicketNotFound is returned when no ticket has the requested id.
var ErrTicketNotFound = errors.New("ticket not found")

// TicketService owns the ticket collection. Every mutation reads the
// whole collection, applies the change and writes it back under mu.
type TicketService struct {
	mu         sync.Mutex
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	clock      clock.Clock
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Clock      clock.Clock
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	Status      domain.TicketStatus
	AssignedTo  *string
	ReportedBy  string
	Category    string
	Tags        []string
}

// TicketPatch lists the fields an update may replace. Nil fields are
// left untouched; an empty AssignedTo clears the assignee.
type TicketPatch struct {
	Title       *string
	Description *string
	Priority    *domain.TicketPriority
	Status      *domain.TicketStatus
	AssignedTo  *string
	ReportedBy  *string
	Category    *string
	Tags        []string
}

// CommentInput describes a new comment.
type CommentInput struct {
	Author   string
	Content  string
	Internal bool
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		clock:      clk,
		logger:     logger,
		metrics:    deps.Metrics,
	}
}

// CreateTicket stores a new ticket with its SLA deadline fixed from the
// priority at creation time.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	s.mu.Lock()
	all, err := s.tickets.LoadAll(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	ticket := s.newTicket(all, input)
	if err := s.tickets.SaveAll(ctx, append(all, ticket)); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	s.ticketCreated(ctx, ticket)
	return &ticket, nil
}

// newTicket builds a ticket from input, applying the priority and status
// defaults. existing is only consulted for id collisions.
func (s *TicketService) newTicket(existing []domain.Ticket, input TicketCreateInput) domain.Ticket {
	now := s.clock.Now()
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityP3
	}
	status := input.Status
	if status == "" {
		status = domain.TicketStatusOpen
	}
	ticket := domain.Ticket{
		ID:          newTicketID(existing),
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Priority:    priority,
		Status:      status,
		AssignedTo:  normalizeAssignee(input.AssignedTo),
		ReportedBy:  strings.TrimSpace(input.ReportedBy),
		CreatedAt:   now,
		UpdatedAt:   now,
		Category:    input.Category,
		Tags:        normalizeTags(input.Tags),
		SLADeadline: domain.SLADeadline(priority, now),
		Comments:    []domain.Comment{},
	}
	if status == domain.TicketStatusResolved {
		ticket.ResolvedAt = &now
	}
	return ticket
}

// ticketCreated runs after a creation has been persisted and the lock
// released.
func (s *TicketService) ticketCreated(ctx context.Context, ticket domain.Ticket) {
	s.metrics.TicketCreated()
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload:  events.TicketCreatedPayload{Ticket: ticket.Clone()},
	})
}

// GetAllTickets returns every ticket in stored order.
func (s *TicketService) GetAllTickets(ctx context.Context) ([]domain.Ticket, error) {
	return s.tickets.LoadAll(ctx)
}

// GetTicketByID returns the ticket or ErrTicketNotFound.
func (s *TicketService) GetTicketByID(ctx context.Context, id string) (*domain.Ticket, error) {
	all, err := s.tickets.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	idx := indexOf(all, id)
	if idx < 0 {
		return nil, ErrTicketNotFound
	}
	ticket := all[idx]
	return &ticket, nil
}

// UpdateTicket merges patch over the ticket and refreshes updatedAt. The
// first time the merged status is Resolved, resolvedAt is stamped and
// never cleared afterwards.
func (s *TicketService) UpdateTicket(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error) {
	var oldStatus domain.TicketStatus
	updated, err := s.mutate(ctx, id, func(t *domain.Ticket) {
		oldStatus = t.Status
		applyPatch(t, patch)
	})
	if err != nil {
		return nil, err
	}

	if updated.Status != oldStatus {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: updated.ID,
			Payload: events.TicketStatusChangedPayload{
				Ticket:    updated.Clone(),
				OldStatus: oldStatus,
				NewStatus: updated.Status,
			},
		})
	}
	return updated, nil
}

// DeleteTicket removes the ticket and its comments. It reports false when
// no ticket had the id, leaving the collection untouched.
func (s *TicketService) DeleteTicket(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	all, err := s.tickets.LoadAll(ctx)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	idx := indexOf(all, id)
	if idx < 0 {
		s.mu.Unlock()
		return false, nil
	}
	remaining := append(all[:idx:idx], all[idx+1:]...)
	if err := s.tickets.SaveAll(ctx, remaining); err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.mu.Unlock()

	s.metrics.TicketDeleted()
	s.publishEvent(ctx, events.Event{Type: events.EventTicketDeleted, TicketID: id})
	return true, nil
}

// AddComment appends a comment to the ticket through the update path.
func (s *TicketService) AddComment(ctx context.Context, ticketID string, input CommentInput) (*domain.Comment, error) {
	var comment domain.Comment
	_, err := s.mutate(ctx, ticketID, func(t *domain.Ticket) {
		comment = domain.Comment{
			ID:        newCommentID(),
			TicketID:  t.ID,
			Author:    strings.TrimSpace(input.Author),
			Content:   input.Content,
			CreatedAt: s.clock.Now(),
			Internal:  input.Internal,
		}
		t.Comments = append(t.Comments, comment)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticketID,
		Payload: events.TicketCommentAddedPayload{
			CommentID:   comment.ID,
			Author:      comment.Author,
			Internal:    comment.Internal,
			BodyPreview: preview(comment.Content, 80),
		},
	})
	return &comment, nil
}

// CheckForEscalations flags every active, unflagged ticket whose SLA
// deadline has passed and returns only the tickets flagged by this call.
// Each flag is persisted before the next ticket is examined, so a
// storage failure keeps earlier escalations and returns them with the
// error.
func (s *TicketService) CheckForEscalations(ctx context.Context) ([]domain.Ticket, error) {
	s.mu.Lock()
	all, err := s.tickets.LoadAll(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	now := s.clock.Now()
	escalated := []domain.Ticket{}
	var saveErr error
	for i := range all {
		t := &all[i]
		if t.Escalated || !t.Overdue(now) {
			continue
		}
		t.Escalated = true
		t.UpdatedAt = now
		if err := s.tickets.SaveAll(ctx, all); err != nil {
			saveErr = fmt.Errorf("escalate %s: %w", t.ID, err)
			break
		}
		escalated = append(escalated, t.Clone())
	}
	s.mu.Unlock()

	if len(escalated) > 0 {
		s.metrics.TicketsEscalated(len(escalated))
		s.logger.Warn("tickets escalated", zap.Int("count", len(escalated)))
	}
	for _, t := range escalated {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketEscalated,
			TicketID: t.ID,
			Payload:  events.TicketEscalatedPayload{Ticket: t.Clone()},
		})
	}
	return escalated, saveErr
}

// GetTicketStats derives dashboard counts. Overdue counts active tickets
// past their deadline whether or not they have been flagged.
func (s *TicketService) GetTicketStats(ctx context.Context) (*domain.TicketStats, error) {
	all, err := s.tickets.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	stats := domain.TicketStats{
		Total:      len(all),
		ByPriority: make(map[domain.TicketPriority]int, len(domain.TicketPriorities)),
	}
	for _, p := range domain.TicketPriorities {
		stats.ByPriority[p] = 0
	}
	for i := range all {
		t := &all[i]
		switch t.Status {
		case domain.TicketStatusOpen:
			stats.Open++
		case domain.TicketStatusInProgress:
			stats.InProgress++
		case domain.TicketStatusResolved:
			stats.Resolved++
		case domain.TicketStatusClosed:
			stats.Closed++
		}
		if t.Overdue(now) {
			stats.Overdue++
		}
		if t.Escalated {
			stats.Escalated++
		}
		if t.Priority.Valid() {
			stats.ByPriority[t.Priority]++
		}
	}
	return &stats, nil
}

// mutate applies fn to the ticket under the service lock, refreshes
// updatedAt, stamps resolvedAt on first resolution and persists.
func (s *TicketService) mutate(ctx context.Context, id string, fn func(*domain.Ticket)) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.tickets.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	idx := indexOf(all, id)
	if idx < 0 {
		return nil, ErrTicketNotFound
	}

	now := s.clock.Now()
	t := &all[idx]
	fn(t)
	t.UpdatedAt = now
	if t.Status == domain.TicketStatusResolved && t.ResolvedAt == nil {
		resolved := now
		t.ResolvedAt = &resolved
	}

	if err := s.tickets.SaveAll(ctx, all); err != nil {
		return nil, err
	}
	updated := t.Clone()
	return &updated, nil
}

func applyPatch(t *domain.Ticket, patch TicketPatch) {
	if patch.Title != nil {
		t.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		t.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.AssignedTo != nil {
		t.AssignedTo = normalizeAssignee(patch.AssignedTo)
	}
	if patch.ReportedBy != nil {
		t.ReportedBy = strings.TrimSpace(*patch.ReportedBy)
	}
	if patch.Category != nil {
		t.Category = *patch.Category
	}
	if patch.Tags != nil {
		t.Tags = normalizeTags(patch.Tags)
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func indexOf(tickets []domain.Ticket, id string) int {
	for i := range tickets {
		if tickets[i].ID == id {
			return i
		}
	}
	return -1
}

func newTicketID(existing []domain.Ticket) string {
	for {
		id := "INC-" + shortID()
		if indexOf(existing, id) < 0 {
			return id
		}
	}
}

func newCommentID() string {
	return "CMT-" + shortID()
}

func shortID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

func normalizeAssignee(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
