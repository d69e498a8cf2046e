package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-tracker/internal/domain"
	"github.com/spec-kit/incident-tracker/internal/persistence"
)

// TicketRepository loads and stores the whole ticket collection.
type TicketRepository interface {
	LoadAll(ctx context.Context) ([]domain.Ticket, error)
	SaveAll(ctx context.Context, tickets []domain.Ticket) error
}

type ticketRecord struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    string          `json:"priority"`
	Status      string          `json:"status"`
	AssignedTo  *string         `json:"assignedTo,omitempty"`
	ReportedBy  string          `json:"reportedBy"`
	CreatedAt   string          `json:"createdAt"`
	UpdatedAt   string          `json:"updatedAt"`
	ResolvedAt  *string         `json:"resolvedAt,omitempty"`
	Category    string          `json:"category"`
	Tags        []string        `json:"tags"`
	SLADeadline string          `json:"slaDeadline"`
	Escalated   bool            `json:"escalated"`
	Comments    []commentRecord `json:"comments"`
}

type commentRecord struct {
	ID        string `json:"id"`
	TicketID  string `json:"ticketId"`
	Author    string `json:"author"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
	Internal  bool   `json:"internal"`
}

type ticketRepository struct {
	store  persistence.CollectionStore
	logger *zap.Logger
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(store persistence.CollectionStore, logger *zap.Logger) TicketRepository {
	return &ticketRepository{store: store, logger: logger}
}

func (r *ticketRepository) LoadAll(ctx context.Context) ([]domain.Ticket, error) {
	payload, err := r.store.Load(ctx, persistence.TicketsCollection)
	if err != nil {
		return nil, fmt.Errorf("load tickets: %w", err)
	}
	records, ok := decodeDocument[ticketRecord](payload)
	if !ok {
		r.logger.Warn("malformed ticket collection; treating as empty",
			zap.String("collection", persistence.TicketsCollection))
		return []domain.Ticket{}, nil
	}
	tickets := make([]domain.Ticket, 0, len(records))
	for _, rec := range records {
		ticket, err := rec.toDomain()
		if err != nil {
			return nil, fmt.Errorf("ticket %s: %w", rec.ID, err)
		}
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}

func (r *ticketRepository) SaveAll(ctx context.Context, tickets []domain.Ticket) error {
	records := make([]ticketRecord, 0, len(tickets))
	for i := range tickets {
		records = append(records, ticketToRecord(&tickets[i]))
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return err
	}
	if err := r.store.Save(ctx, persistence.TicketsCollection, payload); err != nil {
		return fmt.Errorf("save tickets: %w", err)
	}
	return nil
}

func ticketToRecord(t *domain.Ticket) ticketRecord {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	comments := make([]commentRecord, 0, len(t.Comments))
	for _, c := range t.Comments {
		comments = append(comments, commentRecord{
			ID:        c.ID,
			TicketID:  c.TicketID,
			Author:    c.Author,
			Content:   c.Content,
			CreatedAt: formatTime(c.CreatedAt),
			Internal:  c.Internal,
		})
	}
	return ticketRecord{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		AssignedTo:  t.AssignedTo,
		ReportedBy:  t.ReportedBy,
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
		ResolvedAt:  formatOptionalTime(t.ResolvedAt),
		Category:    t.Category,
		Tags:        tags,
		SLADeadline: formatTime(t.SLADeadline),
		Escalated:   t.Escalated,
		Comments:    comments,
	}
}

func (rec ticketRecord) toDomain() (domain.Ticket, error) {
	createdAt, err := parseTime("createdAt", rec.CreatedAt)
	if err != nil {
		return domain.Ticket{}, err
	}
	updatedAt, err := parseTime("updatedAt", rec.UpdatedAt)
	if err != nil {
		return domain.Ticket{}, err
	}
	deadline, err := parseTime("slaDeadline", rec.SLADeadline)
	if err != nil {
		return domain.Ticket{}, err
	}
	resolvedAt, err := parseOptionalTime("resolvedAt", rec.ResolvedAt)
	if err != nil {
		return domain.Ticket{}, err
	}
	comments := make([]domain.Comment, 0, len(rec.Comments))
	for _, c := range rec.Comments {
		commentAt, err := parseTime("comments.createdAt", c.CreatedAt)
		if err != nil {
			return domain.Ticket{}, err
		}
		comments = append(comments, domain.Comment{
			ID:        c.ID,
			TicketID:  c.TicketID,
			Author:    c.Author,
			Content:   c.Content,
			CreatedAt: commentAt,
			Internal:  c.Internal,
		})
	}
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	return domain.Ticket{
		ID:          rec.ID,
		Title:       rec.Title,
		Description: rec.Description,
		Priority:    domain.TicketPriority(rec.Priority),
		Status:      domain.TicketStatus(rec.Status),
		AssignedTo:  rec.AssignedTo,
		ReportedBy:  rec.ReportedBy,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		ResolvedAt:  resolvedAt,
		Category:    rec.Category,
		Tags:        tags,
		SLADeadline: deadline,
		Escalated:   rec.Escalated,
		Comments:    comments,
	}, nil
}
