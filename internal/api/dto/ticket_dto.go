package dto

import (
	"time"

	"github.com/spec-kit/incident-tracker/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	AssignedTo  *string               `json:"assigned_to"`
	ReportedBy  string                `json:"reported_by"`
	Category    string                `json:"category"`
	Tags        []string              `json:"tags"`
}

// UpdateTicketRequest carries a partial update; absent fields are kept.
type UpdateTicketRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Priority    *domain.TicketPriority `json:"priority"`
	Status      *domain.TicketStatus   `json:"status"`
	AssignedTo  *string                `json:"assigned_to"`
	ReportedBy  *string                `json:"reported_by"`
	Category    *string                `json:"category"`
	Tags        *[]string              `json:"tags"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Author   string `json:"author"`
	Content  string `json:"content"`
	Internal bool   `json:"internal"`
}

// TicketResponse is the full ticket view.
type TicketResponse struct {
	ID          string                `json:"id" yaml:"id"`
	Title       string                `json:"title" yaml:"title"`
	Description string                `json:"description" yaml:"description"`
	Priority    domain.TicketPriority `json:"priority" yaml:"priority"`
	Status      domain.TicketStatus   `json:"status" yaml:"status"`
	AssignedTo  *string               `json:"assigned_to" yaml:"assigned_to"`
	ReportedBy  string                `json:"reported_by" yaml:"reported_by"`
	CreatedAt   time.Time             `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at" yaml:"updated_at"`
	ResolvedAt  *time.Time            `json:"resolved_at" yaml:"resolved_at"`
	Category    string                `json:"category" yaml:"category"`
	Tags        []string              `json:"tags" yaml:"tags"`
	SLADeadline time.Time             `json:"sla_deadline" yaml:"sla_deadline"`
	Escalated   bool                  `json:"escalated" yaml:"escalated"`
	Overdue     bool                  `json:"overdue" yaml:"overdue"`
	Comments    []CommentResponse     `json:"comments" yaml:"comments"`
}

// CommentResponse represents a ticket comment.
type CommentResponse struct {
	ID        string    `json:"id" yaml:"id"`
	TicketID  string    `json:"ticket_id" yaml:"ticket_id"`
	Author    string    `json:"author" yaml:"author"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Internal  bool      `json:"internal" yaml:"internal"`
}

// TicketStatsResponse summarizes the collection.
type TicketStatsResponse struct {
	Total      int            `json:"total" yaml:"total"`
	Open       int            `json:"open" yaml:"open"`
	InProgress int            `json:"in_progress" yaml:"in_progress"`
	Resolved   int            `json:"resolved" yaml:"resolved"`
	Closed     int            `json:"closed" yaml:"closed"`
	Overdue    int            `json:"overdue" yaml:"overdue"`
	Escalated  int            `json:"escalated" yaml:"escalated"`
	ByPriority map[string]int `json:"by_priority" yaml:"by_priority"`
}

// NotificationResponse represents a recorded notification.
type NotificationResponse struct {
	ID           string    `json:"id" yaml:"id"`
	To           string    `json:"to" yaml:"to"`
	Subject      string    `json:"subject" yaml:"subject"`
	Body         string    `json:"body" yaml:"body"`
	SentAt       time.Time `json:"sent_at" yaml:"sent_at"`
	Acknowledged bool      `json:"acknowledged" yaml:"acknowledged"`
}

// NewTicketResponse maps a ticket; now decides the overdue flag.
func NewTicketResponse(t *domain.Ticket, now time.Time) TicketResponse {
	comments := make([]CommentResponse, 0, len(t.Comments))
	for _, c := range t.Comments {
		comments = append(comments, NewCommentResponse(&c))
	}
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return TicketResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		AssignedTo:  t.AssignedTo,
		ReportedBy:  t.ReportedBy,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		ResolvedAt:  t.ResolvedAt,
		Category:    t.Category,
		Tags:        tags,
		SLADeadline: t.SLADeadline,
		Escalated:   t.Escalated,
		Overdue:     t.Overdue(now),
		Comments:    comments,
	}
}

// NewTicketResponses maps a slice of tickets.
func NewTicketResponses(tickets []domain.Ticket, now time.Time) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i], now))
	}
	return out
}

func NewCommentResponse(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		TicketID:  c.TicketID,
		Author:    c.Author,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		Internal:  c.Internal,
	}
}

func NewTicketStatsResponse(s *domain.TicketStats) TicketStatsResponse {
	byPriority := make(map[string]int, len(s.ByPriority))
	for p, n := range s.ByPriority {
		byPriority[string(p)] = n
	}
	return TicketStatsResponse{
		Total:      s.Total,
		Open:       s.Open,
		InProgress: s.InProgress,
		Resolved:   s.Resolved,
		Closed:     s.Closed,
		Overdue:    s.Overdue,
		Escalated:  s.Escalated,
		ByPriority: byPriority,
	}
}

// NewNotificationResponses maps notifications.
func NewNotificationResponses(items []domain.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, NotificationResponse{
			ID:           n.ID,
			To:           n.To,
			Subject:      n.Subject,
			Body:         n.Body,
			SentAt:       n.SentAt,
			Acknowledged: n.Acknowledged,
		})
	}
	return out
}
