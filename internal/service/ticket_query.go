package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spec-kit/incident-tracker/internal/domain"
)

// TicketSortField names a sortable ticket column.
type TicketSortField string

const (
	SortByCreatedAt   TicketSortField = "createdAt"
	SortByPriority    TicketSortField = "priority"
	SortByStatus      TicketSortField = "status"
	SortByTitle       TicketSortField = "title"
	SortBySLADeadline TicketSortField = "slaDeadline"
)

// SortOrder is asc or desc.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// TicketFilter narrows and orders a ticket listing. Zero values mean no
// filtering, newest first.
type TicketFilter struct {
	Search     string
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	SortBy     TicketSortField
	Order      SortOrder
}

// Validate rejects unknown sort fields and directions.
func (f TicketFilter) Validate() error {
	switch f.SortBy {
	case "", SortByCreatedAt, SortByPriority, SortByStatus, SortByTitle, SortBySLADeadline:
	default:
		return fmt.Errorf("unknown sort field %q", f.SortBy)
	}
	switch f.Order {
	case "", SortAsc, SortDesc:
	default:
		return fmt.Errorf("unknown sort order %q", f.Order)
	}
	return nil
}

// ListTickets returns the tickets matching filter in the requested order.
// Search is a case-insensitive substring match over title, description,
// id and reporter.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	all, err := s.tickets.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	term := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]domain.Ticket, 0, len(all))
	for _, t := range all {
		if !matchesSearch(t, term) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, t.Priority) {
			continue
		}
		out = append(out, t)
	}

	less := ticketLess(filter.SortBy)
	desc := filter.Order != SortAsc
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out, nil
}

func ticketLess(field TicketSortField) func(a, b domain.Ticket) bool {
	switch field {
	case SortByPriority:
		return func(a, b domain.Ticket) bool { return a.Priority.Rank() < b.Priority.Rank() }
	case SortByStatus:
		return func(a, b domain.Ticket) bool { return a.Status < b.Status }
	case SortByTitle:
		return func(a, b domain.Ticket) bool { return a.Title < b.Title }
	case SortBySLADeadline:
		return func(a, b domain.Ticket) bool { return a.SLADeadline.Before(b.SLADeadline) }
	default:
		return func(a, b domain.Ticket) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}

func matchesSearch(t domain.Ticket, term string) bool {
	if term == "" {
		return true
	}
	for _, field := range []string{t.Title, t.Description, t.ID, t.ReportedBy} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, p domain.TicketPriority) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}
