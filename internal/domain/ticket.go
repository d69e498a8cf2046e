package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusClosed     TicketStatus = "Closed"
)

// TicketStatuses lists every status in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, known := range TicketStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Active reports whether the ticket is still being worked and so is
// subject to SLA tracking.
func (s TicketStatus) Active() bool {
	return s != TicketStatusResolved && s != TicketStatusClosed
}

// TicketPriority enumerates SLA urgency, P1 being the most urgent.
type TicketPriority string

const (
	TicketPriorityP1 TicketPriority = "P1"
	TicketPriorityP2 TicketPriority = "P2"
	TicketPriorityP3 TicketPriority = "P3"
	TicketPriorityP4 TicketPriority = "P4"
)

// TicketPriorities lists every priority from most to least urgent.
var TicketPriorities = []TicketPriority{
	TicketPriorityP1,
	TicketPriorityP2,
	TicketPriorityP3,
	TicketPriorityP4,
}

// SLAHours maps each priority to its resolution window in hours.
var SLAHours = map[TicketPriority]int{
	TicketPriorityP1: 4,
	TicketPriorityP2: 24,
	TicketPriorityP3: 72,
	TicketPriorityP4: 168,
}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	_, ok := SLAHours[p]
	return ok
}

// Rank orders priorities for sorting; P1 ranks highest. Unknown
// priorities rank zero.
func (p TicketPriority) Rank() int {
	for i, known := range TicketPriorities {
		if p == known {
			return len(TicketPriorities) - i
		}
	}
	return 0
}

// SLAWindow returns the resolution window for p. Unknown priorities get
// a zero window.
func (p TicketPriority) SLAWindow() time.Duration {
	return time.Duration(SLAHours[p]) * time.Hour
}

// SLADeadline computes the fixed deadline for a ticket created at createdAt.
func SLADeadline(p TicketPriority, createdAt time.Time) time.Time {
	return createdAt.Add(p.SLAWindow())
}

// Ticket is the aggregate for incident reports.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Priority    TicketPriority
	Status      TicketStatus
	AssignedTo  *string
	ReportedBy  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ResolvedAt  *time.Time
	Category    string
	Tags        []string
	SLADeadline time.Time
	Escalated   bool
	Comments    []Comment
}

// Overdue reports whether the ticket is active and past its deadline at now.
func (t *Ticket) Overdue(now time.Time) bool {
	return t.Status.Active() && now.After(t.SLADeadline)
}

// Clone returns a deep copy so callers never share slices with the store.
func (t Ticket) Clone() Ticket {
	out := t
	if t.AssignedTo != nil {
		v := *t.AssignedTo
		out.AssignedTo = &v
	}
	if t.ResolvedAt != nil {
		v := *t.ResolvedAt
		out.ResolvedAt = &v
	}
	if t.Tags != nil {
		out.Tags = append([]string{}, t.Tags...)
	}
	out.Comments = append([]Comment{}, t.Comments...)
	return out
}

// TicketStats is the derived dashboard summary.
type TicketStats struct {
	Total      int
	Open       int
	InProgress int
	Resolved   int
	Closed     int
	Overdue    int
	Escalated  int
	ByPriority map[TicketPriority]int
}
