package domain

import "time"

// Comment is an immutable entry in a ticket thread. Internal comments
// are staff-only notes.
type Comment struct {
	ID        string
	TicketID  string
	Author    string
	Content   string
	CreatedAt time.Time
	Internal  bool
}
