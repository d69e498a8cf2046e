package domain

import "time"

// Notification records an email that was sent on behalf of the tracker.
type Notification struct {
	ID           string
	To           string
	Subject      string
	Body         string
	SentAt       time.Time
	Acknowledged bool
}
