package domain

import "time"

// AuditEvent is one state-occupancy interval of a ticket. An event with a
// nil EndedAt is the open interval.
type AuditEvent struct {
	ID         int64
	TicketID   int64
	ResolverID *int64
	Status     TicketStatus
	StartedAt  time.Time
	EndedAt    *time.Time
	Message    *string
}

// Open reports whether the interval is still running.
func (e AuditEvent) Open() bool {
	return e.EndedAt == nil
}
