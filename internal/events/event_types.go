package events

import (
	"time"

	"github.com/spec-kit/demand-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketOpened       EventType = "ticket_opened"
	EventTicketTransitioned EventType = "ticket_transitioned"
	EventTicketAssigned     EventType = "ticket_assigned"
	EventTicketReopened     EventType = "ticket_reopened"
)

// Actor identifies who triggered an event. A nil UserID means the system
// (automatic assignment).
type Actor struct {
	UserID       *int64 `json:"user_id,omitempty"`
	EmployeeCode string `json:"employee_code,omitempty"`
}

// ActorFor builds the actor of an event raised on behalf of u.
func ActorFor(u domain.User) Actor {
	id := u.ID
	return Actor{UserID: &id, EmployeeCode: u.EmployeeCode}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  int64     `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketOpenedPayload payload.
type TicketOpenedPayload struct {
	ActivityID         int64                   `json:"activity_id"`
	ResolverDepartment string                  `json:"resolver_department"`
	Distribution       domain.DistributionMode `json:"distribution"`
	Priority           domain.Priority         `json:"priority"`
	Deadline           time.Time               `json:"deadline"`
}

// TicketTransitionedPayload payload.
type TicketTransitionedPayload struct {
	Action     string              `json:"action"`
	OldStatus  domain.TicketStatus `json:"old_status"`
	NewStatus  domain.TicketStatus `json:"new_status"`
	ResolverID *int64              `json:"resolver_id,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	ResolverID int64 `json:"resolver_id"`
	Automatic  bool  `json:"automatic"`
}

// TicketReopenedPayload payload.
type TicketReopenedPayload struct {
	OriginalTicketID int64 `json:"original_ticket_id"`
}
