package dto

import (
	"time"

	"github.com/spec-kit/demand-service/internal/domain"
)

// OpenTicketRequest payload.
type OpenTicketRequest struct {
	ActivityID int64  `json:"activity_id" validate:"required,gt=0"`
	Details    string `json:"details" validate:"required,max=5000"`
}

// MessageRequest carries the optional note attached to a transition.
type MessageRequest struct {
	Message string `json:"message" validate:"max=2000"`
}

// ForwardRequest payload.
type ForwardRequest struct {
	ResolverID int64  `json:"resolver_id" validate:"required,gt=0"`
	Message    string `json:"message" validate:"max=2000"`
}

// ActivitySnapshotResponse is the activity data frozen on a ticket.
type ActivitySnapshotResponse struct {
	ID               int64                   `json:"id"`
	Name             string                  `json:"name"`
	Distribution     domain.DistributionMode `json:"distribution"`
	Priority         domain.Priority         `json:"priority"`
	EstimatedMinutes uint32                  `json:"estimated_minutes"`
}

// AuditEventResponse is one entry of the ticket trail.
type AuditEventResponse struct {
	ID         int64               `json:"id"`
	ResolverID *int64              `json:"resolver_id"`
	Status     domain.TicketStatus `json:"status"`
	StartedAt  time.Time           `json:"started_at"`
	EndedAt    *time.Time          `json:"ended_at"`
	Message    *string             `json:"message"`
}

// TicketResponse provides full ticket info.
type TicketResponse struct {
	ID                  int64                    `json:"id"`
	Activity            ActivitySnapshotResponse `json:"activity"`
	RequesterID         int64                    `json:"requester_id"`
	RequesterDepartment string                   `json:"requester_department"`
	ResolverDepartment  string                   `json:"resolver_department"`
	ResolverID          *int64                   `json:"resolver_id"`
	Status              domain.TicketStatus      `json:"status"`
	Details             string                   `json:"details"`
	OpenedAt            time.Time                `json:"opened_at"`
	Deadline            time.Time                `json:"deadline"`
	ClosedAt            *time.Time               `json:"closed_at"`
	ReopenedFromID      *int64                   `json:"reopened_from_id"`
	Version             int64                    `json:"version"`
	Events              []AuditEventResponse     `json:"events,omitempty"`
}
