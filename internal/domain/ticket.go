package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets. Forwarded, captured
// and rejected only ever label a closed audit event.
type TicketStatus string

const (
	StatusAwaitingDistribution TicketStatus = "AWAITING_DISTRIBUTION"
	StatusInProgress           TicketStatus = "IN_PROGRESS"
	StatusForwardedBySolver    TicketStatus = "FORWARDED_BY_SOLVER"
	StatusForwardedByManager   TicketStatus = "FORWARDED_BY_MANAGER"
	StatusCaptured             TicketStatus = "CAPTURED"
	StatusRejected             TicketStatus = "REJECTED"
	StatusResponded            TicketStatus = "RESPONDED"
	StatusCancelledByRequester TicketStatus = "CANCELLED_BY_REQUESTER"
	StatusCancelledBySolver    TicketStatus = "CANCELLED_BY_SOLVER"
	StatusCancelledByManager   TicketStatus = "CANCELLED_BY_MANAGER"
)

// ActiveStatuses lists the statuses in which a ticket can still be worked.
var ActiveStatuses = []TicketStatus{StatusAwaitingDistribution, StatusInProgress}

// Active reports whether s is awaiting distribution or in progress.
func (s TicketStatus) Active() bool {
	return s == StatusAwaitingDistribution || s == StatusInProgress
}

// Closed reports whether s carries a closed-at timestamp.
func (s TicketStatus) Closed() bool {
	switch s {
	case StatusResponded, StatusCancelledByRequester, StatusCancelledBySolver, StatusCancelledByManager:
		return true
	}
	return false
}

// now is replaced in tests.
var now = func() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// ActivitySnapshot holds the activity fields a ticket freezes at open time.
type ActivitySnapshot struct {
	ID                 int64
	Name               string
	ResolverDepartment string
	Distribution       DistributionMode
	Priority           Priority
	EstimatedMinutes   uint32
}

// Ticket is the aggregate for a demand raised against an activity.
type Ticket struct {
	ID                  int64
	Activity            ActivitySnapshot
	RequesterID         int64
	RequesterDepartment string
	ResolverDepartment  string
	ResolverID          *int64
	OpenedAt            time.Time
	Deadline            time.Time
	ClosedAt            *time.Time
	Details             string
	Status              TicketStatus
	Events              []AuditEvent
	ReopenedFromID      *int64
	Version             int64
}

// OpenTicket creates a ticket awaiting distribution with one open audit event.
func OpenTicket(activity ActivitySnapshot, requester User, details string) *Ticket {
	return openTicket(activity, requester, details, nil)
}

func openTicket(activity ActivitySnapshot, requester User, details string, reopenedFrom *int64) *Ticket {
	openedAt := now()
	t := &Ticket{
		Activity:            activity,
		RequesterID:         requester.ID,
		RequesterDepartment: requester.Department,
		ResolverDepartment:  activity.ResolverDepartment,
		OpenedAt:            openedAt,
		Deadline:            openedAt.Add(time.Duration(activity.EstimatedMinutes) * time.Minute),
		Details:             details,
		Status:              StatusAwaitingDistribution,
		ReopenedFromID:      reopenedFrom,
	}
	t.startEvent(openedAt)
	return t
}

// IsResolver reports whether u is the current resolver.
func (t *Ticket) IsResolver(u User) bool {
	return t.ResolverID != nil && *t.ResolverID == u.ID
}

func (t *Ticket) isResolverManager(u User) bool {
	return u.ManagesDepartment(t.ResolverDepartment)
}

// CurrentEvent returns the open audit event, if any.
func (t *Ticket) CurrentEvent() (*AuditEvent, bool) {
	for i := len(t.Events) - 1; i >= 0; i-- {
		if t.Events[i].Open() {
			return &t.Events[i], true
		}
	}
	return nil, false
}

func (t *Ticket) startEvent(at time.Time) {
	t.Events = append(t.Events, AuditEvent{
		TicketID:   t.ID,
		ResolverID: copyID(t.ResolverID),
		Status:     t.Status,
		StartedAt:  at,
	})
}

// closeEvent relabels the open event with the current status and ends it.
func (t *Ticket) closeEvent(at time.Time, message string) {
	ev, ok := t.CurrentEvent()
	if !ok {
		return
	}
	ev.Status = t.Status
	ev.EndedAt = &at
	ev.Message = &message
}

func (t *Ticket) setResolver(u *User) {
	if u == nil {
		t.ResolverID = nil
		return
	}
	id := u.ID
	t.ResolverID = &id
}

func (t *Ticket) requireActive() error {
	if !t.Status.Active() {
		return ErrNotActive
	}
	return nil
}

func (t *Ticket) requireRespondedOrCancelled() error {
	if t.Status == StatusCancelledByRequester {
		return ErrClosedByRequester
	}
	switch t.Status {
	case StatusResponded, StatusCancelledBySolver, StatusCancelledByManager:
		return nil
	}
	return ErrNotRespondedOrCancelled
}

// AssignResolver hands an undistributed ticket to resolver. It returns false
// and leaves the ticket untouched in any other state.
func (t *Ticket) AssignResolver(resolver User) bool {
	if t.Status != StatusAwaitingDistribution {
		return false
	}
	at := now()
	t.closeEvent(at, fmt.Sprintf("Resolver assigned: %s.", resolver.label()))
	t.setResolver(&resolver)
	t.Status = StatusInProgress
	t.startEvent(at)
	return true
}

// Forward moves the ticket to newResolver on behalf of actor.
func (t *Ticket) Forward(actor, newResolver User, message string) error {
	if err := t.requireActive(); err != nil {
		return err
	}
	byResolver := t.IsResolver(actor)
	byManager := t.isResolverManager(actor)
	if !byResolver && !byManager {
		return ErrNotAuthorizedToForward
	}
	if t.IsResolver(newResolver) {
		return ErrAlreadyResolver
	}

	at := now()
	t.Status = StatusForwardedBySolver
	text := fmt.Sprintf("Ticket forwarded to %s.", newResolver.label())
	if byManager && !byResolver {
		t.Status = StatusForwardedByManager
		text += fmt.Sprintf(" Manager responsible for the action: %s. ", actor.label())
	} else {
		text += " "
	}
	t.closeEvent(at, text+message)
	t.setResolver(&newResolver)
	t.Status = StatusInProgress
	t.startEvent(at)
	return nil
}

// Capture lets a member of the resolver department take the ticket.
func (t *Ticket) Capture(newResolver User) error {
	if err := t.requireActive(); err != nil {
		return err
	}
	if t.IsResolver(newResolver) {
		return ErrAlreadyResolver
	}
	if newResolver.Department != t.ResolverDepartment {
		return ErrNotAuthorizedToCapture
	}

	at := now()
	t.Status = StatusCaptured
	t.closeEvent(at, fmt.Sprintf("Ticket captured by %s.", newResolver.label()))
	t.setResolver(&newResolver)
	t.Status = StatusInProgress
	t.startEvent(at)
	return nil
}

// Reject returns the ticket to distribution. Only the resolver may reject.
func (t *Ticket) Reject(actor User, message string) error {
	if err := t.requireActive(); err != nil {
		return err
	}
	if !t.IsResolver(actor) {
		return ErrNotAuthorizedToReject
	}

	at := now()
	t.Status = StatusRejected
	t.closeEvent(at, message)
	t.setResolver(nil)
	t.Status = StatusAwaitingDistribution
	t.startEvent(at)
	return nil
}

// Respond closes an in-progress ticket with the resolver's answer.
func (t *Ticket) Respond(actor User, message string) error {
	if t.Status != StatusInProgress {
		return ErrNotInProgress
	}
	if !t.IsResolver(actor) {
		return ErrNotAuthorizedToRespond
	}

	at := now()
	t.ClosedAt = &at
	t.Status = StatusResponded
	t.closeEvent(at, message)
	return nil
}

// Cancel closes an active ticket. The resulting status records who cancelled,
// checked as requester, then resolver, then resolver department manager.
func (t *Ticket) Cancel(actor User, message string) error {
	if err := t.requireActive(); err != nil {
		return err
	}
	var status TicketStatus
	switch {
	case actor.ID == t.RequesterID:
		status = StatusCancelledByRequester
	case t.IsResolver(actor):
		status = StatusCancelledBySolver
	case t.isResolverManager(actor):
		status = StatusCancelledByManager
	default:
		return ErrNotAuthorizedToCancel
	}

	at := now()
	t.ClosedAt = &at
	t.Status = status
	t.closeEvent(at, message)
	return nil
}

// Reopen opens a new ticket for the same activity. The receiver is not
// modified.
func (t *Ticket) Reopen(requester User, message string) (*Ticket, error) {
	if err := t.requireRespondedOrCancelled(); err != nil {
		return nil, err
	}
	if requester.Department != t.RequesterDepartment {
		return nil, ErrNotAuthorizedToReopen
	}

	details := fmt.Sprintf(
		"This ticket reopens ticket %d. Reason for reopening: %s. Details of the reopened ticket: %s.",
		t.ID, message, t.Details,
	)
	origin := t.ID
	return openTicket(t.Activity, requester, details, &origin), nil
}

// Reactivate undoes a response or a cancellation on the same ticket.
func (t *Ticket) Reactivate(actor User, message string) error {
	if err := t.requireRespondedOrCancelled(); err != nil {
		return err
	}
	if !t.IsResolver(actor) && !t.isResolverManager(actor) {
		return ErrNotAuthorizedToReactivate
	}

	action := "Cancellation undone."
	if t.Status == StatusResponded {
		action = "Response undone."
	}
	at := now()
	t.annotateLastEvent(fmt.Sprintf("%s Responsible for the action: %s. %s", action, actor.label(), message))
	t.ClosedAt = nil
	if t.ResolverID != nil {
		t.Status = StatusInProgress
	} else {
		t.Status = StatusAwaitingDistribution
	}
	t.startEvent(at)
	return nil
}

// annotateLastEvent appends note to the final event, which Respond or Cancel
// already closed. Its status, end time and original message are kept.
func (t *Ticket) annotateLastEvent(note string) {
	if len(t.Events) == 0 {
		return
	}
	ev := &t.Events[len(t.Events)-1]
	text := note
	if ev.Message != nil && *ev.Message != "" {
		text = *ev.Message + " | " + note
	}
	ev.Message = &text
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
