package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/spec-kit/demand-service/internal/domain"
	"github.com/spec-kit/demand-service/internal/events"
	"github.com/spec-kit/demand-service/internal/observability"
	"github.com/spec-kit/demand-service/internal/queue"
	"github.com/spec-kit/demand-service/internal/repository"
	apperrors "github.com/spec-kit/demand-service/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	activities repository.ActivityRepository
	users      repository.UserRepository
	queue      queue.Publisher
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	tracer     trace.Tracer
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	ActivityRepo repository.ActivityRepository
	UserRepo     repository.UserRepository
	Queue        queue.Publisher
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		activities: deps.ActivityRepo,
		users:      deps.UserRepo,
		queue:      deps.Queue,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		tracer:     observability.Tracer(),
		logger:     logger.With(zap.String("component", "ticket_service")),
	}
}

// Open raises a ticket against an active activity.
func (s *TicketService) Open(ctx context.Context, requester domain.User, activityID int64, details string) (*domain.Ticket, error) {
	ctx, span := s.tracer.Start(ctx, "ticket.open", trace.WithAttributes(attribute.Int64("activity.id", activityID)))
	var err error
	defer func() { endSpan(span, err) }()

	activity, err := loadActivity(ctx, s.activities, activityID)
	if err != nil {
		return nil, err
	}
	if !activity.Active {
		err = apperrors.NewConflict("activity is not active", map[string]any{"activity_id": activityID})
		return nil, err
	}

	text := sanitize(details)
	if text == "" {
		err = apperrors.NewValidationError("details must contain text", map[string]any{"field": "details"})
		return nil, err
	}
	ticket := domain.OpenTicket(activity.Snapshot(), requester, text)
	if err = s.tickets.Create(ctx, ticket); err != nil {
		err = fmt.Errorf("create ticket: %w", err)
		return nil, err
	}
	s.metrics.RecordTransition("open", nil)

	publishEvent(ctx, s.dispatcher, s.logger, events.EventTicketOpened, ticket.ID, events.ActorFor(requester), events.TicketOpenedPayload{
		ActivityID:         activity.ID,
		ResolverDepartment: ticket.ResolverDepartment,
		Distribution:       ticket.Activity.Distribution,
		Priority:           ticket.Activity.Priority,
		Deadline:           ticket.Deadline,
	})
	s.enqueue(ctx, ticket)
	return ticket, nil
}

// Get returns a ticket with its audit trail.
func (s *TicketService) Get(ctx context.Context, id int64) (*domain.Ticket, error) {
	return loadTicket(ctx, s.tickets, id)
}

// ListRequested lists tickets the user opened.
func (s *TicketService) ListRequested(ctx context.Context, user domain.User) ([]domain.Ticket, error) {
	return s.tickets.ListByRequester(ctx, user.ID)
}

// ListRequestedByDepartment lists tickets opened by the user's department.
func (s *TicketService) ListRequestedByDepartment(ctx context.Context, user domain.User) ([]domain.Ticket, error) {
	return s.tickets.ListByRequesterDepartment(ctx, user.Department)
}

// ListAssigned lists tickets currently held by the user.
func (s *TicketService) ListAssigned(ctx context.Context, user domain.User) ([]domain.Ticket, error) {
	return s.tickets.ListByResolver(ctx, user.ID)
}

// ListAssignedToDepartment lists tickets routed to the user's department.
func (s *TicketService) ListAssignedToDepartment(ctx context.Context, user domain.User) ([]domain.Ticket, error) {
	return s.tickets.ListByResolverDepartment(ctx, user.Department)
}

// Forward hands the ticket to another user.
func (s *TicketService) Forward(ctx context.Context, actor domain.User, id, newResolverID int64, message string) (*domain.Ticket, error) {
	newResolver, err := s.users.GetByID(ctx, newResolverID)
	if err != nil {
		return nil, notFound(err, "user", newResolverID)
	}
	msg := sanitize(message)
	return s.transition(ctx, "forward", actor, id, func(t *domain.Ticket) error {
		return t.Forward(actor, *newResolver, msg)
	})
}

// Capture lets the actor take the ticket.
func (s *TicketService) Capture(ctx context.Context, actor domain.User, id int64) (*domain.Ticket, error) {
	return s.transition(ctx, "capture", actor, id, func(t *domain.Ticket) error {
		return t.Capture(actor)
	})
}

// Reject returns the ticket to distribution and queues it for assignment
// when the activity distributes automatically.
func (s *TicketService) Reject(ctx context.Context, actor domain.User, id int64, message string) (*domain.Ticket, error) {
	msg := sanitize(message)
	ticket, err := s.transition(ctx, "reject", actor, id, func(t *domain.Ticket) error {
		return t.Reject(actor, msg)
	})
	if err != nil {
		return nil, err
	}
	s.enqueue(ctx, ticket)
	return ticket, nil
}

// Respond closes the ticket with an answer.
func (s *TicketService) Respond(ctx context.Context, actor domain.User, id int64, message string) (*domain.Ticket, error) {
	msg := sanitize(message)
	return s.transition(ctx, "respond", actor, id, func(t *domain.Ticket) error {
		return t.Respond(actor, msg)
	})
}

// Cancel closes the ticket without an answer.
func (s *TicketService) Cancel(ctx context.Context, actor domain.User, id int64, message string) (*domain.Ticket, error) {
	msg := sanitize(message)
	return s.transition(ctx, "cancel", actor, id, func(t *domain.Ticket) error {
		return t.Cancel(actor, msg)
	})
}

// Reactivate undoes a response or cancellation.
func (s *TicketService) Reactivate(ctx context.Context, actor domain.User, id int64, message string) (*domain.Ticket, error) {
	msg := sanitize(message)
	ticket, err := s.transition(ctx, "reactivate", actor, id, func(t *domain.Ticket) error {
		return t.Reactivate(actor, msg)
	})
	if err != nil {
		return nil, err
	}
	s.enqueue(ctx, ticket)
	return ticket, nil
}

// Reopen opens a follow-up ticket for a closed one. The original ticket is
// left unchanged.
func (s *TicketService) Reopen(ctx context.Context, actor domain.User, id int64, message string) (*domain.Ticket, error) {
	ctx, span := s.tracer.Start(ctx, "ticket.reopen", trace.WithAttributes(attribute.Int64("ticket.id", id)))
	var err error
	defer func() {
		s.metrics.RecordTransition("reopen", err)
		endSpan(span, err)
	}()

	original, err := loadTicket(ctx, s.tickets, id)
	if err != nil {
		return nil, err
	}
	reopened, err := original.Reopen(actor, sanitize(message))
	if err != nil {
		return nil, err
	}
	if err = s.tickets.Create(ctx, reopened); err != nil {
		err = fmt.Errorf("create reopened ticket: %w", err)
		return nil, err
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.EventTicketReopened, reopened.ID, events.ActorFor(actor), events.TicketReopenedPayload{
		OriginalTicketID: original.ID,
	})
	s.enqueue(ctx, reopened)
	return reopened, nil
}

// transition loads a ticket, applies one state change and persists it.
func (s *TicketService) transition(ctx context.Context, action string, actor domain.User, id int64, apply func(*domain.Ticket) error) (*domain.Ticket, error) {
	ctx, span := s.tracer.Start(ctx, "ticket."+action, trace.WithAttributes(
		attribute.Int64("ticket.id", id),
		attribute.Int64("actor.id", actor.ID),
	))
	var err error
	defer func() {
		s.metrics.RecordTransition(action, err)
		endSpan(span, err)
	}()

	ticket, err := loadTicket(ctx, s.tickets, id)
	if err != nil {
		return nil, err
	}
	oldStatus := ticket.Status
	if err = apply(ticket); err != nil {
		return nil, err
	}
	if err = s.tickets.Update(ctx, ticket); err != nil {
		err = notFound(err, "ticket", id)
		return nil, err
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.EventTicketTransitioned, ticket.ID, events.ActorFor(actor), events.TicketTransitionedPayload{
		Action:     action,
		OldStatus:  oldStatus,
		NewStatus:  ticket.Status,
		ResolverID: ticket.ResolverID,
	})
	return ticket, nil
}

// enqueue requests automatic assignment for an undistributed ticket. The
// state change is already stored, so a publish failure is only logged.
func (s *TicketService) enqueue(ctx context.Context, ticket *domain.Ticket) {
	if s.queue == nil || ticket.Status != domain.StatusAwaitingDistribution {
		return
	}
	if ticket.Activity.Distribution != domain.DistributionAutomatic {
		return
	}
	if err := s.queue.PublishAssignment(ctx, ticket.ID); err != nil {
		s.logger.Error("enqueue assignment failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
	}
}
