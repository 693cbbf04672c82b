package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/spec-kit/demand-service/internal/domain"
	"github.com/spec-kit/demand-service/internal/events"
	"github.com/spec-kit/demand-service/internal/observability"
	"github.com/spec-kit/demand-service/internal/repository"
)

// Assignment outcomes reported to metrics.
const (
	outcomeAssigned    = "assigned"
	outcomeSkipped     = "skipped"
	outcomeNoCandidate = "no_candidate"
)

// AssignmentService distributes tickets to the least busy eligible resolver.
type AssignmentService struct {
	tickets    repository.TicketRepository
	activities repository.ActivityRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	tracer     trace.Tracer
	logger     *zap.Logger
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	TicketRepo   repository.TicketRepository
	ActivityRepo repository.ActivityRepository
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		tickets:    deps.TicketRepo,
		activities: deps.ActivityRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		tracer:     observability.Tracer(),
		logger:     logger.With(zap.String("component", "assignment_service")),
	}
}

// AutoAssign assigns an undistributed ticket. Deleted tickets, tickets no
// longer awaiting distribution and manually distributed activities are
// skipped without error, so redelivered messages are harmless. An error is
// returned only when the outcome could not be stored and the delivery should
// be retried.
func (s *AssignmentService) AutoAssign(ctx context.Context, ticketID int64) error {
	ctx, span := s.tracer.Start(ctx, "ticket.auto_assign", trace.WithAttributes(attribute.Int64("ticket.id", ticketID)))
	var err error
	defer func() { endSpan(span, err) }()

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
			s.skip(ticketID, "ticket not found")
			return nil
		}
		err = fmt.Errorf("load ticket: %w", err)
		return err
	}
	if ticket.Status != domain.StatusAwaitingDistribution {
		s.skip(ticketID, "ticket not awaiting distribution")
		return nil
	}

	activity, err := s.activities.GetByID(ctx, ticket.Activity.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
			s.skip(ticketID, "activity not found")
			return nil
		}
		err = fmt.Errorf("load activity: %w", err)
		return err
	}
	if activity.Distribution != domain.DistributionAutomatic {
		s.skip(ticketID, "activity distributed manually")
		return nil
	}

	eligible, err := s.activities.ListResolvers(ctx, activity.ID)
	if err != nil {
		err = fmt.Errorf("list resolvers: %w", err)
		return err
	}
	ids := make([]int64, len(eligible))
	for i, u := range eligible {
		ids[i] = u.ID
	}
	workload, err := s.tickets.OpenWorkload(ctx, activity.ID, ids)
	if err != nil {
		err = fmt.Errorf("load workload: %w", err)
		return err
	}

	resolver, ok := domain.Rank(activity, eligible, workload)
	if !ok {
		s.metrics.RecordAssignment(outcomeNoCandidate)
		s.logger.Info("no eligible resolver", zap.Int64("ticket_id", ticketID), zap.Int64("activity_id", activity.ID))
		return nil
	}
	if !ticket.AssignResolver(*resolver) {
		s.skip(ticketID, "ticket not awaiting distribution")
		return nil
	}
	if err = s.tickets.Update(ctx, ticket); err != nil {
		if repository.IsStale(err) {
			s.logger.Info("ticket changed during assignment; will retry", zap.Int64("ticket_id", ticketID))
		}
		err = fmt.Errorf("store assignment: %w", err)
		return err
	}

	s.metrics.RecordAssignment(outcomeAssigned)
	s.logger.Info("ticket assigned",
		zap.Int64("ticket_id", ticketID),
		zap.Int64("resolver_id", resolver.ID),
	)
	publishEvent(ctx, s.dispatcher, s.logger, events.EventTicketAssigned, ticket.ID, events.Actor{}, events.TicketAssignedPayload{
		ResolverID: resolver.ID,
		Automatic:  true,
	})
	return nil
}

func (s *AssignmentService) skip(ticketID int64, reason string) {
	s.metrics.RecordAssignment(outcomeSkipped)
	s.logger.Debug("assignment skipped", zap.Int64("ticket_id", ticketID), zap.String("reason", reason))
}
