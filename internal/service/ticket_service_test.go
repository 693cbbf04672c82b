package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/demand-service/internal/domain"
	"github.com/spec-kit/demand-service/internal/events"
	"github.com/spec-kit/demand-service/internal/repository"
	apperrors "github.com/spec-kit/demand-service/pkg/util/errorutil"
)

var (
	requester = domain.User{ID: 1, EmployeeCode: "R1", Name: "Ana", Department: "SALES"}
	resolverA = domain.User{ID: 2, EmployeeCode: "S2", Name: "Bia", Department: "IT"}
	resolverB = domain.User{ID: 3, EmployeeCode: "S3", Name: "Caio", Department: "IT"}
	manager   = domain.User{ID: 4, EmployeeCode: "M4", Name: "Duda", Department: "IT", IsManager: true}
	outsider  = domain.User{ID: 5, EmployeeCode: "X5", Name: "Eva", Department: "HR"}
)

type fixture struct {
	users      *memUsers
	activities *memActivities
	tickets    *memTickets
	queue      *recordingPublisher

	mu     sync.Mutex
	events []events.Event

	ticketSvc     *TicketService
	assignmentSvc *AssignmentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:   newMemUsers(requester, resolverA, resolverB, manager, outsider),
		tickets: newMemTickets(),
		queue:   &recordingPublisher{},
	}
	f.activities = newMemActivities(f.users)

	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	record := func(_ context.Context, e events.Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.events = append(f.events, e)
		return nil
	}
	for _, et := range []events.EventType{events.EventTicketOpened, events.EventTicketTransitioned, events.EventTicketAssigned, events.EventTicketReopened} {
		dispatcher.Subscribe(et, record)
	}

	f.ticketSvc = NewTicketService(TicketDependencies{
		TicketRepo:   f.tickets,
		ActivityRepo: f.activities,
		UserRepo:     f.users,
		Queue:        f.queue,
		Dispatcher:   dispatcher,
	})
	f.assignmentSvc = NewAssignmentService(AssignmentDependencies{
		TicketRepo:   f.tickets,
		ActivityRepo: f.activities,
		Dispatcher:   dispatcher,
	})
	return f
}

func (f *fixture) addActivity(t *testing.T, mode domain.DistributionMode, active bool, resolvers ...domain.User) *domain.Activity {
	t.Helper()
	a, err := domain.NewActivity(domain.ActivityFields{
		Name:               "Printer repair",
		Description:        "Fix office printers",
		Active:             active,
		ResolverDepartment: "IT",
		Distribution:       mode,
		Priority:           domain.PriorityMedium,
		EstimatedMinutes:   120,
	})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, f.activities.Create(ctx, a))
	ids := make([]int64, len(resolvers))
	for i, u := range resolvers {
		ids[i] = u.ID
	}
	require.NoError(t, f.activities.SetResolvers(ctx, a.ID, ids))
	return a
}

func (f *fixture) eventTypes() []events.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]events.EventType, len(f.events))
	for i, e := range f.events {
		out[i] = e.Type
	}
	return out
}

func requireCode(t *testing.T, err error, status int, code string) {
	t.Helper()
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	require.Equal(t, status, de.HTTPStatus)
	require.Equal(t, code, de.Code)
}

func TestOpenEnqueuesAutomaticActivity(t *testing.T) {
	f := newFixture(t)
	a := f.addActivity(t, domain.DistributionAutomatic, true, resolverA)

	ticket, err := f.ticketSvc.Open(context.Background(), requester, a.ID, "<b>Printer</b> on floor 3 is jammed")
	require.NoError(t, err)
	require.Equal(t, int64(1), ticket.ID)
	require.Equal(t, domain.StatusAwaitingDistribution, ticket.Status)
	require.Equal(t, "Printer on floor 3 is jammed", ticket.Details)
	require.Equal(t, "SALES", ticket.RequesterDepartment)
	require.Equal(t, "IT", ticket.ResolverDepartment)
	require.Equal(t, []int64{1}, f.queue.published())
	require.Equal(t, []events.EventType{events.EventTicketOpened}, f.eventTypes())
}

func TestFreeTextKeepsPlainCharacters(t *testing.T) {
	f := newFixture(t)
	a := f.addActivity(t, domain.DistributionManual, true, resolverA)
	ctx := context.Background()

	const details = `Printer "B2" & scanner don't work; 3 < 5`
	ticket, err := f.ticketSvc.Open(ctx, requester, a.ID, details)
	require.NoError(t, err)
	require.Equal(t, details, ticket.Details)

	stored, err := f.ticketSvc.Get(ctx, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, details, stored.Details)

	cancelled, err := f.ticketSvc.Cancel(ctx, requester, ticket.ID, `Fixed by "IT" & facilities`)
	require.NoError(t, err)
	require.Equal(t, `Fixed by "IT" & facilities`, *cancelled.Events[0].Message)
}

func TestOpenRejectsMarkupOnlyDetails(t *testing.T) {
	f := newFixture(t)
	a := f.addActivity(t, domain.DistributionAutomatic, true, resolverA)

	_, err := f.ticketSvc.Open(context.Background(), requester, a.ID, "<img src=x><script>alert(1)</script>")
	requireCode(t, err, http.StatusBadRequest, "VALIDATION_FAILED")
	require.Empty(t, f.queue.published())
}

func TestOpenManualActivityIsNotQueued(t *testing.T) {
	f := newFixture(t)
	a := f.addActivity(t, domain.DistributionManual, true, resolverA)

	_, err := f.ticketSvc.Open(context.Background(), requester, a.ID, "Need a new badge")
	require.NoError(t, err)
	require.Empty(t, f.queue.published())
}

func TestOpenRejectsMissingOrInactiveActivity(t *testing.T) {
	f := newFixture(t)
	inactive := f.addActivity(t, domain.DistributionAutomatic, false)

	_, err := f.ticketSvc.Open(context.Background(), requester, 99, "anything")
	requireCode(t, err, http.StatusNotFound, "NOT_FOUND")

	_, err = f.ticketSvc.Open(context.Background(), requester, inactive.ID, "anything")
	requireCode(t, err, http.StatusConflict, "CONFLICT")
	require.Empty(t, f.queue.published())
}

func TestOpenSurvivesQueueFailure(t *testing.T) {
	f := newFixture(t)
	f.queue.err = errBoom
	a := f.addActivity(t, domain.DistributionAutomatic, true, resolverA)

	ticket, err := f.ticketSvc.Open(context.Background(), requester, a.ID, "Broken screen")
	require.NoError(t, err)

	stored, err := f.ticketSvc.Get(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusAwaitingDistribution, stored.Status)
}

func TestRejectReturnsTicketToQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addActivity(t, domain.DistributionAutomatic, true, resolverA)
	ticket, err := f.ticketSvc.Open(ctx, requester, a.ID, "Printer jammed")
	require.NoError(t, err)
	require.NoError(t, f.assignmentSvc.AutoAssign(ctx, ticket.ID))

	rejected, err := f.ticketSvc.Reject(ctx, resolverA, ticket.ID, "Not my area")
	require.NoError(t, err)
	require.Equal(t, domain.StatusAwaitingDistribution, rejected.Status)
	require.Nil(t, rejected.ResolverID)
	require.Equal(t, []int64{ticket.ID, ticket.ID}, f.queue.published())

	last := rejected.Events[len(rejected.Events)-2]
	require.Equal(t, domain.StatusRejected, last.Status)
	require.Equal(t, "Not my area", *last.Message)
}

func TestTransitionAuthorizationErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addActivity(t, domain.DistributionAutomatic, true, resolverA)
	ticket, err := f.ticketSvc.Open(ctx, requester, a.ID, "Printer jammed")
	require.NoError(t, err)
	require.NoError(t, f.assignmentSvc.AutoAssign(ctx, ticket.ID))

	_, err = f.ticketSvc.Respond(ctx, resolverB, ticket.ID, "done")
	require.True(t, errors.Is(err, domain.ErrNotAuthorized))
	require.True(t, errors.Is(err, domain.ErrNotAuthorizedToRespond))
	requireCode(t, err, http.StatusForbidden, "FORBIDDEN")

	_, err = f.ticketSvc.Capture(ctx, outsider, ticket.ID)
	require.True(t, errors.Is(err, domain.ErrNotAuthorizedToCapture))

	stored, err := f.ticketSvc.Get(ctx, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusInProgress, stored.Status)
	require.Equal(t, resolverA.ID, *stored.ResolverID)
}

func TestForwardRequiresExistingResolver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addActivity(t, domain.DistributionManual, true)
	ticket, err := f.ticketSvc.Open(ctx, requester, a.ID, "Printer jammed")
	require.NoError(t, err)

	_, err = f.ticketSvc.Forward(ctx, manager, ticket.ID, 42, "take it")
	requireCode(t, err, http.StatusNotFound, "NOT_FOUND")

	forwarded, err := f.ticketSvc.Forward(ctx, manager, ticket.ID, resolverB.ID, "take it")
	require.NoError(t, err)
	require.Equal(t, domain.StatusInProgress, forwarded.Status)
	require.Equal(t, resolverB.ID, *forwarded.ResolverID)
	require.Equal(t, domain.StatusForwardedByManager, forwarded.Events[0].Status)
	require.Equal(t, int64(2), forwarded.Version)
}

func TestStaleUpdateIsReported(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addActivity(t, domain.DistributionManual, true)
	ticket, err := f.ticketSvc.Open(ctx, requester, a.ID, "Printer jammed")
	require.NoError(t, err)

	f.tickets.updateErr = repository.ErrStaleTicket
	_, err = f.ticketSvc.Capture(ctx, resolverA, ticket.ID)
	require.ErrorIs(t, err, repository.ErrStaleTicket)
	requireCode(t, err, http.StatusConflict, "STALE_TICKET")
}

func TestReopenCreatesFollowUpTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addActivity(t, domain.DistributionAutomatic, true, resolverA)
	original, err := f.ticketSvc.Open(ctx, requester, a.ID, "Printer jammed")
	require.NoError(t, err)
	require.NoError(t, f.assignmentSvc.AutoAssign(ctx, original.ID))
	_, err = f.ticketSvc.Respond(ctx, resolverA, original.ID, "Cleared the jam")
	require.NoError(t, err)

	_, err = f.ticketSvc.Reopen(ctx, outsider, original.ID, "still jammed")
	require.ErrorIs(t, err, domain.ErrNotAuthorizedToReopen)

	reopened, err := f.ticketSvc.Reopen(ctx, requester, original.ID, "Still jammed")
	require.NoError(t, err)
	require.NotEqual(t, original.ID, reopened.ID)
	require.Equal(t, original.ID, *reopened.ReopenedFromID)
	require.Equal(t, domain.StatusAwaitingDistribution, reopened.Status)
	require.Contains(t, reopened.Details, "Still jammed")
	require.Equal(t, []int64{original.ID, reopened.ID}, f.queue.published())

	stored, err := f.ticketSvc.Get(ctx, original.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusResponded, stored.Status)
}

func TestReactivateUndistributedTicketIsQueued(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addActivity(t, domain.DistributionAutomatic, true)
	ticket, err := f.ticketSvc.Open(ctx, requester, a.ID, "Printer jammed")
	require.NoError(t, err)

	cancelled, err := f.ticketSvc.Cancel(ctx, manager, ticket.ID, "duplicate")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelledByManager, cancelled.Status)

	reactivated, err := f.ticketSvc.Reactivate(ctx, manager, ticket.ID, "not a duplicate")
	require.NoError(t, err)
	require.Equal(t, domain.StatusAwaitingDistribution, reactivated.Status)
	require.Nil(t, reactivated.ClosedAt)
	require.Equal(t, []int64{ticket.ID, ticket.ID}, f.queue.published())
}

func TestRequesterCancellationBlocksReactivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addActivity(t, domain.DistributionManual, true)
	ticket, err := f.ticketSvc.Open(ctx, requester, a.ID, "Printer jammed")
	require.NoError(t, err)
	_, err = f.ticketSvc.Cancel(ctx, requester, ticket.ID, "never mind")
	require.NoError(t, err)

	_, err = f.ticketSvc.Reactivate(ctx, manager, ticket.ID, "reopen")
	require.ErrorIs(t, err, domain.ErrClosedByRequester)
	requireCode(t, err, http.StatusConflict, string(domain.KindClosedByRequester))
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addActivity(t, domain.DistributionAutomatic, true, resolverA)
	first, err := f.ticketSvc.Open(ctx, requester, a.ID, "Printer jammed")
	require.NoError(t, err)
	_, err = f.ticketSvc.Open(ctx, requester, a.ID, "Toner empty")
	require.NoError(t, err)
	require.NoError(t, f.assignmentSvc.AutoAssign(ctx, first.ID))

	requested, err := f.ticketSvc.ListRequested(ctx, requester)
	require.NoError(t, err)
	require.Len(t, requested, 2)

	byDept, err := f.ticketSvc.ListRequestedByDepartment(ctx, domain.User{ID: 77, Department: "SALES"})
	require.NoError(t, err)
	require.Len(t, byDept, 2)

	assigned, err := f.ticketSvc.ListAssigned(ctx, resolverA)
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	require.Equal(t, first.ID, assigned[0].ID)

	toDept, err := f.ticketSvc.ListAssignedToDepartment(ctx, resolverB)
	require.NoError(t, err)
	require.Len(t, toDept, 2)
}
