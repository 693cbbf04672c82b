package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	requester   = User{ID: 1, EmployeeCode: "E001", Name: "Ana Requester", Department: "SALES"}
	resolverA   = User{ID: 2, EmployeeCode: "E002", Name: "Bruno Resolver", Department: "IT"}
	resolverB   = User{ID: 3, EmployeeCode: "E003", Name: "Carla Resolver", Department: "IT"}
	itManager   = User{ID: 4, EmployeeCode: "E004", Name: "Davi Manager", Department: "IT", IsManager: true}
	outsider    = User{ID: 5, EmployeeCode: "E005", Name: "Eva Outsider", Department: "HR"}
	hrManager   = User{ID: 6, EmployeeCode: "E006", Name: "Fabio Manager", Department: "HR", IsManager: true}
	salesPeer   = User{ID: 7, EmployeeCode: "E007", Name: "Gil Peer", Department: "SALES"}
	itSnapshot  = ActivitySnapshot{ID: 10, Name: "Reset password", ResolverDepartment: "IT", Distribution: DistributionAutomatic, Priority: PriorityMedium, EstimatedMinutes: 60}
	fixedOpenAt = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
)

func freezeClock(t *testing.T) {
	t.Helper()
	current := fixedOpenAt
	prev := now
	now = func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
	t.Cleanup(func() { now = prev })
}

func openAssigned(t *testing.T) *Ticket {
	t.Helper()
	ticket := OpenTicket(itSnapshot, requester, "printer on fire")
	ticket.ID = 42
	require.True(t, ticket.AssignResolver(resolverA))
	return ticket
}

func requireConsistentTrail(t *testing.T, ticket *Ticket) {
	t.Helper()
	require.NotEmpty(t, ticket.Events)
	require.Equal(t, ticket.Status, ticket.Events[len(ticket.Events)-1].Status)
	open := 0
	for _, ev := range ticket.Events {
		if ev.Open() {
			open++
		}
	}
	if ticket.Status.Active() {
		require.Equal(t, 1, open)
	} else {
		require.Zero(t, open)
	}
	require.Equal(t, ticket.Status.Closed(), ticket.ClosedAt != nil)
}

func TestOpenTicket(t *testing.T) {
	freezeClock(t)

	ticket := OpenTicket(itSnapshot, requester, "printer on fire")

	require.Equal(t, StatusAwaitingDistribution, ticket.Status)
	require.Nil(t, ticket.ResolverID)
	require.Nil(t, ticket.ClosedAt)
	require.Len(t, ticket.Events, 1)
	require.Nil(t, ticket.Events[0].Message)
	require.Equal(t, ticket.OpenedAt.Add(60*time.Minute), ticket.Deadline)
	require.Equal(t, "SALES", ticket.RequesterDepartment)
	require.Equal(t, "IT", ticket.ResolverDepartment)
	requireConsistentTrail(t, ticket)
}

func TestAssignResolverOnlyFromAwaitingDistribution(t *testing.T) {
	freezeClock(t)
	ticket := OpenTicket(itSnapshot, requester, "printer on fire")

	require.True(t, ticket.AssignResolver(resolverA))
	require.Equal(t, StatusInProgress, ticket.Status)
	require.True(t, ticket.IsResolver(resolverA))
	require.Len(t, ticket.Events, 2)
	require.Equal(t, "Resolver assigned: (E002) Bruno Resolver.", *ticket.Events[0].Message)
	require.Equal(t, int64(2), *ticket.Events[1].ResolverID)

	require.False(t, ticket.AssignResolver(resolverB))
	require.True(t, ticket.IsResolver(resolverA))
	require.Len(t, ticket.Events, 2)
	requireConsistentTrail(t, ticket)
}

func TestForwardAuthorization(t *testing.T) {
	cases := []struct {
		name    string
		actor   User
		wantErr error
		label   TicketStatus
	}{
		{name: "resolver", actor: resolverA, label: StatusForwardedBySolver},
		{name: "department manager", actor: itManager, label: StatusForwardedByManager},
		{name: "unrelated actor", actor: outsider, wantErr: ErrNotAuthorizedToForward},
		{name: "unrelated manager", actor: hrManager, wantErr: ErrNotAuthorizedToForward},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			freezeClock(t)
			ticket := openAssigned(t)

			err := ticket.Forward(tc.actor, resolverB, "handoff")
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.ErrorIs(t, err, ErrNotAuthorized)
				require.True(t, ticket.IsResolver(resolverA))
				require.Len(t, ticket.Events, 2)
				return
			}
			require.NoError(t, err)
			require.Equal(t, StatusInProgress, ticket.Status)
			require.True(t, ticket.IsResolver(resolverB))
			require.Len(t, ticket.Events, 3)
			require.Equal(t, tc.label, ticket.Events[1].Status)
			requireConsistentTrail(t, ticket)
		})
	}
}

func TestForwardByManagerNamesManager(t *testing.T) {
	freezeClock(t)
	ticket := openAssigned(t)

	require.NoError(t, ticket.Forward(itManager, resolverB, "rebalancing"))
	msg := *ticket.Events[1].Message
	assert.Contains(t, msg, "Ticket forwarded to (E003) Carla Resolver.")
	assert.Contains(t, msg, "Manager responsible for the action: (E004) Davi Manager.")
	assert.Contains(t, msg, "rebalancing")
}

func TestForwardToCurrentResolverFails(t *testing.T) {
	freezeClock(t)
	ticket := openAssigned(t)

	err := ticket.Forward(itManager, resolverA, "again")
	require.ErrorIs(t, err, ErrAlreadyResolver)
	require.Len(t, ticket.Events, 2)
}

func TestCaptureAuthorization(t *testing.T) {
	cases := []struct {
		name    string
		actor   User
		wantErr error
	}{
		{name: "resolver", actor: resolverA, wantErr: ErrAlreadyResolver},
		{name: "department manager", actor: itManager},
		{name: "department peer", actor: resolverB},
		{name: "unrelated actor", actor: outsider, wantErr: ErrNotAuthorizedToCapture},
		{name: "unrelated manager", actor: hrManager, wantErr: ErrNotAuthorizedToCapture},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			freezeClock(t)
			ticket := openAssigned(t)

			err := ticket.Capture(tc.actor)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.True(t, ticket.IsResolver(resolverA))
				return
			}
			require.NoError(t, err)
			require.True(t, ticket.IsResolver(tc.actor))
			require.Equal(t, StatusCaptured, ticket.Events[1].Status)
			require.Contains(t, *ticket.Events[1].Message, "Ticket captured by")
			requireConsistentTrail(t, ticket)
		})
	}
}

func TestRejectAuthorization(t *testing.T) {
	cases := []struct {
		name    string
		actor   User
		allowed bool
	}{
		{name: "resolver", actor: resolverA, allowed: true},
		{name: "department manager", actor: itManager},
		{name: "unrelated actor", actor: outsider},
		{name: "unrelated manager", actor: hrManager},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			freezeClock(t)
			ticket := openAssigned(t)

			err := ticket.Reject(tc.actor, "not mine")
			if !tc.allowed {
				require.ErrorIs(t, err, ErrNotAuthorizedToReject)
				require.Equal(t, StatusInProgress, ticket.Status)
				return
			}
			require.NoError(t, err)
			require.Equal(t, StatusAwaitingDistribution, ticket.Status)
			require.Nil(t, ticket.ResolverID)
			require.Equal(t, StatusRejected, ticket.Events[1].Status)
			requireConsistentTrail(t, ticket)
		})
	}
}

func TestRespondAuthorization(t *testing.T) {
	cases := []struct {
		name    string
		actor   User
		allowed bool
	}{
		{name: "resolver", actor: resolverA, allowed: true},
		{name: "department manager", actor: itManager},
		{name: "unrelated actor", actor: outsider},
		{name: "unrelated manager", actor: hrManager},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			freezeClock(t)
			ticket := openAssigned(t)

			err := ticket.Respond(tc.actor, "done")
			if !tc.allowed {
				require.ErrorIs(t, err, ErrNotAuthorizedToRespond)
				require.Nil(t, ticket.ClosedAt)
				return
			}
			require.NoError(t, err)
			require.Equal(t, StatusResponded, ticket.Status)
			require.NotNil(t, ticket.ClosedAt)
			require.Len(t, ticket.Events, 2)
			requireConsistentTrail(t, ticket)
		})
	}
}

func TestRespondRequiresInProgress(t *testing.T) {
	freezeClock(t)
	ticket := OpenTicket(itSnapshot, requester, "printer on fire")

	err := ticket.Respond(resolverA, "done")
	require.ErrorIs(t, err, ErrNotInProgress)
	require.NotErrorIs(t, err, ErrNotActive)
}

func TestCancelOutcomes(t *testing.T) {
	cases := []struct {
		name    string
		actor   User
		want    TicketStatus
		wantErr error
	}{
		{name: "requester", actor: requester, want: StatusCancelledByRequester},
		{name: "resolver", actor: resolverA, want: StatusCancelledBySolver},
		{name: "department manager", actor: itManager, want: StatusCancelledByManager},
		{name: "unrelated actor", actor: outsider, wantErr: ErrNotAuthorizedToCancel},
		{name: "unrelated manager", actor: hrManager, wantErr: ErrNotAuthorizedToCancel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			freezeClock(t)
			ticket := openAssigned(t)

			err := ticket.Cancel(tc.actor, "no longer needed")
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.Equal(t, StatusInProgress, ticket.Status)
				require.Nil(t, ticket.ClosedAt)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, ticket.Status)
			require.Len(t, ticket.Events, 2)
			requireConsistentTrail(t, ticket)
		})
	}
}

func TestTransitionsRequireActive(t *testing.T) {
	freezeClock(t)
	ticket := openAssigned(t)
	require.NoError(t, ticket.Respond(resolverA, "done"))

	require.ErrorIs(t, ticket.Forward(resolverA, resolverB, "x"), ErrNotActive)
	require.ErrorIs(t, ticket.Capture(resolverB), ErrNotActive)
	require.ErrorIs(t, ticket.Reject(resolverA, "x"), ErrNotActive)
	require.ErrorIs(t, ticket.Cancel(requester, "x"), ErrNotActive)
	require.ErrorIs(t, ticket.Respond(resolverA, "x"), ErrNotInProgress)
	require.False(t, ticket.AssignResolver(resolverB))
}

func TestReopenCancelledByRequesterAlwaysFails(t *testing.T) {
	for _, actor := range []User{requester, salesPeer, resolverA, itManager, outsider} {
		freezeClock(t)
		ticket := openAssigned(t)
		require.NoError(t, ticket.Cancel(requester, "changed my mind"))

		reopened, err := ticket.Reopen(actor, "please")
		require.ErrorIs(t, err, ErrClosedByRequester)
		require.Nil(t, reopened)
		require.ErrorIs(t, ticket.Reactivate(actor, "please"), ErrClosedByRequester)
	}
}

func TestReopen(t *testing.T) {
	freezeClock(t)
	ticket := openAssigned(t)
	require.NoError(t, ticket.Respond(resolverA, "done"))
	eventsBefore := len(ticket.Events)

	_, err := ticket.Reopen(outsider, "still broken")
	require.ErrorIs(t, err, ErrNotAuthorizedToReopen)

	reopened, err := ticket.Reopen(salesPeer, "still broken")
	require.NoError(t, err)
	require.NotNil(t, reopened.ReopenedFromID)
	require.Equal(t, ticket.ID, *reopened.ReopenedFromID)
	require.Equal(t, StatusAwaitingDistribution, reopened.Status)
	require.Equal(t, salesPeer.ID, reopened.RequesterID)
	require.Equal(t, itSnapshot, reopened.Activity)
	require.Contains(t, reopened.Details, "This ticket reopens ticket 42.")
	require.Contains(t, reopened.Details, "still broken")
	require.Contains(t, reopened.Details, "printer on fire")

	require.Equal(t, StatusResponded, ticket.Status)
	require.Len(t, ticket.Events, eventsBefore)
}

func TestReopenRequiresClosedTicket(t *testing.T) {
	freezeClock(t)
	ticket := openAssigned(t)

	_, err := ticket.Reopen(requester, "again")
	require.ErrorIs(t, err, ErrNotRespondedOrCancelled)
	require.ErrorIs(t, ticket.Reactivate(resolverA, "again"), ErrNotRespondedOrCancelled)
}

func TestReactivate(t *testing.T) {
	t.Run("response undone keeps resolver", func(t *testing.T) {
		freezeClock(t)
		ticket := openAssigned(t)
		require.NoError(t, ticket.Respond(resolverA, "done"))
		before := len(ticket.Events)
		respondedAt := *ticket.Events[before-1].EndedAt

		require.ErrorIs(t, ticket.Reactivate(outsider, "oops"), ErrNotAuthorizedToReactivate)
		require.ErrorIs(t, ticket.Reactivate(hrManager, "oops"), ErrNotAuthorizedToReactivate)

		require.NoError(t, ticket.Reactivate(itManager, "oops"))
		require.Equal(t, StatusInProgress, ticket.Status)
		require.Nil(t, ticket.ClosedAt)
		require.Len(t, ticket.Events, before+1)
		closed := ticket.Events[before-1]
		require.Equal(t, StatusResponded, closed.Status)
		require.Equal(t, respondedAt, *closed.EndedAt)
		require.Equal(t, "done | Response undone. Responsible for the action: (E004) Davi Manager. oops", *closed.Message)
		require.True(t, ticket.Events[before].StartedAt.After(respondedAt))
		requireConsistentTrail(t, ticket)
	})

	t.Run("cancellation undone without resolver", func(t *testing.T) {
		freezeClock(t)
		ticket := OpenTicket(itSnapshot, requester, "printer on fire")
		require.NoError(t, ticket.Cancel(itManager, "duplicate"))

		require.NoError(t, ticket.Reactivate(itManager, "not a duplicate"))
		require.Equal(t, StatusAwaitingDistribution, ticket.Status)
		require.Len(t, ticket.Events, 2)
		require.Equal(t, StatusCancelledByManager, ticket.Events[0].Status)
		require.Equal(t, "duplicate | Cancellation undone. Responsible for the action: (E004) Davi Manager. not a duplicate", *ticket.Events[0].Message)
		requireConsistentTrail(t, ticket)
	})
}

func TestLifecycleScenario(t *testing.T) {
	freezeClock(t)
	u1 := User{ID: 1, EmployeeCode: "U1", Name: "User One", Department: "OPS"}
	u2 := User{ID: 2, EmployeeCode: "U2", Name: "User Two", Department: "IT"}
	u3 := User{ID: 3, EmployeeCode: "U3", Name: "User Three", Department: "IT"}

	ticket := OpenTicket(itSnapshot, u1, "new laptop")
	ticket.ID = 7
	require.Equal(t, StatusAwaitingDistribution, ticket.Status)
	require.Equal(t, ticket.OpenedAt.Add(60*time.Minute), ticket.Deadline)

	require.True(t, ticket.AssignResolver(u2))
	require.Equal(t, StatusInProgress, ticket.Status)
	require.True(t, ticket.IsResolver(u2))

	require.NoError(t, ticket.Forward(u2, u3, "handoff"))
	require.Equal(t, StatusInProgress, ticket.Status)
	require.True(t, ticket.IsResolver(u3))
	require.Len(t, ticket.Events, 3)

	require.NoError(t, ticket.Respond(u3, "done"))
	require.Equal(t, StatusResponded, ticket.Status)
	require.NotNil(t, ticket.ClosedAt)

	reopened, err := ticket.Reopen(u1, "redo")
	require.NoError(t, err)
	require.Equal(t, int64(7), *reopened.ReopenedFromID)
}
