package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/demand-service/internal/domain"
	"github.com/spec-kit/demand-service/internal/repository"
)

type memTickets struct {
	mu        sync.Mutex
	seq       int64
	eventSeq  int64
	rows      map[int64]domain.Ticket
	updateErr error
}

func newMemTickets() *memTickets {
	return &memTickets{rows: map[int64]domain.Ticket{}}
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	t.Events = append([]domain.AuditEvent(nil), t.Events...)
	return t
}

func (m *memTickets) stamp(t *domain.Ticket) {
	for i := range t.Events {
		t.Events[i].TicketID = t.ID
		if t.Events[i].ID == 0 {
			m.eventSeq++
			t.Events[i].ID = m.eventSeq
		}
	}
}

func (m *memTickets) Create(_ context.Context, t *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t.ID = m.seq
	t.Version = 1
	m.stamp(t)
	m.rows[t.ID] = cloneTicket(*t)
	return nil
}

func (m *memTickets) Update(_ context.Context, t *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	stored, ok := m.rows[t.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != t.Version {
		return repository.ErrStaleTicket
	}
	t.Version++
	m.stamp(t)
	m.rows[t.ID] = cloneTicket(*t)
	return nil
}

func (m *memTickets) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := cloneTicket(t)
	return &out, nil
}

func (m *memTickets) filter(keep func(domain.Ticket) bool) []domain.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Ticket
	for _, t := range m.rows {
		if keep(t) {
			out = append(out, cloneTicket(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memTickets) ListByRequester(_ context.Context, id int64) ([]domain.Ticket, error) {
	return m.filter(func(t domain.Ticket) bool { return t.RequesterID == id }), nil
}

func (m *memTickets) ListByRequesterDepartment(_ context.Context, dept string) ([]domain.Ticket, error) {
	return m.filter(func(t domain.Ticket) bool { return t.RequesterDepartment == dept }), nil
}

func (m *memTickets) ListByResolver(_ context.Context, id int64) ([]domain.Ticket, error) {
	return m.filter(func(t domain.Ticket) bool { return t.ResolverID != nil && *t.ResolverID == id }), nil
}

func (m *memTickets) ListByResolverDepartment(_ context.Context, dept string) ([]domain.Ticket, error) {
	return m.filter(func(t domain.Ticket) bool { return t.ResolverDepartment == dept }), nil
}

func (m *memTickets) OpenWorkload(_ context.Context, activityID int64, resolverIDs []int64) (map[int64][]domain.TicketLoad, error) {
	wanted := map[int64]bool{}
	for _, id := range resolverIDs {
		wanted[id] = true
	}
	out := map[int64][]domain.TicketLoad{}
	for _, t := range m.filter(func(t domain.Ticket) bool {
		return t.Activity.ID == activityID && t.Status.Active() && t.ResolverID != nil && wanted[*t.ResolverID]
	}) {
		out[*t.ResolverID] = append(out[*t.ResolverID], domain.TicketLoad{TicketID: t.ID, OpenedAt: t.OpenedAt, Deadline: t.Deadline})
	}
	return out, nil
}

type memUsers struct {
	mu   sync.Mutex
	seq  int64
	rows map[int64]domain.User
}

func newMemUsers(users ...domain.User) *memUsers {
	m := &memUsers{rows: map[int64]domain.User{}}
	for _, u := range users {
		m.rows[u.ID] = u
		if u.ID > m.seq {
			m.seq = u.ID
		}
	}
	return m
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	u.ID = m.seq
	m.rows[u.ID] = *u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (m *memUsers) GetByEmployeeCode(_ context.Context, code string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.EmployeeCode == code {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memUsers) GetByIDs(_ context.Context, ids []int64) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, id := range ids {
		if u, ok := m.rows[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUsers) ListByDepartment(_ context.Context, dept string) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.rows {
		if u.Department == dept {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memUsers) SetManager(_ context.Context, ids []int64, isManager bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		u := m.rows[id]
		u.IsManager = isManager
		m.rows[id] = u
	}
	return nil
}

type memActivities struct {
	mu        sync.Mutex
	seq       int64
	rows      map[int64]domain.Activity
	resolvers map[int64][]int64
	users     *memUsers
}

func newMemActivities(users *memUsers) *memActivities {
	return &memActivities{rows: map[int64]domain.Activity{}, resolvers: map[int64][]int64{}, users: users}
}

func (m *memActivities) Create(_ context.Context, a *domain.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	a.ID = m.seq
	m.rows[a.ID] = *a
	return nil
}

func (m *memActivities) Update(_ context.Context, a *domain.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[a.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.rows[a.ID] = *a
	return nil
}

func (m *memActivities) GetByID(_ context.Context, id int64) (*domain.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &a, nil
}

func (m *memActivities) list(keep func(domain.Activity) bool) []domain.Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Activity
	for _, a := range m.rows {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memActivities) List(context.Context) ([]domain.Activity, error) {
	return m.list(func(domain.Activity) bool { return true }), nil
}

func (m *memActivities) ListActive(context.Context) ([]domain.Activity, error) {
	return m.list(func(a domain.Activity) bool { return a.Active }), nil
}

func (m *memActivities) ListByResolverDepartment(_ context.Context, dept string) ([]domain.Activity, error) {
	return m.list(func(a domain.Activity) bool { return a.ResolverDepartment == dept }), nil
}

func (m *memActivities) ListResolvers(ctx context.Context, id int64) ([]domain.User, error) {
	m.mu.Lock()
	ids := append([]int64(nil), m.resolvers[id]...)
	m.mu.Unlock()
	var out []domain.User
	for _, uid := range ids {
		u, err := m.users.GetByID(ctx, uid)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, nil
}

func (m *memActivities) SetResolvers(_ context.Context, id int64, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvers[id] = append([]int64(nil), ids...)
	return nil
}

type recordingPublisher struct {
	mu  sync.Mutex
	ids []int64
	err error
}

func (p *recordingPublisher) PublishAssignment(_ context.Context, ticketID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.ids = append(p.ids, ticketID)
	return nil
}

func (p *recordingPublisher) published() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int64(nil), p.ids...)
}

var errBoom = errors.New("boom")
