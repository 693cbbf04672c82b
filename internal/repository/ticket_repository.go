package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/demand-service/internal/domain"
	apperrors "github.com/spec-kit/demand-service/pkg/util/errorutil"
)

// ErrStaleTicket is returned by Update when the ticket changed since it was
// loaded.
var ErrStaleTicket = apperrors.NewDomainError(
	"STALE_TICKET",
	"ticket was modified by another request; reload and retry",
	http.StatusConflict,
	nil,
)

// TicketFilter captures list parameters.
type TicketFilter struct {
	RequesterID         *int64
	RequesterDepartment *string
	ResolverID          *int64
	ResolverDepartment  *string
	ActivityID          *int64
	Statuses            []domain.TicketStatus
	Limit               int
	Offset              int
}

// TicketRepository encapsulates ticket and audit event persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	ListByRequester(ctx context.Context, requesterID int64) ([]domain.Ticket, error)
	ListByRequesterDepartment(ctx context.Context, department string) ([]domain.Ticket, error)
	ListByResolver(ctx context.Context, resolverID int64) ([]domain.Ticket, error)
	ListByResolverDepartment(ctx context.Context, department string) ([]domain.Ticket, error)
	OpenWorkload(ctx context.Context, activityID int64, resolverIDs []int64) (map[int64][]domain.TicketLoad, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, activity_id, activity_name, distribution, priority, estimated_minutes,
               requester_id, requester_department, resolver_department, resolver_id,
               opened_at, deadline, closed_at, details, status, reopened_from_id, version`

const eventColumns = `id, ticket_id, resolver_id, status, started_at, ended_at, message`

// listLimit caps unbounded list queries.
const listLimit = 200

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (activity_id, activity_name, distribution, priority, estimated_minutes,
            requester_id, requester_department, resolver_department, resolver_id,
            opened_at, deadline, closed_at, details, status, reopened_from_id, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,1)
        RETURNING id, version`
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, query,
			ticket.Activity.ID,
			ticket.Activity.Name,
			string(ticket.Activity.Distribution),
			int16(ticket.Activity.Priority),
			int32(ticket.Activity.EstimatedMinutes),
			ticket.RequesterID,
			ticket.RequesterDepartment,
			ticket.ResolverDepartment,
			ticket.ResolverID,
			ticket.OpenedAt,
			ticket.Deadline,
			ticket.ClosedAt,
			ticket.Details,
			string(ticket.Status),
			ticket.ReopenedFromID,
		).Scan(&ticket.ID, &ticket.Version); err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}
		return saveEvents(ctx, tx, ticket)
	})
}

// Update writes the ticket when its version still matches the stored one and
// bumps the version. Audit events are written in the same transaction.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET resolver_id=$1, closed_at=$2, details=$3, status=$4, version=version+1
        WHERE id=$5 AND version=$6`
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, query,
			ticket.ResolverID,
			ticket.ClosedAt,
			ticket.Details,
			string(ticket.Status),
			ticket.ID,
			ticket.Version,
		)
		if err != nil {
			return fmt.Errorf("update ticket: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE id=$1)`, ticket.ID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return pgx.ErrNoRows
			}
			return ErrStaleTicket
		}
		return saveEvents(ctx, tx, ticket)
	})
	if err != nil {
		return err
	}
	ticket.Version++
	return nil
}

func saveEvents(ctx context.Context, tx pgx.Tx, ticket *domain.Ticket) error {
	const insert = `
        INSERT INTO ticket_events (ticket_id, resolver_id, status, started_at, ended_at, message)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	const update = `
        UPDATE ticket_events SET status=$1, ended_at=$2, message=$3
        WHERE id=$4 AND ticket_id=$5`
	for i := range ticket.Events {
		ev := &ticket.Events[i]
		ev.TicketID = ticket.ID
		if ev.ID == 0 {
			if err := tx.QueryRow(ctx, insert,
				ev.TicketID, ev.ResolverID, string(ev.Status), ev.StartedAt, ev.EndedAt, ev.Message,
			).Scan(&ev.ID); err != nil {
				return fmt.Errorf("insert ticket event: %w", err)
			}
			continue
		}
		if _, err := tx.Exec(ctx, update, string(ev.Status), ev.EndedAt, ev.Message, ev.ID, ev.TicketID); err != nil {
			return fmt.Errorf("update ticket event %d: %w", ev.ID, err)
		}
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	tickets := []domain.Ticket{*ticket}
	if err := r.attachEvents(ctx, tickets); err != nil {
		return nil, err
	}
	return &tickets[0], nil
}

func (r *ticketRepository) ListByRequester(ctx context.Context, requesterID int64) ([]domain.Ticket, error) {
	return r.ListWithFilter(ctx, TicketFilter{RequesterID: &requesterID})
}

func (r *ticketRepository) ListByRequesterDepartment(ctx context.Context, department string) ([]domain.Ticket, error) {
	return r.ListWithFilter(ctx, TicketFilter{RequesterDepartment: &department})
}

func (r *ticketRepository) ListByResolver(ctx context.Context, resolverID int64) ([]domain.Ticket, error) {
	return r.ListWithFilter(ctx, TicketFilter{ResolverID: &resolverID})
}

func (r *ticketRepository) ListByResolverDepartment(ctx context.Context, department string) ([]domain.Ticket, error) {
	return r.ListWithFilter(ctx, TicketFilter{ResolverDepartment: &department})
}

// ListWithFilter returns tickets, newest first, with their audit events.
func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("requester_id=$%d", len(args)))
	}
	if filter.RequesterDepartment != nil {
		args = append(args, *filter.RequesterDepartment)
		clauses = append(clauses, fmt.Sprintf("requester_department=$%d", len(args)))
	}
	if filter.ResolverID != nil {
		args = append(args, *filter.ResolverID)
		clauses = append(clauses, fmt.Sprintf("resolver_id=$%d", len(args)))
	}
	if filter.ResolverDepartment != nil {
		args = append(args, *filter.ResolverDepartment)
		clauses = append(clauses, fmt.Sprintf("resolver_department=$%d", len(args)))
	}
	if filter.ActivityID != nil {
		args = append(args, *filter.ActivityID)
		clauses = append(clauses, fmt.Sprintf("activity_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, statusStrings(filter.Statuses))
		clauses = append(clauses, fmt.Sprintf("status = ANY($%d)", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = listLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY opened_at DESC, id DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachEvents(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// OpenWorkload returns, per resolver, the active tickets of an activity
// currently assigned to them.
func (r *ticketRepository) OpenWorkload(ctx context.Context, activityID int64, resolverIDs []int64) (map[int64][]domain.TicketLoad, error) {
	workload := make(map[int64][]domain.TicketLoad, len(resolverIDs))
	if len(resolverIDs) == 0 {
		return workload, nil
	}
	const query = `
        SELECT resolver_id, id, opened_at, deadline
        FROM tickets
        WHERE activity_id=$1 AND resolver_id = ANY($2) AND status = ANY($3)`
	rows, err := r.pool.Query(ctx, query, activityID, resolverIDs, statusStrings(domain.ActiveStatuses))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var resolverID int64
		var load domain.TicketLoad
		if err := rows.Scan(&resolverID, &load.TicketID, &load.OpenedAt, &load.Deadline); err != nil {
			return nil, err
		}
		workload[resolverID] = append(workload[resolverID], load)
	}
	return workload, rows.Err()
}

func (r *ticketRepository) attachEvents(ctx context.Context, tickets []domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	ids := make([]int64, len(tickets))
	index := make(map[int64]int, len(tickets))
	for i, t := range tickets {
		ids[i] = t.ID
		index[t.ID] = i
	}

	query := `SELECT ` + eventColumns + ` FROM ticket_events WHERE ticket_id = ANY($1) ORDER BY ticket_id, started_at, id`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var ev domain.AuditEvent
		var status string
		if err := rows.Scan(&ev.ID, &ev.TicketID, &ev.ResolverID, &status, &ev.StartedAt, &ev.EndedAt, &ev.Message); err != nil {
			return err
		}
		ev.Status = domain.TicketStatus(status)
		i := index[ev.TicketID]
		tickets[i].Events = append(tickets[i].Events, ev)
	}
	return rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket       domain.Ticket
		distribution string
		priority     int16
		estimated    int32
		status       string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Activity.ID,
		&ticket.Activity.Name,
		&distribution,
		&priority,
		&estimated,
		&ticket.RequesterID,
		&ticket.RequesterDepartment,
		&ticket.ResolverDepartment,
		&ticket.ResolverID,
		&ticket.OpenedAt,
		&ticket.Deadline,
		&ticket.ClosedAt,
		&ticket.Details,
		&status,
		&ticket.ReopenedFromID,
		&ticket.Version,
	); err != nil {
		return nil, err
	}
	ticket.Activity.Distribution = domain.DistributionMode(distribution)
	ticket.Activity.Priority = domain.Priority(priority)
	ticket.Activity.EstimatedMinutes = uint32(estimated)
	ticket.Activity.ResolverDepartment = ticket.ResolverDepartment
	ticket.Status = domain.TicketStatus(status)
	return &ticket, nil
}

func statusStrings(statuses []domain.TicketStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// IsStale reports whether err came from a failed version check.
func IsStale(err error) bool {
	return errors.Is(err, ErrStaleTicket)
}
