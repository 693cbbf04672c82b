package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/demand-service/internal/domain"
)

// ActivityRepository persists activities and their eligible resolvers.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.Activity) error
	Update(ctx context.Context, activity *domain.Activity) error
	GetByID(ctx context.Context, id int64) (*domain.Activity, error)
	List(ctx context.Context) ([]domain.Activity, error)
	ListActive(ctx context.Context) ([]domain.Activity, error)
	ListByResolverDepartment(ctx context.Context, department string) ([]domain.Activity, error)
	ListResolvers(ctx context.Context, activityID int64) ([]domain.User, error)
	SetResolvers(ctx context.Context, activityID int64, userIDs []int64) error
}

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository returns a Postgres-backed implementation.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

const activityColumns = `id, name, description, active, resolver_department, distribution, priority,
               estimated_minutes, created_at, updated_at`

func (r *activityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	const query = `
        INSERT INTO activities (name, description, active, resolver_department, distribution, priority, estimated_minutes)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		activity.Name,
		activity.Description,
		activity.Active,
		activity.ResolverDepartment,
		string(activity.Distribution),
		int16(activity.Priority),
		int32(activity.EstimatedMinutes),
	).Scan(&activity.ID, &activity.CreatedAt, &activity.UpdatedAt)
}

func (r *activityRepository) Update(ctx context.Context, activity *domain.Activity) error {
	const query = `
        UPDATE activities SET name=$1, description=$2, active=$3, resolver_department=$4,
            distribution=$5, priority=$6, estimated_minutes=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		activity.Name,
		activity.Description,
		activity.Active,
		activity.ResolverDepartment,
		string(activity.Distribution),
		int16(activity.Priority),
		int32(activity.EstimatedMinutes),
		activity.ID,
	).Scan(&activity.UpdatedAt)
	return err
}

func (r *activityRepository) GetByID(ctx context.Context, id int64) (*domain.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE id=$1`
	return scanActivity(r.pool.QueryRow(ctx, query, id))
}

func (r *activityRepository) List(ctx context.Context) ([]domain.Activity, error) {
	return r.list(ctx, `SELECT `+activityColumns+` FROM activities ORDER BY name`)
}

func (r *activityRepository) ListActive(ctx context.Context) ([]domain.Activity, error) {
	return r.list(ctx, `SELECT `+activityColumns+` FROM activities WHERE active ORDER BY name`)
}

func (r *activityRepository) ListByResolverDepartment(ctx context.Context, department string) ([]domain.Activity, error) {
	return r.list(ctx, `SELECT `+activityColumns+` FROM activities WHERE resolver_department=$1 ORDER BY name`, department)
}

func (r *activityRepository) list(ctx context.Context, query string, args ...any) ([]domain.Activity, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Activity
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *activity)
	}
	return result, rows.Err()
}

// ListResolvers returns the eligible resolvers in the order they were set.
func (r *activityRepository) ListResolvers(ctx context.Context, activityID int64) ([]domain.User, error) {
	query := `
        SELECT ` + prefixed("u", userColumns) + `
        FROM activity_resolvers ar
        JOIN users u ON u.id = ar.user_id
        WHERE ar.activity_id=$1
        ORDER BY ar.position, u.id`
	rows, err := r.pool.Query(ctx, query, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

// SetResolvers replaces the eligible resolvers of an activity.
func (r *activityRepository) SetResolvers(ctx context.Context, activityID int64, userIDs []int64) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM activity_resolvers WHERE activity_id=$1`, activityID); err != nil {
			return fmt.Errorf("clear resolvers: %w", err)
		}
		for pos, userID := range userIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO activity_resolvers (activity_id, user_id, position) VALUES ($1,$2,$3)`,
				activityID, userID, pos,
			); err != nil {
				return fmt.Errorf("add resolver %d: %w", userID, err)
			}
		}
		return nil
	})
}

func scanActivity(row pgx.Row) (*domain.Activity, error) {
	var (
		activity     domain.Activity
		distribution string
		priority     int16
		estimated    int32
	)
	if err := row.Scan(
		&activity.ID,
		&activity.Name,
		&activity.Description,
		&activity.Active,
		&activity.ResolverDepartment,
		&distribution,
		&priority,
		&estimated,
		&activity.CreatedAt,
		&activity.UpdatedAt,
	); err != nil {
		return nil, err
	}
	activity.Distribution = domain.DistributionMode(distribution)
	activity.Priority = domain.Priority(priority)
	activity.EstimatedMinutes = uint32(estimated)
	return &activity, nil
}
