package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/demand-service/internal/domain"
	"github.com/spec-kit/demand-service/internal/repository"
	apperrors "github.com/spec-kit/demand-service/pkg/util/errorutil"
)

// ActivityService manages activities and their eligible resolvers.
type ActivityService struct {
	activities repository.ActivityRepository
	users      repository.UserRepository
	logger     *zap.Logger
}

// ActivityDependencies bundles collaborators for the activity service.
type ActivityDependencies struct {
	ActivityRepo repository.ActivityRepository
	UserRepo     repository.UserRepository
	Logger       *zap.Logger
}

// ActivityDetails is an activity with its eligible resolvers in order.
type ActivityDetails struct {
	Activity  domain.Activity
	Resolvers []domain.User
}

// NewActivityService constructs the service.
func NewActivityService(deps ActivityDependencies) *ActivityService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{
		activities: deps.ActivityRepo,
		users:      deps.UserRepo,
		logger:     logger.With(zap.String("component", "activity_service")),
	}
}

// Create registers an activity. The actor must manage its resolver department.
func (s *ActivityService) Create(ctx context.Context, actor domain.User, fields domain.ActivityFields) (*domain.Activity, error) {
	if !actor.ManagesDepartment(fields.ResolverDepartment) {
		return nil, apperrors.NewForbidden("only a manager of the resolver department can create this activity")
	}
	fields.Name = sanitize(fields.Name)
	fields.Description = sanitize(fields.Description)

	activity, err := domain.NewActivity(fields)
	if err != nil {
		return nil, err
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}
	s.logger.Info("activity created", zap.Int64("activity_id", activity.ID), zap.Int64("actor_id", actor.ID))
	return activity, nil
}

// Edit replaces the editable fields. The actor must manage both the current
// and the new resolver department.
func (s *ActivityService) Edit(ctx context.Context, actor domain.User, id int64, fields domain.ActivityFields) (*domain.Activity, error) {
	activity, err := loadActivity(ctx, s.activities, id)
	if err != nil {
		return nil, err
	}
	if !actor.ManagesDepartment(activity.ResolverDepartment) || !actor.ManagesDepartment(fields.ResolverDepartment) {
		return nil, apperrors.NewForbidden("only a manager of the resolver department can edit this activity")
	}
	fields.Name = sanitize(fields.Name)
	fields.Description = sanitize(fields.Description)

	if err := activity.Edit(fields); err != nil {
		return nil, err
	}
	if err := s.activities.Update(ctx, activity); err != nil {
		return nil, notFound(err, "activity", id)
	}
	return activity, nil
}

// List returns every activity.
func (s *ActivityService) List(ctx context.Context) ([]domain.Activity, error) {
	return s.activities.List(ctx)
}

// ListActive returns activities open for new tickets.
func (s *ActivityService) ListActive(ctx context.Context) ([]domain.Activity, error) {
	return s.activities.ListActive(ctx)
}

// ListByDepartment returns activities resolved by the actor's department.
func (s *ActivityService) ListByDepartment(ctx context.Context, actor domain.User) ([]domain.Activity, error) {
	return s.activities.ListByResolverDepartment(ctx, actor.Department)
}

// GetWithResolvers returns an activity and its eligible resolvers.
func (s *ActivityService) GetWithResolvers(ctx context.Context, id int64) (*ActivityDetails, error) {
	activity, err := loadActivity(ctx, s.activities, id)
	if err != nil {
		return nil, err
	}
	resolvers, err := s.activities.ListResolvers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list resolvers: %w", err)
	}
	return &ActivityDetails{Activity: *activity, Resolvers: resolvers}, nil
}

// DefineResolvers adds the promoted users to the eligible resolvers and
// removes the demoted ones. An id present in both lists ends up removed.
func (s *ActivityService) DefineResolvers(ctx context.Context, actor domain.User, id int64, promote, demote []int64) (*ActivityDetails, error) {
	if !actor.IsManager {
		return nil, apperrors.NewForbidden("manager role required")
	}
	activity, err := loadActivity(ctx, s.activities, id)
	if err != nil {
		return nil, err
	}
	if activity.ResolverDepartment != actor.Department {
		return nil, apperrors.NewForbidden("activity belongs to another department")
	}
	if _, err := departmentUsers(ctx, s.users, actor, append(append([]int64{}, promote...), demote...)); err != nil {
		return nil, err
	}

	current, err := s.activities.ListResolvers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list resolvers: %w", err)
	}
	ids := make([]int64, 0, len(current)+len(promote))
	present := make(map[int64]bool, len(current))
	for _, u := range current {
		ids = append(ids, u.ID)
		present[u.ID] = true
	}
	for _, uid := range uniqueIDs(promote) {
		if !present[uid] {
			ids = append(ids, uid)
			present[uid] = true
		}
	}
	removed := make(map[int64]bool, len(demote))
	for _, uid := range demote {
		removed[uid] = true
	}
	kept := ids[:0]
	for _, uid := range ids {
		if !removed[uid] {
			kept = append(kept, uid)
		}
	}

	if err := s.activities.SetResolvers(ctx, id, kept); err != nil {
		return nil, fmt.Errorf("set resolvers: %w", err)
	}
	s.logger.Info("resolvers defined",
		zap.Int64("activity_id", id),
		zap.Int64("actor_id", actor.ID),
		zap.Int("resolvers", len(kept)),
	)
	return s.GetWithResolvers(ctx, id)
}
