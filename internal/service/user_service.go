package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/demand-service/internal/domain"
	"github.com/spec-kit/demand-service/internal/repository"
	apperrors "github.com/spec-kit/demand-service/pkg/util/errorutil"
)

// UserService exposes department membership and manager flags.
type UserService struct {
	users  repository.UserRepository
	logger *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, logger: logger.With(zap.String("component", "user_service"))}
}

// ListDepartment lists the members of the actor's department.
func (s *UserService) ListDepartment(ctx context.Context, actor domain.User) ([]domain.User, error) {
	return s.users.ListByDepartment(ctx, actor.Department)
}

// DefineManagers grants then revokes the manager flag. All users must belong
// to the actor's department.
func (s *UserService) DefineManagers(ctx context.Context, actor domain.User, promote, demote []int64) error {
	if !actor.IsManager {
		return apperrors.NewForbidden("manager role required")
	}
	if _, err := departmentUsers(ctx, s.users, actor, append(append([]int64{}, promote...), demote...)); err != nil {
		return err
	}
	if ids := uniqueIDs(promote); len(ids) > 0 {
		if err := s.users.SetManager(ctx, ids, true); err != nil {
			return fmt.Errorf("promote managers: %w", err)
		}
	}
	if ids := uniqueIDs(demote); len(ids) > 0 {
		if err := s.users.SetManager(ctx, ids, false); err != nil {
			return fmt.Errorf("demote managers: %w", err)
		}
	}
	s.logger.Info("managers defined",
		zap.Int64("actor_id", actor.ID),
		zap.Int64s("promoted", promote),
		zap.Int64s("demoted", demote),
	)
	return nil
}
