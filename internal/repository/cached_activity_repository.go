package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/demand-service/internal/domain"
)

const (
	keyActivitiesAll    = "activities:all"
	keyActivitiesActive = "activities:active"
)

func activityKey(id int64) string { return fmt.Sprintf("activity:%d", id) }

type cachedActivityRepository struct {
	ActivityRepository
	cache *jsonCache
}

// NewCachedActivityRepository wraps next with cache-aside reads for single
// activities and the full and active lists.
func NewCachedActivityRepository(next ActivityRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) ActivityRepository {
	return &cachedActivityRepository{ActivityRepository: next, cache: newJSONCache(client, ttl, logger)}
}

func (r *cachedActivityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	if err := r.ActivityRepository.Create(ctx, activity); err != nil {
		return err
	}
	r.cache.invalidate(ctx, keyActivitiesAll, keyActivitiesActive)
	return nil
}

func (r *cachedActivityRepository) Update(ctx context.Context, activity *domain.Activity) error {
	if err := r.ActivityRepository.Update(ctx, activity); err != nil {
		return err
	}
	r.cache.invalidate(ctx, activityKey(activity.ID), keyActivitiesAll, keyActivitiesActive)
	return nil
}

func (r *cachedActivityRepository) GetByID(ctx context.Context, id int64) (*domain.Activity, error) {
	return cached(ctx, r.cache, activityKey(id), func() (*domain.Activity, error) {
		return r.ActivityRepository.GetByID(ctx, id)
	})
}

func (r *cachedActivityRepository) List(ctx context.Context) ([]domain.Activity, error) {
	return cached(ctx, r.cache, keyActivitiesAll, func() ([]domain.Activity, error) {
		return r.ActivityRepository.List(ctx)
	})
}

func (r *cachedActivityRepository) ListActive(ctx context.Context) ([]domain.Activity, error) {
	return cached(ctx, r.cache, keyActivitiesActive, func() ([]domain.Activity, error) {
		return r.ActivityRepository.ListActive(ctx)
	})
}
