package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/spec-kit/demand-service/internal/domain"
	"github.com/spec-kit/demand-service/internal/events"
	"github.com/spec-kit/demand-service/internal/repository"
	apperrors "github.com/spec-kit/demand-service/pkg/util/errorutil"
)

// sanitizer drops markup tags from free text before it reaches the domain.
var sanitizer = bluemonday.StrictPolicy()

// sanitize removes tags and keeps the remaining text as the user typed it.
// bluemonday entity-encodes its output, so the result is unescaped before it
// is stored; escaping belongs to whatever renders the text.
func sanitize(text string) string {
	return strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(text)))
}

// notFound converts a missing row into a NOT_FOUND error naming the resource.
func notFound(err error, resource string, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{resource + "_id": id})
	}
	return err
}

func loadTicket(ctx context.Context, repo repository.TicketRepository, id int64) (*domain.Ticket, error) {
	ticket, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "ticket", id)
	}
	return ticket, nil
}

func loadActivity(ctx context.Context, repo repository.ActivityRepository, id int64) (*domain.Activity, error) {
	activity, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "activity", id)
	}
	return activity, nil
}

// departmentUsers loads ids (deduplicated) and checks they all exist and
// belong to the actor's department.
func departmentUsers(ctx context.Context, repo repository.UserRepository, actor domain.User, ids []int64) (map[int64]domain.User, error) {
	unique := uniqueIDs(ids)
	found := make(map[int64]domain.User, len(unique))
	if len(unique) == 0 {
		return found, nil
	}
	users, err := repo.GetByIDs(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for _, u := range users {
		found[u.ID] = u
	}

	var missing []int64
	for _, id := range unique {
		u, ok := found[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		if u.Department != actor.Department {
			return nil, apperrors.NewValidationError(
				"users must belong to your department",
				map[string]any{"user_id": id, "department": u.Department},
			)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewNotFound("user", map[string]any{"user_ids": missing})
	}
	return found, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, eventType events.EventType, ticketID int64, actor events.Actor, payload any) {
	if dispatcher == nil {
		return
	}
	evt := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	if err := dispatcher.Publish(ctx, evt); err != nil {
		logger.Warn("publish event failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
