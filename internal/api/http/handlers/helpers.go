package handlers

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/demand-service/internal/api/dto"
	"github.com/spec-kit/demand-service/internal/auth"
	"github.com/spec-kit/demand-service/internal/domain"
	apperrors "github.com/spec-kit/demand-service/pkg/util/errorutil"
)

// NewValidator returns the request validator shared by all handlers.
func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// bind parses the JSON body into out and validates it.
func bind(c *fiber.Ctx, validate *validator.Validate, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", map[string]any{"reason": err.Error()})
	}
	if err := validate.Struct(out); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fields := make(map[string]any, len(validationErrors))
			for _, fe := range validationErrors {
				fields[fe.Field()] = fe.Tag()
			}
			return apperrors.NewValidationError("request validation failed", fields)
		}
		return apperrors.NewValidationError(err.Error(), nil)
	}
	return nil
}

func parseID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid "+name, map[string]any{name: c.Params(name)})
	}
	return id, nil
}

func currentUser(c *fiber.Ctx) (domain.User, error) {
	user, ok := auth.UserFromContext(c)
	if !ok || user == nil {
		return domain.User{}, apperrors.NewUnauthorized("authentication required")
	}
	return *user, nil
}

func userResponse(u domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:           u.ID,
		EmployeeCode: u.EmployeeCode,
		Name:         u.Name,
		Department:   u.Department,
		IsManager:    u.IsManager,
	}
}

func userResponses(users []domain.User) []dto.UserResponse {
	out := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse(u))
	}
	return out
}

func activityResponse(a domain.Activity) dto.ActivityResponse {
	return dto.ActivityResponse{
		ID:                 a.ID,
		Name:               a.Name,
		Description:        a.Description,
		Active:             a.Active,
		ResolverDepartment: a.ResolverDepartment,
		Distribution:       a.Distribution,
		Priority:           a.Priority,
		EstimatedMinutes:   a.EstimatedMinutes,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

func activityResponses(activities []domain.Activity) []dto.ActivityResponse {
	out := make([]dto.ActivityResponse, 0, len(activities))
	for _, a := range activities {
		out = append(out, activityResponse(a))
	}
	return out
}

// ticketResponse renders a ticket. The audit trail is included only when
// withEvents is set.
func ticketResponse(t *domain.Ticket, withEvents bool) dto.TicketResponse {
	resp := dto.TicketResponse{
		ID: t.ID,
		Activity: dto.ActivitySnapshotResponse{
			ID:               t.Activity.ID,
			Name:             t.Activity.Name,
			Distribution:     t.Activity.Distribution,
			Priority:         t.Activity.Priority,
			EstimatedMinutes: t.Activity.EstimatedMinutes,
		},
		RequesterID:         t.RequesterID,
		RequesterDepartment: t.RequesterDepartment,
		ResolverDepartment:  t.ResolverDepartment,
		ResolverID:          t.ResolverID,
		Status:              t.Status,
		Details:             t.Details,
		OpenedAt:            t.OpenedAt,
		Deadline:            t.Deadline,
		ClosedAt:            t.ClosedAt,
		ReopenedFromID:      t.ReopenedFromID,
		Version:             t.Version,
	}
	if withEvents {
		resp.Events = make([]dto.AuditEventResponse, 0, len(t.Events))
		for _, e := range t.Events {
			resp.Events = append(resp.Events, dto.AuditEventResponse{
				ID:         e.ID,
				ResolverID: e.ResolverID,
				Status:     e.Status,
				StartedAt:  e.StartedAt,
				EndedAt:    e.EndedAt,
				Message:    e.Message,
			})
		}
	}
	return resp
}

func ticketResponses(tickets []domain.Ticket) []dto.TicketResponse {
	out := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, ticketResponse(&tickets[i], false))
	}
	return out
}
