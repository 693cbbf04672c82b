package handlers

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/demand-service/internal/api/dto"
	"github.com/spec-kit/demand-service/internal/domain"
	"github.com/spec-kit/demand-service/internal/service"
)

// ActivityService is the activity surface used by the handler.
type ActivityService interface {
	Create(ctx context.Context, actor domain.User, fields domain.ActivityFields) (*domain.Activity, error)
	Edit(ctx context.Context, actor domain.User, id int64, fields domain.ActivityFields) (*domain.Activity, error)
	List(ctx context.Context) ([]domain.Activity, error)
	ListActive(ctx context.Context) ([]domain.Activity, error)
	ListByDepartment(ctx context.Context, actor domain.User) ([]domain.Activity, error)
	GetWithResolvers(ctx context.Context, id int64) (*service.ActivityDetails, error)
	DefineResolvers(ctx context.Context, actor domain.User, id int64, promote, demote []int64) (*service.ActivityDetails, error)
}

// ActivitiesHandler exposes activity endpoints.
type ActivitiesHandler struct {
	service  ActivityService
	validate *validator.Validate
}

// NewActivitiesHandler constructs handler.
func NewActivitiesHandler(activityService ActivityService, validate *validator.Validate) *ActivitiesHandler {
	return &ActivitiesHandler{service: activityService, validate: validate}
}

// List GET /api/activities.
func (h *ActivitiesHandler) List(c *fiber.Ctx) error {
	activities, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": activityResponses(activities)})
}

// ListActive GET /api/activities/active.
func (h *ActivitiesHandler) ListActive(c *fiber.Ctx) error {
	activities, err := h.service.ListActive(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": activityResponses(activities)})
}

// ListByDepartment GET /api/activities/department.
func (h *ActivitiesHandler) ListByDepartment(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	activities, err := h.service.ListByDepartment(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": activityResponses(activities)})
}

// Get GET /api/activities/:id.
func (h *ActivitiesHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	details, err := h.service.GetWithResolvers(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": activityDetail(details)})
}

// Create POST /api/activities.
func (h *ActivitiesHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ActivityRequest
	if err := bind(c, h.validate, &req); err != nil {
		return err
	}
	activity, err := h.service.Create(c.UserContext(), user, req.Fields())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": activityResponse(*activity)})
}

// Edit PUT /api/activities/:id.
func (h *ActivitiesHandler) Edit(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.ActivityRequest
	if err := bind(c, h.validate, &req); err != nil {
		return err
	}
	activity, err := h.service.Edit(c.UserContext(), user, id, req.Fields())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": activityResponse(*activity)})
}

// DefineResolvers PUT /api/activities/:id/resolvers.
func (h *ActivitiesHandler) DefineResolvers(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.DefineUsersRequest
	if err := bind(c, h.validate, &req); err != nil {
		return err
	}
	details, err := h.service.DefineResolvers(c.UserContext(), user, id, req.Promote, req.Demote)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": activityDetail(details)})
}

func activityDetail(d *service.ActivityDetails) dto.ActivityDetailResponse {
	return dto.ActivityDetailResponse{
		ActivityResponse: activityResponse(d.Activity),
		Resolvers:        userResponses(d.Resolvers),
	}
}
