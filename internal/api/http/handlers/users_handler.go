package handlers

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/demand-service/internal/api/dto"
	"github.com/spec-kit/demand-service/internal/domain"
	"github.com/spec-kit/demand-service/internal/service"
)

// UserService is the department membership surface used by the handler.
type UserService interface {
	ListDepartment(ctx context.Context, actor domain.User) ([]domain.User, error)
	DefineManagers(ctx context.Context, actor domain.User, promote, demote []int64) error
}

// AuthService issues tokens.
type AuthService interface {
	Login(ctx context.Context, employeeCode, password string) (*service.LoginResult, error)
}

// UsersHandler exposes login and department endpoints.
type UsersHandler struct {
	users    UserService
	auth     AuthService
	validate *validator.Validate
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users UserService, authService AuthService, validate *validator.Validate) *UsersHandler {
	return &UsersHandler{users: users, auth: authService, validate: validate}
}

// Login handles POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, h.validate, &req); err != nil {
		return err
	}
	result, err := h.auth.Login(c.UserContext(), req.EmployeeCode, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      userResponse(result.User),
	}})
}

// Me handles GET /api/users/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// ListDepartment handles GET /api/users/department.
func (h *UsersHandler) ListDepartment(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	members, err := h.users.ListDepartment(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponses(members)})
}

// DefineManagers handles PUT /api/users/managers.
func (h *UsersHandler) DefineManagers(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.DefineUsersRequest
	if err := bind(c, h.validate, &req); err != nil {
		return err
	}
	if err := h.users.DefineManagers(c.UserContext(), user, req.Promote, req.Demote); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
