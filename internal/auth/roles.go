package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/demand-service/pkg/util/errorutil"
)

// RequireManager ensures the caller is flagged as a department manager.
func RequireManager() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !user.IsManager {
			return apperrors.NewForbidden("manager role required")
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a user was loaded by AuthMiddleware.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := UserFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
