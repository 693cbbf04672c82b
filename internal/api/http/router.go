package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/demand-service/internal/api/http/handlers"
	"github.com/spec-kit/demand-service/internal/auth"
	"github.com/spec-kit/demand-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Activities     *handlers.ActivitiesHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics.Handler())
	}

	app.Post("/auth/login", cfg.Users.Login)

	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	managerOnly := auth.RequireManager()

	users := api.Group("/users")
	users.Get("/me", cfg.Users.Me)
	users.Get("/department", cfg.Users.ListDepartment)
	users.Put("/managers", managerOnly, cfg.Users.DefineManagers)

	activities := api.Group("/activities")
	activities.Get("/", cfg.Activities.List)
	activities.Get("/active", cfg.Activities.ListActive)
	activities.Get("/department", cfg.Activities.ListByDepartment)
	activities.Get("/:id", cfg.Activities.Get)
	activities.Post("/", managerOnly, cfg.Activities.Create)
	activities.Put("/:id", managerOnly, cfg.Activities.Edit)
	activities.Put("/:id/resolvers", managerOnly, cfg.Activities.DefineResolvers)

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.Open)
	tickets.Get("/requested", cfg.Tickets.ListRequested)
	tickets.Get("/requested/department", cfg.Tickets.ListRequestedByDepartment)
	tickets.Get("/assigned", cfg.Tickets.ListAssigned)
	tickets.Get("/assigned/department", cfg.Tickets.ListAssignedToDepartment)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Post("/:id/forward", cfg.Tickets.Forward)
	tickets.Post("/:id/capture", cfg.Tickets.Capture)
	tickets.Post("/:id/reject", cfg.Tickets.Reject)
	tickets.Post("/:id/respond", cfg.Tickets.Respond)
	tickets.Post("/:id/cancel", cfg.Tickets.Cancel)
	tickets.Post("/:id/reopen", cfg.Tickets.Reopen)
	tickets.Post("/:id/reactivate", cfg.Tickets.Reactivate)
}
