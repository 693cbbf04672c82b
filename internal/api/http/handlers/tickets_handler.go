package handlers

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/demand-service/internal/api/dto"
	"github.com/spec-kit/demand-service/internal/domain"
)

// TicketService is the ticket command surface used by the handler.
type TicketService interface {
	Open(ctx context.Context, requester domain.User, activityID int64, details string) (*domain.Ticket, error)
	Get(ctx context.Context, id int64) (*domain.Ticket, error)
	ListRequested(ctx context.Context, user domain.User) ([]domain.Ticket, error)
	ListRequestedByDepartment(ctx context.Context, user domain.User) ([]domain.Ticket, error)
	ListAssigned(ctx context.Context, user domain.User) ([]domain.Ticket, error)
	ListAssignedToDepartment(ctx context.Context, user domain.User) ([]domain.Ticket, error)
	Forward(ctx context.Context, actor domain.User, id, newResolverID int64, message string) (*domain.Ticket, error)
	Capture(ctx context.Context, actor domain.User, id int64) (*domain.Ticket, error)
	Reject(ctx context.Context, actor domain.User, id int64, message string) (*domain.Ticket, error)
	Respond(ctx context.Context, actor domain.User, id int64, message string) (*domain.Ticket, error)
	Cancel(ctx context.Context, actor domain.User, id int64, message string) (*domain.Ticket, error)
	Reopen(ctx context.Context, actor domain.User, id int64, message string) (*domain.Ticket, error)
	Reactivate(ctx context.Context, actor domain.User, id int64, message string) (*domain.Ticket, error)
}

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service  TicketService
	validate *validator.Validate
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService TicketService, validate *validator.Validate) *TicketsHandler {
	return &TicketsHandler{service: ticketService, validate: validate}
}

// Open POST /api/tickets.
func (h *TicketsHandler) Open(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.OpenTicketRequest
	if err := bind(c, h.validate, &req); err != nil {
		return err
	}
	ticket, err := h.service.Open(c.UserContext(), user, req.ActivityID, req.Details)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket, true)})
}

// Get GET /api/tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ticket, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, true)})
}

// ListRequested GET /api/tickets/requested.
func (h *TicketsHandler) ListRequested(c *fiber.Ctx) error {
	return h.list(c, h.service.ListRequested)
}

// ListRequestedByDepartment GET /api/tickets/requested/department.
func (h *TicketsHandler) ListRequestedByDepartment(c *fiber.Ctx) error {
	return h.list(c, h.service.ListRequestedByDepartment)
}

// ListAssigned GET /api/tickets/assigned.
func (h *TicketsHandler) ListAssigned(c *fiber.Ctx) error {
	return h.list(c, h.service.ListAssigned)
}

// ListAssignedToDepartment GET /api/tickets/assigned/department.
func (h *TicketsHandler) ListAssignedToDepartment(c *fiber.Ctx) error {
	return h.list(c, h.service.ListAssignedToDepartment)
}

func (h *TicketsHandler) list(c *fiber.Ctx, fetch func(context.Context, domain.User) ([]domain.Ticket, error)) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	tickets, err := fetch(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(tickets)})
}

// Forward POST /api/tickets/:id/forward.
func (h *TicketsHandler) Forward(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.ForwardRequest
	if err := bind(c, h.validate, &req); err != nil {
		return err
	}
	ticket, err := h.service.Forward(c.UserContext(), user, id, req.ResolverID, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, true)})
}

// Capture POST /api/tickets/:id/capture.
func (h *TicketsHandler) Capture(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ticket, err := h.service.Capture(c.UserContext(), user, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, true)})
}

// Reject POST /api/tickets/:id/reject.
func (h *TicketsHandler) Reject(c *fiber.Ctx) error {
	return h.withMessage(c, http.StatusOK, h.service.Reject)
}

// Respond POST /api/tickets/:id/respond.
func (h *TicketsHandler) Respond(c *fiber.Ctx) error {
	return h.withMessage(c, http.StatusOK, h.service.Respond)
}

// Cancel POST /api/tickets/:id/cancel.
func (h *TicketsHandler) Cancel(c *fiber.Ctx) error {
	return h.withMessage(c, http.StatusOK, h.service.Cancel)
}

// Reopen POST /api/tickets/:id/reopen. Responds with the new ticket.
func (h *TicketsHandler) Reopen(c *fiber.Ctx) error {
	return h.withMessage(c, http.StatusCreated, h.service.Reopen)
}

// Reactivate POST /api/tickets/:id/reactivate.
func (h *TicketsHandler) Reactivate(c *fiber.Ctx) error {
	return h.withMessage(c, http.StatusOK, h.service.Reactivate)
}

type messageAction func(ctx context.Context, actor domain.User, id int64, message string) (*domain.Ticket, error)

func (h *TicketsHandler) withMessage(c *fiber.Ctx, status int, action messageAction) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.MessageRequest
	if len(c.Body()) > 0 {
		if err := bind(c, h.validate, &req); err != nil {
			return err
		}
	}
	ticket, err := action(c.UserContext(), user, id, req.Message)
	if err != nil {
		return err
	}
	return c.Status(status).JSON(fiber.Map{"data": ticketResponse(ticket, true)})
}
