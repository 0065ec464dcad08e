package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tixit/internal/api/dto"
	"github.com/spec-kit/tixit/internal/auth"
	"github.com/spec-kit/tixit/internal/service"
)

// TicketsHandler exposes the marketplace listing endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService}
}

// Create handles POST /api/tickets. A valid bearer token makes the caller the
// seller; without one the listing is anonymous.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	raw, err := decodeObject(c)
	if err != nil {
		return err
	}
	sellerID := ""
	if principal, ok := auth.PrincipalFromContext(c); ok {
		sellerID = principal.Identity.ID
	}

	ticket, err := h.tickets.Create(c.UserContext(), raw, sellerID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewTicketResponse(ticket))
}

// List handles GET /api/tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	filter, err := service.ParseTicketQuery(service.TicketQuery{
		Category:    c.Query("category"),
		City:        c.Query("city"),
		IncludeSold: c.Query("includeSold"),
		Limit:       c.Query("limit"),
		Offset:      c.Query("offset"),
	})
	if err != nil {
		return err
	}

	listings, err := h.tickets.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketListResponse(listings))
}
