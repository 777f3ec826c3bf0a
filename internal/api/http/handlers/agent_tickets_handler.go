package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/prithvi-travels/helpdesk/internal/api/dto"
	"github.com/prithvi-travels/helpdesk/internal/auth"
	"github.com/prithvi-travels/helpdesk/internal/service"
	apperrors "github.com/prithvi-travels/helpdesk/pkg/util"
)

// AgentTicketsHandler manages agent-side ticket endpoints.
type AgentTicketsHandler struct {
	service *service.TicketService
}

// NewAgentTicketsHandler constructs handler.
func NewAgentTicketsHandler(ticketService *service.TicketService) *AgentTicketsHandler {
	return &AgentTicketsHandler{service: ticketService}
}

// ListOwnerTickets GET /agent/tickets?owner_id=...
func (h *AgentTicketsHandler) ListOwnerTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		return apperrors.NewValidationError("owner_id", "owner_id query parameter required")
	}
	tickets, err := h.service.ListTickets(c.Context(), ownerID)
	if err != nil {
		return err
	}
	now := time.Now()
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i], now))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ResolveTicket POST /agent/tickets/:id/resolve.
func (h *AgentTicketsHandler) ResolveTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.ResolveTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("body", "invalid payload")
	}
	ticket, err := h.service.ResolveTicket(c.Context(), principal.Agent, c.Params("id"), req.Note, req.AttachmentURL)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket, time.Now())})
}

// CloseTicket POST /agent/tickets/:id/close.
func (h *AgentTicketsHandler) CloseTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.CloseTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("body", "invalid payload")
	}
	ticket, err := h.service.CloseTicketAsAgent(c.Context(), principal.Agent, c.Params("id"), req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket, time.Now())})
}
