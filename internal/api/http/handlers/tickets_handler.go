package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/prithvi-travels/helpdesk/internal/api/dto"
	"github.com/prithvi-travels/helpdesk/internal/auth"
	"github.com/prithvi-travels/helpdesk/internal/domain"
	"github.com/prithvi-travels/helpdesk/internal/service"
	apperrors "github.com/prithvi-travels/helpdesk/pkg/util"
)

// TicketsHandler manages owner-facing ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
	logger  *zap.Logger
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, logger *zap.Logger) *TicketsHandler {
	return &TicketsHandler{service: ticketService, logger: logger}
}

// CreateTicket POST /tickets. Unauthenticated callers get a guest owner
// identifier, returned with the ticket so they can keep their handle.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("body", "invalid payload")
	}

	ownerID := ownerFromContext(c)
	if ownerID == "" {
		ownerID = auth.MintGuestID()
	}

	ticket, err := h.service.CreateTicket(c.Context(), ownerID, service.TicketCreateInput{
		Category:      req.Category,
		Description:   req.Description,
		AttachmentURL: req.AttachmentURL,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket, time.Now())})
}

// ListTickets GET /tickets. A best-effort owner sweep runs first so lapsed
// tickets show up closed, mirroring the eager sweep on owner change.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	ownerID := ownerFromContext(c)
	if ownerID == "" {
		return apperrors.NewUnauthorized("owner account required")
	}

	now := time.Now()
	if _, err := h.service.SweepOwner(c.Context(), ownerID, now); err != nil {
		h.logger.Warn("eager owner sweep failed", zap.Error(err))
	}

	tickets, err := h.service.ListTickets(c.Context(), ownerID)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i], now))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ownerID := ownerFromContext(c)
	if ownerID == "" {
		return apperrors.NewUnauthorized("owner account required")
	}
	ticket, trail, err := h.service.GetTicketForOwner(c.Context(), ownerID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, trail, time.Now())})
}

// ReopenTicket POST /tickets/:id/reopen.
func (h *TicketsHandler) ReopenTicket(c *fiber.Ctx) error {
	ownerID := ownerFromContext(c)
	if ownerID == "" {
		return apperrors.NewUnauthorized("owner account required")
	}
	var req dto.ReopenTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("body", "invalid payload")
	}
	ticket, err := h.service.ReopenTicket(c.Context(), ownerID, c.Params("id"), req.Reason, req.AttachmentURL)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket, time.Now())})
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	ownerID := ownerFromContext(c)
	if ownerID == "" {
		return apperrors.NewUnauthorized("owner account required")
	}
	ticket, err := h.service.CloseTicketAsOwner(c.Context(), ownerID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket, time.Now())})
}

// ownerFromContext resolves the owner identifier of the authenticated
// principal, or "" for guests and agents.
func ownerFromContext(c *fiber.Ctx) string {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return ""
	}
	return principal.OwnerID()
}

func ticketSummary(ticket *domain.Ticket, now time.Time) dto.TicketSummary {
	return dto.TicketSummary{
		ID:              ticket.ID,
		OwnerID:         ticket.OwnerID,
		Category:        ticket.Category,
		Status:          ticket.Status,
		EffectiveStatus: ticket.EffectiveStatus(now),
		CanReopen:       ticket.CanReopen(now),
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
		ResolvedAt:      ticket.ResolvedAt,
	}
}

func ticketDetail(ticket *domain.Ticket, trail []domain.TicketTransition, now time.Time) dto.TicketDetailResponse {
	transitions := make([]dto.TransitionResponseDTO, 0, len(trail))
	for _, entry := range trail {
		transitions = append(transitions, dto.TransitionResponseDTO{
			ID:        entry.ID,
			ActorType: entry.ActorType,
			ActorID:   entry.ActorID,
			From:      entry.From,
			To:        entry.To,
			Note:      entry.Note,
			CreatedAt: entry.CreatedAt,
		})
	}
	return dto.TicketDetailResponse{
		TicketSummary: ticketSummary(ticket, now),
		Responses: dto.ResponsesDTO{
			Opened:   phaseDTO(ticket.Responses.Opened),
			Resolved: phaseDTO(ticket.Responses.Resolved),
			Reopened: phaseDTO(ticket.Responses.Reopened),
			Closed:   phaseDTO(ticket.Responses.Closed),
		},
		Transitions: transitions,
	}
}

func phaseDTO(resp *domain.PhaseResponse) *dto.PhaseResponseDTO {
	if resp == nil {
		return nil
	}
	return &dto.PhaseResponseDTO{
		Response:      resp.Response,
		AttachmentURL: resp.AttachmentURL,
		CreatedAt:     resp.CreatedAt,
	}
}
