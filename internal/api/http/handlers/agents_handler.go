package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/prithvi-travels/helpdesk/internal/api/dto"
	"github.com/prithvi-travels/helpdesk/internal/auth"
	"github.com/prithvi-travels/helpdesk/internal/service"
)

// AgentsHandler exposes auth endpoints for support agents.
type AgentsHandler struct {
	auth *service.AuthService
}

// NewAgentsHandler constructs handler.
func NewAgentsHandler(authService *service.AuthService) *AgentsHandler {
	return &AgentsHandler{auth: authService}
}

// Login handles POST /auth/agents/login.
func (h *AgentsHandler) Login(c *fiber.Ctx) error {
	var req dto.AgentLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}

	agent, token, exp, err := h.auth.LoginAgent(c.Context(), req.Email, req.Password)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, "invalid credentials")
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"agent": fiber.Map{
				"id":    agent.ID,
				"name":  agent.Name,
				"email": agent.Email,
				"role":  agent.Role,
			},
			"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// ChangePassword handles POST /auth/password/change for any principal.
func (h *AgentsHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return fiber.NewError(http.StatusBadRequest, "current_password and new_password required")
	}

	subjectID := ""
	switch {
	case principal.User != nil:
		subjectID = principal.User.ID
	case principal.Agent != nil:
		subjectID = principal.Agent.ID
	}
	if err := h.auth.ChangePassword(c.Context(), principal.SubjectType, subjectID, req.CurrentPassword, req.NewPassword); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"changed": true}})
}
