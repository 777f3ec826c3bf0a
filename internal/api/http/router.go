package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/prithvi-travels/helpdesk/internal/api/http/handlers"
	"github.com/prithvi-travels/helpdesk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Agents         *handlers.AgentsHandler
	Tickets        *handlers.TicketsHandler
	AgentTickets   *handlers.AgentTicketsHandler
	Attachments    *handlers.AttachmentsHandler
	AuthMiddleware *auth.AuthMiddleware
	AttachmentDir  string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Users.Register)
	authGroup.Post("/users/login", cfg.Users.Login)
	authGroup.Post("/agents/login", cfg.Agents.Login)

	protected := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	protected.Post("/password/change", cfg.Agents.ChangePassword)

	// Guests may create tickets and upload attachments without a token.
	app.Post("/tickets", cfg.AuthMiddleware.Optional, cfg.Tickets.CreateTicket)
	app.Post("/attachments", cfg.AuthMiddleware.Optional, cfg.Attachments.Upload)
	app.Static("/attachments", cfg.AttachmentDir)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireUser())
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/reopen", cfg.Tickets.ReopenTicket)
	tickets.Post("/:id/close", cfg.Tickets.CloseTicket)

	agent := app.Group("/agent/tickets", cfg.AuthMiddleware.Handle, auth.RequireAgentRole())
	agent.Get("", cfg.AgentTickets.ListOwnerTickets)
	agent.Post("/:id/resolve", cfg.AgentTickets.ResolveTicket)
	agent.Post("/:id/close", cfg.AgentTickets.CloseTicket)
}
