package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/prithvi-travels/helpdesk/internal/domain"
)

// RequireUser ensures an owner account is authenticated.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeUser {
			return fiber.NewError(http.StatusForbidden, "owner account required")
		}
		return c.Next()
	}
}

// RequireAgentRole ensures the agent principal has one of the allowed roles.
func RequireAgentRole(allowed ...domain.AgentRole) fiber.Handler {
	allowedSet := make(map[domain.AgentRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeAgent || principal.Agent == nil {
			return fiber.NewError(http.StatusForbidden, "agent role required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Agent.Role]; !exists {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}

// RequireAnyRole ensures caller is authenticated (owner or agent).
func RequireAnyRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		return c.Next()
	}
}
