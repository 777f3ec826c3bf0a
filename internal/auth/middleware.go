package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/prithvi-travels/helpdesk/internal/domain"
	"github.com/prithvi-travels/helpdesk/internal/repository"
	apperrors "github.com/prithvi-travels/helpdesk/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	SubjectType domain.SubjectType
	User        *domain.User
	Agent       *domain.Agent
	Role        *domain.AgentRole
}

// OwnerID resolves the ticket-owner identifier for the principal.
func (p *Principal) OwnerID() string {
	if p != nil && p.User != nil {
		return p.User.ID
	}
	return ""
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
	users  repository.UserRepository
	agents repository.AgentRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, agents repository.AgentRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, agents: agents}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	principal := &Principal{SubjectType: claims.Subject, Role: claims.Role}

	switch claims.Subject {
	case domain.SubjectTypeUser:
		user, err := m.users.GetByID(c.Context(), claims.SubjectID)
		if err != nil {
			if err == pgx.ErrNoRows {
				return apperrors.NewUnauthorized("user not found")
			}
			return apperrors.MapError(err)
		}
		principal.User = user
	case domain.SubjectTypeAgent:
		agent, err := m.agents.GetByID(c.Context(), claims.SubjectID)
		if err != nil {
			if err == pgx.ErrNoRows {
				return apperrors.NewUnauthorized("agent not found")
			}
			return apperrors.MapError(err)
		}
		principal.Agent = agent
	default:
		return apperrors.NewUnauthorized("unknown subject")
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// Optional authenticates when a bearer token is present but lets
// unauthenticated callers through; ticket creation mints a guest owner for
// them.
func (m *AuthMiddleware) Optional(c *fiber.Ctx) error {
	if c.Get("Authorization") == "" {
		return c.Next()
	}
	return m.Handle(c)
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
