package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/prithvi-travels/helpdesk/internal/auth"
	"github.com/prithvi-travels/helpdesk/internal/config"
	"github.com/prithvi-travels/helpdesk/internal/domain"
	"github.com/prithvi-travels/helpdesk/internal/repository"
)

// AuthService coordinates registration and login flows for owners and
// agents. Identity is a collaborator of the lifecycle engine, not part of
// it: the engine only ever sees the resulting owner/agent identifiers.
type AuthService struct {
	users      repository.UserRepository
	agents     repository.AgentRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo  repository.UserRepository
	AgentRepo repository.AgentRepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		agents:     deps.AgentRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// RegisterUser creates a new owner account.
func (s *AuthService) RegisterUser(ctx context.Context, name, email, password string) (*domain.User, string, time.Time, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, errors.New("email already registered")
	} else if err != nil && err != pgx.ErrNoRows {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, domain.SubjectTypeUser, nil)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// LoginUser authenticates an owner account.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, errors.New("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, domain.SubjectTypeUser, nil)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// LoginAgent authenticates an agent and returns a role-bearing token.
func (s *AuthService) LoginAgent(ctx context.Context, email, password string) (*domain.Agent, string, time.Time, error) {
	agent, err := s.agents.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if !agent.Active {
		return nil, "", time.Time{}, errors.New("agent inactive")
	}
	if err := auth.ComparePassword(agent.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, errors.New("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(agent.ID, domain.SubjectTypeAgent, &agent.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return agent, token, exp, nil
}

// ChangePassword verifies current password before updating to new hash.
func (s *AuthService) ChangePassword(ctx context.Context, subjectType domain.SubjectType, subjectID, currentPassword, newPassword string) error {
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	switch subjectType {
	case domain.SubjectTypeUser:
		user, err := s.users.GetByID(ctx, subjectID)
		if err != nil {
			return err
		}
		if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
			return errors.New("invalid credentials")
		}
		user.PasswordHash = hash
		return s.users.Update(ctx, user)
	case domain.SubjectTypeAgent:
		agent, err := s.agents.GetByID(ctx, subjectID)
		if err != nil {
			return err
		}
		if err := auth.ComparePassword(agent.PasswordHash, currentPassword); err != nil {
			return errors.New("invalid credentials")
		}
		agent.PasswordHash = hash
		return s.agents.Update(ctx, agent)
	default:
		return errors.New("unknown subject")
	}
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
