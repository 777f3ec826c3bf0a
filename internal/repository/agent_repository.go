package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prithvi-travels/helpdesk/internal/domain"
)

// AgentRepository defines persistence access for support agents.
type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent) error
	Update(ctx context.Context, agent *domain.Agent) error
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	GetByEmail(ctx context.Context, email string) (*domain.Agent, error)
}

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository returns a Postgres-backed implementation.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	const query = `
        INSERT INTO agents (name, email, password_hash, role, active)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		agent.Name,
		agent.Email,
		agent.PasswordHash,
		agent.Role,
		agent.Active,
	).Scan(&agent.ID, &agent.CreatedAt, &agent.UpdatedAt)
}

func (r *agentRepository) Update(ctx context.Context, agent *domain.Agent) error {
	const query = `
        UPDATE agents SET name=$1, email=$2, password_hash=$3, role=$4, active=$5, updated_at=NOW()
        WHERE id=$6`

	cmd, err := r.pool.Exec(ctx, query,
		agent.Name,
		agent.Email,
		agent.PasswordHash,
		agent.Role,
		agent.Active,
		agent.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	const query = `
        SELECT id, name, email, password_hash, role, active, created_at, updated_at
        FROM agents WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *agentRepository) GetByEmail(ctx context.Context, email string) (*domain.Agent, error) {
	const query = `
        SELECT id, name, email, password_hash, role, active, created_at, updated_at
        FROM agents WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *agentRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Agent, error) {
	var agent domain.Agent
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&agent.ID,
		&agent.Name,
		&agent.Email,
		&agent.PasswordHash,
		&agent.Role,
		&agent.Active,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &agent, nil
}
