package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prithvi-travels/helpdesk/internal/domain"
)

// TransitionRepository persists the status-change audit trail.
type TransitionRepository interface {
	Record(ctx context.Context, entry *domain.TicketTransition) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketTransition, error)
}

type transitionRepository struct {
	pool *pgxpool.Pool
}

// NewTransitionRepository constructs repository.
func NewTransitionRepository(pool *pgxpool.Pool) TransitionRepository {
	return &transitionRepository{pool: pool}
}

func (r *transitionRepository) Record(ctx context.Context, entry *domain.TicketTransition) error {
	const query = `
        INSERT INTO ticket_transitions (ticket_id, actor_type, actor_id, from_status, to_status, note)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.ActorType,
		entry.ActorID,
		entry.From,
		entry.To,
		entry.Note,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *transitionRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketTransition, error) {
	const query = `
        SELECT id, ticket_id, actor_type, actor_id, from_status, to_status, note, created_at
        FROM ticket_transitions WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketTransition
	for rows.Next() {
		var entry domain.TicketTransition
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.ActorType,
			&entry.ActorID,
			&entry.From,
			&entry.To,
			&entry.Note,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
