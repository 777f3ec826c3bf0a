package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prithvi-travels/helpdesk/internal/domain"
)

// ErrStatusConflict is returned when a conditional transition matched no
// row because the ticket's status changed since it was read.
var ErrStatusConflict = errors.New("ticket status changed concurrently")

// StatusChange describes one conditional ticket transition. Expected is the
// optimistic-concurrency guard: the write applies only while the stored
// status is one of the expected values.
type StatusChange struct {
	TicketID      string
	Expected      []domain.TicketStatus
	Next          domain.TicketStatus
	Phase         domain.ResponsePhase
	Response      domain.PhaseResponse
	SetResolvedAt bool
	Now           time.Time
}

// TicketRepository is the ticket-store contract: point lookups, owner-scoped
// queries, and conditional upserts.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Ticket, error)
	// ListResolvedBefore returns resolved tickets whose resolvedAt is
	// strictly before cutoff. An empty ownerID selects all owners.
	ListResolvedBefore(ctx context.Context, ownerID string, cutoff time.Time) ([]domain.Ticket, error)
	TransitionStatus(ctx context.Context, change StatusChange) (*domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, owner_id, category, status, responses, created_at, updated_at, resolved_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (owner_id, category, status, responses, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	responses, err := json.Marshal(ticket.Responses)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, query,
		ticket.OwnerID,
		ticket.Category,
		ticket.Status,
		responses,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	).Scan(&ticket.ID)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE owner_id=$1 ORDER BY created_at DESC`, ticketColumns)
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListResolvedBefore(ctx context.Context, ownerID string, cutoff time.Time) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets WHERE status=$1 AND resolved_at IS NOT NULL AND resolved_at < $2`, ticketColumns)
	args := []any{domain.TicketStatusResolved, cutoff}
	if ownerID != "" {
		args = append(args, ownerID)
		base += fmt.Sprintf(" AND owner_id=$%d", len(args))
	}
	base += " ORDER BY resolved_at ASC"

	rows, err := r.pool.Query(ctx, base, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) TransitionStatus(ctx context.Context, change StatusChange) (*domain.Ticket, error) {
	response, err := json.Marshal(change.Response)
	if err != nil {
		return nil, err
	}

	resolvedAt := "resolved_at"
	if change.SetResolvedAt {
		resolvedAt = "$2"
	}
	// The phase value comes from the closed ResponsePhase enum, never from
	// caller input.
	query := fmt.Sprintf(`
        UPDATE tickets
        SET status=$1, updated_at=$2, resolved_at=%s,
            responses = jsonb_set(responses, '{%s}', $3::jsonb)
        WHERE id=$4 AND status = ANY($5)
        RETURNING %s`, resolvedAt, change.Phase, ticketColumns)

	expected := make([]string, len(change.Expected))
	for i, status := range change.Expected {
		expected[i] = string(status)
	}

	var ticket domain.Ticket
	err = scanTicket(r.pool.QueryRow(ctx, query,
		change.Next,
		change.Now,
		string(response),
		change.TicketID,
		expected,
	), &ticket)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStatusConflict
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner, ticket *domain.Ticket) error {
	var responses []byte
	if err := row.Scan(
		&ticket.ID,
		&ticket.OwnerID,
		&ticket.Category,
		&ticket.Status,
		&responses,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
	); err != nil {
		return err
	}
	if len(responses) > 0 {
		if err := json.Unmarshal(responses, &ticket.Responses); err != nil {
			return err
		}
	}
	return nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
