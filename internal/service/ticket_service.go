package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prithvi-travels/helpdesk/internal/domain"
	"github.com/prithvi-travels/helpdesk/internal/events"
	"github.com/prithvi-travels/helpdesk/internal/repository"
	apperrors "github.com/prithvi-travels/helpdesk/pkg/util"
)

// Description bounds enforced at creation, in characters of the trimmed text.
const (
	minDescriptionChars = 10
	maxDescriptionChars = 1000
)

// AutoCloseMessage is recorded in the closed phase by the sweep.
const AutoCloseMessage = "Ticket automatically closed after 3 days of resolution"

// TicketService owns the ticket state machine: it validates transitions,
// computes auto-closure eligibility, and applies mutations through the
// ticket store. It holds no state of its own.
type TicketService struct {
	tickets     repository.TicketRepository
	transitions repository.TransitionRepository
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	now         func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	TransitionRepo repository.TransitionRepository
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	svc := &TicketService{
		tickets:     deps.TicketRepo,
		transitions: deps.TransitionRepo,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
		now:         deps.Clock,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Category      domain.TicketCategory
	Description   string
	AttachmentURL string
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpened:   {domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusResolved: {domain.TicketStatusReopened, domain.TicketStatusClosed},
	domain.TicketStatusReopened: {domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusClosed:   {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// CreateTicket validates and creates a ticket for an owner. Validation
// failures return a field-scoped error without touching the store.
func (s *TicketService) CreateTicket(ctx context.Context, ownerID string, input TicketCreateInput) (*domain.Ticket, error) {
	if !input.Category.Valid() {
		return nil, apperrors.NewValidationError("category", "category must be one of the supported set")
	}
	// Length bounds apply to the trimmed text; the stored response is the
	// supplied description verbatim.
	switch n := utf8.RuneCountInString(strings.TrimSpace(input.Description)); {
	case n < minDescriptionChars:
		return nil, apperrors.NewValidationError("description", "description must be at least 10 characters")
	case n > maxDescriptionChars:
		return nil, apperrors.NewValidationError("description", "description must be at most 1000 characters")
	}

	now := s.now()
	ticket := &domain.Ticket{
		OwnerID:   ownerID,
		Category:  input.Category,
		Status:    domain.TicketStatusOpened,
		CreatedAt: now,
		UpdatedAt: now,
	}
	ticket.Responses.Set(domain.PhaseOpened, domain.PhaseResponse{
		Response:      input.Description,
		AttachmentURL: input.AttachmentURL,
		CreatedAt:     now,
	})

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.NewFetchError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    userActor(ownerID),
		Payload: events.TicketCreatedPayload{
			OwnerID:  ownerID,
			Category: ticket.Category,
		},
	})
	return ticket, nil
}

// ListTickets returns all tickets owned by ownerID, most recent first.
func (s *TicketService) ListTickets(ctx context.Context, ownerID string) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.NewFetchError(err)
	}
	return tickets, nil
}

// GetTicketForOwner fetches a ticket ensuring ownership, with its audit
// trail.
func (s *TicketService) GetTicketForOwner(ctx context.Context, ownerID, ticketID string) (*domain.Ticket, []domain.TicketTransition, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if ticket.OwnerID != ownerID {
		return nil, nil, apperrors.NewForbidden("ticket does not belong to caller")
	}
	var trail []domain.TicketTransition
	if s.transitions != nil {
		trail, err = s.transitions.ListByTicket(ctx, ticket.ID)
		if err != nil {
			return nil, nil, apperrors.NewFetchError(err)
		}
	}
	return ticket, trail, nil
}

// ReopenTicket moves a resolved ticket back to reopened, within the grace
// window and with a non-empty reason. The resolved response entry is
// retained; only the reopened phase is written.
func (s *TicketService) ReopenTicket(ctx context.Context, ownerID, ticketID, reason, attachmentURL string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.OwnerID != ownerID {
		return nil, apperrors.NewForbidden("ticket does not belong to caller")
	}
	if ticket.Status != domain.TicketStatusResolved {
		return nil, apperrors.NewLifecycleError(apperrors.CodeNotResolved, "only resolved tickets can be reopened")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.NewLifecycleError(apperrors.CodeReasonRequired, "reopen reason is required")
	}
	now := s.now()
	if ticket.ResolvedAt != nil && now.After(ticket.ResolvedAt.Add(domain.ReopenWindow)) {
		return nil, apperrors.NewLifecycleError(apperrors.CodeWindowExpired, "reopen window of 3 days has expired")
	}

	updated, err := s.applyTransition(ctx, repository.StatusChange{
		TicketID: ticket.ID,
		Expected: []domain.TicketStatus{domain.TicketStatusResolved},
		Next:     domain.TicketStatusReopened,
		Phase:    domain.PhaseReopened,
		Response: domain.PhaseResponse{
			Response:      reason,
			AttachmentURL: attachmentURL,
			CreatedAt:     now,
		},
		Now: now,
	}, ticket.Status, events.EventTicketReopened, userActor(ownerID), &ownerID, domain.SubjectTypeUser, reason)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ResolveTicket is the agent-side transition to resolved. It stamps
// ResolvedAt, which starts the reopen/auto-closure window.
func (s *TicketService) ResolveTicket(ctx context.Context, agent *domain.Agent, ticketID, note, attachmentURL string) (*domain.Ticket, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !isValidTransition(ticket.Status, domain.TicketStatusResolved) {
		return nil, apperrors.NewConflict("ticket cannot be resolved in current status", map[string]any{"status": ticket.Status})
	}

	now := s.now()
	return s.applyTransition(ctx, repository.StatusChange{
		TicketID: ticket.ID,
		Expected: []domain.TicketStatus{domain.TicketStatusOpened, domain.TicketStatusReopened},
		Next:     domain.TicketStatusResolved,
		Phase:    domain.PhaseResolved,
		Response: domain.PhaseResponse{
			Response:      note,
			AttachmentURL: attachmentURL,
			CreatedAt:     now,
		},
		SetResolvedAt: true,
		Now:           now,
	}, ticket.Status, events.EventTicketResolved, agentActor(agent.ID), &agent.ID, domain.SubjectTypeAgent, note)
}

// CloseTicketAsAgent explicitly closes any non-terminal ticket.
func (s *TicketService) CloseTicketAsAgent(ctx context.Context, agent *domain.Agent, ticketID, note string) (*domain.Ticket, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return s.closeTicket(ctx, ticket, note, agentActor(agent.ID), &agent.ID, domain.SubjectTypeAgent)
}

// CloseTicketAsOwner lets the owner explicitly close their own ticket.
func (s *TicketService) CloseTicketAsOwner(ctx context.Context, ownerID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.OwnerID != ownerID {
		return nil, apperrors.NewForbidden("ticket does not belong to caller")
	}
	return s.closeTicket(ctx, ticket, "Closed by requester", userActor(ownerID), &ownerID, domain.SubjectTypeUser)
}

func (s *TicketService) closeTicket(ctx context.Context, ticket *domain.Ticket, note string, actor events.Actor, actorID *string, actorType domain.SubjectType) (*domain.Ticket, error) {
	if ticket.Status.Terminal() {
		return nil, apperrors.NewConflict("ticket already closed", nil)
	}

	now := s.now()
	return s.applyTransition(ctx, repository.StatusChange{
		TicketID: ticket.ID,
		Expected: []domain.TicketStatus{
			domain.TicketStatusOpened,
			domain.TicketStatusResolved,
			domain.TicketStatusReopened,
		},
		Next:  domain.TicketStatusClosed,
		Phase: domain.PhaseClosed,
		Response: domain.PhaseResponse{
			Response:  note,
			CreatedAt: now,
		},
		Now: now,
	}, ticket.Status, events.EventTicketClosed, actor, actorID, actorType, note)
}

// SweepClosure pairs a swept ticket with its applied close mutation.
type SweepClosure struct {
	TicketID string
	Ticket   *domain.Ticket
}

// SweepStats summarizes one sweep pass.
type SweepStats struct {
	Scanned int
	Closed  int
	Skipped int
	Failed  int
}

// SweepOwner closes the owner's resolved tickets whose grace window has
// lapsed. Each close is an independent conditional write: the pass is
// best-effort and idempotent, and a ticket whose status changed between
// read and write is skipped rather than clobbered.
func (s *TicketService) SweepOwner(ctx context.Context, ownerID string, now time.Time) ([]SweepClosure, error) {
	closures, _, err := s.sweep(ctx, ownerID, now)
	return closures, err
}

// Sweep runs the auto-closure pass across all owners.
func (s *TicketService) Sweep(ctx context.Context, now time.Time) (SweepStats, error) {
	_, stats, err := s.sweep(ctx, "", now)
	return stats, err
}

func (s *TicketService) sweep(ctx context.Context, ownerID string, now time.Time) ([]SweepClosure, SweepStats, error) {
	var stats SweepStats
	cutoff := now.Add(-domain.ReopenWindow)
	eligible, err := s.tickets.ListResolvedBefore(ctx, ownerID, cutoff)
	if err != nil {
		return nil, stats, apperrors.NewFetchError(err)
	}
	stats.Scanned = len(eligible)

	closures := make([]SweepClosure, 0, len(eligible))
	for i := range eligible {
		ticket := &eligible[i]
		closed, err := s.tickets.TransitionStatus(ctx, repository.StatusChange{
			TicketID: ticket.ID,
			Expected: []domain.TicketStatus{domain.TicketStatusResolved},
			Next:     domain.TicketStatusClosed,
			Phase:    domain.PhaseClosed,
			Response: domain.PhaseResponse{
				Response:  AutoCloseMessage,
				CreatedAt: now,
			},
			Now: now,
		})
		if errors.Is(err, repository.ErrStatusConflict) {
			// A reopen or manual close landed between our read and write;
			// the conditional guard makes that a skip, not an overwrite.
			stats.Skipped++
			continue
		}
		if err != nil {
			// Left resolved; the next pass re-selects it.
			stats.Failed++
			s.logger.Warn("sweep close failed",
				zap.String("ticket_id", ticket.ID),
				zap.Error(err))
			continue
		}
		stats.Closed++
		s.recordTransition(ctx, closed.ID, domain.SubjectTypeSystem, nil, ticket.Status, closed.Status, AutoCloseMessage, true)
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketAutoClosed,
			TicketID: closed.ID,
			Actor:    systemActor(),
			Payload: events.TicketStatusChangedPayload{
				OldStatus: domain.TicketStatusResolved,
				NewStatus: domain.TicketStatusClosed,
				Note:      AutoCloseMessage,
			},
		})
		closures = append(closures, SweepClosure{TicketID: closed.ID, Ticket: closed})
	}
	return closures, stats, nil
}

func (s *TicketService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	// Ticket ids are store-generated UUIDs; a malformed id can never match
	// a row, so it is a not-found rather than a store failure.
	if _, err := uuid.Parse(ticketID); err != nil {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if de := apperrors.ToDomainError(err); de.Code == "NOT_FOUND" {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return nil, apperrors.NewFetchError(err)
	}
	return ticket, nil
}

func (s *TicketService) applyTransition(ctx context.Context, change repository.StatusChange, from domain.TicketStatus, eventType events.EventType, actor events.Actor, actorID *string, actorType domain.SubjectType, note string) (*domain.Ticket, error) {
	updated, err := s.tickets.TransitionStatus(ctx, change)
	if errors.Is(err, repository.ErrStatusConflict) {
		return nil, apperrors.NewConflict("ticket status changed concurrently", nil)
	}
	if err != nil {
		return nil, apperrors.NewFetchError(err)
	}
	s.recordTransition(ctx, updated.ID, actorType, actorID, from, updated.Status, note, false)
	s.publishEvent(ctx, events.Event{
		Type:     eventType,
		TicketID: updated.ID,
		Actor:    actor,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: from,
			NewStatus: updated.Status,
			Note:      note,
		},
	})
	return updated, nil
}

func (s *TicketService) recordTransition(ctx context.Context, ticketID string, actorType domain.SubjectType, actorID *string, from, to domain.TicketStatus, note string, bestEffort bool) {
	if s.transitions == nil {
		return
	}
	entry := &domain.TicketTransition{
		TicketID:  ticketID,
		ActorType: actorType,
		ActorID:   actorID,
		From:      from,
		To:        to,
		Note:      note,
	}
	if err := s.transitions.Record(ctx, entry); err != nil {
		s.logger.Warn("transition audit write failed",
			zap.String("ticket_id", ticketID),
			zap.Bool("best_effort", bestEffort),
			zap.Error(err))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func userActor(userID string) events.Actor {
	return events.Actor{
		Type:   domain.SubjectTypeUser,
		UserID: &userID,
	}
}

func agentActor(agentID string) events.Actor {
	return events.Actor{
		Type:    domain.SubjectTypeAgent,
		AgentID: &agentID,
	}
}

func systemActor() events.Actor {
	return events.Actor{Type: domain.SubjectTypeSystem}
}
