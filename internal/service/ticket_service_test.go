package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/prithvi-travels/helpdesk/internal/domain"
	"github.com/prithvi-travels/helpdesk/internal/repository"
	apperrors "github.com/prithvi-travels/helpdesk/pkg/util"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type fakeTicketRepo struct {
	mu               sync.Mutex
	tickets          map[string]*domain.Ticket
	listErr          error
	beforeTransition func(id string)
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	clone := *t
	clone.Responses = domain.Responses{}
	for _, phase := range []domain.ResponsePhase{domain.PhaseOpened, domain.PhaseResolved, domain.PhaseReopened, domain.PhaseClosed} {
		if resp := t.Responses.Get(phase); resp != nil {
			clone.Responses.Set(phase, *resp)
		}
	}
	if t.ResolvedAt != nil {
		resolvedAt := *t.ResolvedAt
		clone.ResolvedAt = &resolvedAt
	}
	return &clone
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = uuid.NewString()
	r.tickets[ticket.ID] = cloneTicket(ticket)
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneTicket(ticket), nil
}

func (r *fakeTicketRepo) ListByOwner(_ context.Context, ownerID string) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.OwnerID == ownerID {
			result = append(result, *cloneTicket(ticket))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *fakeTicketRepo) ListResolvedBefore(_ context.Context, ownerID string, cutoff time.Time) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.Status != domain.TicketStatusResolved || ticket.ResolvedAt == nil {
			continue
		}
		if !ticket.ResolvedAt.Before(cutoff) {
			continue
		}
		if ownerID != "" && ticket.OwnerID != ownerID {
			continue
		}
		result = append(result, *cloneTicket(ticket))
	}
	return result, nil
}

func (r *fakeTicketRepo) TransitionStatus(_ context.Context, change repository.StatusChange) (*domain.Ticket, error) {
	if r.beforeTransition != nil {
		r.beforeTransition(change.TicketID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[change.TicketID]
	if !ok {
		return nil, repository.ErrStatusConflict
	}
	matched := false
	for _, status := range change.Expected {
		if ticket.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return nil, repository.ErrStatusConflict
	}
	ticket.Status = change.Next
	ticket.UpdatedAt = change.Now
	if change.SetResolvedAt {
		resolvedAt := change.Now
		ticket.ResolvedAt = &resolvedAt
	}
	ticket.Responses.Set(change.Phase, change.Response)
	return cloneTicket(ticket), nil
}

// setStatus force-sets stored state, bypassing the state machine.
func (r *fakeTicketRepo) setStatus(id string, status domain.TicketStatus, resolvedAt *time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket := r.tickets[id]
	ticket.Status = status
	ticket.ResolvedAt = resolvedAt
}

func newTestService(repo *fakeTicketRepo, clock *fakeClock) *TicketService {
	return NewTicketService(TicketDependencies{
		TicketRepo: repo,
		Clock:      clock.Now,
	})
}

func domainErr(t *testing.T, err error) *apperrors.DomainError {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var de *apperrors.DomainError
	if !errors.As(err, &de) {
		t.Fatalf("expected DomainError, got %T: %v", err, err)
	}
	return de
}

var baseTime = time.Date(2026, time.August, 1, 10, 0, 0, 0, time.UTC)

func TestCreateTicketValidation(t *testing.T) {
	tests := []struct {
		name        string
		category    domain.TicketCategory
		description string
		wantField   string
	}{
		{
			name:        "missing category",
			category:    "",
			description: "a perfectly fine description",
			wantField:   "category",
		},
		{
			name:        "unknown category",
			category:    "Complaints",
			description: "a perfectly fine description",
			wantField:   "category",
		},
		{
			name:        "nine characters",
			category:    domain.CategoryOther,
			description: "ninechars",
			wantField:   "description",
		},
		{
			name:        "whitespace padding does not count",
			category:    domain.CategoryOther,
			description: "   short   ",
			wantField:   "description",
		},
		{
			name:        "over one thousand characters",
			category:    domain.CategoryOther,
			description: strings.Repeat("a", 1001),
			wantField:   "description",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeTicketRepo()
			svc := newTestService(repo, &fakeClock{t: baseTime})

			_, err := svc.CreateTicket(context.Background(), "owner-1", TicketCreateInput{
				Category:    tt.category,
				Description: tt.description,
			})
			de := domainErr(t, err)
			if de.Code != "VALIDATION_FAILED" {
				t.Errorf("code = %s, want VALIDATION_FAILED", de.Code)
			}
			if got := de.Details["field"]; got != tt.wantField {
				t.Errorf("field = %v, want %s", got, tt.wantField)
			}
			if len(repo.tickets) != 0 {
				t.Errorf("store mutated on validation failure: %d tickets", len(repo.tickets))
			}
		})
	}
}

func TestCreateTicketBoundaryLengths(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo, &fakeClock{t: baseTime})

	if _, err := svc.CreateTicket(context.Background(), "owner-1", TicketCreateInput{
		Category:    domain.CategoryOther,
		Description: strings.Repeat("a", 10),
	}); err != nil {
		t.Errorf("10 characters should pass: %v", err)
	}
	if _, err := svc.CreateTicket(context.Background(), "owner-1", TicketCreateInput{
		Category:    domain.CategoryOther,
		Description: strings.Repeat("a", 1000),
	}); err != nil {
		t.Errorf("1000 characters should pass: %v", err)
	}
}

func TestCreateTicketPopulatesOpenedResponse(t *testing.T) {
	repo := newFakeTicketRepo()
	clock := &fakeClock{t: baseTime}
	svc := newTestService(repo, clock)

	// Padded on purpose: bounds apply to the trimmed text, but the stored
	// response is the submission verbatim.
	description := "  My booking page keeps crashing.  "
	ticket, err := svc.CreateTicket(context.Background(), "owner-1", TicketCreateInput{
		Category:      domain.CategoryTechnical,
		Description:   description,
		AttachmentURL: "/attachments/crash.png",
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	if ticket.Status != domain.TicketStatusOpened {
		t.Errorf("status = %s, want opened", ticket.Status)
	}
	if ticket.OwnerID != "owner-1" {
		t.Errorf("owner = %s", ticket.OwnerID)
	}
	if !ticket.CreatedAt.Equal(baseTime) || !ticket.UpdatedAt.Equal(baseTime) {
		t.Errorf("timestamps = %v / %v, want %v", ticket.CreatedAt, ticket.UpdatedAt, baseTime)
	}
	opened := ticket.Responses.Opened
	if opened == nil {
		t.Fatal("responses.opened missing")
	}
	if opened.Response != description {
		t.Errorf("opened.response = %q, want %q", opened.Response, description)
	}
	if opened.AttachmentURL != "/attachments/crash.png" {
		t.Errorf("opened.attachmentURL = %q", opened.AttachmentURL)
	}
	if !opened.CreatedAt.Equal(baseTime) {
		t.Errorf("opened.createdAt = %v", opened.CreatedAt)
	}
}

func createResolvedTicket(t *testing.T, repo *fakeTicketRepo, svc *TicketService, ownerID string, resolvedAt time.Time) *domain.Ticket {
	t.Helper()
	ticket, err := svc.CreateTicket(context.Background(), ownerID, TicketCreateInput{
		Category:    domain.CategoryTechnical,
		Description: "something broke and stayed broken",
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	repo.setStatus(ticket.ID, domain.TicketStatusResolved, &resolvedAt)
	return ticket
}

func TestReopenTicketNotResolved(t *testing.T) {
	for _, status := range []domain.TicketStatus{
		domain.TicketStatusOpened,
		domain.TicketStatusReopened,
		domain.TicketStatusClosed,
	} {
		t.Run(string(status), func(t *testing.T) {
			repo := newFakeTicketRepo()
			clock := &fakeClock{t: baseTime}
			svc := newTestService(repo, clock)

			ticket, err := svc.CreateTicket(context.Background(), "owner-1", TicketCreateInput{
				Category:    domain.CategoryBilling,
				Description: "charged twice for the same cruise",
			})
			if err != nil {
				t.Fatalf("CreateTicket: %v", err)
			}
			repo.setStatus(ticket.ID, status, nil)

			_, err = svc.ReopenTicket(context.Background(), "owner-1", ticket.ID, "still charged", "")
			de := domainErr(t, err)
			if de.Code != apperrors.CodeNotResolved {
				t.Errorf("code = %s, want %s", de.Code, apperrors.CodeNotResolved)
			}
		})
	}
}

func TestReopenTicketReasonRequired(t *testing.T) {
	repo := newFakeTicketRepo()
	clock := &fakeClock{t: baseTime}
	svc := newTestService(repo, clock)
	ticket := createResolvedTicket(t, repo, svc, "owner-1", baseTime)

	_, err := svc.ReopenTicket(context.Background(), "owner-1", ticket.ID, "   ", "")
	de := domainErr(t, err)
	if de.Code != apperrors.CodeReasonRequired {
		t.Errorf("code = %s, want %s", de.Code, apperrors.CodeReasonRequired)
	}
}

func TestReopenTicketWithinWindow(t *testing.T) {
	repo := newFakeTicketRepo()
	clock := &fakeClock{t: baseTime}
	svc := newTestService(repo, clock)
	ticket := createResolvedTicket(t, repo, svc, "owner-1", baseTime)

	clock.Set(baseTime.Add(48 * time.Hour))
	updated, err := svc.ReopenTicket(context.Background(), "owner-1", ticket.ID, "Issue recurred ", "")
	if err != nil {
		t.Fatalf("ReopenTicket: %v", err)
	}
	if updated.Status != domain.TicketStatusReopened {
		t.Errorf("status = %s, want reopened", updated.Status)
	}
	reopened := updated.Responses.Reopened
	if reopened == nil || reopened.Response != "Issue recurred " {
		t.Errorf("responses.reopened = %+v, want the reason verbatim", reopened)
	}
}

func TestReopenTicketBoundaryInclusive(t *testing.T) {
	repo := newFakeTicketRepo()
	clock := &fakeClock{t: baseTime}
	svc := newTestService(repo, clock)
	ticket := createResolvedTicket(t, repo, svc, "owner-1", baseTime)

	// Exactly 3 days after resolution still allows reopening.
	clock.Set(baseTime.Add(domain.ReopenWindow))
	if _, err := svc.ReopenTicket(context.Background(), "owner-1", ticket.ID, "still broken", ""); err != nil {
		t.Fatalf("reopen at exact boundary: %v", err)
	}
}

func TestReopenTicketWindowExpired(t *testing.T) {
	repo := newFakeTicketRepo()
	clock := &fakeClock{t: baseTime}
	svc := newTestService(repo, clock)
	ticket := createResolvedTicket(t, repo, svc, "owner-1", baseTime)

	clock.Set(baseTime.Add(4 * 24 * time.Hour))
	_, err := svc.ReopenTicket(context.Background(), "owner-1", ticket.ID, "Issue recurred", "")
	de := domainErr(t, err)
	if de.Code != apperrors.CodeWindowExpired {
		t.Errorf("code = %s, want %s", de.Code, apperrors.CodeWindowExpired)
	}
}

func TestReopenTicketKeepsResolvedResponse(t *testing.T) {
	repo := newFakeTicketRepo()
	clock := &fakeClock{t: baseTime}
	svc := newTestService(repo, clock)

	ticket, err := svc.CreateTicket(context.Background(), "owner-1", TicketCreateInput{
		Category:    domain.CategoryTechnical,
		Description: "itinerary PDF will not download",
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	agent := &domain.Agent{ID: "agent-1", Role: domain.AgentRoleAgent, Active: true}
	if _, err := svc.ResolveTicket(context.Background(), agent, ticket.ID, "regenerated the PDF", ""); err != nil {
		t.Fatalf("ResolveTicket: %v", err)
	}

	clock.Set(baseTime.Add(24 * time.Hour))
	updated, err := svc.ReopenTicket(context.Background(), "owner-1", ticket.ID, "download still fails", "")
	if err != nil {
		t.Fatalf("ReopenTicket: %v", err)
	}
	resolved := updated.Responses.Resolved
	if resolved == nil || resolved.Response != "regenerated the PDF" {
		t.Errorf("responses.resolved lost on reopen: %+v", resolved)
	}
	if updated.ResolvedAt == nil {
		t.Error("resolvedAt cleared on reopen; history should be retained")
	}
}

func TestReopenTicketWrongOwner(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo, &fakeClock{t: baseTime})
	ticket := createResolvedTicket(t, repo, svc, "owner-1", baseTime)

	_, err := svc.ReopenTicket(context.Background(), "owner-2", ticket.ID, "not mine", "")
	de := domainErr(t, err)
	if de.Code != "FORBIDDEN" {
		t.Errorf("code = %s, want FORBIDDEN", de.Code)
	}
}

func TestResolveTicketSetsResolvedAt(t *testing.T) {
	repo := newFakeTicketRepo()
	clock := &fakeClock{t: baseTime}
	svc := newTestService(repo, clock)
	agent := &domain.Agent{ID: "agent-1", Role: domain.AgentRoleAgent, Active: true}

	ticket, err := svc.CreateTicket(context.Background(), "owner-1", TicketCreateInput{
		Category:    domain.CategoryAccount,
		Description: "cannot update my passport number",
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	resolveTime := baseTime.Add(time.Hour)
	clock.Set(resolveTime)
	resolved, err := svc.ResolveTicket(context.Background(), agent, ticket.ID, "updated on your behalf", "")
	if err != nil {
		t.Fatalf("ResolveTicket: %v", err)
	}
	if resolved.Status != domain.TicketStatusResolved {
		t.Errorf("status = %s, want resolved", resolved.Status)
	}
	if resolved.ResolvedAt == nil || !resolved.ResolvedAt.Equal(resolveTime) {
		t.Errorf("resolvedAt = %v, want %v", resolved.ResolvedAt, resolveTime)
	}

	// resolved → resolved is not a legal edge
	if _, err := svc.ResolveTicket(context.Background(), agent, ticket.ID, "again", ""); err == nil {
		t.Error("resolving an already-resolved ticket should fail")
	}
}

func TestCloseTicketTerminal(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo, &fakeClock{t: baseTime})

	ticket, err := svc.CreateTicket(context.Background(), "owner-1", TicketCreateInput{
		Category:    domain.CategoryOther,
		Description: "please delete my old enquiry",
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	closed, err := svc.CloseTicketAsOwner(context.Background(), "owner-1", ticket.ID)
	if err != nil {
		t.Fatalf("CloseTicketAsOwner: %v", err)
	}
	if closed.Status != domain.TicketStatusClosed {
		t.Errorf("status = %s, want closed", closed.Status)
	}

	if _, err := svc.CloseTicketAsOwner(context.Background(), "owner-1", ticket.ID); err == nil {
		t.Error("closing a closed ticket should fail")
	}
}

func TestSweepClosesLapsedTickets(t *testing.T) {
	repo := newFakeTicketRepo()
	clock := &fakeClock{t: baseTime}
	svc := newTestService(repo, clock)

	lapsed := createResolvedTicket(t, repo, svc, "owner-1", baseTime)
	fresh := createResolvedTicket(t, repo, svc, "owner-1", baseTime.Add(48*time.Hour))
	open, err := svc.CreateTicket(context.Background(), "owner-1", TicketCreateInput{
		Category:    domain.CategoryOther,
		Description: "this one is not resolved yet",
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	sweepTime := baseTime.Add(domain.ReopenWindow + time.Minute)
	closures, err := svc.SweepOwner(context.Background(), "owner-1", sweepTime)
	if err != nil {
		t.Fatalf("SweepOwner: %v", err)
	}
	if len(closures) != 1 || closures[0].TicketID != lapsed.ID {
		t.Fatalf("closures = %+v, want only %s", closures, lapsed.ID)
	}
	closed := closures[0].Ticket
	if closed.Status != domain.TicketStatusClosed {
		t.Errorf("status = %s, want closed", closed.Status)
	}
	if closed.Responses.Closed == nil || closed.Responses.Closed.Response != AutoCloseMessage {
		t.Errorf("responses.closed = %+v", closed.Responses.Closed)
	}

	for _, id := range []string{fresh.ID, open.ID} {
		stored, err := repo.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if stored.Status == domain.TicketStatusClosed {
			t.Errorf("ticket %s closed by sweep; should not be eligible", id)
		}
	}

	// Re-running with no intervening change produces no mutations.
	again, err := svc.SweepOwner(context.Background(), "owner-1", sweepTime)
	if err != nil {
		t.Fatalf("second SweepOwner: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second sweep produced %d closures, want 0", len(again))
	}
}

func TestSweepSkipsConcurrentReopen(t *testing.T) {
	repo := newFakeTicketRepo()
	clock := &fakeClock{t: baseTime}
	svc := newTestService(repo, clock)
	ticket := createResolvedTicket(t, repo, svc, "owner-1", baseTime)

	// A reopen lands between the sweep's read and its conditional write.
	repo.beforeTransition = func(id string) {
		repo.beforeTransition = nil
		repo.setStatus(id, domain.TicketStatusReopened, &baseTime)
	}

	stats, err := svc.Sweep(context.Background(), baseTime.Add(domain.ReopenWindow+time.Hour))
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if stats.Closed != 0 || stats.Skipped != 1 {
		t.Errorf("stats = %+v, want 1 skipped, 0 closed", stats)
	}

	stored, err := repo.GetByID(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != domain.TicketStatusReopened {
		t.Errorf("status = %s; sweep must not clobber the reopen", stored.Status)
	}
}

func TestListTicketsOrderedNewestFirst(t *testing.T) {
	repo := newFakeTicketRepo()
	clock := &fakeClock{t: baseTime}
	svc := newTestService(repo, clock)

	var ids []string
	for i := 0; i < 3; i++ {
		clock.Set(baseTime.Add(time.Duration(i) * time.Hour))
		ticket, err := svc.CreateTicket(context.Background(), "owner-1", TicketCreateInput{
			Category:    domain.CategoryOther,
			Description: fmt.Sprintf("ticket number %d needs attention", i),
		})
		if err != nil {
			t.Fatalf("CreateTicket: %v", err)
		}
		ids = append(ids, ticket.ID)
	}

	tickets, err := svc.ListTickets(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	if len(tickets) != 3 {
		t.Fatalf("got %d tickets, want 3", len(tickets))
	}
	for i, want := range []string{ids[2], ids[1], ids[0]} {
		if tickets[i].ID != want {
			t.Errorf("tickets[%d].ID = %s, want %s", i, tickets[i].ID, want)
		}
	}
}

func TestListTicketsFetchError(t *testing.T) {
	repo := newFakeTicketRepo()
	repo.listErr = errors.New("connection refused")
	svc := newTestService(repo, &fakeClock{t: baseTime})

	_, err := svc.ListTickets(context.Background(), "owner-1")
	de := domainErr(t, err)
	if de.Code != "FETCH_FAILED" {
		t.Errorf("code = %s, want FETCH_FAILED", de.Code)
	}
}

func TestReopenTicketNotFound(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo, &fakeClock{t: baseTime})

	// Both a well-formed id that matches nothing and a malformed one are
	// not-found, never a store failure.
	for _, id := range []string{uuid.NewString(), "abc", "T-404"} {
		_, err := svc.ReopenTicket(context.Background(), "owner-1", id, "it broke", "")
		de := domainErr(t, err)
		if de.Code != "NOT_FOUND" {
			t.Errorf("id %q: code = %s, want NOT_FOUND", id, de.Code)
		}
	}
}
