package domain

import (
	"testing"
	"time"
)

var resolvedAt = time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC)

func resolvedTicket() *Ticket {
	at := resolvedAt
	return &Ticket{
		ID:         "T-001",
		Status:     TicketStatusResolved,
		ResolvedAt: &at,
	}
}

func TestCanReopenWindow(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"immediately after resolution", resolvedAt, true},
		{"two days later", resolvedAt.Add(48 * time.Hour), true},
		{"exactly at the boundary", resolvedAt.Add(ReopenWindow), true},
		{"one second past the boundary", resolvedAt.Add(ReopenWindow + time.Second), false},
		{"four days later", resolvedAt.Add(96 * time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolvedTicket().CanReopen(tt.now); got != tt.want {
				t.Errorf("CanReopen(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestCanReopenStatusGate(t *testing.T) {
	for _, status := range []TicketStatus{TicketStatusOpened, TicketStatusReopened, TicketStatusClosed} {
		ticket := resolvedTicket()
		ticket.Status = status
		if ticket.CanReopen(resolvedAt) {
			t.Errorf("CanReopen true for status %s", status)
		}
	}
}

func TestAutoCloseEligible(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"within window", resolvedAt.Add(time.Hour), false},
		{"exactly at the boundary", resolvedAt.Add(ReopenWindow), false},
		{"one minute past", resolvedAt.Add(ReopenWindow + time.Minute), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolvedTicket().AutoCloseEligible(tt.now); got != tt.want {
				t.Errorf("AutoCloseEligible(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}

	opened := &Ticket{Status: TicketStatusOpened}
	if opened.AutoCloseEligible(resolvedAt.Add(200 * time.Hour)) {
		t.Error("opened ticket must never be auto-close eligible")
	}
}

func TestEffectiveStatus(t *testing.T) {
	ticket := resolvedTicket()
	if got := ticket.EffectiveStatus(resolvedAt.Add(time.Hour)); got != TicketStatusResolved {
		t.Errorf("within window: got %s, want resolved", got)
	}
	if got := ticket.EffectiveStatus(resolvedAt.Add(ReopenWindow + time.Hour)); got != TicketStatusPendingClosure {
		t.Errorf("past window: got %s, want pendingClosure", got)
	}

	closed := &Ticket{Status: TicketStatusClosed}
	if got := closed.EffectiveStatus(resolvedAt); got != TicketStatusClosed {
		t.Errorf("closed ticket: got %s", got)
	}
}

func TestCategoryValid(t *testing.T) {
	for _, c := range []TicketCategory{CategoryAccount, CategoryTechnical, CategoryBilling, CategoryFeature, CategoryOther} {
		if !c.Valid() {
			t.Errorf("%s should be valid", c)
		}
	}
	for _, c := range []TicketCategory{"", "Complaints", "technical support"} {
		if c.Valid() {
			t.Errorf("%q should not be valid", c)
		}
	}
}

func TestResponsesSetPreservesOtherPhases(t *testing.T) {
	var r Responses
	r.Set(PhaseOpened, PhaseResponse{Response: "it broke"})
	r.Set(PhaseResolved, PhaseResponse{Response: "fixed it"})
	r.Set(PhaseReopened, PhaseResponse{Response: "broke again"})

	if r.Opened == nil || r.Opened.Response != "it broke" {
		t.Errorf("opened entry lost: %+v", r.Opened)
	}
	if r.Resolved == nil || r.Resolved.Response != "fixed it" {
		t.Errorf("resolved entry lost: %+v", r.Resolved)
	}
	if got := r.Get(PhaseReopened); got == nil || got.Response != "broke again" {
		t.Errorf("Get(reopened) = %+v", got)
	}
	if r.Closed != nil {
		t.Errorf("closed entry should be unset, got %+v", r.Closed)
	}
}
