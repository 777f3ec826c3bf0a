package domain

import "time"

// TicketStatus enumerates lifecycle states for help-desk tickets.
type TicketStatus string

const (
	TicketStatusOpened   TicketStatus = "opened"
	TicketStatusResolved TicketStatus = "resolved"
	TicketStatusReopened TicketStatus = "reopened"
	TicketStatusClosed   TicketStatus = "closed"

	// TicketStatusPendingClosure is never persisted. It is the derived
	// status of a resolved ticket whose grace window has lapsed but which
	// the sweep has not yet closed.
	TicketStatusPendingClosure TicketStatus = "pendingClosure"
)

// Terminal reports whether no further transition is allowed from s.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusClosed
}

// TicketCategory enumerates the fixed category set chosen at creation.
type TicketCategory string

const (
	CategoryAccount   TicketCategory = "Account Related"
	CategoryTechnical TicketCategory = "Technical Support"
	CategoryBilling   TicketCategory = "Billing Support"
	CategoryFeature   TicketCategory = "Feature Request"
	CategoryOther     TicketCategory = "Other"
)

// Valid reports whether c is one of the supported categories.
func (c TicketCategory) Valid() bool {
	switch c {
	case CategoryAccount, CategoryTechnical, CategoryBilling, CategoryFeature, CategoryOther:
		return true
	}
	return false
}

// ResponsePhase names the four slots of a ticket's response log.
type ResponsePhase string

const (
	PhaseOpened   ResponsePhase = "opened"
	PhaseResolved ResponsePhase = "resolved"
	PhaseReopened ResponsePhase = "reopened"
	PhaseClosed   ResponsePhase = "closed"
)

// ReopenWindow is the grace period after resolution during which the owner
// may still reopen a ticket. Once it lapses the sweep closes the ticket.
const ReopenWindow = 72 * time.Hour

// PhaseResponse is one entry in the per-phase response log.
type PhaseResponse struct {
	Response      string    `json:"response"`
	AttachmentURL string    `json:"attachmentUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Responses holds at most one response per phase. The opened entry is
// populated at creation and exists for the lifetime of the ticket; setting
// a phase never clears the entries of other phases.
type Responses struct {
	Opened   *PhaseResponse `json:"opened,omitempty"`
	Resolved *PhaseResponse `json:"resolved,omitempty"`
	Reopened *PhaseResponse `json:"reopened,omitempty"`
	Closed   *PhaseResponse `json:"closed,omitempty"`
}

// Set stores the response for the given phase, replacing any prior entry
// for that phase only.
func (r *Responses) Set(phase ResponsePhase, resp PhaseResponse) {
	switch phase {
	case PhaseOpened:
		r.Opened = &resp
	case PhaseResolved:
		r.Resolved = &resp
	case PhaseReopened:
		r.Reopened = &resp
	case PhaseClosed:
		r.Closed = &resp
	}
}

// Get returns the response recorded for the phase, or nil.
func (r Responses) Get(phase ResponsePhase) *PhaseResponse {
	switch phase {
	case PhaseOpened:
		return r.Opened
	case PhaseResolved:
		return r.Resolved
	case PhaseReopened:
		return r.Reopened
	case PhaseClosed:
		return r.Closed
	}
	return nil
}

// Ticket is the aggregate for help-desk support requests.
type Ticket struct {
	ID         string
	OwnerID    string
	Category   TicketCategory
	Status     TicketStatus
	Responses  Responses
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ResolvedAt *time.Time
}

// CanReopen reports whether the owner may reopen the ticket at now. Only
// resolved tickets qualify, and only within ReopenWindow of resolution;
// the boundary instant itself still allows reopening.
func (t *Ticket) CanReopen(now time.Time) bool {
	if t.Status != TicketStatusResolved {
		return false
	}
	if t.ResolvedAt == nil {
		return true
	}
	return !now.After(t.ResolvedAt.Add(ReopenWindow))
}

// AutoCloseEligible reports whether the sweep should close the ticket at
// now: resolved, with the grace window strictly lapsed.
func (t *Ticket) AutoCloseEligible(now time.Time) bool {
	if t.Status != TicketStatusResolved || t.ResolvedAt == nil {
		return false
	}
	return now.After(t.ResolvedAt.Add(ReopenWindow))
}

// EffectiveStatus is the status presentation layers should show: the stored
// status, substituting pendingClosure for sweep-eligible tickets.
func (t *Ticket) EffectiveStatus(now time.Time) TicketStatus {
	if t.AutoCloseEligible(now) {
		return TicketStatusPendingClosure
	}
	return t.Status
}
