package events

import (
	"time"

	"github.com/prithvi-travels/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated    EventType = "ticket_created"
	EventTicketResolved   EventType = "ticket_resolved"
	EventTicketReopened   EventType = "ticket_reopened"
	EventTicketClosed     EventType = "ticket_closed"
	EventTicketAutoClosed EventType = "ticket_auto_closed"
)

// Actor encapsulates actor metadata for an event. The sweep publishes with
// the system subject and no identifier.
type Actor struct {
	Type    domain.SubjectType `json:"type"`
	UserID  *string            `json:"user_id,omitempty"`
	AgentID *string            `json:"agent_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	OwnerID  string                `json:"owner_id"`
	Category domain.TicketCategory `json:"category"`
}

// TicketStatusChangedPayload payload shared by resolve/reopen/close events.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Note      string              `json:"note,omitempty"`
}
