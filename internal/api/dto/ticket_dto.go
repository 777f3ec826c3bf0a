package dto

import (
	"time"

	"github.com/prithvi-travels/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Category      domain.TicketCategory `json:"category"`
	Description   string                `json:"description"`
	AttachmentURL string                `json:"attachment_url,omitempty"`
}

// ReopenTicketRequest payload.
type ReopenTicketRequest struct {
	Reason        string `json:"reason"`
	AttachmentURL string `json:"attachment_url,omitempty"`
}

// ResolveTicketRequest payload for agent resolution.
type ResolveTicketRequest struct {
	Note          string `json:"note"`
	AttachmentURL string `json:"attachment_url,omitempty"`
}

// CloseTicketRequest payload for agent closure.
type CloseTicketRequest struct {
	Note string `json:"note"`
}

// PhaseResponseDTO is one entry of the response log.
type PhaseResponseDTO struct {
	Response      string    `json:"response"`
	AttachmentURL string    `json:"attachment_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ResponsesDTO mirrors the four-phase response log.
type ResponsesDTO struct {
	Opened   *PhaseResponseDTO `json:"opened,omitempty"`
	Resolved *PhaseResponseDTO `json:"resolved,omitempty"`
	Reopened *PhaseResponseDTO `json:"reopened,omitempty"`
	Closed   *PhaseResponseDTO `json:"closed,omitempty"`
}

// TicketSummary response.
type TicketSummary struct {
	ID              string                `json:"id"`
	OwnerID         string                `json:"owner_id"`
	Category        domain.TicketCategory `json:"category"`
	Status          domain.TicketStatus   `json:"status"`
	EffectiveStatus domain.TicketStatus   `json:"effective_status"`
	CanReopen       bool                  `json:"can_reopen"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	ResolvedAt      *time.Time            `json:"resolved_at,omitempty"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Responses   ResponsesDTO            `json:"responses"`
	Transitions []TransitionResponseDTO `json:"transitions,omitempty"`
}

// TransitionResponseDTO is one audit entry.
type TransitionResponseDTO struct {
	ID        string              `json:"id"`
	ActorType domain.SubjectType  `json:"actor_type"`
	ActorID   *string             `json:"actor_id,omitempty"`
	From      domain.TicketStatus `json:"from"`
	To        domain.TicketStatus `json:"to"`
	Note      string              `json:"note,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID        string `json:"id"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	URL       string `json:"url"`
}
