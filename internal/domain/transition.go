package domain

import "time"

// TicketTransition is an immutable audit entry for one status change.
type TicketTransition struct {
	ID        string
	TicketID  string
	ActorType SubjectType
	ActorID   *string
	From      TicketStatus
	To        TicketStatus
	Note      string
	CreatedAt time.Time
}
