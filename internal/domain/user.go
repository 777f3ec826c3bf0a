package domain

import (
	"strings"
	"time"
)

// UserStatus represents lifecycle states for an owner account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is the domain model for travelers who submit tickets.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GuestIDPrefix marks owner identifiers minted for unauthenticated callers.
const GuestIDPrefix = "GUEST-"

// IsGuestID reports whether the owner identifier was minted for a guest.
func IsGuestID(ownerID string) bool {
	return strings.HasPrefix(ownerID, GuestIDPrefix)
}
