package auth

import (
	"strings"

	"github.com/google/uuid"

	"github.com/prithvi-travels/helpdesk/internal/domain"
)

// MintGuestID produces a collision-resistant owner identifier for an
// unauthenticated submitter.
func MintGuestID() string {
	return domain.GuestIDPrefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
