package domain

import "time"

// AttachmentReference records metadata for an uploaded file referenced by
// a ticket response.
type AttachmentReference struct {
	ID         string
	OwnerID    string
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	URL        string
	CreatedAt  time.Time
}
