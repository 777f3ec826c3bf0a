package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/prithvi-travels/helpdesk/internal/auth"
	"github.com/prithvi-travels/helpdesk/internal/storage"
	apperrors "github.com/prithvi-travels/helpdesk/pkg/util"
)

// AttachmentsHandler accepts file uploads for ticket responses.
type AttachmentsHandler struct {
	store *storage.AttachmentStore
}

// NewAttachmentsHandler constructs handler.
func NewAttachmentsHandler(store *storage.AttachmentStore) *AttachmentsHandler {
	return &AttachmentsHandler{store: store}
}

// Upload POST /attachments (multipart). Guests may upload before creating
// their ticket; the reference is attributed at ticket creation.
func (h *AttachmentsHandler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file", "multipart file field required")
	}

	ownerID := ownerFromContext(c)
	if ownerID == "" {
		ownerID = auth.MintGuestID()
	}

	file, err := fileHeader.Open()
	if err != nil {
		return apperrors.NewUploadError(err)
	}
	defer file.Close()

	ref, err := h.store.Save(c.Context(), ownerID, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), fileHeader.Size, file)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"id":         ref.ID,
		"file_name":  ref.FileName,
		"mime_type":  ref.MimeType,
		"size_bytes": ref.SizeBytes,
		"url":        ref.URL,
	}})
}
