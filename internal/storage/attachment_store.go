package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prithvi-travels/helpdesk/internal/config"
	"github.com/prithvi-travels/helpdesk/internal/domain"
	"github.com/prithvi-travels/helpdesk/internal/repository"
	apperrors "github.com/prithvi-travels/helpdesk/pkg/util"
)

// AttachmentStore is the attachment-provider contract: given a file, it
// returns a stable retrievable URL. Failures surface as UploadError,
// independent of any ticket mutation.
type AttachmentStore struct {
	cfg    config.AttachmentConfig
	refs   repository.AttachmentRepository
	logger *zap.Logger
}

// NewAttachmentStore prepares the storage directory.
func NewAttachmentStore(cfg config.AttachmentConfig, refs repository.AttachmentRepository, logger *zap.Logger) (*AttachmentStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}
	return &AttachmentStore{cfg: cfg, refs: refs, logger: logger}, nil
}

// Save stores the file content and records its metadata, returning the
// reference with a stable URL.
func (s *AttachmentStore) Save(ctx context.Context, ownerID, fileName, mimeType string, size int64, content io.Reader) (*domain.AttachmentReference, error) {
	if s.cfg.MaxSizeBytes > 0 && size > s.cfg.MaxSizeBytes {
		return nil, apperrors.NewValidationError("file", "attachment exceeds maximum size")
	}

	key := uuid.NewString() + sanitizedExt(fileName)
	dest := filepath.Join(s.cfg.Dir, key)

	out, err := os.Create(dest)
	if err != nil {
		return nil, apperrors.NewUploadError(err)
	}
	if _, err := io.Copy(out, content); err != nil {
		out.Close()
		os.Remove(dest)
		return nil, apperrors.NewUploadError(err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return nil, apperrors.NewUploadError(err)
	}

	ref := &domain.AttachmentReference{
		OwnerID:    ownerID,
		StorageKey: key,
		FileName:   fileName,
		MimeType:   mimeType,
		SizeBytes:  size,
		URL:        path.Join(s.cfg.BaseURL, key),
	}
	if err := s.refs.Create(ctx, ref); err != nil {
		os.Remove(dest)
		return nil, apperrors.NewUploadError(err)
	}

	s.logger.Debug("attachment stored",
		zap.String("owner_id", ownerID),
		zap.String("storage_key", key),
		zap.Int64("size_bytes", size))
	return ref, nil
}

// Dir exposes the storage directory for static serving.
func (s *AttachmentStore) Dir() string {
	return s.cfg.Dir
}

func sanitizedExt(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if len(ext) > 10 {
		return ""
	}
	for _, r := range ext {
		if r != '.' && (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
