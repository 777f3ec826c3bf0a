package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prithvi-travels/helpdesk/internal/domain"
)

// AttachmentRepository persists attachment metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.AttachmentReference) error
	GetByID(ctx context.Context, id string) (*domain.AttachmentReference, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.AttachmentReference, error)
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.AttachmentReference) error {
	const query = `
        INSERT INTO attachments (owner_id, storage_key, file_name, mime_type, size_bytes, url)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		attachment.OwnerID,
		attachment.StorageKey,
		attachment.FileName,
		attachment.MimeType,
		attachment.SizeBytes,
		attachment.URL,
	).Scan(&attachment.ID, &attachment.CreatedAt)
}

func (r *attachmentRepository) GetByID(ctx context.Context, id string) (*domain.AttachmentReference, error) {
	const query = `
        SELECT id, owner_id, storage_key, file_name, mime_type, size_bytes, url, created_at
        FROM attachments WHERE id=$1`
	var attachment domain.AttachmentReference
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&attachment.ID,
		&attachment.OwnerID,
		&attachment.StorageKey,
		&attachment.FileName,
		&attachment.MimeType,
		&attachment.SizeBytes,
		&attachment.URL,
		&attachment.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &attachment, nil
}

func (r *attachmentRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.AttachmentReference, error) {
	const query = `
        SELECT id, owner_id, storage_key, file_name, mime_type, size_bytes, url, created_at
        FROM attachments WHERE owner_id=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AttachmentReference
	for rows.Next() {
		var attachment domain.AttachmentReference
		if err := rows.Scan(
			&attachment.ID,
			&attachment.OwnerID,
			&attachment.StorageKey,
			&attachment.FileName,
			&attachment.MimeType,
			&attachment.SizeBytes,
			&attachment.URL,
			&attachment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}
