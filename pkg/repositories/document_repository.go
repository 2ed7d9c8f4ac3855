package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-rag/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-rag/pkg/database"
	"github.com/ekaya-inc/ekaya-rag/pkg/models"
)

// DocumentRepository persists documents. Documents are immutable once created.
type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	Get(ctx context.Context, tenantID, documentID uuid.UUID) (*models.Document, error)
	CountChunks(ctx context.Context, tenantID, documentID uuid.UUID) (int, error)
}

type documentRepository struct{}

// NewDocumentRepository creates a DocumentRepository backed by PostgreSQL.
func NewDocumentRepository() DocumentRepository {
	return &documentRepository{}
}

var _ DocumentRepository = (*documentRepository)(nil)

func (r *documentRepository) Create(ctx context.Context, doc *models.Document) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return apperrors.ErrNoTenantScope
	}

	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	metadataJSON, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO documents (id, tenant_id, content, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = scope.Conn.Exec(ctx, query, doc.ID, doc.TenantID, doc.Content, metadataJSON, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

func (r *documentRepository) Get(ctx context.Context, tenantID, documentID uuid.UUID) (*models.Document, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoTenantScope
	}

	query := `
		SELECT id, tenant_id, content, metadata, created_at
		FROM documents
		WHERE tenant_id = $1 AND id = $2`

	var doc models.Document
	var metadataJSON []byte
	err := scope.Conn.QueryRow(ctx, query, tenantID, documentID).
		Scan(&doc.ID, &doc.TenantID, &doc.Content, &metadataJSON, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &doc, nil
}

func (r *documentRepository) CountChunks(ctx context.Context, tenantID, documentID uuid.UUID) (int, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return 0, apperrors.ErrNoTenantScope
	}

	var n int
	err := scope.Conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM document_chunks WHERE tenant_id = $1 AND document_id = $2`,
		tenantID, documentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// marshalMetadata returns nil for empty metadata so the column stays NULL.
func marshalMetadata(m models.Metadata) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return data, nil
}
