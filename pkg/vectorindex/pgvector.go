package vectorindex

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/ekaya-inc/ekaya-rag/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-rag/pkg/database"
	"github.com/ekaya-inc/ekaya-rag/pkg/models"
)

type pgvectorIndex struct {
	dimension int
}

// NewPgvectorIndex creates an Index over the document_chunks table. Both
// operations use the tenant scope carried in ctx; Insert therefore joins the
// caller's transaction.
func NewPgvectorIndex(dimension int) Index {
	return &pgvectorIndex{dimension: dimension}
}

var _ Index = (*pgvectorIndex)(nil)

func (i *pgvectorIndex) Insert(ctx context.Context, chunk *models.Chunk) error {
	if len(chunk.Embedding) != i.dimension {
		return &apperrors.ConfigurationError{
			Setting: "embedding.dimension",
			Message: fmt.Sprintf("vector has %d dimensions, index expects %d", len(chunk.Embedding), i.dimension),
		}
	}

	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return apperrors.ErrNoTenantScope
	}

	if chunk.ID == uuid.Nil {
		chunk.ID = uuid.New()
	}

	query := `
		INSERT INTO document_chunks (id, document_id, tenant_id, chunk_text, chunk_index, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	var createdAt time.Time
	err := scope.Conn.QueryRow(ctx, query,
		chunk.ID,
		chunk.DocumentID,
		chunk.TenantID,
		chunk.Text,
		chunk.Index,
		pgvector.NewVector(chunk.Embedding),
	).Scan(&createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert chunk %d: %w", chunk.Index, err)
	}
	chunk.CreatedAt = createdAt

	return nil
}

// Search ranks only the tenant's rows. The materialized CTE keeps the planner
// from ranking across tenants and filtering afterwards.
func (i *pgvectorIndex) Search(ctx context.Context, tenantID uuid.UUID, vector []float32, topK int) ([]models.SearchResult, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoTenantScope
	}

	query := `
		WITH scoped AS MATERIALIZED (
			SELECT id, document_id, chunk_text, chunk_index, embedding, created_at
			FROM document_chunks
			WHERE tenant_id = $1
		)
		SELECT id, document_id, chunk_text, 1 - (embedding <=> $2) AS similarity
		FROM scoped
		ORDER BY embedding <=> $2, created_at, chunk_index, id
		LIMIT $3`

	rows, err := scope.Conn.Query(ctx, query, tenantID, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	results := make([]models.SearchResult, 0, topK)
	for rows.Next() {
		var r models.SearchResult
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.Text, &r.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate search results: %w", err)
	}

	return results, nil
}
