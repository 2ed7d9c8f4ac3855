package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-rag/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-rag/pkg/database"
	"github.com/ekaya-inc/ekaya-rag/pkg/models"
)

// QueryLogRepository appends query audit records.
type QueryLogRepository interface {
	Create(ctx context.Context, entry *models.QueryLogEntry) error
	ListRecent(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.QueryLogEntry, error)
}

type queryLogRepository struct{}

// NewQueryLogRepository creates a QueryLogRepository backed by PostgreSQL.
func NewQueryLogRepository() QueryLogRepository {
	return &queryLogRepository{}
}

var _ QueryLogRepository = (*queryLogRepository)(nil)

func (r *queryLogRepository) Create(ctx context.Context, entry *models.QueryLogEntry) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return apperrors.ErrNoTenantScope
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	sources := entry.SourcesUsed
	if sources == nil {
		sources = []models.Source{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("failed to marshal sources: %w", err)
	}

	query := `
		INSERT INTO query_logs (id, tenant_id, query, response, cached, sources_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = scope.Conn.Exec(ctx, query,
		entry.ID,
		entry.TenantID,
		entry.Query,
		entry.Response,
		entry.Cached,
		sourcesJSON,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to create query log entry: %w", err)
	}

	return nil
}

// ListRecent returns the newest entries first. It exists for operators and tests;
// the query pipeline never reads the log back.
func (r *queryLogRepository) ListRecent(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.QueryLogEntry, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoTenantScope
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT id, tenant_id, query, response, cached, sources_used, created_at
		FROM query_logs
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := scope.Conn.Query(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list query logs: %w", err)
	}
	defer rows.Close()

	var entries []*models.QueryLogEntry
	for rows.Next() {
		var e models.QueryLogEntry
		var sourcesJSON []byte
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Query, &e.Response, &e.Cached, &sourcesJSON, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan query log: %w", err)
		}
		if err := json.Unmarshal(sourcesJSON, &e.SourcesUsed); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sources: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate query logs: %w", err)
	}

	return entries, nil
}
