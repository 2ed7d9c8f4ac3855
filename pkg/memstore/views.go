package memstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-rag/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-rag/pkg/models"
)

type tenantView struct{ s *Store }

func (v tenantView) Exists(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	if err := v.s.checkScope(ctx, tenantID); err != nil {
		if errors.Is(err, apperrors.ErrTenantNotFound) {
			return false, nil
		}
		return false, err
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	_, ok := v.s.tenants[tenantID]
	return ok, nil
}

func (v tenantView) Get(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	if err := v.s.checkScope(ctx, tenantID); err != nil {
		return nil, err
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	t, ok := v.s.tenants[tenantID]
	if !ok {
		return nil, apperrors.ErrTenantNotFound
	}
	return &t, nil
}

type documentView struct{ s *Store }

func (v documentView) Create(ctx context.Context, doc *models.Document) error {
	if err := v.s.checkScope(ctx, doc.TenantID); err != nil {
		return err
	}
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = v.s.now()
	}
	stored := *doc
	if doc.Metadata != nil {
		// Store a copy so later mutation by the caller is not observed.
		data, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		stored.Metadata = nil
		if err := json.Unmarshal(data, &stored.Metadata); err != nil {
			return fmt.Errorf("failed to copy metadata: %w", err)
		}
	}
	v.s.stage(ctx, writes{documents: []models.Document{stored}})
	return nil
}

func (v documentView) Get(ctx context.Context, tenantID, documentID uuid.UUID) (*models.Document, error) {
	if err := v.s.checkScope(ctx, tenantID); err != nil {
		return nil, err
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	d, ok := v.s.documents[documentID]
	if !ok || d.TenantID != tenantID {
		return nil, apperrors.ErrNotFound
	}
	return &d, nil
}

func (v documentView) CountChunks(ctx context.Context, tenantID, documentID uuid.UUID) (int, error) {
	if err := v.s.checkScope(ctx, tenantID); err != nil {
		return 0, err
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	n := 0
	for _, c := range v.s.chunks {
		if c.chunk.TenantID == tenantID && c.chunk.DocumentID == documentID {
			n++
		}
	}
	return n, nil
}

type queryLogView struct{ s *Store }

func (v queryLogView) Create(ctx context.Context, entry *models.QueryLogEntry) error {
	if err := v.s.checkScope(ctx, entry.TenantID); err != nil {
		return err
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = v.s.now()
	}
	stored := *entry
	stored.SourcesUsed = append([]models.Source{}, entry.SourcesUsed...)
	v.s.stage(ctx, writes{logs: []models.QueryLogEntry{stored}})
	return nil
}

func (v queryLogView) ListRecent(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.QueryLogEntry, error) {
	if err := v.s.checkScope(ctx, tenantID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	var out []*models.QueryLogEntry
	for i := range v.s.logs {
		if v.s.logs[i].TenantID == tenantID {
			e := v.s.logs[i]
			out = append(out, &e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type indexView struct{ s *Store }

func (v indexView) Insert(ctx context.Context, chunk *models.Chunk) error {
	if len(chunk.Embedding) != v.s.dimension {
		return &apperrors.ConfigurationError{
			Setting: "embedding.dimension",
			Message: fmt.Sprintf("vector has %d dimensions, index expects %d", len(chunk.Embedding), v.s.dimension),
		}
	}
	if err := v.s.checkScope(ctx, chunk.TenantID); err != nil {
		return err
	}
	if chunk.ID == uuid.Nil {
		chunk.ID = uuid.New()
	}
	stored := *chunk
	stored.Embedding = append([]float32(nil), chunk.Embedding...)
	v.s.stage(ctx, writes{chunks: []models.Chunk{stored}})
	return nil
}

func (v indexView) Search(ctx context.Context, tenantID uuid.UUID, vector []float32, topK int) ([]models.SearchResult, error) {
	if err := v.s.checkScope(ctx, tenantID); err != nil {
		if errors.Is(err, apperrors.ErrTenantNotFound) {
			return []models.SearchResult{}, nil
		}
		return nil, err
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.search(tenantID, vector, topK), nil
}
