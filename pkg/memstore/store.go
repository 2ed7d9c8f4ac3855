// Package memstore is an in-process backend for tenants, documents, chunks and
// query logs. It mirrors the PostgreSQL backend's scoping and transaction
// semantics and is used for local development and tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-rag/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-rag/pkg/models"
	"github.com/ekaya-inc/ekaya-rag/pkg/repositories"
	"github.com/ekaya-inc/ekaya-rag/pkg/vectorindex"
)

type storedChunk struct {
	chunk models.Chunk
	seq   uint64
}

// Store holds all state behind one lock.
type Store struct {
	mu        sync.RWMutex
	dimension int
	seq       uint64
	tenants   map[uuid.UUID]models.Tenant
	documents map[uuid.UUID]models.Document
	chunks    []storedChunk
	logs      []models.QueryLogEntry
	now       func() time.Time
}

// New creates an empty Store whose index accepts vectors of the given dimension.
func New(dimension int) *Store {
	return &Store{
		dimension: dimension,
		tenants:   make(map[uuid.UUID]models.Tenant),
		documents: make(map[uuid.UUID]models.Document),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AddTenant provisions a tenant.
func (s *Store) AddTenant(id uuid.UUID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[id] = models.Tenant{ID: id, Name: name, CreatedAt: s.now()}
}

// DeleteTenant removes a tenant with its documents, chunks and logs.
func (s *Store) DeleteTenant(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tenants, id)
	for docID, doc := range s.documents {
		if doc.TenantID == id {
			delete(s.documents, docID)
		}
	}
	s.chunks = filterChunks(s.chunks, func(c storedChunk) bool { return c.chunk.TenantID != id })
	kept := s.logs[:0]
	for _, l := range s.logs {
		if l.TenantID != id {
			kept = append(kept, l)
		}
	}
	s.logs = kept
}

// DeleteDocument removes a document and its chunks.
func (s *Store) DeleteDocument(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.documents, id)
	s.chunks = filterChunks(s.chunks, func(c storedChunk) bool { return c.chunk.DocumentID != id })
}

// Counts returns the committed number of documents and chunks for a tenant.
func (s *Store) Counts(tenantID uuid.UUID) (documents, chunks int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.documents {
		if d.TenantID == tenantID {
			documents++
		}
	}
	for _, c := range s.chunks {
		if c.chunk.TenantID == tenantID {
			chunks++
		}
	}
	return documents, chunks
}

// Tenants returns the tenant repository view of the store.
func (s *Store) Tenants() repositories.TenantRepository { return tenantView{s} }

// Documents returns the document repository view of the store.
func (s *Store) Documents() repositories.DocumentRepository { return documentView{s} }

// QueryLogs returns the query log repository view of the store.
func (s *Store) QueryLogs() repositories.QueryLogRepository { return queryLogView{s} }

// Index returns the vector index view of the store.
func (s *Store) Index() vectorindex.Index { return indexView{s} }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func filterChunks(chunks []storedChunk, keep func(storedChunk) bool) []storedChunk {
	out := chunks[:0]
	for _, c := range chunks {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// apply commits staged writes. Callers hold s.mu.
func (s *Store) apply(w *writes) {
	for _, d := range w.documents {
		s.documents[d.ID] = d
	}
	for _, c := range w.chunks {
		s.seq++
		c.CreatedAt = s.now()
		s.chunks = append(s.chunks, storedChunk{chunk: c, seq: s.seq})
	}
	s.logs = append(s.logs, w.logs...)
}

// search ranks the tenant's chunks only. Callers hold s.mu for reading.
func (s *Store) search(tenantID uuid.UUID, vector []float32, topK int) []models.SearchResult {
	type scored struct {
		c     storedChunk
		score float64
	}
	var candidates []scored
	for _, c := range s.chunks {
		if c.chunk.TenantID != tenantID {
			continue
		}
		candidates = append(candidates, scored{c: c, score: vectorindex.CosineSimilarity(c.chunk.Embedding, vector)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].c.seq < candidates[j].c.seq
	})

	if topK < len(candidates) {
		candidates = candidates[:max(topK, 0)]
	}

	results := make([]models.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, models.SearchResult{
			ChunkID:    c.c.chunk.ID,
			DocumentID: c.c.chunk.DocumentID,
			Text:       c.c.chunk.Text,
			Similarity: c.score,
		})
	}
	return results
}

func (s *Store) checkScope(ctx context.Context, tenantID uuid.UUID) error {
	sc, ok := scopeFrom(ctx)
	if !ok {
		return apperrors.ErrNoTenantScope
	}
	if sc.tenantID != tenantID {
		return apperrors.ErrTenantNotFound
	}
	return nil
}
