package models

import (
	"time"

	"github.com/google/uuid"
)

// SearchResult is one nearest-neighbor hit from the tenant vector index.
type SearchResult struct {
	ChunkID    uuid.UUID `json:"chunk_id"`
	DocumentID uuid.UUID `json:"document_id"`
	Text       string    `json:"chunk_text"`
	Similarity float64   `json:"similarity"`
}

// Source is a citation returned to the caller. ChunkText is a truncated preview.
type Source struct {
	DocumentID      string  `json:"document_id"`
	ChunkText       string  `json:"chunk_text"`
	SimilarityScore float64 `json:"similarity_score"`
}

// QueryResult is the answer to a tenant query. It is also the cached value.
type QueryResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
	Cached  bool     `json:"cached"`
}

// QueryLogEntry is an append-only audit record of an answered query.
type QueryLogEntry struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Query       string    `json:"query"`
	Response    string    `json:"response"`
	Cached      bool      `json:"cached"`
	SourcesUsed []Source  `json:"sources_used"`
	Timestamp   time.Time `json:"timestamp"`
}
