package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Metadata is schema-less document metadata. Only well-formedness is checked.
type Metadata map[string]any

// Validate checks that every key is non-empty and the map can be encoded as JSON.
func (m Metadata) Validate() error {
	for k := range m {
		if k == "" {
			return fmt.Errorf("metadata keys must not be empty")
		}
	}
	if _, err := json.Marshal(m); err != nil {
		return fmt.Errorf("metadata is not valid JSON: %w", err)
	}
	return nil
}

// Document is an immutable piece of tenant content.
type Document struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Content   string    `json:"content"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Chunk is a contiguous slice of a document's text together with its embedding.
// TenantID is denormalized from the owning document for isolation filtering.
type Chunk struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	Text       string    `json:"chunk_text"`
	Index      int       `json:"chunk_index"`
	Embedding  []float32 `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// IngestResult is returned by a successful ingestion.
type IngestResult struct {
	DocumentID    uuid.UUID `json:"document_id"`
	ChunksCreated int       `json:"chunks_created"`
	Status        string    `json:"status"`
}

// IngestStatusSuccess is the only status reported for a committed ingestion.
const IngestStatusSuccess = "success"
