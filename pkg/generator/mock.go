package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-rag/pkg/models"
)

const (
	mockPreviewRunes = 100
	mockMaxSources   = 3
)

// MockGenerator answers deterministically from the top chunk. It never errors.
type MockGenerator struct{}

// NewMockGenerator creates a MockGenerator.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate implements Generator.
func (g *MockGenerator) Generate(ctx context.Context, query string, chunks []models.SearchResult) (string, error) {
	if len(chunks) == 0 {
		return Refusal, nil
	}

	preview := []rune(chunks[0].Text)
	if len(preview) > mockPreviewRunes {
		preview = preview[:mockPreviewRunes]
	}

	n := min(len(chunks), mockMaxSources)
	ids := make([]string, 0, n)
	for _, c := range chunks[:n] {
		ids = append(ids, c.DocumentID.String())
	}

	return fmt.Sprintf("MOCK ANSWER: Based on the provided context, %s... [Sources: %s]",
		string(preview), strings.Join(ids, ", ")), nil
}

// Name implements Generator.
func (g *MockGenerator) Name() string { return "mock" }
