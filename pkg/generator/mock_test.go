package generator

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-rag/pkg/models"
)

func TestMockGenerator_EmptyChunksRefuses(t *testing.T) {
	answer, err := NewMockGenerator().Generate(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Equal(t, Refusal, answer)
}

func TestMockGenerator_FormatsAnswer(t *testing.T) {
	docs := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	top := strings.Repeat("a", 150)
	chunks := []models.SearchResult{
		{DocumentID: docs[0], Text: top, Similarity: 0.9},
		{DocumentID: docs[1], Text: "second", Similarity: 0.8},
		{DocumentID: docs[2], Text: "third", Similarity: 0.7},
		{DocumentID: docs[3], Text: "fourth", Similarity: 0.6},
	}

	answer, err := NewMockGenerator().Generate(context.Background(), "q", chunks)
	require.NoError(t, err)

	want := "MOCK ANSWER: Based on the provided context, " + strings.Repeat("a", 100) +
		"... [Sources: " + docs[0].String() + ", " + docs[1].String() + ", " + docs[2].String() + "]"
	assert.Equal(t, want, answer)
	assert.NotContains(t, answer, docs[3].String())
}

func TestMockGenerator_ShortChunkAndRunes(t *testing.T) {
	doc := uuid.New()
	text := strings.Repeat("é", 120)

	answer, err := NewMockGenerator().Generate(context.Background(), "q", []models.SearchResult{{DocumentID: doc, Text: text}})
	require.NoError(t, err)
	assert.Contains(t, answer, strings.Repeat("é", 100)+"...")
	assert.NotContains(t, answer, strings.Repeat("é", 101))

	answer, err = NewMockGenerator().Generate(context.Background(), "q", []models.SearchResult{{DocumentID: doc, Text: "short"}})
	require.NoError(t, err)
	assert.Equal(t, "MOCK ANSWER: Based on the provided context, short... [Sources: "+doc.String()+"]", answer)
}

func TestMockGenerator_Deterministic(t *testing.T) {
	chunks := []models.SearchResult{{DocumentID: uuid.New(), Text: "same"}}
	a, _ := NewMockGenerator().Generate(context.Background(), "q", chunks)
	b, _ := NewMockGenerator().Generate(context.Background(), "q", chunks)
	assert.Equal(t, a, b)
}
