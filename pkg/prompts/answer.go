// Package prompts builds the grounded-answer prompt sent to the generation provider.
package prompts

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-rag/pkg/models"
)

// SystemMessage is sent as the system role alongside the answer prompt.
const SystemMessage = "You are a helpful assistant."

// RefusalText is the exact answer the model is instructed to give when the
// context cannot support an answer.
const RefusalText = "I cannot answer this question based on the available documents."

const answerTemplate = `You are a helpful assistant that answers questions based ONLY on the provided context.

RULES:
1. You MUST cite the source document for every claim you make
2. Use the format [Source: doc_id] after each cited fact
3. If the context does not contain information to answer the question, you MUST respond with: "%s"
4. Do NOT use your general knowledge - only use the provided context
5. Be concise and accurate

CONTEXT:
%s

QUESTION:
%s

ANSWER:`

// BuildContext renders retrieved chunks as one block per chunk, in ranking
// order, each prefixed with the owning document id.
func BuildContext(chunks []models.SearchResult) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, fmt.Sprintf("[Document %s]: %s", c.DocumentID, c.Text))
	}
	return strings.Join(parts, "\n\n")
}

// BuildAnswerPrompt creates the prompt instructing the model to answer only from
// the supplied chunks and to cite each fact with [Source: doc_id].
func BuildAnswerPrompt(query string, chunks []models.SearchResult) string {
	return fmt.Sprintf(answerTemplate, RefusalText, BuildContext(chunks), query)
}
