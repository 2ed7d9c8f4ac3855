// Package llm provides clients for the completion and embedding providers.
package llm

import (
	"context"
)

// ChatRequest is a single-turn completion request.
type ChatRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// ChatResult is the text returned by a completion provider with usage stats.
type ChatResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// ChatClient sends completion requests to a provider.
// Use this interface for dependency injection to enable mocking in tests.
type ChatClient interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResult, error)
	GetModel() string
	Provider() string
}

// EmbeddingClient turns text into vectors.
type EmbeddingClient interface {
	// CreateEmbedding generates an embedding vector for the input text.
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)

	// CreateEmbeddings generates embeddings for multiple inputs in one call.
	CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error)

	GetModel() string
}

// Ensure clients implement the interfaces at compile time.
var (
	_ ChatClient      = (*Client)(nil)
	_ EmbeddingClient = (*Client)(nil)
	_ ChatClient      = (*AnthropicClient)(nil)
)
