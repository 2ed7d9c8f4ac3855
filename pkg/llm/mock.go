package llm

import (
	"context"
	"sync"
)

// MockChatClient is a configurable ChatClient for tests.
// Set ChatFunc to control behavior.
type MockChatClient struct {
	// ChatFunc is called when Chat is invoked.
	// If nil, returns a fixed answer.
	ChatFunc func(ctx context.Context, req ChatRequest) (*ChatResult, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	mu       sync.Mutex
	requests []ChatRequest
}

// Chat implements ChatClient.
func (m *MockChatClient) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	return &ChatResult{Content: "mock response"}, nil
}

// Requests returns the requests received so far.
func (m *MockChatClient) Requests() []ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ChatRequest(nil), m.requests...)
}

// GetModel implements ChatClient.
func (m *MockChatClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// Provider implements ChatClient.
func (m *MockChatClient) Provider() string {
	return "mock"
}

// MockEmbeddingClient is a configurable EmbeddingClient for tests.
type MockEmbeddingClient struct {
	// CreateEmbeddingFunc is called when CreateEmbedding is invoked.
	CreateEmbeddingFunc func(ctx context.Context, input string) ([]float32, error)

	// CreateEmbeddingsFunc is called when CreateEmbeddings is invoked.
	CreateEmbeddingsFunc func(ctx context.Context, inputs []string) ([][]float32, error)

	mu                    sync.Mutex
	CreateEmbeddingCalls  int
	CreateEmbeddingsCalls int
}

// CreateEmbedding implements EmbeddingClient.
func (m *MockEmbeddingClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	m.mu.Lock()
	m.CreateEmbeddingCalls++
	m.mu.Unlock()

	if m.CreateEmbeddingFunc != nil {
		return m.CreateEmbeddingFunc(ctx, input)
	}
	return nil, nil
}

// CreateEmbeddings implements EmbeddingClient.
func (m *MockEmbeddingClient) CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	m.mu.Lock()
	m.CreateEmbeddingsCalls++
	m.mu.Unlock()

	if m.CreateEmbeddingsFunc != nil {
		return m.CreateEmbeddingsFunc(ctx, inputs)
	}
	return nil, nil
}

// GetModel implements EmbeddingClient.
func (m *MockEmbeddingClient) GetModel() string {
	return "mock-embedding"
}

// Calls returns how many times each method was called.
func (m *MockEmbeddingClient) Calls() (single, batch int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CreateEmbeddingCalls, m.CreateEmbeddingsCalls
}
