package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAnthropicClient_Chat(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		System    string `json:"system"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"Answer [Source: d1]"}],
			"stop_reason":"end_turn","usage":{"input_tokens":20,"output_tokens":4}}`))
	}))
	defer server.Close()

	client, err := NewAnthropicClient(&AnthropicConfig{
		APIKey:  "sk-ant-test",
		Model:   "claude-test",
		BaseURL: server.URL + "/v1",
	}, zap.NewNop())
	require.NoError(t, err)

	result, err := client.Chat(context.Background(), ChatRequest{
		System:    "Use only the context.",
		Prompt:    "What is ML?",
		MaxTokens: 500,
	})
	require.NoError(t, err)

	assert.Equal(t, "Answer [Source: d1]", result.Content)
	assert.Equal(t, 20, result.PromptTokens)
	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, "Use only the context.", got.System)
	assert.Equal(t, 500, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "anthropic", client.Provider())
}

func TestAnthropicClient_ChatError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	client, err := NewAnthropicClient(&AnthropicConfig{APIKey: "bad", Model: "claude-test", BaseURL: server.URL + "/v1"}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.Chat(context.Background(), ChatRequest{Prompt: "hi", MaxTokens: 10})
	require.Error(t, err)
	assert.Equal(t, ErrorTypeAuth, GetErrorType(err))
	assert.False(t, IsRetryable(err))
}
