// Package generator produces the final answer for a query from retrieved chunks.
package generator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-rag/pkg/config"
	"github.com/ekaya-inc/ekaya-rag/pkg/llm"
	"github.com/ekaya-inc/ekaya-rag/pkg/models"
	"github.com/ekaya-inc/ekaya-rag/pkg/prompts"
)

// Refusal is returned verbatim when no context is available for a query.
const Refusal = prompts.RefusalText

// Generator turns a query and its ranked chunks into an answer.
type Generator interface {
	// Generate returns Refusal when chunks is empty, without contacting any provider.
	Generate(ctx context.Context, query string, chunks []models.SearchResult) (string, error)
	Name() string
}

// NewGenerator builds the generator selected in configuration.
func NewGenerator(cfg *config.LLMConfig, logger *zap.Logger) (Generator, error) {
	opts := LLMOptions{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
		Breaker: llm.CircuitBreakerConfig{
			Threshold:  cfg.BreakerThreshold,
			ResetAfter: cfg.BreakerResetAfter,
		},
	}

	switch cfg.Provider {
	case config.ProviderMock:
		logger.Info("Using mock response generator")
		return NewMockGenerator(), nil
	case config.ProviderOpenAI:
		client, err := llm.NewClient(&llm.Config{
			Endpoint: cfg.BaseURL,
			Model:    cfg.Model,
			APIKey:   cfg.OpenAIAPIKey,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create chat client: %w", err)
		}
		logger.Info("Using OpenAI response generator", zap.String("model", cfg.Model))
		return NewLLMGenerator(client, opts, logger), nil
	case config.ProviderAnthropic:
		client, err := llm.NewAnthropicClient(&llm.AnthropicConfig{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.Model,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create anthropic client: %w", err)
		}
		logger.Info("Using Anthropic response generator", zap.String("model", cfg.Model))
		return NewLLMGenerator(client, opts, logger), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
