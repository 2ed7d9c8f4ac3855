// Package embedding turns text into fixed-dimension vectors.
package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-rag/pkg/config"
	"github.com/ekaya-inc/ekaya-rag/pkg/llm"
	"github.com/ekaya-inc/ekaya-rag/pkg/retry"
)

// Provider produces embedding vectors. Implementations are safe for concurrent use.
type Provider interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input, in input order. A failure fails the whole batch.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Name() string
}

// NewProvider builds the provider selected in configuration.
func NewProvider(cfg *config.EmbeddingConfig, llmCfg *config.LLMConfig, logger *zap.Logger) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderMock:
		logger.Info("Using mock embedding provider", zap.Int("dimension", cfg.Dimension))
		return NewMockProvider(cfg.Dimension), nil
	case config.ProviderOpenAI:
		client, err := llm.NewClient(&llm.Config{
			Endpoint:       llmCfg.BaseURL,
			EmbeddingModel: cfg.Model,
			APIKey:         llmCfg.OpenAIAPIKey,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create embedding client: %w", err)
		}
		logger.Info("Using OpenAI embedding provider",
			zap.String("model", cfg.Model),
			zap.Int("dimension", cfg.Dimension))
		return NewOpenAIProvider(client, OpenAIOptions{
			Dimension: cfg.Dimension,
			Timeout:   cfg.Timeout,
			Retry: &retry.Config{
				MaxRetries:   cfg.MaxRetries,
				InitialDelay: cfg.InitialDelay,
				MaxDelay:     30 * cfg.InitialDelay,
				Multiplier:   2.0,
			},
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
