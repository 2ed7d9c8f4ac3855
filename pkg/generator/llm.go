package generator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-rag/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-rag/pkg/llm"
	"github.com/ekaya-inc/ekaya-rag/pkg/logging"
	"github.com/ekaya-inc/ekaya-rag/pkg/metrics"
	"github.com/ekaya-inc/ekaya-rag/pkg/models"
	"github.com/ekaya-inc/ekaya-rag/pkg/prompts"
)

// LLMOptions configures an LLMGenerator.
type LLMOptions struct {
	Temperature float64
	MaxTokens   int
	// Timeout bounds a single completion call. Zero leaves only the caller's deadline.
	Timeout time.Duration
	Breaker llm.CircuitBreakerConfig
}

// LLMGenerator asks a chat completion provider to answer from the supplied chunks.
type LLMGenerator struct {
	client  llm.ChatClient
	opts    LLMOptions
	breaker *llm.CircuitBreaker
	logger  *zap.Logger
}

// NewLLMGenerator wraps a chat client.
func NewLLMGenerator(client llm.ChatClient, opts LLMOptions, logger *zap.Logger) *LLMGenerator {
	return &LLMGenerator{
		client:  client,
		opts:    opts,
		breaker: llm.NewCircuitBreaker(opts.Breaker),
		logger:  logger.Named("generator"),
	}
}

// Generate implements Generator.
func (g *LLMGenerator) Generate(ctx context.Context, query string, chunks []models.SearchResult) (string, error) {
	if len(chunks) == 0 {
		return Refusal, nil
	}

	if err := g.breaker.Allow(); err != nil {
		g.logger.Warn("Generation rejected by open circuit", zap.String("provider", g.Name()))
		return "", g.providerError(err)
	}

	callCtx, cancel := g.callContext(ctx)
	defer cancel()

	start := time.Now()
	result, err := g.client.Chat(callCtx, llm.ChatRequest{
		System:      prompts.SystemMessage,
		Prompt:      prompts.BuildAnswerPrompt(query, chunks),
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxTokens,
	})
	if err == nil && result == nil {
		err = llm.NewError(llm.ErrorTypeResponse, "empty completion", false, nil)
	}
	g.breaker.Record(err)
	metrics.ObserveProviderCall("generation", g.Name(), start, err)

	if err != nil {
		g.logger.Error("Generation failed",
			zap.String("model", g.client.GetModel()),
			zap.String("error_type", string(llm.GetErrorType(err))),
			zap.String("error", logging.SanitizeError(err)))
		return "", g.providerError(err)
	}

	g.logger.Debug("Generated answer",
		zap.String("model", g.client.GetModel()),
		zap.Int("chunks", len(chunks)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("completion_tokens", result.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return result.Content, nil
}

// Name implements Generator.
func (g *LLMGenerator) Name() string { return g.client.Provider() }

func (g *LLMGenerator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.opts.Timeout)
}

func (g *LLMGenerator) providerError(err error) error {
	var pe *apperrors.ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &apperrors.ProviderError{Op: "generation", Provider: g.Name(), Attempts: 1, Err: err}
}
