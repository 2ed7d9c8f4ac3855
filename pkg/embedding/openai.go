package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-rag/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-rag/pkg/llm"
	"github.com/ekaya-inc/ekaya-rag/pkg/logging"
	"github.com/ekaya-inc/ekaya-rag/pkg/metrics"
	"github.com/ekaya-inc/ekaya-rag/pkg/retry"
)

// OpenAIOptions configures an OpenAIProvider.
type OpenAIOptions struct {
	Dimension int
	// Timeout bounds each provider call, independently of the caller's deadline.
	Timeout time.Duration
	// Retry applies to Embed only. Nil uses retry.DefaultConfig.
	Retry *retry.Config
}

// OpenAIProvider calls an OpenAI-compatible embeddings endpoint.
type OpenAIProvider struct {
	client    llm.EmbeddingClient
	dimension int
	timeout   time.Duration
	retry     retry.Config
	logger    *zap.Logger
}

// NewOpenAIProvider wraps an embedding client.
func NewOpenAIProvider(client llm.EmbeddingClient, opts OpenAIOptions, logger *zap.Logger) *OpenAIProvider {
	rc := retry.DefaultConfig()
	if opts.Retry != nil {
		rc = opts.Retry
	}
	return &OpenAIProvider{
		client:    client,
		dimension: opts.Dimension,
		timeout:   opts.Timeout,
		retry:     *rc,
		logger:    logger.Named("embedding"),
	}
}

// Embed returns the vector for text, retrying failed calls with exponential backoff.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	attempts := 0
	rc := p.retry
	rc.Retryable = retryable
	rc.OnRetry = func(attempt int, delay time.Duration, err error) {
		metrics.ProviderRetries.WithLabelValues("embedding").Inc()
		p.logger.Warn("Embedding call failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.String("error", logging.SanitizeError(err)))
	}

	start := time.Now()
	vector, err := retry.DoWithResult(ctx, &rc, func(ctx context.Context) ([]float32, error) {
		attempts++
		callCtx, cancel := p.callContext(ctx)
		defer cancel()

		v, err := p.client.CreateEmbedding(callCtx, text)
		if err != nil {
			return nil, err
		}
		if err := p.checkDimension(v); err != nil {
			return nil, err
		}
		return v, nil
	})
	metrics.ObserveProviderCall("embedding", p.Name(), start, err)
	if err != nil {
		p.logger.Error("Embedding failed",
			zap.Int("attempts", attempts),
			zap.String("error", logging.SanitizeError(err)))
		return nil, &apperrors.ProviderError{Op: "embedding", Provider: p.Name(), Attempts: attempts, Err: err}
	}
	return vector, nil
}

// EmbedBatch embeds all texts in a single call without retry.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	callCtx, cancel := p.callContext(ctx)
	defer cancel()

	start := time.Now()
	vectors, err := p.client.CreateEmbeddings(callCtx, texts)
	if err == nil && len(vectors) != len(texts) {
		err = fmt.Errorf("provider returned %d vectors for %d inputs", len(vectors), len(texts))
	}
	if err == nil {
		for _, v := range vectors {
			if err = p.checkDimension(v); err != nil {
				break
			}
		}
	}
	metrics.ObserveProviderCall("embedding", p.Name(), start, err)
	if err != nil {
		p.logger.Error("Batch embedding failed",
			zap.Int("batch_size", len(texts)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, &apperrors.ProviderError{Op: "embedding", Provider: p.Name(), Attempts: 1, Err: err}
	}
	return vectors, nil
}

// Dimension implements Provider.
func (p *OpenAIProvider) Dimension() int { return p.dimension }

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

// retryable stops retrying on failures the client classified as permanent,
// such as rejected credentials or an unknown model.
func retryable(err error) bool {
	var llmErr *llm.Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return true
}

func (p *OpenAIProvider) checkDimension(v []float32) error {
	if p.dimension > 0 && len(v) != p.dimension {
		return fmt.Errorf("provider returned %d dimensions, expected %d", len(v), p.dimension)
	}
	return nil
}
