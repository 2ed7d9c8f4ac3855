package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ekaya-inc/ekaya-rag/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-rag/pkg/cache"
	"github.com/ekaya-inc/ekaya-rag/pkg/config"
	"github.com/ekaya-inc/ekaya-rag/pkg/embedding"
	"github.com/ekaya-inc/ekaya-rag/pkg/generator"
	"github.com/ekaya-inc/ekaya-rag/pkg/logging"
	"github.com/ekaya-inc/ekaya-rag/pkg/metrics"
	"github.com/ekaya-inc/ekaya-rag/pkg/models"
	"github.com/ekaya-inc/ekaya-rag/pkg/repositories"
	"github.com/ekaya-inc/ekaya-rag/pkg/vectorindex"
)

// QueryRequest is a tenant question. TopK zero selects the configured default.
type QueryRequest struct {
	TenantID uuid.UUID
	Query    string
	TopK     int
}

// QueryService answers tenant questions from the tenant's own documents.
type QueryService interface {
	Query(ctx context.Context, req QueryRequest) (*models.QueryResult, error)
}

// QueryOptions holds query pipeline settings.
type QueryOptions struct {
	DefaultTopK         int
	CacheTTL            time.Duration
	SourcePreviewLength int
	// AuditLogRequired fails the request when the query log cannot be written.
	AuditLogRequired       bool
	MaxConcurrentPerTenant int
}

// QueryOptionsFromConfig maps the rag section of the configuration.
func QueryOptionsFromConfig(cfg *config.RAGConfig) QueryOptions {
	return QueryOptions{
		DefaultTopK:            cfg.DefaultTopK,
		CacheTTL:               cfg.CacheTTL,
		SourcePreviewLength:    cfg.SourcePreviewLength,
		AuditLogRequired:       cfg.AuditLogRequired,
		MaxConcurrentPerTenant: cfg.MaxConcurrentPerTenant,
	}
}

// QueryDeps holds the collaborators of the query pipeline.
type QueryDeps struct {
	Scoper    TenantScoper
	Tenants   repositories.TenantRepository
	QueryLogs repositories.QueryLogRepository
	Index     vectorindex.Index
	Embedder  embedding.Provider
	Generator generator.Generator
	Cache     *cache.QueryCache
}

type queryService struct {
	scoper    TenantScoper
	tenants   repositories.TenantRepository
	queryLogs repositories.QueryLogRepository
	index     vectorindex.Index
	embedder  embedding.Provider
	generator generator.Generator
	cache     *cache.QueryCache
	opts      QueryOptions
	limiter   *tenantLimiter
	inflight  singleflight.Group
	logger    *zap.Logger
}

// NewQueryService creates a QueryService.
func NewQueryService(deps QueryDeps, opts QueryOptions, logger *zap.Logger) QueryService {
	if opts.DefaultTopK == 0 {
		opts.DefaultTopK = 5
	}
	if opts.SourcePreviewLength == 0 {
		opts.SourcePreviewLength = 200
	}
	return &queryService{
		scoper:    deps.Scoper,
		tenants:   deps.Tenants,
		queryLogs: deps.QueryLogs,
		index:     deps.Index,
		embedder:  deps.Embedder,
		generator: deps.Generator,
		cache:     deps.Cache,
		opts:      opts,
		limiter:   newTenantLimiter(opts.MaxConcurrentPerTenant),
		logger:    logger.Named("query"),
	}
}

var _ QueryService = (*queryService)(nil)

func (s *queryService) Query(ctx context.Context, req QueryRequest) (*models.QueryResult, error) {
	start := time.Now()

	query, topK, err := s.validate(req)
	if err != nil {
		metrics.QueryTotal.WithLabelValues("validation_error").Inc()
		return nil, err
	}

	if cached, ok := s.cache.Get(ctx, req.TenantID, query); ok {
		cached.Cached = true
		metrics.QueryTotal.WithLabelValues("cache_hit").Inc()
		metrics.QueryDuration.WithLabelValues("true").Observe(time.Since(start).Seconds())
		s.logger.Debug("Cache hit",
			zap.String("tenant_id", req.TenantID.String()),
			zap.String("query", logging.TruncateQuery(query)))
		return cached, nil
	}

	v, led, err := s.answerShared(ctx, req.TenantID, query, topK)
	if !led {
		metrics.QueryCoalesced.Inc()
	}
	metrics.QueryDuration.WithLabelValues("false").Observe(time.Since(start).Seconds())

	if err != nil {
		if apperrors.IsValidation(err) {
			metrics.QueryTotal.WithLabelValues("validation_error").Inc()
			return nil, err
		}
		metrics.QueryTotal.WithLabelValues("error").Inc()
		s.logger.Error("Query failed",
			zap.String("tenant_id", req.TenantID.String()),
			zap.String("query", logging.TruncateQuery(query)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, &apperrors.QueryError{Err: err}
	}

	result := copyResult(v.(*models.QueryResult))
	if len(result.Sources) == 0 {
		metrics.QueryTotal.WithLabelValues("refused").Inc()
	} else {
		metrics.QueryTotal.WithLabelValues("answered").Inc()
	}
	return result, nil
}

// abandonedError marks a shared miss-path failure caused by the leading
// caller's own context ending.
type abandonedError struct{ err error }

func (e *abandonedError) Error() string { return e.err.Error() }
func (e *abandonedError) Unwrap() error { return e.err }

// answerShared runs the miss path at most once per key at a time. A caller
// whose context is still live never inherits another caller's cancellation:
// it forgets the abandoned flight and tries again, leading if nobody else is.
func (s *queryService) answerShared(ctx context.Context, tenantID uuid.UUID, query string, topK int) (any, bool, error) {
	flightKey := cache.Key(tenantID, query) + ":" + strconv.Itoa(topK)
	for {
		led := false
		v, err, _ := s.inflight.Do(flightKey, func() (any, error) {
			led = true
			result, err := s.answer(ctx, tenantID, query, topK)
			if err != nil && ctx.Err() != nil {
				return nil, &abandonedError{err: err}
			}
			return result, err
		})

		var abandoned *abandonedError
		if !errors.As(err, &abandoned) {
			return v, led, err
		}
		if led || ctx.Err() != nil {
			return nil, led, abandoned.err
		}
		s.inflight.Forget(flightKey)
	}
}

// answer runs the cache-miss path: search, generate or refuse, cache, log.
func (s *queryService) answer(ctx context.Context, tenantID uuid.UUID, query string, topK int) (*models.QueryResult, error) {
	release, err := s.limiter.acquire(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	defer release()

	tenantCtx, cleanup, err := s.scoper.WithTenantScope(ctx, tenantID)
	if err != nil {
		return nil, apperrors.Persistence("acquire tenant scope", err)
	}
	defer cleanup()

	if err := requireTenant(tenantCtx, s.tenants, tenantID); err != nil {
		return nil, err
	}

	vector, err := s.embedder.Embed(tenantCtx, query)
	if err != nil {
		return nil, err
	}

	chunks, err := s.index.Search(tenantCtx, tenantID, vector, topK)
	if err != nil {
		return nil, apperrors.Persistence("search chunks", err)
	}

	result := &models.QueryResult{Sources: []models.Source{}}
	if len(chunks) == 0 {
		result.Answer = generator.Refusal
	} else {
		answer, err := s.generator.Generate(tenantCtx, query, chunks)
		if err != nil {
			return nil, err
		}
		result.Answer = answer
		result.Sources = s.buildSources(chunks)
	}

	s.cache.Put(ctx, tenantID, query, result, s.opts.CacheTTL)

	entry := &models.QueryLogEntry{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Query:       query,
		Response:    result.Answer,
		Cached:      false,
		SourcesUsed: result.Sources,
	}
	if err := s.queryLogs.Create(tenantCtx, entry); err != nil {
		metrics.AuditLogFailures.Inc()
		if s.opts.AuditLogRequired {
			return nil, apperrors.Persistence("write query log", err)
		}
		s.logger.Error("Failed to write query log",
			zap.String("tenant_id", tenantID.String()),
			zap.String("error", logging.SanitizeError(err)))
	}

	s.logger.Info("Query answered",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("top_k", topK),
		zap.Int("sources", len(result.Sources)),
		zap.String("generator", s.generator.Name()))

	return result, nil
}

func (s *queryService) validate(req QueryRequest) (string, int, error) {
	if req.TenantID == uuid.Nil {
		return "", 0, apperrors.NewValidationError("tenant_id", "tenant_id is required")
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return "", 0, &apperrors.ValidationError{Field: "query", Message: "query must not be empty", Err: apperrors.ErrEmptyQuery}
	}
	topK := req.TopK
	if topK == 0 {
		topK = s.opts.DefaultTopK
	}
	if topK < config.MinTopK || topK > config.MaxTopK {
		return "", 0, apperrors.NewValidationError("top_k",
			fmt.Sprintf("top_k must be between %d and %d", config.MinTopK, config.MaxTopK))
	}
	return query, topK, nil
}

func (s *queryService) buildSources(chunks []models.SearchResult) []models.Source {
	sources := make([]models.Source, 0, len(chunks))
	for _, c := range chunks {
		sources = append(sources, models.Source{
			DocumentID:      c.DocumentID.String(),
			ChunkText:       preview(c.Text, s.opts.SourcePreviewLength),
			SimilarityScore: c.Similarity,
		})
	}
	return sources
}

// preview truncates text to n runes, marking the cut with "...".
func preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

func copyResult(r *models.QueryResult) *models.QueryResult {
	out := &models.QueryResult{
		Answer:  r.Answer,
		Sources: make([]models.Source, len(r.Sources)),
		Cached:  r.Cached,
	}
	copy(out.Sources, r.Sources)
	return out
}
