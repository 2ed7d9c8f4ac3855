package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-rag/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-rag/pkg/chunker"
	"github.com/ekaya-inc/ekaya-rag/pkg/embedding"
	"github.com/ekaya-inc/ekaya-rag/pkg/logging"
	"github.com/ekaya-inc/ekaya-rag/pkg/metrics"
	"github.com/ekaya-inc/ekaya-rag/pkg/models"
	"github.com/ekaya-inc/ekaya-rag/pkg/repositories"
	"github.com/ekaya-inc/ekaya-rag/pkg/vectorindex"
)

// IngestRequest is a document submitted by a tenant.
type IngestRequest struct {
	TenantID uuid.UUID
	Content  string
	Metadata models.Metadata
}

// IngestService stores documents and makes them searchable.
type IngestService interface {
	// Ingest persists the document and all of its embedded chunks in one
	// transaction. On any failure nothing is persisted.
	Ingest(ctx context.Context, req IngestRequest) (*models.IngestResult, error)
}

// IngestDeps holds the collaborators of the ingestion pipeline.
type IngestDeps struct {
	Scoper    TenantScoper
	Tenants   repositories.TenantRepository
	Documents repositories.DocumentRepository
	Index     vectorindex.Index
	Embedder  embedding.Provider
	Chunker   *chunker.Chunker
}

type ingestService struct {
	scoper    TenantScoper
	tenants   repositories.TenantRepository
	documents repositories.DocumentRepository
	index     vectorindex.Index
	embedder  embedding.Provider
	chunker   *chunker.Chunker
	logger    *zap.Logger
}

// NewIngestService creates an IngestService.
func NewIngestService(deps IngestDeps, logger *zap.Logger) IngestService {
	return &ingestService{
		scoper:    deps.Scoper,
		tenants:   deps.Tenants,
		documents: deps.Documents,
		index:     deps.Index,
		embedder:  deps.Embedder,
		chunker:   deps.Chunker,
		logger:    logger.Named("ingest"),
	}
}

var _ IngestService = (*ingestService)(nil)

func (s *ingestService) Ingest(ctx context.Context, req IngestRequest) (*models.IngestResult, error) {
	start := time.Now()

	if err := validateIngest(req); err != nil {
		metrics.IngestTotal.WithLabelValues("validation_error").Inc()
		return nil, err
	}

	result, err := s.ingest(ctx, req)
	metrics.IngestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if apperrors.IsValidation(err) {
			metrics.IngestTotal.WithLabelValues("validation_error").Inc()
			return nil, err
		}
		metrics.IngestTotal.WithLabelValues("error").Inc()
		s.logger.Error("Ingestion failed",
			zap.String("tenant_id", req.TenantID.String()),
			zap.Int("content_length", len(req.Content)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, &apperrors.IngestionError{Err: err}
	}

	metrics.IngestTotal.WithLabelValues("success").Inc()
	metrics.ChunksCreated.Add(float64(result.ChunksCreated))
	s.logger.Info("Document ingested",
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("document_id", result.DocumentID.String()),
		zap.Int("chunks_created", result.ChunksCreated),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

func (s *ingestService) ingest(ctx context.Context, req IngestRequest) (*models.IngestResult, error) {
	tenantCtx, cleanup, err := s.scoper.WithTenantScope(ctx, req.TenantID)
	if err != nil {
		return nil, apperrors.Persistence("acquire tenant scope", err)
	}
	defer cleanup()

	if err := requireTenant(tenantCtx, s.tenants, req.TenantID); err != nil {
		return nil, err
	}

	var result *models.IngestResult
	err = s.scoper.InTx(tenantCtx, func(txCtx context.Context) error {
		doc := &models.Document{
			ID:       uuid.New(),
			TenantID: req.TenantID,
			Content:  req.Content,
			Metadata: req.Metadata,
		}
		if err := s.documents.Create(txCtx, doc); err != nil {
			return apperrors.Persistence("create document", err)
		}

		texts := s.chunker.Split(req.Content)
		vectors, err := s.embedder.EmbedBatch(txCtx, texts)
		if err != nil {
			return err
		}
		if len(vectors) != len(texts) {
			return &apperrors.ProviderError{
				Op:       "embedding",
				Provider: s.embedder.Name(),
				Attempts: 1,
				Err:      fmt.Errorf("got %d embeddings for %d chunks", len(vectors), len(texts)),
			}
		}

		for i, text := range texts {
			chunk := &models.Chunk{
				ID:         uuid.New(),
				DocumentID: doc.ID,
				TenantID:   req.TenantID,
				Text:       text,
				Index:      i,
				Embedding:  vectors[i],
			}
			if err := s.index.Insert(txCtx, chunk); err != nil {
				return apperrors.Persistence("insert chunk", err)
			}
		}

		result = &models.IngestResult{
			DocumentID:    doc.ID,
			ChunksCreated: len(texts),
			Status:        models.IngestStatusSuccess,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func validateIngest(req IngestRequest) error {
	if req.TenantID == uuid.Nil {
		return apperrors.NewValidationError("tenant_id", "tenant_id is required")
	}
	if strings.TrimSpace(req.Content) == "" {
		return &apperrors.ValidationError{Field: "content", Message: "content must not be empty", Err: apperrors.ErrEmptyContent}
	}
	if err := req.Metadata.Validate(); err != nil {
		return &apperrors.ValidationError{Field: "metadata", Message: err.Error(), Err: err}
	}
	return nil
}

// requireTenant fails with a ValidationError when the tenant is not provisioned.
func requireTenant(ctx context.Context, tenants repositories.TenantRepository, tenantID uuid.UUID) error {
	exists, err := tenants.Exists(ctx, tenantID)
	if err != nil {
		return apperrors.Persistence("check tenant", err)
	}
	if !exists {
		return &apperrors.ValidationError{
			Field:   "tenant_id",
			Message: fmt.Sprintf("tenant %s does not exist", tenantID),
			Err:     apperrors.ErrTenantNotFound,
		}
	}
	return nil
}
