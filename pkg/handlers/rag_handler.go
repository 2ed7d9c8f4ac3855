package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-rag/pkg/logging"
	"github.com/ekaya-inc/ekaya-rag/pkg/models"
	"github.com/ekaya-inc/ekaya-rag/pkg/services"
)

const maxRequestBytes = 10 << 20

// IngestRequest for POST /ingest
type IngestRequest struct {
	TenantID uuid.UUID       `json:"tenant_id"`
	Content  string          `json:"content"`
	Metadata models.Metadata `json:"metadata,omitempty"`
}

// QueryRequest for POST /query
type QueryRequest struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Query    string    `json:"query"`
	TopK     *int      `json:"top_k,omitempty"`
}

// RAGHandler exposes document ingestion and question answering.
type RAGHandler struct {
	ingestService services.IngestService
	queryService  services.QueryService
	logger        *zap.Logger
}

// NewRAGHandler creates a new RAG handler.
func NewRAGHandler(
	ingestService services.IngestService,
	queryService services.QueryService,
	logger *zap.Logger,
) *RAGHandler {
	return &RAGHandler{
		ingestService: ingestService,
		queryService:  queryService,
		logger:        logger,
	}
}

// RegisterRoutes registers the RAG handler's routes on the given mux.
func (h *RAGHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /ingest", h.Ingest)
	mux.HandleFunc("POST /query", h.Query)
}

// Ingest handles POST /ingest
func (h *RAGHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.ingestService.Ingest(r.Context(), services.IngestRequest{
		TenantID: req.TenantID,
		Content:  req.Content,
		Metadata: req.Metadata,
	})
	if err != nil {
		status, code, msg := errorStatus(err, CodeIngestion, "Failed to ingest document")
		h.logger.Error("Failed to ingest document",
			zap.String("tenant_id", req.TenantID.String()),
			zap.Int("status", status),
			zap.String("error", logging.SanitizeError(err)))
		h.writeError(w, status, code, msg)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, result); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Query handles POST /query
func (h *RAGHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !h.decode(w, r, &req) {
		return
	}

	topK := 0
	if req.TopK != nil {
		topK = *req.TopK
		if topK == 0 {
			h.writeError(w, http.StatusBadRequest, CodeValidation, "validation failed on top_k: top_k must be between 1 and 20")
			return
		}
	}

	result, err := h.queryService.Query(r.Context(), services.QueryRequest{
		TenantID: req.TenantID,
		Query:    req.Query,
		TopK:     topK,
	})
	if err != nil {
		status, code, msg := errorStatus(err, CodeQuery, "Failed to process query")
		h.logger.Error("Failed to process query",
			zap.String("tenant_id", req.TenantID.String()),
			zap.String("query", logging.TruncateQuery(req.Query)),
			zap.Int("status", status),
			zap.String("error", logging.SanitizeError(err)))
		h.writeError(w, status, code, msg)
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *RAGHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Debug("Invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, CodeValidation, "Invalid request body")
		return false
	}
	return true
}

func (h *RAGHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
