package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ekaya-inc/ekaya-rag/pkg/apperrors"
)

// Error codes returned in the error envelope.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeIngestion  = "INGESTION_ERROR"
	CodeQuery      = "QUERY_ERROR"
	CodeInternal   = "INTERNAL_ERROR"
)

// ErrorBody is the error envelope: {"error": {"code": ..., "message": ...}}.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(ErrorBody{Error: ErrorDetail{Code: errorCode, Message: message}})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// errorStatus maps a pipeline error to an HTTP status, code and client-safe
// message. Validation errors carry their own message; everything else gets
// the generic message for the pipeline.
func errorStatus(err error, code, genericMessage string) (int, string, string) {
	var ve *apperrors.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, CodeValidation, ve.Error()
	}
	return http.StatusInternalServerError, code, genericMessage
}
