package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrTenantNotFound = errors.New("tenant not found")
	ErrEmptyContent   = errors.New("content must not be empty")
	ErrEmptyQuery     = errors.New("query must not be empty")
	ErrNoTenantScope  = errors.New("no tenant scope in context")
)

// ValidationError reports bad input or an unknown tenant. It is user-correctable.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return "validation failed: " + e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConfigurationError reports an invalid setting such as a chunk overlap that is
// not smaller than the chunk size, or a vector of the wrong dimension.
type ConfigurationError struct {
	Setting string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Setting, e.Message)
}

// ProviderError reports an upstream embedding or generation failure.
type ProviderError struct {
	Op       string // "embedding" or "generation"
	Provider string
	Attempts int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("%s provider %s failed after %d attempts: %v", e.Op, e.Provider, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s provider %s failed: %v", e.Op, e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// PersistenceError reports a failure of the transactional store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// CacheError reports a cache backend failure. It never aborts a pipeline.
type CacheError struct {
	Op  string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// IngestionError marks a failure of the ingestion pipeline after input validation.
type IngestionError struct {
	Err error
}

func (e *IngestionError) Error() string { return "ingestion failed: " + e.Err.Error() }

func (e *IngestionError) Unwrap() error { return e.Err }

// QueryError marks a failure of the query pipeline after input validation.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string { return "query failed: " + e.Err.Error() }

func (e *QueryError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Persistence wraps err as a PersistenceError unless it already carries a
// more specific classification.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	var ve *ValidationError
	var ce *ConfigurationError
	if errors.As(err, &pe) || errors.As(err, &ve) || errors.As(err, &ce) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
