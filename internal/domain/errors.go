package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Pipeline error codes. Tag generation has no code on purpose: tagging is
// advisory and degrades to an empty tag set instead of failing.
const (
	ErrCodeOCRFailed       = "OCR_FAILED"
	ErrCodeEmbeddingFailed = "EMBEDDING_FAILED"
	ErrCodeRetrievalFailed = "RETRIEVAL_FAILED"
	ErrCodeIngestionFailed = "INGESTION_FAILED"
	ErrCodeInferenceFailed = "INFERENCE_FAILED"
)

// ErrorCode extracts the domain error code from err, walking the wrap chain.
// Returns ErrCodeInternalError for non-domain errors.
func ErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ErrCodeInternalError
}

// IsErrorCode reports whether err carries the given domain error code.
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

// Validation errors
var (
	ErrInvalidInferenceMode  = NewDomainError(ErrCodeValidation, "invalid inference mode")
	ErrInvalidDocumentStatus = NewDomainError(ErrCodeValidation, "invalid document status")
	ErrInvalidRoutingPolicy  = NewDomainError(ErrCodeValidation, "invalid routing policy")
	ErrMissingRequiredField  = NewDomainError(ErrCodeValidation, "missing required field")
	ErrUnsupportedFileType   = NewDomainError(ErrCodeValidation, "unsupported file type")
	ErrEmptyQuery            = NewDomainError(ErrCodeValidation, "query cannot be empty")
)

// Not found errors
var (
	ErrTenantNotFound        = NewDomainError(ErrCodeNotFound, "tenant not found")
	ErrWorkspaceNotFound     = NewDomainError(ErrCodeNotFound, "workspace not found")
	ErrTeammateNotFound      = NewDomainError(ErrCodeNotFound, "teammate not found")
	ErrAssistantNotFound     = NewDomainError(ErrCodeNotFound, "assistant not found")
	ErrKnowledgeBaseNotFound = NewDomainError(ErrCodeNotFound, "knowledge base not found")
	ErrDocumentNotFound      = NewDomainError(ErrCodeNotFound, "document not found")
	ErrAPIKeyNotFound        = NewDomainError(ErrCodeNotFound, "api key not found")
)

// Already exists errors
var (
	ErrTenantAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "tenant already exists")
	ErrAPIKeyAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "api key already exists")
)

// Authorization errors
var (
	ErrAPIKeyRevoked = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// Pipeline errors. These are templates for wrapping the concrete cause at the
// failure site via NewDomainErrorWithCause.
var (
	ErrOCRFailed       = NewDomainError(ErrCodeOCRFailed, "text extraction failed")
	ErrEmbeddingFailed = NewDomainError(ErrCodeEmbeddingFailed, "embedding generation failed")
	ErrRetrievalFailed = NewDomainError(ErrCodeRetrievalFailed, "similarity search failed")
	ErrIngestionFailed = NewDomainError(ErrCodeIngestionFailed, "document ingestion failed")
	ErrInferenceFailed = NewDomainError(ErrCodeInferenceFailed, "answer generation failed")
)
