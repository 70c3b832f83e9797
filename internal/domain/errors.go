package domain

import "fmt"

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
	ErrCodeTimeout          = "TIMEOUT"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrDimensionMismatch         = NewDomainError(ErrCodeValidation, "embedding dimensionality does not match the configured dimensions")
	ErrInvalidRole               = NewDomainError(ErrCodeValidation, "invalid api key role")
	ErrInvalidSessionStatus      = NewDomainError(ErrCodeValidation, "invalid session status")
	ErrInvalidEmbeddingJobStatus = NewDomainError(ErrCodeValidation, "invalid embedding job status")
	ErrMissingRequiredField      = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrItemNotFound       = NewDomainError(ErrCodeNotFound, "item not found")
	ErrChunkNotFound      = NewDomainError(ErrCodeNotFound, "chunk not found")
	ErrTenantNotFound     = NewDomainError(ErrCodeNotFound, "tenant not found")
	ErrAPIKeyNotFound     = NewDomainError(ErrCodeNotFound, "api key not found")
	ErrSessionNotFound    = NewDomainError(ErrCodeNotFound, "session not found")
	ErrCheckpointNotFound = NewDomainError(ErrCodeNotFound, "checkpoint not found")
	ErrSearchLogNotFound  = NewDomainError(ErrCodeNotFound, "search log not found")
)

// Already exists errors
var (
	ErrTenantAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "tenant already exists")
	ErrAPIKeyAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "api key already exists")
)

// Authorization errors
var (
	ErrAPIKeyRevoked     = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey     = NewDomainError(ErrCodeUnauthorized, "invalid api key")
	ErrNoClaims          = NewDomainError(ErrCodeUnauthorized, "no authenticated claims in context")
	ErrWriteNotPermitted = NewDomainError(ErrCodeForbidden, "write operations require a service key")
)

// Operation errors
var (
	ErrSessionEnded       = NewDomainError(ErrCodeInvalidOperation, "session has already ended")
	ErrEmbeddingsDisabled = NewDomainError(ErrCodeInvalidOperation, "embedding generation is not configured")
	ErrExportsDisabled    = NewDomainError(ErrCodeInvalidOperation, "export storage is not configured")
)

// Timeout errors
var (
	ErrSearchTimeout = NewDomainError(ErrCodeTimeout, "similarity search timed out")
)
