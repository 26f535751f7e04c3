// Package errors defines the structured error type shared by the intake API,
// the job pipeline and the storage adapters. Every AppError carries a code, a
// client-safe message, an HTTP status and an optional wrapped cause.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the wrapped cause and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets one detail key and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New builds an AppError and derives Retryable from the code.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// HasCode reports whether err wraps an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}

// --- request level ---

// NotFound reports a missing resource.
func NotFound(resource, id string) *AppError {
	e := New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound).
		WithDetail("resource", resource)
	if id != "" {
		e.WithDetail("id", id)
	}
	return e
}

// Conflict reports a request that clashes with the current resource state.
func Conflict(reason string) *AppError {
	return New(ErrCodeConflict, reason, http.StatusConflict)
}

// InvalidInput reports a bad request field.
func InvalidInput(field, reason string) *AppError {
	e := New(ErrCodeInvalidInput, "invalid input: "+reason, http.StatusBadRequest)
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

// Validation reports a failed struct validation; message lists the fields.
func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

// TooLarge reports an upload over the configured byte limit.
func TooLarge(limit int64) *AppError {
	return New(ErrCodeTooLarge, fmt.Sprintf("payload exceeds %d bytes", limit), http.StatusRequestEntityTooLarge).
		WithDetail("limit", limit)
}

// Unauthorized reports a missing or rejected credential.
func Unauthorized(reason string) *AppError {
	if reason == "" {
		reason = "authentication required"
	}
	return New(ErrCodeUnauthorized, reason, http.StatusUnauthorized)
}

// ServiceUnavailable reports a dependency that cannot be reached right now.
func ServiceUnavailable(service string) *AppError {
	return New(ErrCodeServiceUnavailable, service+" is unavailable", http.StatusServiceUnavailable).
		WithDetail("service", service)
}

// Internal wraps an unexpected failure.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "unexpected error", http.StatusInternalServerError).WithCause(cause)
}

// DatabaseError wraps a driver or ORM failure.
func DatabaseError(cause error) *AppError {
	return New(ErrCodeDatabaseError, "database error", http.StatusInternalServerError).WithCause(cause)
}

// ExternalServiceError wraps a failure returned by a remote API.
func ExternalServiceError(service string, cause error) *AppError {
	return New(ErrCodeExternalService, service+" request failed", http.StatusBadGateway).
		WithDetail("service", service).
		WithCause(cause)
}

// --- job pipeline ---

// JobNotFound is raised when a job id has no record.
func JobNotFound(jobID string) *AppError {
	return New(ErrCodeJobNotFound, "job not found", http.StatusNotFound).
		WithDetail("job_id", jobID)
}

// StorageFailure is raised when the audio blob cannot be fetched.
func StorageFailure(path string, cause error) *AppError {
	return New(ErrCodeStorage, "audio blob unavailable", http.StatusBadGateway).
		WithDetail("storage_path", path).
		WithCause(cause)
}

// ModelFailure is raised by any model adapter call.
func ModelFailure(model string, cause error) *AppError {
	return New(ErrCodeModel, model+" failed", http.StatusBadGateway).
		WithDetail("model", model).
		WithCause(cause)
}

// StoreWriteFailure is raised when a job update or segment insert is not persisted.
func StoreWriteFailure(op string, cause error) *AppError {
	return New(ErrCodeStoreWrite, "job store write failed", http.StatusInternalServerError).
		WithDetail("op", op).
		WithCause(cause)
}
