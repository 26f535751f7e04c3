package errors

// ErrorCode is a machine-readable error code carried by AppError.
type ErrorCode string

// Transport and availability.
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
)

// Resource and request errors.
const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeTooLarge     ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeRateLimited  ErrorCode = "RATE_LIMITED"
)

// Job pipeline errors. Each one names the stage family that raised it.
const (
	// ErrCodeJobNotFound means the job id is unknown to the record store.
	ErrCodeJobNotFound ErrorCode = "JOB_NOT_FOUND"
	// ErrCodeStorage means the audio blob is missing or unreadable.
	ErrCodeStorage ErrorCode = "STORAGE_ERROR"
	// ErrCodeModel covers every transcription, summarization and classification failure.
	ErrCodeModel ErrorCode = "MODEL_ERROR"
	// ErrCodeStoreWrite means a job status or result write did not persist.
	ErrCodeStoreWrite ErrorCode = "STORE_WRITE_ERROR"
)

// Internal.
const (
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError   ErrorCode = "DATABASE_ERROR"
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeTimeout:            true,
	ErrCodeRateLimited:        true,
	ErrCodeDatabaseError:      true,
	ErrCodeExternalService:    true,
	ErrCodeStoreWrite:         true,
}

// IsRetryableCode reports whether callers may retry an operation that failed with code.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
