package logger

import (
	"time"
)

// Field keys used across the codebase.
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldJobID       = "job_id"
	FieldStage       = "stage"
	FieldStatus      = "status"
	FieldStoragePath = "storage_path"
	FieldProvider    = "provider"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldDuration    = "duration_ms"
)

// Fields builds a field map from alternating key-value pairs.
//
//	log.Info("job claimed", logger.Fields("job_id", id, "attempt", n))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields describes a failed operation.
func ErrorFields(op string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldError:     err.Error(),
	}
}

// DurationFields describes a timed operation.
func DurationFields(op string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldDuration:  d.Milliseconds(),
	}
}
