package pipeline

import (
	"errors"
	"fmt"

	apperrors "github.com/kbukum/audiolens/errors"
)

// StageError records which stage of a run failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the stage that raised err, or "" when err carries none.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// ErrorKind returns the error code carried by err, or INTERNAL_ERROR.
func ErrorKind(err error) apperrors.ErrorCode {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.Code
	}
	return apperrors.ErrCodeInternal
}

// IsNotFound reports whether err is a run aborted on an unknown job id.
func IsNotFound(err error) bool {
	return apperrors.HasCode(err, apperrors.ErrCodeJobNotFound)
}

// IsStoreWrite reports whether err is a store write that did not persist.
// The queue layer leaves such messages unacknowledged.
func IsStoreWrite(err error) bool {
	return apperrors.HasCode(err, apperrors.ErrCodeStoreWrite)
}
