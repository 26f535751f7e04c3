package database

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/audiolens/errors"
)

var connectionPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"no route to host",
	"driver: bad connection",
	"database is closed",
	"sql: database is closed",
}

// IsConnectionError reports whether err looks like a lost or refused connection.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range connectionPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsNotFoundError reports whether err is GORM's record-not-found.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// FromDatabase converts a GORM error into an AppError for resource.
func FromDatabase(err error, resource string) *apperrors.AppError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.NotFound(resource, "")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.Conflict(resource + " already exists").WithCause(err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return apperrors.Conflict(resource + " references a missing row").WithCause(err)
	case IsConnectionError(err):
		e := apperrors.DatabaseError(err)
		e.HTTPStatus = http.StatusServiceUnavailable
		e.Message = "database unavailable"
		return e
	default:
		return apperrors.DatabaseError(err)
	}
}
