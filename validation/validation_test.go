package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kbukum/audiolens/errors"
)

type notifyRequest struct {
	StoragePath string `json:"storage_path" validate:"required,storagepath"`
}

type listQuery struct {
	Status string `form:"status" validate:"omitempty,jobstatus"`
	Limit  int    `form:"limit" validate:"min=0,max=500"`
}

type callbackRequest struct {
	CallbackURL string `validate:"omitempty,url"`
}

func fields(t *testing.T, err error) []FieldError {
	t.Helper()
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %T", err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, appErr.Code)
	fe, ok := appErr.Details["fields"].([]FieldError)
	require.True(t, ok)
	return fe
}

func TestValidateStoragePath(t *testing.T) {
	require.NoError(t, Validate(notifyRequest{StoragePath: "audio_0123456789abcdef.mp3"}))
	require.NoError(t, Validate(notifyRequest{StoragePath: "2026/10/clip.wav"}))

	for _, bad := range []string{"", "/etc/passwd", "../secret", "a/../../b", `a\b`, "a//b", "./a"} {
		err := Validate(notifyRequest{StoragePath: bad})
		require.Error(t, err, bad)
		fe := fields(t, err)
		require.Len(t, fe, 1)
		assert.Equal(t, "storage_path", fe[0].Field)
	}
}

func TestValidateJobStatusAndLimit(t *testing.T) {
	require.NoError(t, Validate(listQuery{}))
	require.NoError(t, Validate(listQuery{Status: "completed", Limit: 10}))

	fe := fields(t, Validate(listQuery{Status: "done", Limit: 1000}))
	require.Len(t, fe, 2)
	assert.Equal(t, "status", fe[0].Field)
	assert.Equal(t, "limit", fe[1].Field)
	assert.Equal(t, "must be at most 500", fe[1].Message)
}

func TestValidateFallsBackToSnakeCase(t *testing.T) {
	fe := fields(t, Validate(callbackRequest{CallbackURL: "not a url"}))
	require.Len(t, fe, 1)
	assert.Equal(t, "callback_url", fe[0].Field)
	assert.Equal(t, "must be a valid URL", fe[0].Message)
}

func TestValidatorChecks(t *testing.T) {
	allowed := []string{".mp3", ".wav"}

	v := New().
		Required("file", "clip.MP3").
		Extension("file", "clip.MP3", allowed).
		Range("limit", 10, 1, 100)
	assert.False(t, v.HasErrors())
	assert.NoError(t, v.Err())

	v = New().
		Required("file", "  ").
		Extension("name", "notes.txt", allowed).
		Range("limit", 0, 1, 100).
		Check(false, "bytes", "must not be empty")
	assert.Len(t, v.Errors(), 4)

	err := v.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file: is required")
	assert.Contains(t, err.Error(), "name: must have one of the extensions: .mp3, .wav")
}

func TestExtensionAcceptsAnythingWhenUnrestricted(t *testing.T) {
	assert.False(t, New().Extension("file", "x.flac", nil).HasErrors())
}
