package validation

import (
	"fmt"
	"path"
	"slices"
	"strings"

	apperrors "github.com/kbukum/audiolens/errors"
)

// FieldError is one failed check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator collects field errors. Checks chain.
type Validator struct {
	errors []FieldError
}

func New() *Validator {
	return &Validator{}
}

func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

func (v *Validator) HasErrors() bool { return len(v.errors) > 0 }

func (v *Validator) Errors() []FieldError { return v.errors }

// Err returns an INVALID_INPUT AppError listing every field error, or nil.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	messages := make([]string, len(v.errors))
	for i, e := range v.errors {
		messages[i] = e.Field + ": " + e.Message
	}
	return apperrors.Validation(strings.Join(messages, "; ")).
		WithDetail("fields", v.errors)
}

// Required fails on an empty or whitespace-only value.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// Range fails when value is outside [minVal, maxVal].
func (v *Validator) Range(field string, value, minVal, maxVal int) *Validator {
	if value < minVal || value > maxVal {
		v.AddError(field, fmt.Sprintf("must be between %d and %d", minVal, maxVal))
	}
	return v
}

// Extension fails when name's extension is not in allowed. Comparison is
// case-insensitive and allowed entries carry the leading dot. An empty allowed
// list accepts anything.
func (v *Validator) Extension(field, name string, allowed []string) *Validator {
	if len(allowed) == 0 || name == "" {
		return v
	}
	ext := strings.ToLower(path.Ext(name))
	if !slices.Contains(allowed, ext) {
		v.AddError(field, "must have one of the extensions: "+strings.Join(allowed, ", "))
	}
	return v
}

// Check records message when condition is false.
func (v *Validator) Check(condition bool, field, message string) *Validator {
	if !condition {
		v.AddError(field, message)
	}
	return v
}
