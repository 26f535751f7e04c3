// Package validation checks intake requests and turns failures into
// INVALID_INPUT AppErrors.
//
// Struct tags are checked with go-playground/validator. Two audiolens tags are
// registered on top of the built-in ones:
//
//	storagepath  a relative blob path with no "..", backslash or leading "/"
//	jobstatus    one of pending, processing, completed, failed
//
//	type NotifyRequest struct {
//	    StoragePath string `json:"storage_path" validate:"required,storagepath"`
//	}
//	err := validation.Validate(req)
//
// For checks that do not fit a tag, collect errors with a Validator:
//
//	v := validation.New()
//	v.Required("file", header.Filename).Extension("file", header.Filename, allowed)
//	err := v.Err()
package validation
