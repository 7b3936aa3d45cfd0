package services

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
)

const msgValidationFailed = "Validation failed. Required fields are missing or invalid."

// ErrPicturesDisabled is returned when no object storage backend is configured.
var ErrPicturesDisabled = errors.New("picture storage is not configured")

// ValidationError reports invalid input, one message per field.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ConflictError reports a uniqueness violation on the named fields.
type ConflictError struct {
	Message string
	Fields  map[string]string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func validationError(err error) error {
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	fields := make(map[string]string, len(fieldErrs))
	for field, fieldErr := range fieldErrs {
		if fieldErr != nil {
			fields[field] = fieldErr.Error()
		}
	}
	return &ValidationError{Message: msgValidationFailed, Fields: fields}
}
