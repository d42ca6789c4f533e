package event

import (
	"errors"
	"fmt"
)

// Sentinel causes wrapped by ValidationError. Use errors.Is to classify.
var (
	ErrMissing = errors.New("is required")
	ErrInvalid = errors.New("is malformed")
	ErrOrder   = errors.New("is before start")
)

// ValidationError reports a bad, missing, or malformed input field.
type ValidationError struct {
	Field  string
	Err    error
	Detail string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("invalid %s: %s %v (%s)", e.Field, e.Field, e.Err, e.Detail)
	}
	return fmt.Sprintf("invalid %s: %s %v", e.Field, e.Field, e.Err)
}

// Unwrap returns the sentinel cause
func (e *ValidationError) Unwrap() error {
	return e.Err
}

func missing(field string) error {
	return &ValidationError{Field: field, Err: ErrMissing}
}

func invalid(field, detail string) error {
	return &ValidationError{Field: field, Err: ErrInvalid, Detail: detail}
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
