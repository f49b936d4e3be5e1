package domain

import (
	"fmt"
)

// -----------------------------
// ValidationError
// -----------------------------

type ValidationError struct {
	Message string
	Cause   error
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		Message: message,
	}
}

func NewValidationErrorWithCause(message string, cause error) *ValidationError {
	return &ValidationError{
		Message: message,
		Cause:   cause,
	}
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func IsValidationError(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

// -----------------------------
// DataError
// -----------------------------

// DataError marks a malformed flag definition received from the API. A
// definition that fails to parse is skipped; the rest of the payload still
// installs.
type DataError struct {
	FlagKey string
	Reason  string
	Err     error
}

func NewDataError(flagKey, reason string, err error) *DataError {
	return &DataError{
		FlagKey: flagKey,
		Reason:  reason,
		Err:     err,
	}
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed flag %s: %s: %v", e.FlagKey, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed flag %s: %s", e.FlagKey, e.Reason)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func IsDataError(err error) bool {
	_, ok := err.(*DataError)
	return ok
}

// -----------------------------
// NotFoundError
// -----------------------------

type NotFoundError struct {
	Resource string
	Key      string
}

func NewNotFoundError(resource, key string) *NotFoundError {
	return &NotFoundError{Resource: resource, Key: key}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

func IsNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}
