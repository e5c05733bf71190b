package controller

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownField is returned when an operation names a field that was
	// never registered (or has been unregistered).
	ErrUnknownField = errors.New("controller: unknown field")
	// ErrDuplicateField is matched by DuplicateFieldError.
	ErrDuplicateField = errors.New("controller: field already registered")
	// ErrFieldIDRequired rejects registrations without an id.
	ErrFieldIDRequired = errors.New("controller: field id required")
	// ErrSubmitInProgress is recorded as the last error when Submit is called
	// while another submission is still running.
	ErrSubmitInProgress = errors.New("controller: submission already in progress")
	// ErrValuesChanged is recorded as the last error when a value changes
	// while Submit is validating, so the validated values are not the ones
	// that would be sent.
	ErrValuesChanged = errors.New("controller: values changed during submit validation")
	// ErrDisposed is returned by mutating operations after Dispose.
	ErrDisposed = errors.New("controller: disposed")
)

// DuplicateFieldError reports a second registration of the same field id.
type DuplicateFieldError struct {
	FieldID string
}

func (e DuplicateFieldError) Error() string {
	return fmt.Sprintf("controller: field %q already registered", e.FieldID)
}

// Is lets errors.Is match against ErrDuplicateField.
func (e DuplicateFieldError) Is(target error) bool {
	return target == ErrDuplicateField
}

func unknownField(id string) error {
	return fmt.Errorf("%w %q", ErrUnknownField, id)
}

// submitPanicError wraps a value recovered from a panicking submit callback.
type submitPanicError struct {
	value any
}

func (e submitPanicError) Error() string {
	return fmt.Sprintf("controller: submit callback panicked: %v", e.value)
}
