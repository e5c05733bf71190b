package controller

import "github.com/goliatone/go-formstate/pkg/model"

// FieldState is a read-only snapshot of one field's runtime record. An empty
// Error means the field is currently considered valid.
type FieldState struct {
	Value      any
	Error      string
	Validating bool
	Touched    bool
	Generation uint64
}

func (s FieldState) clone() FieldState {
	s.Value = model.CloneValue(s.Value)
	return s
}

// Status is the form-level lifecycle.
type Status string

const (
	StatusClean        Status = "clean"
	StatusDirty        Status = "dirty"
	StatusSubmitting   Status = "submitting"
	StatusSubmitted    Status = "submitted"
	StatusSubmitFailed Status = "submit_failed"
)

// EventKind names the mutation that triggered a notification.
type EventKind string

const (
	EventFieldRegistered   EventKind = "field_registered"
	EventFieldUnregistered EventKind = "field_unregistered"
	EventValueChanged      EventKind = "value_changed"
	EventValidationStarted EventKind = "validation_started"
	EventValidated         EventKind = "validated"
	EventErrorChanged      EventKind = "error_changed"
	EventSubmitStarted     EventKind = "submit_started"
	EventSubmitFinished    EventKind = "submit_finished"
	EventReset             EventKind = "reset"
	EventDisposed          EventKind = "disposed"
)

// Event is delivered to listeners after a mutating operation completes.
// FieldID is empty for form-level events.
type Event struct {
	Kind    EventKind
	FieldID string
	Status  Status
}

// Listener observes controller events. Listeners run synchronously on the
// goroutine that performed the mutation and must not block.
type Listener func(Event)
