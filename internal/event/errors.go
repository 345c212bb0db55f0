package event

import "errors"

// Sentinel errors for events.
var (
	// ErrInvalidEvent is reported when an absent (zero) event is dispatched.
	ErrInvalidEvent = errors.New("event: invalid event")

	// ErrEmptyID is returned when an event vector has no ID element.
	ErrEmptyID = errors.New("event: missing event id")
)
