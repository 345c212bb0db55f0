package scheduler

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dshills/keyframe/internal/event"
)

// Sentinel errors for the scheduler package.
var (
	// ErrAlreadyRunning is returned when Start is called on a running scheduler.
	ErrAlreadyRunning = errors.New("scheduler: already running")

	// ErrNotRunning is returned when Stop is called on a stopped scheduler.
	ErrNotRunning = errors.New("scheduler: not running")

	// ErrPanic wraps a panic that escaped the handle function.
	ErrPanic = errors.New("scheduler: handler panic")
)

// CrashError reports an event whose handler failed while being drained
// from the queue. By the time it is reported the queue has been purged
// and a new drain loop is running.
type CrashError struct {
	Err        error
	Event      event.Event
	Envelope   uuid.UUID
	Purged     int
	Generation uint64
}

func (e *CrashError) Error() string {
	return fmt.Sprintf("scheduler: event %s failed, %d queued events purged: %v", e.Event.ID(), e.Purged, e.Err)
}

func (e *CrashError) Unwrap() error {
	return e.Err
}
