package dispatcher

import (
	"errors"
	"fmt"

	"github.com/dshills/keyframe/internal/event"
)

// Dispatcher errors.
var (
	// ErrHandlerNotFound indicates no handler is registered for an event ID.
	ErrHandlerNotFound = errors.New("dispatcher: no handler registered")

	// ErrReentrantDispatch indicates a synchronous dispatch from inside a handler.
	ErrReentrantDispatch = errors.New("dispatcher: reentrant sync dispatch")

	// ErrPanic indicates the handler panicked.
	ErrPanic = errors.New("dispatcher: handler panic")
)

// HandlerError is an unrecovered handler failure: the handler returned an
// error or panicked.
type HandlerError struct {
	ID    event.ID
	Err   error
	Panic any
	Stack []byte
}

func (e *HandlerError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("dispatcher: handler for %s panicked: %v", e.ID, e.Panic)
	}
	return fmt.Sprintf("dispatcher: handler for %s failed: %v", e.ID, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
