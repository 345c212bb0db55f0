package script

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineClosed is returned by operations on a closed engine.
	ErrEngineClosed = errors.New("script: engine closed")

	// ErrBadHandler is raised in Lua when reg_event gets invalid arguments.
	ErrBadHandler = errors.New("script: invalid reg_event call")
)

// LoadError reports a script that failed to run.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("script: load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
