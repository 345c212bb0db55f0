package middleware

import (
	"errors"
	"fmt"
)

// ErrInvalidSpec is reported for spec entries of an unsupported shape.
var ErrInvalidSpec = errors.New("middleware: invalid middleware spec")

// MisuseError reports a middleware factory used without being invoked.
type MisuseError struct {
	// Factory is the qualified factory name, e.g. "middleware.Path".
	Factory string

	// Usage is the correct invocation form, e.g. "middleware.Path(...)".
	Usage string
}

// Error implements the error interface.
func (e *MisuseError) Error() string {
	return fmt.Sprintf("middleware: factory %s used without being called; use %s", e.Factory, e.Usage)
}
