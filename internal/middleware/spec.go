package middleware

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/dshills/keyframe/internal/handler"
)

// Middleware wraps a handler, producing a new handler.
type Middleware func(handler.Func) handler.Func

// Spec describes middleware to compose: a Middleware, a List, or nil.
type Spec interface {
	isSpec()
}

// List is an ordered, possibly nested sequence of specs.
type List []Spec

func (Middleware) isSpec() {}
func (List) isSpec()       {}

// rejected is a spec entry that could not be converted; it is reported by Flatten.
type rejected struct {
	err error
}

func (rejected) isSpec() {}

// Identity returns the handler unchanged.
var Identity Middleware = func(h handler.Func) handler.Func { return h }

var middlewareType = reflect.TypeOf(Middleware(nil))

// Specs builds a List from loosely typed entries. Accepted entries are
// Middleware, plain func(handler.Func) handler.Func values, specs, slices of
// any of these, and nil. Anything else is kept as a rejected entry so that
// Compose can report it.
func Specs(items ...any) List {
	list := make(List, 0, len(items))
	for _, item := range items {
		list = append(list, toSpec(item))
	}
	return list
}

func toSpec(item any) Spec {
	switch x := item.(type) {
	case nil:
		return nil
	case Middleware:
		if x == nil {
			return nil
		}
		return x
	case func(handler.Func) handler.Func:
		if x == nil {
			return nil
		}
		return Middleware(x)
	case List:
		return x
	case []Spec:
		return List(x)
	case []Middleware:
		list := make(List, len(x))
		for i, m := range x {
			list[i] = toSpec(m)
		}
		return list
	case []any:
		return Specs(x...)
	case Spec:
		return x
	}

	if misuse := factoryMisuse(item); misuse != nil {
		return rejected{err: misuse}
	}
	return rejected{err: fmt.Errorf("%w: unsupported entry of type %T", ErrInvalidSpec, item)}
}

// factoryMisuse reports whether item is an uninvoked function returning Middleware.
func factoryMisuse(item any) *MisuseError {
	v := reflect.ValueOf(item)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil
	}
	t := v.Type()
	if t.NumOut() != 1 || t.Out(0) != middlewareType {
		return nil
	}

	name := shortFuncName(runtime.FuncForPC(v.Pointer()).Name())
	usage := name + "()"
	if t.NumIn() > 0 {
		usage = name + "(...)"
	}
	return &MisuseError{Factory: name, Usage: usage}
}

// shortFuncName trims the import path from a runtime function name:
// "github.com/x/y/middleware.Path" becomes "middleware.Path".
func shortFuncName(full string) string {
	if i := strings.LastIndex(full, "/"); i >= 0 {
		full = full[i+1:]
	}
	return full
}

// Flatten resolves spec into an ordered list of middleware.
// Nils are dropped and nested lists are spliced in place. Rejected entries
// are skipped and returned as a joined error.
func Flatten(spec Spec) ([]Middleware, error) {
	var (
		out  []Middleware
		errs []error
	)

	var walk func(s Spec)
	walk = func(s Spec) {
		switch x := s.(type) {
		case nil:
		case Middleware:
			if x != nil {
				out = append(out, x)
			}
		case List:
			for _, child := range x {
				walk(child)
			}
		case rejected:
			errs = append(errs, x.err)
		default:
			errs = append(errs, fmt.Errorf("%w: unsupported spec %T", ErrInvalidSpec, s))
		}
	}
	walk(spec)

	return out, errors.Join(errs...)
}

// Compose builds a single Middleware from spec. A lone Middleware is
// returned unchanged. For a list [m1, m2, ..., mn] the result wraps a
// handler h as m1(m2(...mn(h))). An empty spec yields Identity.
//
// The returned Middleware is always usable; a non-nil error lists the
// entries that were skipped.
func Compose(spec Spec) (Middleware, error) {
	if m, ok := spec.(Middleware); ok && m != nil {
		return m, nil
	}

	chain, err := Flatten(spec)
	switch len(chain) {
	case 0:
		return Identity, err
	case 1:
		return chain[0], err
	}

	return func(h handler.Func) handler.Func {
		for i := len(chain) - 1; i >= 0; i-- {
			h = chain[i](h)
		}
		return h
	}, err
}
