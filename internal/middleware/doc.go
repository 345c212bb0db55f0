// Package middleware composes handler-wrapping functions.
//
// A Middleware wraps a handler.Func and returns a new one. Middleware are
// described by a Spec: a single Middleware, an ordered List of specs, or nil
// (absent, for conditional inclusion). Compose flattens a spec, drops nils and
// builds one Middleware in which the first entry is outermost:
//
//	mw, err := middleware.Compose(middleware.Specs(
//	    middleware.Debug(),
//	    when(validate, middleware.After(check)),
//	    []any{middleware.Path("ui"), nil},
//	))
//	h := mw(handler.FromPure(toggle))
//
// Here Debug runs first on the way in and last on the way out.
//
// # Misuse
//
// Every built-in is a factory returning a Middleware. Placing a factory in a
// spec without calling it (middleware.Debug instead of middleware.Debug())
// yields a MisuseError. The offending entry is skipped and the remaining
// entries are still composed; Compose returns the errors joined so the caller
// can report them at registration time.
package middleware
