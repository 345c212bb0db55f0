// Package registry maps event IDs to composed handlers.
package registry

import (
	"sort"
	"sync"

	"github.com/dshills/keyframe/internal/event"
	"github.com/dshills/keyframe/internal/handler"
	"github.com/dshills/keyframe/internal/logging"
	"github.com/dshills/keyframe/internal/middleware"
)

// Registry holds at most one handler per event ID.
type Registry struct {
	mu       sync.RWMutex
	handlers map[event.ID]handler.Func
	loggers  logging.Loggers
}

// Option configures a Registry.
type Option func(*Registry)

// WithLoggers sets the loggers used for overwrite warnings and composition errors.
func WithLoggers(l logging.Loggers) Option {
	return func(r *Registry) {
		r.loggers = logging.Merge(r.loggers, l)
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		handlers: make(map[event.ID]handler.Func),
		loggers:  logging.Defaults(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetLoggers replaces the registry's loggers. Unset fields keep their current value.
func (r *Registry) SetLoggers(l logging.Loggers) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loggers = logging.Merge(r.loggers, l)
}

// Register stores h for id. An existing handler is replaced after a warning.
func (r *Registry) Register(id event.ID, h handler.Func) {
	r.mu.Lock()
	_, exists := r.handlers[id]
	r.handlers[id] = h
	warn := r.loggers.Warn
	r.mu.Unlock()

	if exists {
		warn("overwriting handler for: %s", id)
	}
}

// RegisterWith composes spec around h and registers the result.
// Composition errors are logged; the valid part of spec is still applied.
func (r *Registry) RegisterWith(id event.ID, spec middleware.Spec, h handler.Func) {
	m, err := middleware.Compose(spec)
	if err != nil {
		r.mu.RLock()
		logErr := r.loggers.Error
		r.mu.RUnlock()
		logErr("handler %s: %v", id, err)
	}
	r.Register(id, m(h))
}

// Lookup returns the handler registered for id.
func (r *Registry) Lookup(id event.ID) (handler.Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[id]
	return h, ok
}

// Has reports whether a handler is registered for id.
func (r *Registry) Has(id event.ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[id]
	return ok
}

// List returns all registered IDs, sorted.
func (r *Registry) List() []event.ID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]event.ID, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Count returns the number of registered IDs.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Clear removes all registered handlers.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = make(map[event.ID]handler.Func)
}
