// Package store provides the shared state containers handed to event handlers.
//
// The dispatch engine treats a Store as opaque: it is created by the host,
// passed by reference to every handler and never replaced or copied. Two
// containers are provided. Atom holds an arbitrary Go value. Doc holds a JSON
// document addressed with gjson path syntax.
package store

import (
	"sort"
	"sync"
)

// Store is a mutable container of application state.
type Store interface {
	// Load returns the current value.
	Load() any

	// Reset replaces the current value.
	Reset(v any)
}

// WatchFunc is called after the value of a store changes.
type WatchFunc func(old, new any)

// Atom is a Store holding any Go value.
// Watches are notified after every Reset or Swap, outside the lock.
type Atom struct {
	mu      sync.RWMutex
	value   any
	watches map[string]WatchFunc
}

// NewAtom creates an Atom with an initial value.
func NewAtom(initial any) *Atom {
	return &Atom{
		value:   initial,
		watches: make(map[string]WatchFunc),
	}
}

// Load implements Store.
func (a *Atom) Load() any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.value
}

// Reset implements Store.
func (a *Atom) Reset(v any) {
	a.mu.Lock()
	old := a.value
	a.value = v
	watches := a.snapshotWatches()
	a.mu.Unlock()

	notify(watches, old, v)
}

// Swap replaces the value with fn(current) and returns the new value.
func (a *Atom) Swap(fn func(any) any) any {
	a.mu.Lock()
	old := a.value
	a.value = fn(old)
	v := a.value
	watches := a.snapshotWatches()
	a.mu.Unlock()

	notify(watches, old, v)
	return v
}

// AddWatch registers fn under key, replacing any watch with the same key.
func (a *Atom) AddWatch(key string, fn WatchFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.watches[key] = fn
}

// RemoveWatch removes the watch registered under key.
func (a *Atom) RemoveWatch(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.watches, key)
}

// snapshotWatches returns the watches in key order. Caller holds the lock.
func (a *Atom) snapshotWatches() []WatchFunc {
	if len(a.watches) == 0 {
		return nil
	}
	keys := make([]string, 0, len(a.watches))
	for k := range a.watches {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fns := make([]WatchFunc, len(keys))
	for i, k := range keys {
		fns[i] = a.watches[k]
	}
	return fns
}

func notify(watches []WatchFunc, old, new any) {
	for _, fn := range watches {
		fn(old, new)
	}
}
