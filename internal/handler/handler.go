// Package handler defines event handler signatures and the pending-value
// slot used to turn return-value handlers into store mutations.
package handler

import (
	"context"

	"github.com/dshills/keyframe/internal/event"
	"github.com/dshills/keyframe/internal/store"
)

// Func handles one event by mutating the store.
// A non-nil error (or a panic) is an unrecovered handler failure.
type Func func(ctx context.Context, s store.Store, ev event.Event) error

// PureFunc computes the next store value from the current one.
type PureFunc func(db any, ev event.Event) (any, error)

// FromPure adapts a PureFunc into a Func.
// The result is emitted into the pending slot when one is open, otherwise
// it is written to the store directly.
func FromPure(fn PureFunc) Func {
	return func(ctx context.Context, s store.Store, ev event.Event) error {
		db, ok := Pending(ctx)
		if !ok {
			db = s.Load()
		}
		next, err := fn(db, ev)
		if err != nil {
			return err
		}
		Emit(ctx, s, next)
		return nil
	}
}

// Slot holds a store value produced by a handler but not yet committed.
type Slot struct {
	value any
	set   bool
}

// Value returns the pending value and whether one was emitted.
func (s *Slot) Value() (any, bool) {
	return s.value, s.set
}

// Set records v as the pending value.
func (s *Slot) Set(v any) {
	s.value = v
	s.set = true
}

type slotKey struct{}

// WithSlot opens a new pending slot for the handlers called with the returned context.
func WithSlot(ctx context.Context) (context.Context, *Slot) {
	slot := &Slot{}
	return context.WithValue(ctx, slotKey{}, slot), slot
}

func slotFrom(ctx context.Context) *Slot {
	slot, _ := ctx.Value(slotKey{}).(*Slot)
	return slot
}

// Emit records v in the innermost open slot, or resets s when no slot is open.
func Emit(ctx context.Context, s store.Store, v any) {
	if slot := slotFrom(ctx); slot != nil {
		slot.Set(v)
		return
	}
	s.Reset(v)
}

// Pending returns the value emitted into the innermost open slot.
func Pending(ctx context.Context) (any, bool) {
	if slot := slotFrom(ctx); slot != nil {
		return slot.Value()
	}
	return nil, false
}

// Current returns the pending value if any, else the store value.
func Current(ctx context.Context, s store.Store) any {
	if v, ok := Pending(ctx); ok {
		return v
	}
	return s.Load()
}
