package event

import (
	"fmt"
	"strings"
)

// ID identifies the handler an event is routed to.
type ID string

// String returns the ID as a string.
func (id ID) String() string {
	return string(id)
}

// Event is an event ID followed by its payload.
// Events are immutable once created.
type Event struct {
	id    ID
	args  []any
	flush bool
}

// New creates an event with the given ID and payload values.
// The payload slice is copied.
func New(id ID, args ...any) Event {
	var cp []any
	if len(args) > 0 {
		cp = make([]any, len(args))
		copy(cp, args)
	}
	return Event{id: id, args: cp}
}

// FromVector builds an event from a vector whose first element is the ID.
// The ID element may be an ID or a string.
func FromVector(v []any) (Event, error) {
	if len(v) == 0 {
		return Event{}, ErrEmptyID
	}

	var id ID
	switch x := v[0].(type) {
	case ID:
		id = x
	case string:
		id = ID(x)
	default:
		return Event{}, fmt.Errorf("event id must be a string, got %T: %w", v[0], ErrEmptyID)
	}
	if id == "" {
		return Event{}, ErrEmptyID
	}

	return New(id, v[1:]...), nil
}

// ID returns the event ID.
func (e Event) ID() ID {
	return e.id
}

// Args returns a copy of the payload values.
func (e Event) Args() []any {
	if len(e.args) == 0 {
		return nil
	}
	cp := make([]any, len(e.args))
	copy(cp, e.args)
	return cp
}

// Arg returns the payload value at index i, or nil if out of range.
func (e Event) Arg(i int) any {
	if i < 0 || i >= len(e.args) {
		return nil
	}
	return e.args[i]
}

// Len returns the number of payload values.
func (e Event) Len() int {
	return len(e.args)
}

// Vector returns the event as a single sequence with the ID first.
func (e Event) Vector() []any {
	v := make([]any, 0, len(e.args)+1)
	v = append(v, e.id)
	return append(v, e.args...)
}

// FlushBeforeHandling reports whether the scheduler must flush pending
// rendering before this event is handled.
func (e Event) FlushBeforeHandling() bool {
	return e.flush
}

// WithFlush returns a copy of the event tagged for a render flush.
func (e Event) WithFlush() Event {
	e.flush = true
	return e
}

// WithArgs returns a copy of the event with a different payload.
func (e Event) WithArgs(args ...any) Event {
	n := New(e.id, args...)
	n.flush = e.flush
	return n
}

// IsZero reports whether the event is absent.
func (e Event) IsZero() bool {
	return e.id == ""
}

// String formats the event as a vector, e.g. [todo.add buy milk].
func (e Event) String() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(string(e.id))
	for _, a := range e.args {
		fmt.Fprintf(&b, " %v", a)
	}
	b.WriteByte(']')
	return b.String()
}
