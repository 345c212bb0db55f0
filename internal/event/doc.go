// Package event defines the unit of work processed by the dispatch engine.
//
// An Event is an ordered, immutable sequence: the first element is the event ID,
// a symbolic tag compared with ==, and the remaining elements are opaque payload
// values. Handlers are registered against an ID and receive the whole event.
//
//	ev := event.New("todo.add", "buy milk")
//	ev.ID()     // "todo.add"
//	ev.Arg(0)   // "buy milk"
//	ev.Vector() // []any{event.ID("todo.add"), "buy milk"}
//
// # Render Flush
//
// An event may carry an out-of-band flag asking the scheduler to force a UI
// redraw and wait roughly one frame before the handler runs. The flag is not
// part of the payload:
//
//	dispatcher.Dispatch(event.New("report.build").WithFlush())
//
// The zero Event has an empty ID and stands for an absent event; dispatching
// it is reported as ErrInvalidEvent and dropped.
package event
