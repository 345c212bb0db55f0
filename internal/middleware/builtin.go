package middleware

import (
	"context"
	"fmt"
	"reflect"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/keyframe/internal/event"
	"github.com/dshills/keyframe/internal/handler"
	"github.com/dshills/keyframe/internal/logging"
	"github.com/dshills/keyframe/internal/store"
)

// Pure opens a pending-value slot for the wrapped chain and, when the chain
// succeeds, commits the emitted value. It is the baseline middleware of
// return-value handlers (see handler.FromPure).
func Pure() Middleware {
	return func(next handler.Func) handler.Func {
		return func(ctx context.Context, s store.Store, ev event.Event) error {
			inner, slot := handler.WithSlot(ctx)
			if err := next(inner, s, ev); err != nil {
				return err
			}
			if v, ok := slot.Value(); ok {
				handler.Emit(ctx, s, v)
			}
			return nil
		}
	}
}

// Debug logs each event in a group together with whether the store value
// was replaced. In-place mutation of a shared map is not detected.
func Debug() Middleware {
	return func(next handler.Func) handler.Func {
		return func(ctx context.Context, s store.Store, ev event.Event) error {
			log := logging.FromContext(ctx)
			log.GroupStart("handling event %s", ev)
			defer log.GroupEnd("")

			before := handler.Current(ctx, s)
			if err := next(ctx, s, ev); err != nil {
				log.Error("event %s failed: %v", ev.ID(), err)
				return err
			}

			after := handler.Current(ctx, s)
			if reflect.DeepEqual(before, after) {
				log.Log("no store changes caused by %s", ev.ID())
			} else {
				log.Log("store after %s: %v", ev.ID(), after)
			}
			return nil
		}
	}
}

// Enrich replaces the resulting store value with fn(value, ev) after the
// wrapped chain succeeds.
func Enrich(fn func(db any, ev event.Event) any) Middleware {
	return func(next handler.Func) handler.Func {
		return func(ctx context.Context, s store.Store, ev event.Event) error {
			if err := next(ctx, s, ev); err != nil {
				return err
			}
			handler.Emit(ctx, s, fn(handler.Current(ctx, s), ev))
			return nil
		}
	}
}

// After calls fn with the resulting store value after the wrapped chain
// succeeds. fn must not mutate the value.
func After(fn func(db any, ev event.Event)) Middleware {
	return func(next handler.Func) handler.Func {
		return func(ctx context.Context, s store.Store, ev event.Event) error {
			if err := next(ctx, s, ev); err != nil {
				return err
			}
			fn(handler.Current(ctx, s), ev)
			return nil
		}
	}
}

// Path scopes the wrapped chain to the JSON path of a document store. Inner
// handlers see the decoded value at path; a value they emit is written back
// at path. Using Path on a store that is not a document fails the event.
func Path(path string) Middleware {
	return func(next handler.Func) handler.Func {
		return func(ctx context.Context, s store.Store, ev event.Event) error {
			var sub *store.Sub
			switch d := s.(type) {
			case *store.Doc:
				sub = d.Sub(path)
			case *store.Sub:
				sub = d.Sub(path)
			default:
				return fmt.Errorf("path %q on %T: %w", path, s, store.ErrNotDocument)
			}

			inner, slot := handler.WithSlot(ctx)
			if err := next(inner, sub, ev); err != nil {
				return err
			}
			if v, ok := slot.Value(); ok {
				if err := sub.Set("", v); err != nil {
					return fmt.Errorf("path %q: %w", path, err)
				}
			}
			return nil
		}
	}
}

// Trace records one span per handled event.
func Trace(tracer trace.Tracer) Middleware {
	return func(next handler.Func) handler.Func {
		return func(ctx context.Context, s store.Store, ev event.Event) error {
			ctx, span := tracer.Start(ctx, "event "+ev.ID().String(),
				trace.WithAttributes(
					attribute.String("event.id", ev.ID().String()),
					attribute.Int("event.args", ev.Len()),
					attribute.Bool("event.flush", ev.FlushBeforeHandling()),
				),
			)
			defer span.End()

			err := next(ctx, s, ev)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return err
		}
	}
}
