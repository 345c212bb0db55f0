// Package dispatcher is the entry point of the event engine.
//
// A Dispatcher owns a handler registry, an event queue and the scheduler
// that drains it. Events reach handlers on one of two paths:
//
//   - Dispatch appends the event to the queue and returns immediately. The
//     scheduler handles queued events one at a time in FIFO order.
//   - DispatchSync handles the event on the caller's goroutine, ahead of
//     anything queued.
//
// # Handling
//
// Exactly one handler body runs at a time across both paths. For each event
// the dispatcher looks up the handler by ID, rejects nested synchronous
// dispatch, marks the event as active and invokes the handler with the
// shared store.
//
// Expected failures are logged through the configured loggers and absorbed:
//
//   - a zero event (event.ErrInvalidEvent)
//   - no registered handler (ErrHandlerNotFound)
//   - DispatchSync called from inside a handler (ErrReentrantDispatch)
//   - invalid middleware at registration (middleware.MisuseError)
//
// A handler that returns an error or panics produces a *HandlerError. On the
// sync path it is returned to the caller. On the queued path the scheduler
// purges the queue, restarts its loop and reports a *scheduler.CrashError
// to the error handler.
//
// # Reentrancy
//
// While a handler runs, the dispatcher records the call and the goroutine
// running it. A DispatchSync made from inside that call, on the same
// goroutine or with the handler's context, is logged and dropped; the
// outer handler continues. Once the handler returns, the record is cleared
// and the same context dispatches normally. Calls from other goroutines
// wait for the running handler to finish, so a handler must not block on a
// goroutine that dispatches synchronously with a fresh context:
//
//	d.RegisterFunc("outer", nil, func(ctx context.Context, s store.Store, ev event.Event) error {
//		_ = d.DispatchSync(ctx, event.New("inner")) // logged and dropped
//		d.Dispatch(event.New("inner"))              // queued, runs later
//		return nil
//	})
package dispatcher
