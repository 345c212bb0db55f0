package dispatcher

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/keyframe/internal/event"
	"github.com/dshills/keyframe/internal/handler"
	"github.com/dshills/keyframe/internal/logging"
	"github.com/dshills/keyframe/internal/middleware"
	"github.com/dshills/keyframe/internal/queue"
	"github.com/dshills/keyframe/internal/registry"
	"github.com/dshills/keyframe/internal/render"
	"github.com/dshills/keyframe/internal/scheduler"
	"github.com/dshills/keyframe/internal/store"
)

// Dispatcher routes events to handlers and owns the drain loop.
type Dispatcher struct {
	store  store.Store
	config Config

	registry  *registry.Registry
	queue     *queue.Queue
	scheduler *scheduler.Scheduler
	metrics   *Metrics

	logMu   sync.RWMutex
	base    logging.Loggers
	loggers logging.Loggers

	flusher render.Flusher
	onError func(error)

	// mu serializes handler bodies. While it is held, owner is the holding
	// goroutine and current is the token of the running call.
	mu      sync.Mutex
	active  atomic.Value // event.ID
	owner   atomic.Uint64
	current atomic.Uint64
	calls   atomic.Uint64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLoggers sets the base loggers. SetLoggers falls back to them for
// unset keys.
func WithLoggers(l logging.Loggers) Option {
	return func(d *Dispatcher) {
		d.base = logging.Merge(d.base, l)
	}
}

// WithFlusher sets the render-flush requester used for events tagged
// FlushBeforeHandling.
func WithFlusher(f render.Flusher) Option {
	return func(d *Dispatcher) {
		d.flusher = f
	}
}

// WithErrorHandler sets the receiver of queued-path crashes. The default
// logs them as errors.
func WithErrorHandler(fn func(error)) Option {
	return func(d *Dispatcher) {
		d.onError = fn
	}
}

// New creates a dispatcher mutating s. The scheduler is not started.
func New(s store.Store, config Config, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:   s,
		config:  config,
		queue:   queue.New(),
		base:    logging.Defaults(),
		flusher: render.Nop,
	}
	d.active.Store(event.ID(""))
	for _, opt := range opts {
		opt(d)
	}
	d.loggers = d.base

	if config.EnableMetrics {
		d.metrics = NewMetrics()
	}

	d.registry = registry.New(registry.WithLoggers(d.loggers))
	d.scheduler = scheduler.New(d.queue, d.handle,
		scheduler.WithFlusher(d.flusher),
		scheduler.WithFlushDelay(config.FlushDelay),
		scheduler.WithYieldDelay(config.YieldDelay),
		scheduler.WithErrorHandler(d.reportCrash),
		scheduler.WithPurgeHandler(d.reportPurge),
	)
	return d
}

// Start starts the drain loop.
func (d *Dispatcher) Start(ctx context.Context) error {
	return d.scheduler.Start(ctx)
}

// Stop stops the drain loop. Queued events are kept.
func (d *Dispatcher) Stop(ctx context.Context) error {
	return d.scheduler.Stop(ctx)
}

// WaitIdle blocks until every queued event has been handled.
func (d *Dispatcher) WaitIdle(ctx context.Context) error {
	return d.scheduler.WaitIdle(ctx)
}

// Store returns the store passed to handlers.
func (d *Dispatcher) Store() store.Store {
	return d.store
}

// Metrics returns the metrics collector, or nil when metrics are disabled.
func (d *Dispatcher) Metrics() *Metrics {
	return d.metrics
}

// Stats contains queue and scheduler counters.
type Stats struct {
	Queue     queue.Stats
	Scheduler scheduler.Stats
}

// Stats returns queue and scheduler counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{Queue: d.queue.Stats(), Scheduler: d.scheduler.Stats()}
}

// RegisterHandler registers a return-value handler for id. The result of
// fn becomes the new store value when fn and the middleware in spec succeed.
func (d *Dispatcher) RegisterHandler(id event.ID, spec middleware.Spec, fn handler.PureFunc) {
	d.registry.RegisterWith(id, middleware.List{middleware.Pure(), spec}, handler.FromPure(fn))
}

// RegisterFunc registers a handler that mutates the store itself.
func (d *Dispatcher) RegisterFunc(id event.ID, spec middleware.Spec, fn handler.Func) {
	d.registry.RegisterWith(id, spec, fn)
}

// Handlers returns the registered event IDs.
func (d *Dispatcher) Handlers() []event.ID {
	return d.registry.List()
}

// ClearHandlers removes every registered handler.
func (d *Dispatcher) ClearHandlers() {
	d.registry.Clear()
}

// SetLoggers replaces the loggers. Unset keys fall back to the base loggers.
func (d *Dispatcher) SetLoggers(l logging.Loggers) {
	d.logMu.Lock()
	d.loggers = logging.Merge(d.base, l)
	merged := d.loggers
	d.logMu.Unlock()

	d.registry.SetLoggers(merged)
}

func (d *Dispatcher) logs() logging.Loggers {
	d.logMu.RLock()
	defer d.logMu.RUnlock()
	return d.loggers
}

// Active returns the ID of the event being handled, or "" when idle.
func (d *Dispatcher) Active() event.ID {
	return d.active.Load().(event.ID)
}

// Dispatch queues ev for the scheduler. The zero event is logged and dropped.
func (d *Dispatcher) Dispatch(ev event.Event) {
	if ev.IsZero() {
		d.drop(DropInvalid, "%v: dispatch of empty event", event.ErrInvalidEvent)
		return
	}
	d.queue.Push(ev)
}

// DispatchSync handles ev on the calling goroutine. It returns a
// *HandlerError when the handler fails and nil otherwise. Absorbed
// conditions (zero event, missing handler, reentrant dispatch) are logged
// and never returned.
//
// Called from inside a running handler, on its goroutine or with its ctx,
// the event is dropped as reentrant and the outer handler continues.
func (d *Dispatcher) DispatchSync(ctx context.Context, ev event.Event) error {
	if ev.IsZero() {
		d.drop(DropInvalid, "%v: sync dispatch of empty event", event.ErrInvalidEvent)
		return nil
	}
	return d.handle(ctx, ev)
}

// Exclusive runs fn while no handler is running. Synchronous dispatch
// from fn is rejected as reentrant. Called from inside a handler or
// another exclusive section, fn runs directly.
func (d *Dispatcher) Exclusive(ctx context.Context, fn func(ctx context.Context) error) error {
	if d.holding(ctx) {
		return fn(ctx)
	}

	ctx, release := d.acquire(ctx, "")
	defer release()
	return fn(ctx)
}

func (d *Dispatcher) handle(ctx context.Context, ev event.Event) error {
	h, ok := d.registry.Lookup(ev.ID())
	if !ok {
		d.drop(DropNotFound, "%v: %s", ErrHandlerNotFound, ev.ID())
		return nil
	}

	if d.holding(ctx) {
		if outer := d.Active(); outer == "" {
			d.drop(DropReentrant, "%v: %s during exclusive section", ErrReentrantDispatch, ev.ID())
		} else {
			d.drop(DropReentrant, "%v: %s while handling %s", ErrReentrantDispatch, ev.ID(), outer)
		}
		return nil
	}

	ctx, release := d.acquire(ctx, ev.ID())
	defer release()
	ctx = logging.WithLoggers(ctx, d.logs())

	start := time.Now()
	var err error
	if d.config.RecoverFromPanic {
		err = d.executeWithRecovery(ctx, h, ev)
	} else {
		err = d.execute(ctx, h, ev)
	}

	if d.metrics != nil {
		d.metrics.RecordHandled(ev.ID(), time.Since(start), err != nil)
	}
	return err
}

// holding reports whether the caller is inside the call that currently
// holds the handler lock: either ctx came from that call or the caller
// runs on the goroutine holding it.
func (d *Dispatcher) holding(ctx context.Context) bool {
	cur := d.current.Load()
	if cur == 0 {
		return false
	}
	if token, ok := ctx.Value(callKey{}).(uint64); ok && token == cur {
		return true
	}
	return d.owner.Load() == goroutineID()
}

// acquire takes the handler lock and marks id as active. release undoes
// both on every exit path, including a panic.
func (d *Dispatcher) acquire(ctx context.Context, id event.ID) (context.Context, func()) {
	d.mu.Lock()
	token := d.calls.Add(1)
	d.owner.Store(goroutineID())
	d.current.Store(token)
	d.active.Store(id)

	release := func() {
		d.active.Store(event.ID(""))
		d.current.Store(0)
		d.owner.Store(0)
		d.mu.Unlock()
	}
	return context.WithValue(ctx, callKey{}, token), release
}

func (d *Dispatcher) execute(ctx context.Context, h handler.Func, ev event.Event) error {
	if err := h(ctx, d.store, ev); err != nil {
		return &HandlerError{ID: ev.ID(), Err: err}
	}
	return nil
}

// executeWithRecovery executes a handler with panic recovery.
func (d *Dispatcher) executeWithRecovery(ctx context.Context, h handler.Func, ev event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			n := runtime.Stack(stack, false)

			err = &HandlerError{ID: ev.ID(), Err: ErrPanic, Panic: r, Stack: stack[:n]}

			if d.metrics != nil {
				d.metrics.RecordPanic(ev.ID())
			}
		}
	}()

	return d.execute(ctx, h, ev)
}

func (d *Dispatcher) drop(reason DropReason, format string, args ...any) {
	if d.metrics != nil {
		d.metrics.RecordDrop(reason)
	}
	d.logs().Error(format, args...)
}

func (d *Dispatcher) reportCrash(err error) {
	if d.onError != nil {
		d.onError(err)
		return
	}
	d.logs().Error("%v", err)
}

func (d *Dispatcher) reportPurge(n int) {
	if d.metrics != nil {
		d.metrics.RecordPurge(n)
	}
	if n > 0 {
		d.logs().Warn("purged %d queued events after handler failure", n)
	}
}

type callKey struct{}

// goroutineID returns the id of the calling goroutine, parsed from the
// "goroutine N [" header of its stack trace.
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
