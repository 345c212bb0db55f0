// Package scheduler drains the event queue one event at a time.
//
// A single loop goroutine waits for the head of the queue, optionally
// requests a render flush, yields, then hands the event to the handle
// function. When handling fails the loop purges the queue, starts a fresh
// loop on the same queue and reports a *CrashError before exiting.
package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/keyframe/internal/event"
	"github.com/dshills/keyframe/internal/logging"
	"github.com/dshills/keyframe/internal/queue"
	"github.com/dshills/keyframe/internal/render"
)

// DefaultFlushDelay approximates one render frame.
const DefaultFlushDelay = 20 * time.Millisecond

// HandleFunc processes one event. A non-nil error is a handler crash.
type HandleFunc func(ctx context.Context, ev event.Event) error

// Scheduler owns the drain loop of a queue.
type Scheduler struct {
	queue  *queue.Queue
	handle HandleFunc

	flusher    render.Flusher
	flushDelay time.Duration
	yieldDelay time.Duration
	onError    func(error)
	onPurge    func(n int)
	loggers    logging.Loggers

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	inFlight   atomic.Int64
	generation atomic.Uint64
	processed  atomic.Uint64
	failed     atomic.Uint64
	purged     atomic.Uint64
	restarts   atomic.Uint64
	flushes    atomic.Uint64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithFlusher sets the render-flush requester.
func WithFlusher(f render.Flusher) Option {
	return func(s *Scheduler) {
		if f != nil {
			s.flusher = f
		}
	}
}

// WithFlushDelay sets the pause after a render flush.
func WithFlushDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.flushDelay = d
		}
	}
}

// WithYieldDelay sets the pause before handling unflagged events.
// Zero yields the processor once.
func WithYieldDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.yieldDelay = d
		}
	}
}

// WithErrorHandler sets the receiver of crash errors. The default logs them.
func WithErrorHandler(fn func(error)) Option {
	return func(s *Scheduler) {
		s.onError = fn
	}
}

// WithPurgeHandler sets a callback told how many events a crash purged.
func WithPurgeHandler(fn func(n int)) Option {
	return func(s *Scheduler) {
		s.onPurge = fn
	}
}

// WithLoggers sets the loggers used by the default error handler.
func WithLoggers(l logging.Loggers) Option {
	return func(s *Scheduler) {
		s.loggers = logging.Merge(s.loggers, l)
	}
}

// New creates a scheduler draining q through handle.
func New(q *queue.Queue, handle HandleFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		queue:      q,
		handle:     handle,
		flusher:    render.Nop,
		flushDelay: DefaultFlushDelay,
		loggers:    logging.Defaults(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.onError == nil {
		s.onError = func(err error) {
			s.loggers.Error("%v", err)
		}
	}
	return s
}

// Start launches the drain loop. It runs until Stop or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return ErrAlreadyRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running.Store(true)

	s.wg.Add(1)
	go s.loop(loopCtx, s.generation.Add(1))
	return nil
}

// Stop cancels the drain loop and waits for the current event to finish
// or ctx to be done. Queued events stay in the queue.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running.Load() {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running.Store(false)
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the drain loop is active.
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// WaitIdle blocks until the queue is empty and no event is being handled.
func (s *Scheduler) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		if s.inFlight.Load() == 0 && s.queue.Len() == 0 {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Scheduler) loop(ctx context.Context, gen uint64) {
	defer s.wg.Done()

	for {
		env, err := s.queue.Peek(ctx)
		if err != nil {
			return
		}

		if env.Event.FlushBeforeHandling() {
			s.flusher.Flush()
			s.flushes.Add(1)
			if !sleep(ctx, s.flushDelay) {
				return
			}
		} else if s.yieldDelay > 0 {
			if !sleep(ctx, s.yieldDelay) {
				return
			}
		} else {
			runtime.Gosched()
		}

		s.inFlight.Add(1)
		env, ok := s.queue.Pop()
		if !ok {
			s.inFlight.Add(-1)
			continue
		}

		err = s.invoke(ctx, env.Event)
		s.processed.Add(1)
		if err != nil {
			s.crash(ctx, gen, env, err)
			s.inFlight.Add(-1)
			return
		}
		s.inFlight.Add(-1)
	}
}

// invoke calls handle, converting an escaped panic into an error.
func (s *Scheduler) invoke(ctx context.Context, ev event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrPanic, r, debug.Stack())
		}
	}()
	return s.handle(ctx, ev)
}

// crash purges the queue, restarts the loop and reports err.
func (s *Scheduler) crash(ctx context.Context, gen uint64, env queue.Envelope, err error) {
	s.failed.Add(1)

	n := s.queue.Purge()
	s.purged.Add(uint64(n))
	if s.onPurge != nil {
		s.onPurge(n)
	}

	if ctx.Err() == nil {
		s.restarts.Add(1)
		s.wg.Add(1)
		go s.loop(ctx, s.generation.Add(1))
	}

	crash := &CrashError{
		Err:        err,
		Event:      env.Event,
		Envelope:   env.ID,
		Purged:     n,
		Generation: gen,
	}

	defer func() {
		if r := recover(); r != nil {
			s.loggers.Error("scheduler: error handler panicked: %v", r)
		}
	}()
	s.onError(crash)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Stats contains scheduler counters.
type Stats struct {
	Processed  uint64
	Failed     uint64
	Purged     uint64
	Restarts   uint64
	Flushes    uint64
	Generation uint64
	Depth      int
}

// Stats returns a snapshot of the scheduler counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Processed:  s.processed.Load(),
		Failed:     s.failed.Load(),
		Purged:     s.purged.Load(),
		Restarts:   s.restarts.Load(),
		Flushes:    s.flushes.Load(),
		Generation: s.generation.Load(),
		Depth:      s.queue.Len(),
	}
}
