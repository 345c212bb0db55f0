// Package queue provides the unbounded FIFO that feeds the scheduler.
package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/keyframe/internal/event"
)

// Envelope is a queued event.
type Envelope struct {
	ID       uuid.UUID
	Event    event.Event
	Enqueued time.Time
}

// Queue is an unbounded, goroutine-safe FIFO of events.
// Push never blocks; consumers wait for work with Peek.
type Queue struct {
	mu    sync.Mutex
	items []Envelope
	ready chan struct{}

	pushed atomic.Uint64
	popped atomic.Uint64
	purged atomic.Uint64
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Push appends ev to the tail and returns its envelope.
func (q *Queue) Push(ev event.Event) Envelope {
	env := Envelope{ID: uuid.New(), Event: ev, Enqueued: time.Now()}

	q.mu.Lock()
	q.items = append(q.items, env)
	q.mu.Unlock()
	q.pushed.Add(1)

	q.signal()
	return env
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Peek blocks until an event is at the head of the queue and returns it
// without removing it. It returns ctx.Err() if ctx is done first.
func (q *Queue) Peek(ctx context.Context) (Envelope, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			env := q.items[0]
			q.mu.Unlock()
			return env, nil
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-ctx.Done():
			return Envelope{}, ctx.Err()
		}
	}
}

// Pop removes and returns the head of the queue.
func (q *Queue) Pop() (Envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Envelope{}, false
	}
	env := q.items[0]
	q.items[0] = Envelope{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	q.popped.Add(1)
	return env, true
}

// Purge drops every queued event and returns how many were dropped.
func (q *Queue) Purge() int {
	q.mu.Lock()
	n := len(q.items)
	q.items = nil
	q.mu.Unlock()

	q.purged.Add(uint64(n))
	return n
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Stats contains queue counters.
type Stats struct {
	Pushed uint64
	Popped uint64
	Purged uint64
	Depth  int
}

// Stats returns a snapshot of the queue counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Pushed: q.pushed.Load(),
		Popped: q.popped.Load(),
		Purged: q.purged.Load(),
		Depth:  q.Len(),
	}
}
