package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dshills/keyframe/internal/event"
)

func TestQueueFIFO(t *testing.T) {
	q := New()
	for _, id := range []event.ID{"a", "b", "c"} {
		q.Push(event.New(id))
	}

	for _, want := range []event.ID{"a", "b", "c"} {
		env, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop: empty queue, want %s", want)
		}
		if env.Event.ID() != want {
			t.Errorf("Pop = %s, want %s", env.Event.ID(), want)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop on empty queue returned ok")
	}
}

func TestQueueEnvelopeIDsUnique(t *testing.T) {
	q := New()
	a := q.Push(event.New("a"))
	b := q.Push(event.New("a"))
	if a.ID == b.ID {
		t.Error("envelopes share an ID")
	}
	if a.Enqueued.IsZero() {
		t.Error("Enqueued not set")
	}
}

func TestQueuePeekWaits(t *testing.T) {
	q := New()
	got := make(chan event.ID, 1)

	go func() {
		env, err := q.Peek(context.Background())
		if err != nil {
			return
		}
		got <- env.Event.ID()
	}()

	select {
	case <-got:
		t.Fatal("Peek returned on empty queue")
	case <-time.After(20 * time.Millisecond):
	}

	q.Push(event.New("late"))

	select {
	case id := <-got:
		if id != "late" {
			t.Errorf("Peek = %s, want late", id)
		}
	case <-time.After(time.Second):
		t.Fatal("Peek did not wake after Push")
	}

	if q.Len() != 1 {
		t.Errorf("Len after Peek = %d, want 1", q.Len())
	}
}

func TestQueuePeekCancelled(t *testing.T) {
	q := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := q.Peek(ctx); err != context.Canceled {
		t.Errorf("Peek err = %v, want context.Canceled", err)
	}
}

func TestQueuePurge(t *testing.T) {
	q := New()
	q.Push(event.New("a"))
	q.Push(event.New("b"))

	if n := q.Purge(); n != 2 {
		t.Errorf("Purge = %d, want 2", n)
	}
	if q.Len() != 0 {
		t.Errorf("Len after Purge = %d", q.Len())
	}

	q.Push(event.New("c"))
	env, ok := q.Pop()
	if !ok || env.Event.ID() != "c" {
		t.Errorf("Pop after Purge = %v, %v", env.Event, ok)
	}

	stats := q.Stats()
	if stats.Pushed != 3 || stats.Popped != 1 || stats.Purged != 2 || stats.Depth != 0 {
		t.Errorf("Stats = %+v", stats)
	}
}

func TestQueueConcurrentPush(t *testing.T) {
	q := New()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Push(event.New("e", j))
			}
		}()
	}
	wg.Wait()

	if q.Len() != 1000 {
		t.Errorf("Len = %d, want 1000", q.Len())
	}
}
