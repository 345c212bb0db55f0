package store

import (
	"sync"
	"testing"
)

func TestAtomLoadReset(t *testing.T) {
	a := NewAtom(map[string]int{"counter": 0})

	m := a.Load().(map[string]int)
	m["counter"]++

	if got := a.Load().(map[string]int)["counter"]; got != 1 {
		t.Errorf("expected in-place mutation to be visible, got %d", got)
	}

	a.Reset(42)
	if a.Load() != 42 {
		t.Errorf("expected 42 after reset, got %v", a.Load())
	}
}

func TestAtomSwap(t *testing.T) {
	a := NewAtom(1)

	got := a.Swap(func(v any) any { return v.(int) + 1 })
	if got != 2 {
		t.Errorf("expected swap to return 2, got %v", got)
	}
	if a.Load() != 2 {
		t.Errorf("expected 2, got %v", a.Load())
	}
}

func TestAtomWatches(t *testing.T) {
	a := NewAtom(0)

	var calls []string
	a.AddWatch("b", func(old, new any) {
		calls = append(calls, "b")
	})
	a.AddWatch("a", func(old, new any) {
		if old != 0 || new != 1 {
			t.Errorf("unexpected watch values %v -> %v", old, new)
		}
		calls = append(calls, "a")
	})

	a.Reset(1)

	if len(calls) != 2 || calls[0] != "a" || calls[1] != "b" {
		t.Errorf("expected watches in key order, got %v", calls)
	}

	a.RemoveWatch("a")
	a.RemoveWatch("b")
	a.Reset(2)
	if len(calls) != 2 {
		t.Errorf("expected no calls after removing watches, got %v", calls)
	}
}

func TestAtomWatchMayReadStore(t *testing.T) {
	a := NewAtom(0)
	a.AddWatch("reader", func(_, _ any) {
		_ = a.Load()
	})

	done := make(chan struct{})
	go func() {
		a.Reset(1)
		close(done)
	}()
	<-done
}

func TestAtomConcurrentSwap(t *testing.T) {
	a := NewAtom(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Swap(func(v any) any { return v.(int) + 1 })
		}()
	}
	wg.Wait()

	if a.Load() != 50 {
		t.Errorf("expected 50, got %v", a.Load())
	}
}
