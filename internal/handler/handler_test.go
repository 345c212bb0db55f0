package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/keyframe/internal/event"
	"github.com/dshills/keyframe/internal/store"
)

func inc(db any, _ event.Event) (any, error) {
	return db.(int) + 1, nil
}

func TestFromPureWithoutSlot(t *testing.T) {
	s := store.NewAtom(0)
	h := FromPure(inc)

	if err := h(context.Background(), s, event.New("inc")); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if s.Load() != 1 {
		t.Errorf("expected store reset to 1, got %v", s.Load())
	}
}

func TestFromPureWithSlot(t *testing.T) {
	s := store.NewAtom(0)
	h := FromPure(inc)

	ctx, slot := WithSlot(context.Background())
	if err := h(ctx, s, event.New("inc")); err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	if s.Load() != 0 {
		t.Errorf("expected store untouched while slot open, got %v", s.Load())
	}
	v, ok := slot.Value()
	if !ok || v != 1 {
		t.Errorf("expected pending 1, got %v (set=%v)", v, ok)
	}

	// A second pure step sees the pending value, not the store.
	if err := h(ctx, s, event.New("inc")); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if v, _ := slot.Value(); v != 2 {
		t.Errorf("expected pending 2, got %v", v)
	}
	if Current(ctx, s) != 2 {
		t.Errorf("expected Current to return pending value")
	}
}

func TestFromPureError(t *testing.T) {
	s := store.NewAtom(0)
	boom := errors.New("boom")
	h := FromPure(func(any, event.Event) (any, error) { return nil, boom })

	if err := h(context.Background(), s, event.New("x")); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if s.Load() != 0 {
		t.Errorf("expected store untouched on error, got %v", s.Load())
	}
}

func TestPendingWithoutSlot(t *testing.T) {
	if _, ok := Pending(context.Background()); ok {
		t.Error("expected no pending value without slot")
	}
	s := store.NewAtom("x")
	if Current(context.Background(), s) != "x" {
		t.Error("expected Current to fall back to store")
	}
}
