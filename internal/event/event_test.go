package event

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	evt := New("todo.add", "buy milk", 3)

	if evt.ID() != "todo.add" {
		t.Errorf("expected id todo.add, got %v", evt.ID())
	}
	if evt.Len() != 2 {
		t.Fatalf("expected 2 args, got %d", evt.Len())
	}
	if evt.Arg(0) != "buy milk" {
		t.Errorf("expected first arg 'buy milk', got %v", evt.Arg(0))
	}
	if evt.Arg(1) != 3 {
		t.Errorf("expected second arg 3, got %v", evt.Arg(1))
	}
	if evt.Arg(5) != nil {
		t.Errorf("expected nil for out of range arg, got %v", evt.Arg(5))
	}
	if evt.FlushBeforeHandling() {
		t.Error("expected no flush flag by default")
	}
}

func TestNewCopiesPayload(t *testing.T) {
	args := []any{"a", "b"}
	evt := New("x", args...)
	args[0] = "changed"

	if evt.Arg(0) != "a" {
		t.Errorf("event payload changed through caller slice: %v", evt.Arg(0))
	}

	got := evt.Args()
	got[1] = "changed"
	if evt.Arg(1) != "b" {
		t.Errorf("event payload changed through Args result: %v", evt.Arg(1))
	}
}

func TestVector(t *testing.T) {
	evt := New("inc", 1)
	v := evt.Vector()

	if len(v) != 2 {
		t.Fatalf("expected vector of 2, got %d", len(v))
	}
	if v[0] != ID("inc") {
		t.Errorf("expected id first, got %v", v[0])
	}
	if v[1] != 1 {
		t.Errorf("expected payload second, got %v", v[1])
	}
}

func TestFromVector(t *testing.T) {
	tests := []struct {
		name    string
		in      []any
		wantID  ID
		wantLen int
		wantErr bool
	}{
		{name: "string id", in: []any{"inc", 1}, wantID: "inc", wantLen: 1},
		{name: "typed id", in: []any{ID("inc")}, wantID: "inc"},
		{name: "empty", in: nil, wantErr: true},
		{name: "empty id", in: []any{""}, wantErr: true},
		{name: "non string id", in: []any{42}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, err := FromVector(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrEmptyID) {
					t.Fatalf("expected ErrEmptyID, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if evt.ID() != tt.wantID {
				t.Errorf("expected id %v, got %v", tt.wantID, evt.ID())
			}
			if evt.Len() != tt.wantLen {
				t.Errorf("expected %d args, got %d", tt.wantLen, evt.Len())
			}
		})
	}
}

func TestWithFlush(t *testing.T) {
	evt := New("render.heavy")
	flushed := evt.WithFlush()

	if evt.FlushBeforeHandling() {
		t.Error("WithFlush mutated the original event")
	}
	if !flushed.FlushBeforeHandling() {
		t.Error("expected flush flag on copy")
	}
	if !flushed.WithArgs("x").FlushBeforeHandling() {
		t.Error("WithArgs dropped the flush flag")
	}
}

func TestIsZero(t *testing.T) {
	var evt Event
	if !evt.IsZero() {
		t.Error("expected zero event to be absent")
	}
	if New("x").IsZero() {
		t.Error("expected event with id to be present")
	}
}

func TestString(t *testing.T) {
	if got := New("todo.add", "milk", 2).String(); got != "[todo.add milk 2]" {
		t.Errorf("unexpected string form %q", got)
	}
	if got := New("ping").String(); got != "[ping]" {
		t.Errorf("unexpected string form %q", got)
	}
}
