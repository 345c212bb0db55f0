package store

import (
	"errors"
	"testing"
)

func TestNewDoc(t *testing.T) {
	d, err := NewDoc("")
	if err != nil {
		t.Fatalf("NewDoc failed: %v", err)
	}
	if d.String() != "{}" {
		t.Errorf("expected empty object, got %s", d.String())
	}

	if _, err := NewDoc("{not json"); !errors.Is(err, ErrInvalidJSON) {
		t.Errorf("expected ErrInvalidJSON, got %v", err)
	}
}

func TestDocSetGet(t *testing.T) {
	d := MustDoc(`{"counter":0}`)

	if err := d.Set("counter", 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := d.Set("todo.title", "milk"); err != nil {
		t.Fatalf("Set nested failed: %v", err)
	}

	if got := d.Get("counter").Int(); got != 1 {
		t.Errorf("expected counter 1, got %d", got)
	}
	if got := d.Get("todo.title").String(); got != "milk" {
		t.Errorf("expected milk, got %q", got)
	}
	if d.String() != `{"counter":1,"todo":{"title":"milk"}}` {
		t.Errorf("unexpected document %s", d.String())
	}
}

func TestDocDelete(t *testing.T) {
	d := MustDoc(`{"a":1,"b":2}`)

	if err := d.Delete("a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if d.Get("a").Exists() {
		t.Error("expected a to be deleted")
	}
	if d.String() != `{"b":2}` {
		t.Errorf("unexpected document %s", d.String())
	}
}

func TestDocReset(t *testing.T) {
	d := MustDoc(`{"a":1}`)

	d.Reset(`{"b":2}`)
	if d.Load() != `{"b":2}` {
		t.Errorf("expected reset document, got %v", d.Load())
	}

	d.Reset([]byte(`{"c":3}`))
	if d.Load() != `{"c":3}` {
		t.Errorf("expected reset from bytes, got %v", d.Load())
	}

	d.Reset(42)
	d.Reset("{broken")
	if d.Load() != `{"c":3}` {
		t.Errorf("expected invalid resets to be ignored, got %v", d.Load())
	}
}

func TestDocSetRaw(t *testing.T) {
	d := MustDoc(`{}`)
	if err := d.SetRaw("user", `{"name":"ada"}`); err != nil {
		t.Fatalf("SetRaw failed: %v", err)
	}
	if got := d.Get("user.name").String(); got != "ada" {
		t.Errorf("expected ada, got %q", got)
	}
}

func TestSub(t *testing.T) {
	d := MustDoc(`{"ui":{"panel":{"open":false}}}`)
	sub := d.Sub("ui")

	if sub.Path() != "ui" {
		t.Errorf("expected path ui, got %s", sub.Path())
	}
	if got := sub.Get("panel.open").Bool(); got {
		t.Error("expected panel closed")
	}

	if err := sub.Set("panel.open", true); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !d.Get("ui.panel.open").Bool() {
		t.Error("expected write through to parent document")
	}

	nested := sub.Sub("panel")
	nested.Reset(map[string]any{"open": false, "width": 3})
	if got := d.Get("ui.panel.width").Int(); got != 3 {
		t.Errorf("expected width 3, got %d", got)
	}

	v, ok := nested.Load().(map[string]any)
	if !ok {
		t.Fatalf("expected decoded object, got %T", nested.Load())
	}
	if v["width"] != float64(3) {
		t.Errorf("expected decoded width 3, got %v", v["width"])
	}

	if err := nested.Delete("width"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if d.Get("ui.panel.width").Exists() {
		t.Error("expected width deleted")
	}
}

var (
	_ Document = (*Doc)(nil)
	_ Document = (*Sub)(nil)
	_ Store    = (*Atom)(nil)
)
