package store

import (
	"fmt"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Document is a Store addressable by JSON path.
type Document interface {
	Store

	// Get returns the value at path.
	Get(path string) gjson.Result

	// Set writes v at path, creating intermediate objects.
	Set(path string, v any) error

	// Delete removes the value at path.
	Delete(path string) error
}

// Doc is a Store holding a JSON document.
// Load returns the raw JSON text; Reset accepts a JSON string or []byte.
type Doc struct {
	mu  sync.RWMutex
	raw string
}

// NewDoc creates a document from JSON text. Empty input yields "{}".
func NewDoc(raw string) (*Doc, error) {
	if raw == "" {
		raw = "{}"
	}
	if !gjson.Valid(raw) {
		return nil, ErrInvalidJSON
	}
	return &Doc{raw: raw}, nil
}

// MustDoc is like NewDoc but panics on invalid JSON.
func MustDoc(raw string) *Doc {
	d, err := NewDoc(raw)
	if err != nil {
		panic(err)
	}
	return d
}

// Load implements Store.
func (d *Doc) Load() any {
	return d.String()
}

// Reset implements Store. Values that are not valid JSON text are ignored.
func (d *Doc) Reset(v any) {
	var raw string
	switch x := v.(type) {
	case string:
		raw = x
	case []byte:
		raw = string(x)
	default:
		return
	}
	if !gjson.Valid(raw) {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.raw = raw
}

// String returns the document as JSON text.
func (d *Doc) String() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.raw
}

// Get implements Document.
func (d *Doc) Get(path string) gjson.Result {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return gjson.Get(d.raw, path)
}

// Set implements Document.
func (d *Doc) Set(path string, v any) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	raw, err := sjson.Set(d.raw, path, v)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	d.raw = raw
	return nil
}

// SetRaw writes raw JSON text at path.
func (d *Doc) SetRaw(path, raw string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	out, err := sjson.SetRaw(d.raw, path, raw)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	d.raw = out
	return nil
}

// Delete implements Document.
func (d *Doc) Delete(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	raw, err := sjson.Delete(d.raw, path)
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	d.raw = raw
	return nil
}

// Sub returns a view of the document rooted at path.
func (d *Doc) Sub(path string) *Sub {
	return &Sub{doc: d, path: path}
}

// Sub is a Document scoped to a path of a parent Doc.
// Load returns the decoded Go value at the path; Reset writes a Go value there.
type Sub struct {
	doc  *Doc
	path string
}

// Path returns the path the view is rooted at.
func (s *Sub) Path() string {
	return s.path
}

// Load implements Store.
func (s *Sub) Load() any {
	return s.doc.Get(s.path).Value()
}

// Reset implements Store.
func (s *Sub) Reset(v any) {
	_ = s.doc.Set(s.path, v)
}

// Get implements Document.
func (s *Sub) Get(path string) gjson.Result {
	return s.doc.Get(s.join(path))
}

// Set implements Document.
func (s *Sub) Set(path string, v any) error {
	return s.doc.Set(s.join(path), v)
}

// Delete implements Document.
func (s *Sub) Delete(path string) error {
	return s.doc.Delete(s.join(path))
}

// Sub returns a view nested below this one.
func (s *Sub) Sub(path string) *Sub {
	return &Sub{doc: s.doc, path: s.join(path)}
}

func (s *Sub) join(path string) string {
	if path == "" {
		return s.path
	}
	if s.path == "" {
		return path
	}
	return s.path + "." + path
}
