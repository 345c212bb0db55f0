package store

import "errors"

// Store errors.
var (
	// ErrInvalidJSON is returned when a document value is not valid JSON.
	ErrInvalidJSON = errors.New("store: invalid json document")

	// ErrNotDocument is returned when a JSON-path operation is applied to a non-document store.
	ErrNotDocument = errors.New("store: store is not a json document")
)
