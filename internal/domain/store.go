package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
)

// Collection names used by the routine service.
const (
	CollectionExercises        = "exercises"
	CollectionRoutines         = "routines"
	CollectionRoutineExercises = "routine_exercises"
	CollectionWorkouts         = "workouts"
)

// ErrDocumentNotFound is returned by Collection implementations when no document exists for an id.
var ErrDocumentNotFound = errors.New("document not found")

// Document is a schemaless JSON object as persisted by the document store.
type Document map[string]any

// Has reports whether the document carries the field, regardless of its value.
func (d Document) Has(field string) bool {
	_, ok := d[field]
	return ok
}

// Filter restricts a scan to documents whose Field equals Value.
type Filter struct {
	Field string
	Value any
}

// Matches reports whether doc satisfies the filter, comparing values by their
// JSON encoding so 5 and 5.0 are equal. A nil filter matches everything.
func (f *Filter) Matches(doc Document) bool {
	if f == nil {
		return true
	}
	value, ok := doc[f.Field]
	if !ok {
		return false
	}
	got, err := json.Marshal(value)
	if err != nil {
		return false
	}
	want, err := json.Marshal(f.Value)
	if err != nil {
		return false
	}
	return bytes.Equal(got, want)
}

// Record pairs a document with its id.
type Record struct {
	ID  string
	Doc Document
}

// Collection is a keyed set of documents. Implementations provide no
// transactions spanning more than one call.
type Collection interface {
	Get(ctx context.Context, id string) (Document, error)
	// Put creates or fully replaces the document stored at id.
	Put(ctx context.Context, id string, doc Document) error
	// Merge overlays fields onto an existing document and fails with
	// ErrDocumentNotFound when none exists.
	Merge(ctx context.Context, id string, fields Document) error
	Delete(ctx context.Context, id string) error
	// Scan returns matching documents in no particular order. A nil filter matches all.
	Scan(ctx context.Context, filter *Filter) ([]Record, error)
}

// DocumentStore hands out named collections.
type DocumentStore interface {
	Collection(name string) Collection
	Close() error
}
