// Package memory provides an in-process document store for local development and tests.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"example.com/routines/internal/domain"
)

// Store keeps every collection in memory. Documents are held as encoded JSON
// so callers never share maps with the store.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*Collection
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{collections: make(map[string]*Collection)}
}

// Collection implements domain.DocumentStore.
func (s *Store) Collection(name string) domain.Collection {
	return s.collection(name)
}

func (s *Store) collection(name string) *Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = &Collection{docs: make(map[string][]byte)}
		s.collections[name] = c
	}
	return c
}

// Close implements domain.DocumentStore.
func (s *Store) Close() error { return nil }

// Collection is a single in-memory collection.
type Collection struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// Get implements domain.Collection.
func (c *Collection) Get(ctx context.Context, id string) (domain.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	raw, ok := c.docs[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return decode(raw)
}

// Put implements domain.Collection.
func (c *Collection) Put(ctx context.Context, id string, doc domain.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[id] = raw
	return nil
}

// Merge implements domain.Collection.
func (c *Collection) Merge(ctx context.Context, id string, fields domain.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, ok := c.docs[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	doc, err := decode(raw)
	if err != nil {
		return err
	}
	for k, v := range fields {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	c.docs[id] = merged
	return nil
}

// Delete implements domain.Collection.
func (c *Collection) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.docs[id]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(c.docs, id)
	return nil
}

// Scan implements domain.Collection.
func (c *Collection) Scan(ctx context.Context, filter *domain.Filter) ([]domain.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	results := make([]domain.Record, 0)
	for id, raw := range c.docs {
		doc, err := decode(raw)
		if err != nil {
			return nil, err
		}
		if !filter.Matches(doc) {
			continue
		}
		results = append(results, domain.Record{ID: id, Doc: doc})
	}
	return results, nil
}

// Len returns the number of documents held in the named collection.
func (s *Store) Len(name string) int {
	c := s.collection(name)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

func decode(raw []byte) (domain.Document, error) {
	var doc domain.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
