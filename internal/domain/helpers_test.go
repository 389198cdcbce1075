package domain_test

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"example.com/routines/internal/domain"
	"example.com/routines/internal/events"
	"example.com/routines/internal/persistence/memory"
)

var errInjected = errors.New("injected store failure")

// faultyStore wraps the memory store and fails selected operations.
type faultyStore struct {
	*memory.Store
	mu        sync.Mutex
	failGet   map[string]bool
	failDel   map[string]bool
	failScan  map[string]bool
	deleteLog []string
}

func newFaultyStore() *faultyStore {
	return &faultyStore{
		Store:    memory.NewStore(),
		failGet:  map[string]bool{},
		failDel:  map[string]bool{},
		failScan: map[string]bool{},
	}
}

func (s *faultyStore) Collection(name string) domain.Collection {
	return &faultyCollection{Collection: s.Store.Collection(name), name: name, parent: s}
}

type faultyCollection struct {
	domain.Collection
	name   string
	parent *faultyStore
}

func (c *faultyCollection) Get(ctx context.Context, id string) (domain.Document, error) {
	c.parent.mu.Lock()
	fail := c.parent.failGet[c.name+"/"+id]
	c.parent.mu.Unlock()
	if fail {
		return nil, errInjected
	}
	return c.Collection.Get(ctx, id)
}

func (c *faultyCollection) Delete(ctx context.Context, id string) error {
	c.parent.mu.Lock()
	fail := c.parent.failDel[c.name+"/"+id]
	c.parent.deleteLog = append(c.parent.deleteLog, c.name+"/"+id)
	c.parent.mu.Unlock()
	if fail {
		return errInjected
	}
	return c.Collection.Delete(ctx, id)
}

func (c *faultyCollection) Scan(ctx context.Context, filter *domain.Filter) ([]domain.Record, error) {
	c.parent.mu.Lock()
	fail := c.parent.failScan[c.name]
	c.parent.mu.Unlock()
	if fail {
		return nil, errInjected
	}
	return c.Collection.Scan(ctx, filter)
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []events.Change
	ctxErrs []error
	err     error
}

func (p *recordingPublisher) Publish(ctx context.Context, change events.Change) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
	p.ctxErrs = append(p.ctxErrs, ctx.Err())
	return p.err
}

// stalledPublisher blocks every publish until its context ends.
type stalledPublisher struct {
	mu   sync.Mutex
	errs []error
}

func (p *stalledPublisher) Publish(ctx context.Context, _ events.Change) error {
	<-ctx.Done()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs = append(p.errs, ctx.Err())
	return ctx.Err()
}

func fixedClock() func() time.Time {
	ts := time.Date(2025, time.January, 6, 7, 30, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func newTestService(t *testing.T, ds domain.DocumentStore, opts ...domain.Option) *domain.Service {
	t.Helper()
	base := []domain.Option{domain.WithLogger(log.New(io.Discard, "", 0)), domain.WithClock(fixedClock())}
	return domain.NewService(ds, append(base, opts...)...)
}

func intp(v int) *int { return domain.IntPtr(v) }
