package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"example.com/routines/internal/events"
	"example.com/routines/internal/observability"
)

// Option configures the document-backed stores.
type Option func(*storeDeps)

// WithLogger sets a custom logger.
func WithLogger(l *log.Logger) Option {
	return func(d *storeDeps) { d.logger = l }
}

// WithPublisher sets the change publisher.
func WithPublisher(p events.Publisher) Option {
	return func(d *storeDeps) { d.publisher = p }
}

// WithPublishTimeout bounds each change publish. Zero keeps the default.
func WithPublishTimeout(d time.Duration) Option {
	return func(deps *storeDeps) {
		if d > 0 {
			deps.publishTimeout = d
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *storeDeps) { d.now = now }
}

// defaultPublishTimeout bounds a publish independently of the caller's deadline.
const defaultPublishTimeout = 2 * time.Second

type storeDeps struct {
	logger         *log.Logger
	publisher      events.Publisher
	publishTimeout time.Duration
	now            func() time.Time
}

func newDeps(opts []Option) storeDeps {
	d := storeDeps{
		logger:         log.Default(),
		publisher:      events.NoopPublisher{},
		publishTimeout: defaultPublishTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func (d storeDeps) timestamp() time.Time {
	return d.now().UTC()
}

// notify publishes a change once the write is durable. It must be the last
// step of an operation: the publish runs detached from ctx cancellation under
// its own timeout, and failures are logged without failing the write.
func (d storeDeps) notify(ctx context.Context, change events.Change) {
	if change.OccurredAt.IsZero() {
		change.OccurredAt = d.timestamp()
	}
	observability.RecordDocumentWrite(change.Collection, change.OccurredAt)

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.publishTimeout)
	defer cancel()
	if err := d.publisher.Publish(pubCtx, change); err != nil {
		d.logger.Printf("publish %s %s/%s: %v", change.Action, change.Collection, change.ID, err)
	}
}

// storeFailure logs a store I/O failure at the accessor boundary and wraps it.
func (d storeDeps) storeFailure(op, collection, id string, err error) error {
	if id == "" {
		d.logger.Printf("%s %s: %v", op, collection, err)
		return fmt.Errorf("%s %s: %w", op, collection, err)
	}
	d.logger.Printf("%s %s/%s: %v", op, collection, id, err)
	return fmt.Errorf("%s %s/%s: %w", op, collection, id, err)
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func toDocument(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func fromDocument(id string, doc Document, v any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document %s: %w", id, err)
	}
	return nil
}

func checkNonNegative(field string, v *int) error {
	if v != nil && *v < 0 {
		return &ValidationError{Field: field, Message: "must be >= 0"}
	}
	return nil
}
