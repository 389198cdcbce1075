// Package events publishes routine service change notifications.
package events

import (
	"context"
	"time"
)

// Action describes what happened to a document.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Change is emitted after a catalog, routine, link or workout mutation is persisted.
type Change struct {
	Collection string    `json:"collection"`
	ID         string    `json:"id"`
	Action     Action    `json:"action"`
	RoutineID  string    `json:"routine_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers change notifications.
type Publisher interface {
	Publish(ctx context.Context, change Change) error
}

// NoopPublisher discards every change.
type NoopPublisher struct{}

// Publish performs no action.
func (NoopPublisher) Publish(context.Context, Change) error { return nil }
