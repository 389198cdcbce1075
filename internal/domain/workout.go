package domain

import (
	"context"
	"errors"
	"strings"

	"example.com/routines/internal/events"
)

// CreateWorkoutInput carries a performed workout for a user.
type CreateWorkoutInput struct {
	ID        string         `json:"id,omitempty"`
	UserID    string         `json:"user_id"`
	RoutineID string         `json:"routine_id,omitempty"`
	Data      map[string]any `json:"workout_data"`
}

// Validate ensures request correctness.
func (in CreateWorkoutInput) Validate() error {
	if strings.TrimSpace(in.UserID) == "" {
		return required("user_id")
	}
	if in.Data == nil {
		return required("workout_data")
	}
	return nil
}

// WorkoutStore owns the per-user workout log.
type WorkoutStore struct {
	coll Collection
	storeDeps
}

// NewWorkoutStore constructs a WorkoutStore over the workouts collection.
func NewWorkoutStore(ds DocumentStore, opts ...Option) *WorkoutStore {
	return &WorkoutStore{coll: ds.Collection(CollectionWorkouts), storeDeps: newDeps(opts)}
}

// Get returns the workout or ErrWorkoutNotFound.
func (s *WorkoutStore) Get(ctx context.Context, id string) (*Workout, error) {
	doc, err := s.coll.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, s.storeFailure("get", CollectionWorkouts, id, err)
	}
	return decodeWorkout(id, doc)
}

// ListByUser returns a user's workouts in no particular order.
func (s *WorkoutStore) ListByUser(ctx context.Context, userID string) ([]Workout, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, required("user_id")
	}
	records, err := s.coll.Scan(ctx, &Filter{Field: "user_id", Value: userID})
	if err != nil {
		return nil, s.storeFailure("scan", CollectionWorkouts, "", err)
	}
	out := make([]Workout, 0, len(records))
	for _, rec := range records {
		w, err := decodeWorkout(rec.ID, rec.Doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, nil
}

// Create stores a workout.
func (s *WorkoutStore) Create(ctx context.Context, in CreateWorkoutInput) (*Workout, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := s.timestamp()
	w := Workout{
		ID:        strings.TrimSpace(in.ID),
		UserID:    in.UserID,
		RoutineID: in.RoutineID,
		Data:      in.Data,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if w.ID == "" {
		w.ID = newID()
	}
	doc, err := toDocument(w)
	if err != nil {
		return nil, err
	}
	if err := s.coll.Put(ctx, w.ID, doc); err != nil {
		return nil, s.storeFailure("create", CollectionWorkouts, w.ID, err)
	}
	s.notify(ctx, events.Change{Collection: CollectionWorkouts, ID: w.ID, Action: events.ActionCreated, RoutineID: w.RoutineID, OccurredAt: now})
	return &w, nil
}

// Update replaces the workout data and refreshes updated_at.
func (s *WorkoutStore) Update(ctx context.Context, id string, data map[string]any) (*Workout, error) {
	if data == nil {
		return nil, required("workout_data")
	}
	now := s.timestamp()
	if err := s.coll.Merge(ctx, id, Document{"workout_data": data, "updated_at": now}); err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, s.storeFailure("update", CollectionWorkouts, id, err)
	}
	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, events.Change{Collection: CollectionWorkouts, ID: id, Action: events.ActionUpdated, RoutineID: w.RoutineID, OccurredAt: now})
	return w, nil
}

// Delete removes the workout.
func (s *WorkoutStore) Delete(ctx context.Context, id string) error {
	if err := s.coll.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return ErrWorkoutNotFound
		}
		return s.storeFailure("delete", CollectionWorkouts, id, err)
	}
	s.notify(ctx, events.Change{Collection: CollectionWorkouts, ID: id, Action: events.ActionDeleted})
	return nil
}

func decodeWorkout(id string, doc Document) (*Workout, error) {
	var w Workout
	if err := fromDocument(id, doc, &w); err != nil {
		return nil, err
	}
	w.ID = id
	return &w, nil
}
