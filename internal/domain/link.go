package domain

import (
	"context"
	"errors"
	"strings"

	"example.com/routines/internal/events"
)

// CreateLinkInput carries the fields for a new routine exercise link. ID is optional;
// RoutineID, ExerciseID and Order must be present.
type CreateLinkInput struct {
	ID         string `json:"id,omitempty"`
	RoutineID  string `json:"routine_id"`
	ExerciseID string `json:"exercise_id"`
	Order      *int   `json:"order"`
	Sets       *int   `json:"sets,omitempty"`
	Reps       *int   `json:"reps,omitempty"`
	RepTime    *int   `json:"rep_time,omitempty"`
	RestTime   *int   `json:"rest_time,omitempty"`
}

// Validate ensures request correctness.
func (in CreateLinkInput) Validate() error {
	if strings.TrimSpace(in.RoutineID) == "" {
		return required("routine_id")
	}
	if strings.TrimSpace(in.ExerciseID) == "" {
		return required("exercise_id")
	}
	if in.Order == nil {
		return required("order")
	}
	return validateOverrides(in.Sets, in.Reps, in.RepTime, in.RestTime)
}

// LinkPatch lists the link fields to merge; nil fields are left untouched.
type LinkPatch struct {
	ExerciseID *string `json:"exercise_id,omitempty"`
	Order      *int    `json:"order,omitempty"`
	Sets       *int    `json:"sets,omitempty"`
	Reps       *int    `json:"reps,omitempty"`
	RepTime    *int    `json:"rep_time,omitempty"`
	RestTime   *int    `json:"rest_time,omitempty"`
}

// Validate ensures patch correctness.
func (p LinkPatch) Validate() error {
	if p.ExerciseID != nil && strings.TrimSpace(*p.ExerciseID) == "" {
		return &ValidationError{Field: "exercise_id", Message: "must not be empty"}
	}
	return validateOverrides(p.Sets, p.Reps, p.RepTime, p.RestTime)
}

func validateOverrides(sets, reps, repTime, restTime *int) error {
	if err := checkNonNegative("sets", sets); err != nil {
		return err
	}
	if err := checkNonNegative("reps", reps); err != nil {
		return err
	}
	if err := checkNonNegative("rep_time", repTime); err != nil {
		return err
	}
	return checkNonNegative("rest_time", restTime)
}

// LinkStore owns routine exercise join records.
type LinkStore struct {
	coll Collection
	storeDeps
}

// NewLinkStore constructs a LinkStore over the routine_exercises collection.
func NewLinkStore(ds DocumentStore, opts ...Option) *LinkStore {
	return &LinkStore{coll: ds.Collection(CollectionRoutineExercises), storeDeps: newDeps(opts)}
}

// Get returns the link or ErrLinkNotFound.
func (s *LinkStore) Get(ctx context.Context, id string) (*RoutineExercise, error) {
	if strings.TrimSpace(id) == "" {
		return nil, required("routine_exercise_id")
	}
	doc, err := s.coll.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, s.storeFailure("get", CollectionRoutineExercises, id, err)
	}
	return decodeLink(id, doc)
}

// ListByRoutine returns the routine's links in store order. Sorting is left
// to the caller so the store needs no composite index.
func (s *LinkStore) ListByRoutine(ctx context.Context, routineID string) ([]RoutineExercise, error) {
	if strings.TrimSpace(routineID) == "" {
		return nil, required("routine_id")
	}
	records, err := s.coll.Scan(ctx, &Filter{Field: "routine_id", Value: routineID})
	if err != nil {
		return nil, s.storeFailure("scan", CollectionRoutineExercises, "", err)
	}
	out := make([]RoutineExercise, 0, len(records))
	for _, rec := range records {
		link, err := decodeLink(rec.ID, rec.Doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *link)
	}
	return out, nil
}

// Create stores a new link. Referenced routine and exercise are not checked.
func (s *LinkStore) Create(ctx context.Context, in CreateLinkInput) (*RoutineExercise, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := s.timestamp()
	link := RoutineExercise{
		ID:         strings.TrimSpace(in.ID),
		RoutineID:  in.RoutineID,
		ExerciseID: in.ExerciseID,
		Order:      *in.Order,
		Sets:       in.Sets,
		Reps:       in.Reps,
		RepTime:    in.RepTime,
		RestTime:   in.RestTime,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if link.ID == "" {
		link.ID = newID()
	}
	doc, err := toDocument(link)
	if err != nil {
		return nil, err
	}
	if err := s.coll.Put(ctx, link.ID, doc); err != nil {
		return nil, s.storeFailure("create", CollectionRoutineExercises, link.ID, err)
	}
	s.notify(ctx, events.Change{Collection: CollectionRoutineExercises, ID: link.ID, Action: events.ActionCreated, RoutineID: link.RoutineID, OccurredAt: now})
	return &link, nil
}

// Update merges the patch into an existing link and refreshes updated_at.
func (s *LinkStore) Update(ctx context.Context, id string, patch LinkPatch) (*RoutineExercise, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	fields, err := toDocument(patch)
	if err != nil {
		return nil, err
	}
	now := s.timestamp()
	fields["updated_at"] = now
	if err := s.coll.Merge(ctx, id, fields); err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, s.storeFailure("update", CollectionRoutineExercises, id, err)
	}
	link, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, events.Change{Collection: CollectionRoutineExercises, ID: id, Action: events.ActionUpdated, RoutineID: link.RoutineID, OccurredAt: now})
	return link, nil
}

// Delete removes the link or returns ErrLinkNotFound.
func (s *LinkStore) Delete(ctx context.Context, id string) error {
	link, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.remove(ctx, id, link.RoutineID)
}

// remove deletes a link whose routine is already known, so the change is
// keyed like the link's other changes.
func (s *LinkStore) remove(ctx context.Context, id, routineID string) error {
	if err := s.coll.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return ErrLinkNotFound
		}
		return s.storeFailure("delete", CollectionRoutineExercises, id, err)
	}
	s.notify(ctx, events.Change{Collection: CollectionRoutineExercises, ID: id, Action: events.ActionDeleted, RoutineID: routineID})
	return nil
}

func decodeLink(id string, doc Document) (*RoutineExercise, error) {
	var link RoutineExercise
	if err := fromDocument(id, doc, &link); err != nil {
		return nil, err
	}
	link.ID = id
	return &link, nil
}
