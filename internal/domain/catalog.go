package domain

import (
	"context"
	"errors"
	"strings"

	"example.com/routines/internal/events"
)

// legacyRoutineField marks exercises documents written by the embedded
// layout; such documents are not catalog entries.
const legacyRoutineField = "routine_id"

// CreateExerciseInput carries the fields for a new catalog entry. ID is optional.
type CreateExerciseInput struct {
	ID              string `json:"id,omitempty"`
	Name            string `json:"name"`
	DefaultSets     *int   `json:"default_sets,omitempty"`
	DefaultReps     *int   `json:"default_reps,omitempty"`
	DefaultRepTime  *int   `json:"default_rep_time,omitempty"`
	DefaultRestTime *int   `json:"default_rest_time,omitempty"`
	AudioURL        string `json:"audio_url,omitempty"`
}

// Validate ensures request correctness.
func (in CreateExerciseInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return required("name")
	}
	return validateDefaults(in.DefaultSets, in.DefaultReps, in.DefaultRepTime, in.DefaultRestTime)
}

// ExercisePatch lists the catalog fields to merge; nil fields are left untouched.
type ExercisePatch struct {
	Name            *string `json:"name,omitempty"`
	DefaultSets     *int    `json:"default_sets,omitempty"`
	DefaultReps     *int    `json:"default_reps,omitempty"`
	DefaultRepTime  *int    `json:"default_rep_time,omitempty"`
	DefaultRestTime *int    `json:"default_rest_time,omitempty"`
	AudioURL        *string `json:"audio_url,omitempty"`
}

// Validate ensures patch correctness.
func (p ExercisePatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return &ValidationError{Field: "name", Message: "must not be empty"}
	}
	return validateDefaults(p.DefaultSets, p.DefaultReps, p.DefaultRepTime, p.DefaultRestTime)
}

func validateDefaults(sets, reps, repTime, restTime *int) error {
	checks := []struct {
		field string
		value *int
	}{
		{"default_sets", sets},
		{"default_reps", reps},
		{"default_rep_time", repTime},
		{"default_rest_time", restTime},
	}
	for _, c := range checks {
		if err := checkNonNegative(c.field, c.value); err != nil {
			return err
		}
	}
	return nil
}

// CatalogStore owns exercise catalog entries.
type CatalogStore struct {
	coll Collection
	storeDeps
}

// NewCatalogStore constructs a CatalogStore over the exercises collection.
func NewCatalogStore(ds DocumentStore, opts ...Option) *CatalogStore {
	return &CatalogStore{coll: ds.Collection(CollectionExercises), storeDeps: newDeps(opts)}
}

// Get returns the catalog entry or ErrExerciseNotFound.
func (s *CatalogStore) Get(ctx context.Context, id string) (*Exercise, error) {
	if strings.TrimSpace(id) == "" {
		return nil, required("exercise_id")
	}
	doc, err := s.coll.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, s.storeFailure("get", CollectionExercises, id, err)
	}
	if doc.Has(legacyRoutineField) {
		return nil, ErrExerciseNotFound
	}
	return decodeExercise(id, doc)
}

// List returns every catalog entry in no particular order.
func (s *CatalogStore) List(ctx context.Context) ([]Exercise, error) {
	return s.scan(ctx, nil)
}

// FindByName returns catalog entries whose name matches exactly.
func (s *CatalogStore) FindByName(ctx context.Context, name string) ([]Exercise, error) {
	return s.scan(ctx, &Filter{Field: "name", Value: name})
}

func (s *CatalogStore) scan(ctx context.Context, filter *Filter) ([]Exercise, error) {
	records, err := s.coll.Scan(ctx, filter)
	if err != nil {
		return nil, s.storeFailure("scan", CollectionExercises, "", err)
	}
	out := make([]Exercise, 0, len(records))
	for _, rec := range records {
		if rec.Doc.Has(legacyRoutineField) {
			continue
		}
		ex, err := decodeExercise(rec.ID, rec.Doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *ex)
	}
	return out, nil
}

// Create stores a new catalog entry. A caller supplied id is used as-is, so
// creating twice at the same id replaces the entry.
func (s *CatalogStore) Create(ctx context.Context, in CreateExerciseInput) (*Exercise, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := s.timestamp()
	ex := Exercise{
		ID:              strings.TrimSpace(in.ID),
		Name:            in.Name,
		DefaultSets:     in.DefaultSets,
		DefaultReps:     in.DefaultReps,
		DefaultRepTime:  in.DefaultRepTime,
		DefaultRestTime: in.DefaultRestTime,
		AudioURL:        in.AudioURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if ex.ID == "" {
		ex.ID = newID()
	}
	doc, err := toDocument(ex)
	if err != nil {
		return nil, err
	}
	if err := s.coll.Put(ctx, ex.ID, doc); err != nil {
		return nil, s.storeFailure("create", CollectionExercises, ex.ID, err)
	}
	s.notify(ctx, events.Change{Collection: CollectionExercises, ID: ex.ID, Action: events.ActionCreated, OccurredAt: now})
	return &ex, nil
}

// Update merges the patch into an existing entry and refreshes updated_at.
func (s *CatalogStore) Update(ctx context.Context, id string, patch ExercisePatch) (*Exercise, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	// Merge alone would accept a legacy row; Get reports those as absent.
	if _, err := s.Get(ctx, id); err != nil {
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
			return nil, ErrExerciseNotFound
		}
		return nil, s.storeFailure("update", CollectionExercises, id, err)
	}
	ex, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, events.Change{Collection: CollectionExercises, ID: id, Action: events.ActionUpdated, OccurredAt: now})
	return ex, nil
}

// Delete removes the entry. Links referencing it are left in place and are
// skipped at resolution time.
func (s *CatalogStore) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.coll.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return ErrExerciseNotFound
		}
		return s.storeFailure("delete", CollectionExercises, id, err)
	}
	s.notify(ctx, events.Change{Collection: CollectionExercises, ID: id, Action: events.ActionDeleted})
	return nil
}

func decodeExercise(id string, doc Document) (*Exercise, error) {
	var ex Exercise
	if err := fromDocument(id, doc, &ex); err != nil {
		return nil, err
	}
	ex.ID = id
	return &ex, nil
}
