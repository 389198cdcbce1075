package domain

import (
	"context"
	"errors"
	"strings"

	"example.com/routines/internal/events"
	"example.com/routines/internal/observability"
)

// CreateRoutineInput carries the fields for a new routine. ID is optional.
type CreateRoutineInput struct {
	ID             string `json:"id,omitempty"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	WarmupAudioURL string `json:"warmup_audio_url,omitempty"`
}

// Validate ensures request correctness.
func (in CreateRoutineInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return required("name")
	}
	return nil
}

// RoutinePatch lists the routine fields to merge; nil fields are left untouched.
type RoutinePatch struct {
	Name           *string `json:"name,omitempty"`
	Description    *string `json:"description,omitempty"`
	WarmupAudioURL *string `json:"warmup_audio_url,omitempty"`
}

// Validate ensures patch correctness.
func (p RoutinePatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return &ValidationError{Field: "name", Message: "must not be empty"}
	}
	return nil
}

// CascadeReport records the outcome of each step of a routine delete.
type CascadeReport struct {
	RoutineID      string           `json:"routine_id"`
	DeletedLinks   []string         `json:"deleted_links"`
	FailedLinks    map[string]error `json:"-"`
	RoutineDeleted bool             `json:"routine_deleted"`
}

// Complete reports whether every step succeeded.
func (r CascadeReport) Complete() bool {
	return r.RoutineDeleted && len(r.FailedLinks) == 0
}

// RoutineStore owns routines and cascades their deletion to links.
type RoutineStore struct {
	coll  Collection
	links *LinkStore
	storeDeps
}

// NewRoutineStore constructs a RoutineStore over the routines collection.
func NewRoutineStore(ds DocumentStore, links *LinkStore, opts ...Option) *RoutineStore {
	return &RoutineStore{coll: ds.Collection(CollectionRoutines), links: links, storeDeps: newDeps(opts)}
}

// Get returns the routine or ErrRoutineNotFound.
func (s *RoutineStore) Get(ctx context.Context, id string) (*Routine, error) {
	if strings.TrimSpace(id) == "" {
		return nil, required("routine_id")
	}
	doc, err := s.coll.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return nil, ErrRoutineNotFound
		}
		return nil, s.storeFailure("get", CollectionRoutines, id, err)
	}
	return decodeRoutine(id, doc)
}

// List returns every routine in no particular order.
func (s *RoutineStore) List(ctx context.Context) ([]Routine, error) {
	records, err := s.coll.Scan(ctx, nil)
	if err != nil {
		return nil, s.storeFailure("scan", CollectionRoutines, "", err)
	}
	out := make([]Routine, 0, len(records))
	for _, rec := range records {
		r, err := decodeRoutine(rec.ID, rec.Doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

// Create stores a new routine, generating an id when none is supplied.
func (s *RoutineStore) Create(ctx context.Context, in CreateRoutineInput) (*Routine, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := s.timestamp()
	routine := Routine{
		ID:             strings.TrimSpace(in.ID),
		Name:           in.Name,
		Description:    in.Description,
		WarmupAudioURL: in.WarmupAudioURL,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if routine.ID == "" {
		routine.ID = newID()
	}
	doc, err := toDocument(routine)
	if err != nil {
		return nil, err
	}
	if err := s.coll.Put(ctx, routine.ID, doc); err != nil {
		return nil, s.storeFailure("create", CollectionRoutines, routine.ID, err)
	}
	s.notify(ctx, events.Change{Collection: CollectionRoutines, ID: routine.ID, Action: events.ActionCreated, RoutineID: routine.ID, OccurredAt: now})
	return &routine, nil
}

// Update merges the patch into an existing routine and refreshes updated_at.
func (s *RoutineStore) Update(ctx context.Context, id string, patch RoutinePatch) (*Routine, error) {
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
			return nil, ErrRoutineNotFound
		}
		return nil, s.storeFailure("update", CollectionRoutines, id, err)
	}
	routine, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, events.Change{Collection: CollectionRoutines, ID: id, Action: events.ActionUpdated, RoutineID: id, OccurredAt: now})
	return routine, nil
}

// Delete removes every link of the routine one by one, then the routine
// itself. The routine delete is attempted even when some link deletes fail;
// the report and the returned *CascadeError expose which steps did not succeed.
// The steps are not atomic: a crash part way leaves orphaned links.
func (s *RoutineStore) Delete(ctx context.Context, id string) (CascadeReport, error) {
	report := CascadeReport{RoutineID: id, DeletedLinks: []string{}, FailedLinks: map[string]error{}}
	if strings.TrimSpace(id) == "" {
		return report, required("routine_id")
	}

	links, err := s.links.ListByRoutine(ctx, id)
	if err != nil {
		// The routine stays when its links cannot be listed.
		return report, err
	}
	for _, link := range links {
		if err := s.links.remove(ctx, link.ID, link.RoutineID); err != nil && !errors.Is(err, ErrLinkNotFound) {
			report.FailedLinks[link.ID] = err
			continue
		}
		report.DeletedLinks = append(report.DeletedLinks, link.ID)
	}
	observability.RecordCascadeFailures(len(report.FailedLinks))

	routineErr := s.coll.Delete(ctx, id)
	switch {
	case routineErr == nil:
		report.RoutineDeleted = true
		s.notify(ctx, events.Change{Collection: CollectionRoutines, ID: id, Action: events.ActionDeleted, RoutineID: id})
	case errors.Is(routineErr, ErrDocumentNotFound):
		routineErr = ErrRoutineNotFound
	default:
		routineErr = s.storeFailure("delete", CollectionRoutines, id, routineErr)
	}

	if len(report.FailedLinks) > 0 {
		return report, &CascadeError{RoutineID: id, FailedLinks: report.FailedLinks, RoutineErr: routineErr}
	}
	return report, routineErr
}

func decodeRoutine(id string, doc Document) (*Routine, error) {
	var r Routine
	if err := fromDocument(id, doc, &r); err != nil {
		return nil, err
	}
	r.ID = id
	return &r, nil
}
