// Package migration converts the embedded exercise layout, where exercises
// documents carry a routine_id, into catalog entries plus routine links.
package migration

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/google/uuid"

	"example.com/routines/internal/domain"
	"example.com/routines/internal/observability"
)

// DefaultThrottle is the pause between writes.
const DefaultThrottle = 100 * time.Millisecond

// ErrNotConfirmed is returned by Cleanup when the caller did not confirm.
var ErrNotConfirmed = errors.New("cleanup not confirmed")

// linkNamespace derives link ids from legacy document ids so a rerun
// rewrites the same links.
var linkNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("routine_exercises"))

// Report summarises a migration run.
type Report struct {
	Routines       int `json:"routines"`
	LegacyRows     int `json:"legacy_rows"`
	CatalogCreated int `json:"catalog_created"`
	CatalogReused  int `json:"catalog_reused"`
	LinksWritten   int `json:"links_written"`
	Failed         int `json:"failed"`
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithLogger sets a custom logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Migrator) { m.logger = l }
}

// WithThrottle sets the pause between writes. Zero disables it.
func WithThrottle(d time.Duration) Option {
	return func(m *Migrator) { m.throttle = d }
}

// Migrator runs the layout migration against one document store.
type Migrator struct {
	legacy   domain.Collection
	svc      *domain.Service
	logger   *log.Logger
	throttle time.Duration
}

// New constructs a Migrator. Legacy rows are read straight from the
// exercises collection of ds; everything else goes through svc.
func New(ds domain.DocumentStore, svc *domain.Service, opts ...Option) *Migrator {
	m := &Migrator{
		legacy:   ds.Collection(domain.CollectionExercises),
		svc:      svc,
		logger:   log.Default(),
		throttle: DefaultThrottle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type legacyExercise struct {
	RoutineID string `json:"routine_id"`
	Name      string `json:"name"`
	Order     *int   `json:"order,omitempty"`
	Sets      *int   `json:"sets,omitempty"`
	Reps      *int   `json:"reps,omitempty"`
	RepTime   *int   `json:"rep_time,omitempty"`
	RestTime  *int   `json:"rest_time,omitempty"`
}

// Run migrates every routine's legacy exercises. Row failures are logged,
// counted and joined into the returned error; the remaining rows are still
// processed. Running it again resumes without duplicating catalog entries or links.
func (m *Migrator) Run(ctx context.Context) (Report, error) {
	var report Report

	catalog, err := m.seedCatalog(ctx)
	if err != nil {
		return report, err
	}
	routines, err := m.svc.Routines.List(ctx)
	if err != nil {
		return report, err
	}
	slices.SortFunc(routines, func(a, b domain.Routine) int { return cmp.Compare(a.ID, b.ID) })
	report.Routines = len(routines)
	m.logger.Printf("migration: %d routines, %d catalog entries already present", len(routines), len(catalog))

	var errs []error
	for _, routine := range routines {
		rows, err := m.legacyRows(ctx, routine.ID)
		if err != nil {
			return report, errors.Join(append(errs, err)...)
		}
		if len(rows) == 0 {
			m.logger.Printf("migration: routine %s has no legacy exercises", routine.ID)
			continue
		}
		report.LegacyRows += len(rows)

		for i, rec := range rows {
			if err := m.migrateRow(ctx, routine.ID, i+1, rec, catalog, &report); err != nil {
				if ctx.Err() != nil {
					return report, errors.Join(append(errs, ctx.Err())...)
				}
				report.Failed++
				observability.RecordMigration("failed")
				m.logger.Printf("migration: row %s of routine %s: %v", rec.ID, routine.ID, err)
				errs = append(errs, fmt.Errorf("row %s: %w", rec.ID, err))
				continue
			}
			if err := m.pause(ctx); err != nil {
				return report, errors.Join(append(errs, err)...)
			}
		}
	}
	m.logger.Printf("migration: %d rows, %d catalog created, %d reused, %d links, %d failed",
		report.LegacyRows, report.CatalogCreated, report.CatalogReused, report.LinksWritten, report.Failed)
	return report, errors.Join(errs...)
}

func (m *Migrator) migrateRow(ctx context.Context, routineID string, position int, rec domain.Record, catalog map[string]string, report *Report) error {
	row, err := decodeLegacy(rec)
	if err != nil {
		return err
	}

	exerciseID, ok := catalog[row.Name]
	if ok {
		report.CatalogReused++
		observability.RecordMigration("catalog_reused")
	} else {
		ex, err := m.svc.Catalog.Create(ctx, domain.CreateExerciseInput{
			Name:            row.Name,
			DefaultSets:     row.Sets,
			DefaultReps:     row.Reps,
			DefaultRepTime:  row.RepTime,
			DefaultRestTime: row.RestTime,
		})
		if err != nil {
			return err
		}
		exerciseID = ex.ID
		catalog[row.Name] = ex.ID
		report.CatalogCreated++
		observability.RecordMigration("catalog_created")
	}

	order := position
	if row.Order != nil {
		order = *row.Order
	}
	_, err = m.svc.Links.Create(ctx, domain.CreateLinkInput{
		ID:         LinkID(rec.ID),
		RoutineID:  routineID,
		ExerciseID: exerciseID,
		Order:      &order,
		Sets:       row.Sets,
		Reps:       row.Reps,
		RepTime:    row.RepTime,
		RestTime:   row.RestTime,
	})
	if err != nil {
		return err
	}
	report.LinksWritten++
	observability.RecordMigration("link_written")
	return nil
}

// seedCatalog maps names to the already persisted catalog. When a name is
// present more than once the earliest created entry wins.
func (m *Migrator) seedCatalog(ctx context.Context) (map[string]string, error) {
	entries, err := m.svc.Catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(entries, func(a, b domain.Exercise) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	names := make(map[string]string, len(entries))
	for _, ex := range entries {
		if _, ok := names[ex.Name]; !ok {
			names[ex.Name] = ex.ID
		}
	}
	return names, nil
}

// legacyRows returns the routine's embedded exercises sorted by document id,
// which fixes the position used when a row has no order.
func (m *Migrator) legacyRows(ctx context.Context, routineID string) ([]domain.Record, error) {
	rows, err := m.legacy.Scan(ctx, &domain.Filter{Field: "routine_id", Value: routineID})
	if err != nil {
		m.logger.Printf("migration: scan legacy exercises of %s: %v", routineID, err)
		return nil, fmt.Errorf("scan legacy exercises of %s: %w", routineID, err)
	}
	slices.SortFunc(rows, func(a, b domain.Record) int { return cmp.Compare(a.ID, b.ID) })
	return rows, nil
}

// Cleanup deletes the legacy exercise documents, those carrying routine_id.
// Catalog entries are never touched. It refuses to run unless confirmed.
func (m *Migrator) Cleanup(ctx context.Context, confirmed bool) (int, error) {
	if !confirmed {
		return 0, ErrNotConfirmed
	}
	docs, err := m.legacy.Scan(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("scan exercises: %w", err)
	}
	deleted := 0
	for _, rec := range docs {
		if !rec.Doc.Has("routine_id") {
			continue
		}
		if err := m.legacy.Delete(ctx, rec.ID); err != nil && !errors.Is(err, domain.ErrDocumentNotFound) {
			m.logger.Printf("migration: delete legacy exercise %s: %v", rec.ID, err)
			return deleted, fmt.Errorf("delete legacy exercise %s: %w", rec.ID, err)
		}
		deleted++
		observability.RecordMigration("legacy_deleted")
		if err := m.pause(ctx); err != nil {
			return deleted, err
		}
	}
	m.logger.Printf("migration: deleted %d legacy exercise documents", deleted)
	return deleted, nil
}

// LinkID returns the link id written for a legacy exercise document.
func LinkID(legacyID string) string {
	return uuid.NewSHA1(linkNamespace, []byte(legacyID)).String()
}

func decodeLegacy(rec domain.Record) (legacyExercise, error) {
	var row legacyExercise
	raw, err := json.Marshal(rec.Doc)
	if err != nil {
		return row, err
	}
	if err := json.Unmarshal(raw, &row); err != nil {
		return row, fmt.Errorf("decode legacy exercise %s: %w", rec.ID, err)
	}
	return row, nil
}

func (m *Migrator) pause(ctx context.Context) error {
	if m.throttle <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(m.throttle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
