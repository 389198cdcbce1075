package migration_test

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/routines/internal/domain"
	"example.com/routines/internal/migration"
	"example.com/routines/internal/persistence/memory"
)

type fixture struct {
	store *memory.Store
	svc   *domain.Service
	m     *migration.Migrator
	push  string
	legs  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	quiet := log.New(io.Discard, "", 0)
	store := memory.NewStore()
	svc := domain.NewService(store, domain.WithLogger(quiet))

	push, err := svc.Routines.Create(ctx, domain.CreateRoutineInput{Name: "Push"})
	require.NoError(t, err)
	legs, err := svc.Routines.Create(ctx, domain.CreateRoutineInput{Name: "Legs"})
	require.NoError(t, err)

	legacy := store.Collection(domain.CollectionExercises)
	rows := map[string]domain.Document{
		"old-01": {"routine_id": push.ID, "name": "Flat Bench Press", "sets": 4, "reps": 8, "rest_time": 90},
		"old-02": {"routine_id": push.ID, "name": "Overhead Press", "sets": 3, "reps": 10, "order": 5},
		"old-03": {"routine_id": push.ID, "name": "Squats"},
		"old-04": {"routine_id": legs.ID, "name": "Squats", "sets": 5, "reps": 5},
		"old-05": {"routine_id": legs.ID, "name": "squats", "sets": 3},
	}
	for id, doc := range rows {
		require.NoError(t, legacy.Put(ctx, id, doc))
	}

	return &fixture{
		store: store,
		svc:   svc,
		m:     migration.New(store, svc, migration.WithLogger(quiet), migration.WithThrottle(0)),
		push:  push.ID,
		legs:  legs.ID,
	}
}

func (f *fixture) catalogNames(t *testing.T) []string {
	t.Helper()
	entries, err := f.svc.Catalog.List(context.Background())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names
}

func TestRunDeduplicatesByExactName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	report, err := f.m.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, migration.Report{
		Routines:       2,
		LegacyRows:     5,
		CatalogCreated: 4,
		CatalogReused:  1,
		LinksWritten:   5,
	}, report)
	require.ElementsMatch(t, []string{"Flat Bench Press", "Overhead Press", "Squats", "squats"}, f.catalogNames(t))
}

func TestRunPreservesOrderAndOverrides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.m.Run(ctx)
	require.NoError(t, err)

	resolved, err := f.svc.Resolver.ResolveRoutine(ctx, f.push)
	require.NoError(t, err)
	require.Len(t, resolved, 3)

	// old-01 and old-03 take their positions; old-02 keeps its explicit order.
	require.Equal(t, "Flat Bench Press", resolved[0].Name)
	require.Equal(t, 1, resolved[0].Order)
	require.Equal(t, 90, resolved[0].RestTime)
	require.Equal(t, "Squats", resolved[1].Name)
	require.Equal(t, 3, resolved[1].Order)
	require.Equal(t, "Overhead Press", resolved[2].Name)
	require.Equal(t, 5, resolved[2].Order)

	// Neither Squats row carries rest_time, so the fallback applies.
	legs, err := f.svc.Resolver.ResolveRoutine(ctx, f.legs)
	require.NoError(t, err)
	require.Len(t, legs, 2)
	require.Equal(t, 5, legs[0].Sets)
	require.Equal(t, 5, legs[0].Reps)
	require.Equal(t, domain.FallbackRestTime, legs[0].RestTime)

	link, err := f.svc.Links.Get(ctx, migration.LinkID("old-03"))
	require.NoError(t, err)
	require.Nil(t, link.Sets)
	require.Nil(t, link.RestTime)
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.m.Run(ctx)
	require.NoError(t, err)
	catalogAfterFirst := len(f.catalogNames(t))
	linksAfterFirst := f.store.Len(domain.CollectionRoutineExercises)

	second, err := f.m.Run(ctx)
	require.NoError(t, err)
	require.Zero(t, second.CatalogCreated)
	require.Equal(t, 5, second.CatalogReused)

	require.Equal(t, catalogAfterFirst, len(f.catalogNames(t)))
	require.Equal(t, linksAfterFirst, f.store.Len(domain.CollectionRoutineExercises))
}

func TestRunReusesPersistedCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	existing, err := f.svc.Catalog.Create(ctx, domain.CreateExerciseInput{Name: "Squats", DefaultSets: domain.IntPtr(5)})
	require.NoError(t, err)

	report, err := f.m.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, report.CatalogCreated)

	link, err := f.svc.Links.Get(ctx, migration.LinkID("old-04"))
	require.NoError(t, err)
	require.Equal(t, existing.ID, link.ExerciseID)
}

func TestRunContinuesPastBadRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Collection(domain.CollectionExercises).Put(ctx, "old-00", domain.Document{
		"routine_id": f.push,
		"name":       "",
	}))

	report, err := f.m.Run(ctx)
	require.Error(t, err)
	require.True(t, domain.IsValidation(err))
	require.Equal(t, 1, report.Failed)
	require.Equal(t, 5, report.LinksWritten)
}

func TestRunHonoursCancellation(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := migration.New(f.store, f.svc, migration.WithLogger(log.New(io.Discard, "", 0)))
	_, err := m.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCleanupRequiresConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.m.Cleanup(ctx, false)
	require.ErrorIs(t, err, migration.ErrNotConfirmed)
	require.Zero(t, n)
	require.Equal(t, 5, f.store.Len(domain.CollectionExercises))
}

func TestCleanupDeletesOnlyLegacyRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.m.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 9, f.store.Len(domain.CollectionExercises))

	n, err := f.m.Cleanup(ctx, true)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Len(t, f.catalogNames(t), 4)
	require.Equal(t, 4, f.store.Len(domain.CollectionExercises))

	resolved, err := f.svc.Resolver.ResolveRoutine(ctx, f.push)
	require.NoError(t, err)
	require.Len(t, resolved, 3)
}

func TestSeedWritesSampleRoutines(t *testing.T) {
	ctx := context.Background()
	quiet := log.New(io.Discard, "", 0)
	store := memory.NewStore()
	svc := domain.NewService(store, domain.WithLogger(quiet))
	m := migration.New(store, svc, migration.WithLogger(quiet), migration.WithThrottle(0))

	report, err := m.Seed(ctx)
	require.NoError(t, err)
	require.Equal(t, migration.SeedReport{Routines: 3, CatalogCreated: 12, Links: 12}, report)

	routines, err := svc.Routines.List(ctx)
	require.NoError(t, err)
	for _, r := range routines {
		summary, err := svc.Resolver.RoutineSummary(ctx, r.ID)
		require.NoError(t, err)
		require.Len(t, summary.Exercises, 4)
		require.Equal(t, 1, summary.Exercises[0].Order)
	}

	again, err := m.Seed(ctx)
	require.NoError(t, err)
	require.Zero(t, again.CatalogCreated)
	require.Equal(t, 12, again.CatalogReused)
}

func TestLinkIDIsDeterministic(t *testing.T) {
	require.Equal(t, migration.LinkID("abc"), migration.LinkID("abc"))
	require.NotEqual(t, migration.LinkID("abc"), migration.LinkID("abd"))
}
