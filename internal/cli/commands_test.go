package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/routines/internal/bootstrap"
	"example.com/routines/internal/config"
	"example.com/routines/internal/domain"
	"example.com/routines/internal/migration"
	"example.com/routines/internal/persistence/memory"
)

// sharedRuntime hands every command the same in-memory store.
func sharedRuntime(store *memory.Store) (RuntimeOpener, *domain.Service) {
	svc := domain.NewService(store, domain.WithLogger(log.New(io.Discard, "", 0)))
	return func(context.Context, config.Config, *log.Logger) (*bootstrap.Runtime, error) {
		return &bootstrap.Runtime{Store: store, Service: svc}, nil
	}, svc
}

func run(t *testing.T, open RuntimeOpener, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommandWith(open)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--throttle", "0"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	open, _ := sharedRuntime(memory.NewStore())
	_, err := run(t, open, "seed", "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestSeedThenResolve(t *testing.T) {
	store := memory.NewStore()
	open, svc := sharedRuntime(store)

	out, err := run(t, open, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 3 routines, 12 catalog entries")

	routines, err := svc.Routines.List(context.Background())
	require.NoError(t, err)
	require.Len(t, routines, 3)

	out, err = run(t, open, "resolve", routines[0].ID, "--format", "json")
	require.NoError(t, err)
	var summary domain.RoutineWithExercises
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Len(t, summary.Exercises, 4)
}

func TestMigrateAndCleanup(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	open, svc := sharedRuntime(store)

	routine, err := svc.Routines.Create(ctx, domain.CreateRoutineInput{Name: "Legs"})
	require.NoError(t, err)
	require.NoError(t, store.Collection(domain.CollectionExercises).Put(ctx, "old-1", domain.Document{
		"routine_id": routine.ID, "name": "Squats", "sets": 5, "reps": 5,
	}))

	out, err := run(t, open, "migrate", "--backend", "postgres", "--format", "json")
	require.NoError(t, err)
	var report migration.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.LinksWritten)
	assert.Equal(t, 1, report.CatalogCreated)

	_, err = run(t, open, "cleanup", "--backend", "postgres")
	require.Error(t, err)
	assert.Equal(t, 2, store.Len(domain.CollectionExercises))

	out, err = run(t, open, "cleanup", "--backend", "postgres", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 1 legacy exercise documents")
	assert.Equal(t, 1, store.Len(domain.CollectionExercises))
}

func TestMigrateAndCleanupRejectMemoryBackend(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	opened := 0
	svc := domain.NewService(store, domain.WithLogger(log.New(io.Discard, "", 0)))
	open := func(context.Context, config.Config, *log.Logger) (*bootstrap.Runtime, error) {
		opened++
		return &bootstrap.Runtime{Store: store, Service: svc}, nil
	}
	require.NoError(t, store.Collection(domain.CollectionExercises).Put(ctx, "old-1", domain.Document{
		"routine_id": "legs", "name": "Squats",
	}))

	_, err := run(t, open, "migrate", "--backend", "memory")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate needs a persistent backend")

	_, err = run(t, open, "cleanup", "--backend", "MEMORY", "--yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cleanup needs a persistent backend")

	assert.Zero(t, opened)
	assert.Equal(t, 1, store.Len(domain.CollectionExercises))
}

func TestResolveRequiresRoutineID(t *testing.T) {
	open, _ := sharedRuntime(memory.NewStore())
	_, err := run(t, open, "resolve")
	require.Error(t, err)

	_, err = run(t, open, "resolve", "missing")
	require.ErrorIs(t, err, domain.ErrRoutineNotFound)
}
