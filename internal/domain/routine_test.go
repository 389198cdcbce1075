package domain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/routines/internal/domain"
	"example.com/routines/internal/events"
	"example.com/routines/internal/persistence/memory"
)

func TestRoutineCRUD(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.NewStore())

	created, err := svc.Routines.Create(ctx, domain.CreateRoutineInput{Name: "Push Day", Description: "Chest, shoulders"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, fixedClock()(), created.CreatedAt)

	got, err := svc.Routines.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, *created, *got)

	name := "Push Day A"
	updated, err := svc.Routines.Update(ctx, created.ID, domain.RoutinePatch{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Push Day A", updated.Name)
	require.Equal(t, "Chest, shoulders", updated.Description)

	all, err := svc.Routines.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	_, err = svc.Routines.Update(ctx, "missing", domain.RoutinePatch{Name: &name})
	require.ErrorIs(t, err, domain.ErrRoutineNotFound)

	_, err = svc.Routines.Create(ctx, domain.CreateRoutineInput{Name: "  "})
	require.True(t, domain.IsValidation(err))
}

func TestRoutineDeleteCascadesToLinks(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newTestService(t, store)

	routine, err := svc.Routines.Create(ctx, domain.CreateRoutineInput{Name: "Legs"})
	require.NoError(t, err)
	other, err := svc.Routines.Create(ctx, domain.CreateRoutineInput{Name: "Pull"})
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		_, err := svc.Links.Create(ctx, domain.CreateLinkInput{RoutineID: routine.ID, ExerciseID: "squat", Order: intp(i)})
		require.NoError(t, err)
	}
	kept, err := svc.Links.Create(ctx, domain.CreateLinkInput{RoutineID: other.ID, ExerciseID: "row", Order: intp(1)})
	require.NoError(t, err)

	report, err := svc.Routines.Delete(ctx, routine.ID)
	require.NoError(t, err)
	require.True(t, report.Complete())
	require.Len(t, report.DeletedLinks, 3)

	remaining, err := svc.Links.ListByRoutine(ctx, routine.ID)
	require.NoError(t, err)
	require.Empty(t, remaining)

	_, err = svc.Routines.Get(ctx, routine.ID)
	require.ErrorIs(t, err, domain.ErrRoutineNotFound)

	_, err = svc.Links.Get(ctx, kept.ID)
	require.NoError(t, err)
	require.Equal(t, 1, store.Len(domain.CollectionRoutineExercises))
}

func TestRoutineDeleteReportsPartialFailure(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	svc := newTestService(t, store)

	routine, err := svc.Routines.Create(ctx, domain.CreateRoutineInput{Name: "Legs"})
	require.NoError(t, err)
	ok, err := svc.Links.Create(ctx, domain.CreateLinkInput{RoutineID: routine.ID, ExerciseID: "squat", Order: intp(1)})
	require.NoError(t, err)
	stuck, err := svc.Links.Create(ctx, domain.CreateLinkInput{RoutineID: routine.ID, ExerciseID: "lunge", Order: intp(2)})
	require.NoError(t, err)

	store.failDel[domain.CollectionRoutineExercises+"/"+stuck.ID] = true

	report, err := svc.Routines.Delete(ctx, routine.ID)
	require.Error(t, err)
	require.ErrorIs(t, err, errInjected)

	var cascadeErr *domain.CascadeError
	require.True(t, errors.As(err, &cascadeErr))
	require.Equal(t, routine.ID, cascadeErr.RoutineID)
	require.Contains(t, cascadeErr.FailedLinks, stuck.ID)
	require.NoError(t, cascadeErr.RoutineErr)

	require.False(t, report.Complete())
	require.True(t, report.RoutineDeleted)
	require.Equal(t, []string{ok.ID}, report.DeletedLinks)
	require.Contains(t, report.FailedLinks, stuck.ID)

	_, err = svc.Routines.Get(ctx, routine.ID)
	require.ErrorIs(t, err, domain.ErrRoutineNotFound)

	orphan, err := svc.Links.Get(ctx, stuck.ID)
	require.NoError(t, err)
	require.Equal(t, routine.ID, orphan.RoutineID)
}

func TestRoutineDeleteKeepsRoutineWhenLinksCannotBeListed(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	svc := newTestService(t, store)

	routine, err := svc.Routines.Create(ctx, domain.CreateRoutineInput{Name: "Push"})
	require.NoError(t, err)
	store.failScan[domain.CollectionRoutineExercises] = true

	report, err := svc.Routines.Delete(ctx, routine.ID)
	require.ErrorIs(t, err, errInjected)
	require.False(t, report.RoutineDeleted)

	_, err = svc.Routines.Get(ctx, routine.ID)
	require.NoError(t, err)
	require.NotContains(t, store.deleteLog, domain.CollectionRoutines+"/"+routine.ID)
}

func TestRoutineDeleteMissingRoutine(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.NewStore())

	// Links of a routine that no longer exists are still removed.
	_, err := svc.Links.Create(ctx, domain.CreateLinkInput{RoutineID: "gone", ExerciseID: "ex", Order: intp(1)})
	require.NoError(t, err)

	report, err := svc.Routines.Delete(ctx, "gone")
	require.ErrorIs(t, err, domain.ErrRoutineNotFound)
	require.Len(t, report.DeletedLinks, 1)
	require.False(t, report.RoutineDeleted)

	remaining, err := svc.Links.ListByRoutine(ctx, "gone")
	require.NoError(t, err)
	require.Empty(t, remaining)
}

func TestRoutineDeletePublishesChanges(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := newTestService(t, memory.NewStore(), domain.WithPublisher(pub))

	routine, err := svc.Routines.Create(ctx, domain.CreateRoutineInput{Name: "Pull"})
	require.NoError(t, err)
	link, err := svc.Links.Create(ctx, domain.CreateLinkInput{RoutineID: routine.ID, ExerciseID: "row", Order: intp(1)})
	require.NoError(t, err)
	_, err = svc.Routines.Delete(ctx, routine.ID)
	require.NoError(t, err)

	require.Len(t, pub.changes, 4)
	require.Equal(t, events.Change{Collection: domain.CollectionRoutineExercises, ID: link.ID, Action: events.ActionDeleted, RoutineID: routine.ID, OccurredAt: fixedClock()()}, pub.changes[2])
	require.Equal(t, events.ActionDeleted, pub.changes[3].Action)
	require.Equal(t, routine.ID, pub.changes[3].RoutineID)
}

func TestPublishFailureDoesNotFailWrites(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newTestService(t, memory.NewStore(), domain.WithPublisher(pub))

	routine, err := svc.Routines.Create(ctx, domain.CreateRoutineInput{Name: "Legs"})
	require.NoError(t, err)
	_, err = svc.Routines.Get(ctx, routine.ID)
	require.NoError(t, err)
	require.Len(t, pub.changes, 1)
}

func TestRoutineUpdateOutlivesStalledPublisher(t *testing.T) {
	pub := &stalledPublisher{}
	svc := newTestService(t, memory.NewStore(), domain.WithPublisher(pub), domain.WithPublishTimeout(20*time.Millisecond))

	routine, err := svc.Routines.Create(context.Background(), domain.CreateRoutineInput{Name: "Push"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	name := "Push Day"
	updated, err := svc.Routines.Update(ctx, routine.ID, domain.RoutinePatch{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Push Day", updated.Name)
	require.NoError(t, ctx.Err())

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.errs, 2)
	for _, err := range pub.errs {
		require.ErrorIs(t, err, context.DeadlineExceeded)
	}
}

func TestRoutinePublishIgnoresCallerCancellation(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(t, memory.NewStore(), domain.WithPublisher(pub))

	ctx, cancel := context.WithCancel(context.Background())
	routine, err := svc.Routines.Create(ctx, domain.CreateRoutineInput{Name: "Pull"})
	require.NoError(t, err)
	cancel()

	_, err = svc.Routines.Delete(ctx, routine.ID)
	require.NoError(t, err)
	require.Len(t, pub.changes, 2)
	require.Equal(t, events.ActionDeleted, pub.changes[1].Action)
	require.Equal(t, []error{nil, nil}, pub.ctxErrs)
}
