package domain

import (
	"cmp"
	"context"
	"errors"
	"math"
	"slices"

	"example.com/routines/internal/observability"
)

// defaultDurationMin is reported when a routine's estimate comes out as zero.
const defaultDurationMin = 45

// Resolver projects routine links onto the catalog. It never writes.
type Resolver struct {
	routines *RoutineStore
	links    *LinkStore
	catalog  *CatalogStore
}

// NewResolver constructs a Resolver.
func NewResolver(routines *RoutineStore, links *LinkStore, catalog *CatalogStore) *Resolver {
	return &Resolver{routines: routines, links: links, catalog: catalog}
}

// ResolveRoutine returns the routine's exercises ordered by link order, ties
// broken by link id. Links whose catalog entry is missing are omitted. A routine
// without links, or one that does not exist, resolves to an empty slice.
func (r *Resolver) ResolveRoutine(ctx context.Context, routineID string) ([]ResolvedExercise, error) {
	links, err := r.links.ListByRoutine(ctx, routineID)
	if err != nil {
		return nil, err
	}
	SortLinks(links)

	seen := make(map[string]*Exercise)
	out := make([]ResolvedExercise, 0, len(links))
	skipped := 0
	for _, link := range links {
		ex, err := r.lookup(ctx, link.ExerciseID, seen)
		if err != nil {
			return nil, err
		}
		if ex == nil {
			skipped++
			continue
		}
		out = append(out, Merge(*ex, link))
	}
	observability.RecordResolution(len(out), skipped)
	return out, nil
}

// ResolveLink merges a single link with its catalog entry. It returns
// ErrLinkNotFound for an unknown link and ErrExerciseNotFound when the link's
// catalog entry is gone.
func (r *Resolver) ResolveLink(ctx context.Context, linkID string) (*ResolvedExercise, error) {
	link, err := r.links.Get(ctx, linkID)
	if err != nil {
		return nil, err
	}
	ex, err := r.catalog.Get(ctx, link.ExerciseID)
	if err != nil {
		if errors.Is(err, ErrExerciseNotFound) {
			observability.RecordResolution(0, 1)
		}
		return nil, err
	}
	resolved := Merge(*ex, *link)
	observability.RecordResolution(1, 0)
	return &resolved, nil
}

// RoutineSummary returns the routine with its resolved exercises and an
// estimated duration in minutes.
func (r *Resolver) RoutineSummary(ctx context.Context, routineID string) (*RoutineWithExercises, error) {
	routine, err := r.routines.Get(ctx, routineID)
	if err != nil {
		return nil, err
	}
	exercises, err := r.ResolveRoutine(ctx, routineID)
	if err != nil {
		return nil, err
	}
	return &RoutineWithExercises{
		Routine:     *routine,
		Exercises:   exercises,
		DurationMin: EstimateDuration(exercises),
	}, nil
}

func (r *Resolver) lookup(ctx context.Context, id string, seen map[string]*Exercise) (*Exercise, error) {
	if ex, ok := seen[id]; ok {
		return ex, nil
	}
	ex, err := r.catalog.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrExerciseNotFound) && !IsValidation(err) {
			return nil, err
		}
		ex = nil
	}
	seen[id] = ex
	return ex, nil
}

// SortLinks orders links by Order, then by ID.
func SortLinks(links []RoutineExercise) {
	slices.SortStableFunc(links, func(a, b RoutineExercise) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// Merge overlays link overrides on catalog defaults, falling back to the
// package constants when both are absent.
func Merge(ex Exercise, link RoutineExercise) ResolvedExercise {
	return ResolvedExercise{
		ID:                ex.ID,
		RoutineExerciseID: link.ID,
		Name:              ex.Name,
		Sets:              pick(link.Sets, ex.DefaultSets, FallbackSets),
		Reps:              pick(link.Reps, ex.DefaultReps, FallbackReps),
		RepTime:           pick(link.RepTime, ex.DefaultRepTime, FallbackRepTime),
		RestTime:          pick(link.RestTime, ex.DefaultRestTime, FallbackRestTime),
		Order:             link.Order,
		AudioURL:          ex.AudioURL,
		CreatedAt:         ex.CreatedAt,
		UpdatedAt:         ex.UpdatedAt,
	}
}

func pick(override, def *int, fallback int) int {
	if override != nil {
		return *override
	}
	if def != nil {
		return *def
	}
	return fallback
}

// EstimateDuration approximates a workout length: a minute per set plus rest
// between sets, rounded up to the next five minutes.
func EstimateDuration(exercises []ResolvedExercise) int {
	totalSets := 0
	totalRest := 0
	for _, ex := range exercises {
		totalSets += ex.Sets
		if ex.Sets > 1 {
			totalRest += ex.RestTime * (ex.Sets - 1)
		}
	}
	minutes := float64(totalSets) + float64(totalRest)/60
	duration := int(math.Ceil(minutes/5)) * 5
	if duration == 0 {
		return defaultDurationMin
	}
	return duration
}
