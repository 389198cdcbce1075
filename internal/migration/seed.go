package migration

import (
	"context"

	"example.com/routines/internal/domain"
)

type seedExercise struct {
	name                      string
	sets, reps, repTime, rest int
}

type seedRoutine struct {
	name        string
	description string
	exercises   []seedExercise
}

var sampleRoutines = []seedRoutine{
	{
		name:        "Push",
		description: "Chest, shoulders, and triceps focused workout",
		exercises: []seedExercise{
			{"Flat Bench Press", 4, 8, 3, 90},
			{"Incline Dumbbell Press", 3, 12, 2, 60},
			{"Tricep Pushdowns", 3, 15, 1, 45},
			{"Overhead Press", 3, 10, 2, 60},
		},
	},
	{
		name:        "Pull",
		description: "Back and biceps focused workout",
		exercises: []seedExercise{
			{"Barbell Rows", 4, 8, 2, 90},
			{"Pull-ups", 3, 10, 2, 60},
			{"Face Pulls", 3, 15, 1, 45},
			{"Barbell Curls", 3, 12, 2, 45},
		},
	},
	{
		name:        "Legs",
		description: "Lower body focused workout",
		exercises: []seedExercise{
			{"Squats", 5, 5, 3, 120},
			{"Romanian Deadlifts", 3, 8, 3, 90},
			{"Leg Press", 3, 12, 2, 60},
			{"Calf Raises", 4, 15, 1, 30},
		},
	},
}

// SeedReport counts what Seed wrote.
type SeedReport struct {
	Routines       int `json:"routines"`
	CatalogCreated int `json:"catalog_created"`
	CatalogReused  int `json:"catalog_reused"`
	Links          int `json:"links"`
}

// Seed writes the Push, Pull and Legs sample routines. Catalog entries are
// looked up by name first, so seeding on top of existing data reuses them.
func (m *Migrator) Seed(ctx context.Context) (SeedReport, error) {
	var report SeedReport
	catalog, err := m.seedCatalog(ctx)
	if err != nil {
		return report, err
	}

	for _, sr := range sampleRoutines {
		routine, err := m.svc.Routines.Create(ctx, domain.CreateRoutineInput{Name: sr.name, Description: sr.description})
		if err != nil {
			return report, err
		}
		report.Routines++
		m.logger.Printf("seed: created routine %s (%s)", routine.Name, routine.ID)

		for i, se := range sr.exercises {
			exerciseID, ok := catalog[se.name]
			if ok {
				report.CatalogReused++
			} else {
				ex, err := m.svc.Catalog.Create(ctx, domain.CreateExerciseInput{
					Name:            se.name,
					DefaultSets:     domain.IntPtr(se.sets),
					DefaultReps:     domain.IntPtr(se.reps),
					DefaultRepTime:  domain.IntPtr(se.repTime),
					DefaultRestTime: domain.IntPtr(se.rest),
				})
				if err != nil {
					return report, err
				}
				exerciseID = ex.ID
				catalog[se.name] = ex.ID
				report.CatalogCreated++
			}

			_, err := m.svc.Links.Create(ctx, domain.CreateLinkInput{
				RoutineID:  routine.ID,
				ExerciseID: exerciseID,
				Order:      domain.IntPtr(i + 1),
				Sets:       domain.IntPtr(se.sets),
				Reps:       domain.IntPtr(se.reps),
				RepTime:    domain.IntPtr(se.repTime),
				RestTime:   domain.IntPtr(se.rest),
			})
			if err != nil {
				return report, err
			}
			report.Links++
			if err := m.pause(ctx); err != nil {
				return report, err
			}
		}
	}
	return report, nil
}
