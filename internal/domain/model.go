// Package domain holds the routine data model, its document-backed stores and
// the resolution engine that merges routine links with catalog defaults.
package domain

import "time"

// Fallbacks applied when neither a link override nor a catalog default is present.
const (
	FallbackSets     = 0
	FallbackReps     = 0
	FallbackRepTime  = 3
	FallbackRestTime = 60
)

// Exercise is a reusable catalog definition with optional default parameters.
type Exercise struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	DefaultSets     *int      `json:"default_sets,omitempty"`
	DefaultReps     *int      `json:"default_reps,omitempty"`
	DefaultRepTime  *int      `json:"default_rep_time,omitempty"`
	DefaultRestTime *int      `json:"default_rest_time,omitempty"`
	AudioURL        string    `json:"audio_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Routine is a named, ordered collection of exercises.
type Routine struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	WarmupAudioURL string    `json:"warmup_audio_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RoutineExercise links a routine to a catalog exercise at a position, with
// optional per-routine overrides.
type RoutineExercise struct {
	ID         string    `json:"id"`
	RoutineID  string    `json:"routine_id"`
	ExerciseID string    `json:"exercise_id"`
	Order      int       `json:"order"`
	Sets       *int      `json:"sets,omitempty"`
	Reps       *int      `json:"reps,omitempty"`
	RepTime    *int      `json:"rep_time,omitempty"`
	RestTime   *int      `json:"rest_time,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ResolvedExercise is a link merged with its catalog entry, ready for display.
type ResolvedExercise struct {
	ID                string    `json:"id"`
	RoutineExerciseID string    `json:"routine_exercise_id"`
	Name              string    `json:"name"`
	Sets              int       `json:"sets"`
	Reps              int       `json:"reps"`
	RepTime           int       `json:"rep_time"`
	RestTime          int       `json:"rest_time"`
	Order             int       `json:"order"`
	AudioURL          string    `json:"audio_url,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// RoutineWithExercises bundles a routine with its resolved exercises.
type RoutineWithExercises struct {
	Routine
	Exercises   []ResolvedExercise `json:"exercises"`
	DurationMin int                `json:"duration"`
}

// Workout is a performed session logged by a user.
type Workout struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	RoutineID string         `json:"routine_id,omitempty"`
	Data      map[string]any `json:"workout_data"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
