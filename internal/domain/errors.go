package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrExerciseNotFound indicates the catalog entry does not exist.
	ErrExerciseNotFound = errors.New("exercise not found")
	// ErrRoutineNotFound indicates the routine does not exist.
	ErrRoutineNotFound = errors.New("routine not found")
	// ErrLinkNotFound indicates the routine exercise link does not exist.
	ErrLinkNotFound = errors.New("routine exercise not found")
	// ErrWorkoutNotFound indicates the workout does not exist.
	ErrWorkoutNotFound = errors.New("workout not found")
)

// ValidationError reports caller-correctable input problems. It is raised
// before any store call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func required(field string) error {
	return &ValidationError{Field: field, Message: "is required"}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// CascadeError describes a routine delete whose link cascade did not fully succeed.
type CascadeError struct {
	RoutineID   string
	FailedLinks map[string]error
	// RoutineErr is the error from deleting the routine document itself, if any.
	RoutineErr error
}

func (e *CascadeError) Error() string {
	ids := make([]string, 0, len(e.FailedLinks))
	for id := range e.FailedLinks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	msg := fmt.Sprintf("routine %s: %d link deletes failed [%s]", e.RoutineID, len(ids), strings.Join(ids, ","))
	if e.RoutineErr != nil {
		msg += ": " + e.RoutineErr.Error()
	}
	return msg
}

// Unwrap exposes the routine delete error and every failed link error.
func (e *CascadeError) Unwrap() []error {
	out := make([]error, 0, len(e.FailedLinks)+1)
	if e.RoutineErr != nil {
		out = append(out, e.RoutineErr)
	}
	for _, err := range e.FailedLinks {
		out = append(out, err)
	}
	return out
}
