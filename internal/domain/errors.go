package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors used across layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrSessionClosed = errors.New("session is closed")
)

// CycleError means the dependency relation is not acyclic. Cycle lists the
// step ids along the loop, with the first id repeated at the end.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Cycle, " -> "))
}

// DanglingReferenceError means a dependsOn entry names no step in the recipe.
type DanglingReferenceError struct {
	StepID  string
	Missing string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("step %q depends on unknown step %q", e.StepID, e.Missing)
}

// DuplicateStepError means two steps share an id.
type DuplicateStepError struct {
	StepID string
}

func (e *DuplicateStepError) Error() string {
	return fmt.Sprintf("duplicate step id %q", e.StepID)
}

// UnknownStepError means an operation referenced a step outside the session.
type UnknownStepError struct {
	StepID string
}

func (e *UnknownStepError) Error() string {
	return fmt.Sprintf("unknown step %q", e.StepID)
}

// InvalidTimerDurationError means a timer was requested with a non-positive length.
type InvalidTimerDurationError struct {
	StepID  string
	Minutes float64
}

func (e *InvalidTimerDurationError) Error() string {
	return fmt.Sprintf("invalid timer duration for step %q: %g minutes", e.StepID, e.Minutes)
}

// IsStructural reports whether err means the recipe cannot be scheduled at all.
func IsStructural(err error) bool {
	var (
		cycle    *CycleError
		dangling *DanglingReferenceError
		dup      *DuplicateStepError
	)
	return errors.As(err, &cycle) || errors.As(err, &dangling) || errors.As(err, &dup)
}
