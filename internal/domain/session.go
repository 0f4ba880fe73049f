package domain

import "time"

// StepStatus is the completion state of a single step within a session.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepCompleted
)

// String returns a human-readable step status.
func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the defined statuses.
func (s StepStatus) Valid() bool {
	return s == StepPending || s == StepCompleted
}

// Toggle flips Pending and Completed.
func (s StepStatus) Toggle() StepStatus {
	if s == StepCompleted {
		return StepPending
	}
	return StepCompleted
}

// SessionStatus is the global state of a cooking session.
type SessionStatus int

const (
	SessionActive SessionStatus = iota
	SessionComplete
	SessionClosed
)

// String returns a human-readable session status.
func (s SessionStatus) String() string {
	switch s {
	case SessionActive:
		return "active"
	case SessionComplete:
		return "complete"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Timer is a per-step countdown. 0 <= RemainingSeconds <= TotalSeconds.
type Timer struct {
	StepID           string
	TotalSeconds     int
	RemainingSeconds int
	Running          bool
}

// TimerState is the lifecycle position of a timer.
type TimerState int

const (
	TimerIdle TimerState = iota
	TimerRunning
	TimerPaused
	TimerExpired
)

// String returns a human-readable timer state.
func (t TimerState) String() string {
	switch t {
	case TimerIdle:
		return "idle"
	case TimerRunning:
		return "running"
	case TimerPaused:
		return "paused"
	case TimerExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// State derives the lifecycle position from the timer's fields.
func (t Timer) State() TimerState {
	switch {
	case t.RemainingSeconds == 0:
		return TimerExpired
	case t.Running:
		return TimerRunning
	default:
		return TimerPaused
	}
}

// Remaining returns the remaining time as a duration.
func (t Timer) Remaining() time.Duration {
	return time.Duration(t.RemainingSeconds) * time.Second
}

// BlockedStep is a pending step with at least one incomplete dependency.
type BlockedStep struct {
	StepID    string
	WaitingOn []string // incomplete dependencies, in dependsOn order
}

// SessionSnapshot is a detached copy of a session's state for rendering.
type SessionSnapshot struct {
	ID          string
	RecipeID    string
	RecipeTitle string
	Status      SessionStatus
	Steps       map[string]StepStatus
	Timers      map[string]Timer
	Available   []string
	Blocked     []BlockedStep
	StartedAt   time.Time
	UpdatedAt   time.Time
}

// Completed returns how many steps are completed.
func (s SessionSnapshot) Completed() int {
	n := 0
	for _, st := range s.Steps {
		if st == StepCompleted {
			n++
		}
	}
	return n
}
