package session

import (
	"maps"

	"github.com/hammamikhairi/mise/internal/domain"
	"github.com/hammamikhairi/mise/internal/schedule"
)

// Available returns the steps that can start now, in recipe order.
func (s *Session) Available() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return schedule.Available(s.recipe.Steps, s.status)
}

// Blocked returns the pending steps that cannot start yet, each with the
// dependencies it is waiting on, in recipe order.
func (s *Session) Blocked() []domain.BlockedStep {
	s.mu.Lock()
	defer s.mu.Unlock()
	return schedule.Blocked(s.recipe.Steps, s.status)
}

// IsComplete reports whether every step is completed.
func (s *Session) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete()
}

func (s *Session) complete() bool {
	for _, st := range s.status {
		if st != domain.StepCompleted {
			return false
		}
	}
	return true
}

// Status returns the global session state.
func (s *Session) Status() domain.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionStatus()
}

func (s *Session) sessionStatus() domain.SessionStatus {
	switch {
	case s.closed:
		return domain.SessionClosed
	case s.complete():
		return domain.SessionComplete
	default:
		return domain.SessionActive
	}
}

// StepStatus returns the status of one step.
func (s *Session) StepStatus(id string) (domain.StepStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.status[id]
	if !ok {
		return 0, &domain.UnknownStepError{StepID: id}
	}
	return st, nil
}

// Statuses returns a copy of the step status map.
func (s *Session) Statuses() map[string]domain.StepStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.status)
}

// Timer returns a copy of a step's timer, if it has one.
func (s *Session) Timer(id string) (domain.Timer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[id]
	if !ok {
		return domain.Timer{}, false
	}
	return *t, true
}

// Timers returns a copy of the timer map.
func (s *Session) Timers() map[string]domain.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timerCopy()
}

func (s *Session) timerCopy() map[string]domain.Timer {
	out := make(map[string]domain.Timer, len(s.timers))
	for id, t := range s.timers {
		out[id] = *t
	}
	return out
}

// Snapshot returns a detached, consistent copy of the whole session state.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.SessionSnapshot{
		ID:          s.id,
		RecipeID:    s.recipe.ID,
		RecipeTitle: s.recipe.Title,
		Status:      s.sessionStatus(),
		Steps:       maps.Clone(s.status),
		Timers:      s.timerCopy(),
		Available:   schedule.Available(s.recipe.Steps, s.status),
		Blocked:     schedule.Blocked(s.recipe.Steps, s.status),
		StartedAt:   s.startedAt,
		UpdatedAt:   s.updatedAt,
	}
}
