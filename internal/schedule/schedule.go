// Package schedule evaluates which steps may start given their completion
// status. It holds no state and is safe to call at render-loop frequency.
package schedule

import (
	"slices"

	"github.com/hammamikhairi/mise/internal/domain"
)

// statusOf treats steps missing from the map as pending.
func statusOf(status map[string]domain.StepStatus, id string) domain.StepStatus {
	if st, ok := status[id]; ok {
		return st
	}
	return domain.StepPending
}

// waitingOn returns the dependencies of s that are not completed, in
// dependsOn order with duplicates removed.
func waitingOn(s domain.Step, status map[string]domain.StepStatus) []string {
	var out []string
	for i, d := range s.DependsOn {
		if statusOf(status, d) == domain.StepCompleted {
			continue
		}
		if slices.Contains(s.DependsOn[:i], d) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Available returns the ids of steps that are pending and whose every
// dependency is completed, in recipe order.
func Available(steps []domain.Step, status map[string]domain.StepStatus) []string {
	var out []string
	for _, s := range steps {
		if statusOf(status, s.ID) != domain.StepPending {
			continue
		}
		if len(waitingOn(s, status)) == 0 {
			out = append(out, s.ID)
		}
	}
	return out
}

// Blocked returns every pending step that is not available, annotated with
// the dependencies it is still waiting for, in recipe order.
func Blocked(steps []domain.Step, status map[string]domain.StepStatus) []domain.BlockedStep {
	var out []domain.BlockedStep
	for _, s := range steps {
		if statusOf(status, s.ID) != domain.StepPending {
			continue
		}
		if waiting := waitingOn(s, status); len(waiting) > 0 {
			out = append(out, domain.BlockedStep{StepID: s.ID, WaitingOn: waiting})
		}
	}
	return out
}

// IsAvailable reports whether a single step may start now.
func IsAvailable(s domain.Step, status map[string]domain.StepStatus) bool {
	return statusOf(status, s.ID) == domain.StepPending && len(waitingOn(s, status)) == 0
}
