package graph

import (
	"github.com/hammamikhairi/mise/internal/domain"
)

// Validate checks that the graph can be scheduled. It fails with
// *domain.DuplicateStepError for repeated ids, *domain.DanglingReferenceError
// for a dependsOn entry naming no step, and *domain.CycleError when any step
// is reachable from itself.
func (g *Graph) Validate() error {
	if len(g.dups) > 0 {
		return &domain.DuplicateStepError{StepID: g.dups[0]}
	}

	for _, id := range g.order {
		for _, d := range g.preds[id] {
			if !g.Has(d) {
				return &domain.DanglingReferenceError{StepID: id, Missing: d}
			}
		}
	}

	if cycle := g.FindCycle(); cycle != nil {
		return &domain.CycleError{Cycle: cycle}
	}
	return nil
}

// FindCycle returns one dependency cycle as a closed path (first id repeated
// at the end), or nil when the graph is acyclic. Dangling references are
// ignored. Traversal starts from steps in recipe order so the reported cycle
// is reproducible.
func (g *Graph) FindCycle() []string {
	const (
		unvisited = iota
		inStack
		done
	)
	state := make(map[string]int, len(g.order))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		state[id] = inStack
		stack = append(stack, id)

		for _, d := range g.preds[id] {
			if !g.Has(d) {
				continue
			}
			switch state[d] {
			case inStack:
				return closeCycle(stack, d)
			case unvisited:
				if c := visit(d); c != nil {
					return c
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[id] = done
		return nil
	}

	for _, id := range g.order {
		if state[id] != unvisited {
			continue
		}
		if c := visit(id); c != nil {
			return c
		}
	}
	return nil
}

// closeCycle cuts the recursion stack at the first occurrence of start and
// reverses it so the path reads in dependency order (a -> b means b depends
// on a), closing it with start.
func closeCycle(stack []string, start string) []string {
	i := len(stack) - 1
	for i >= 0 && stack[i] != start {
		i--
	}
	loop := stack[i:]
	out := make([]string, 0, len(loop)+1)
	for j := len(loop) - 1; j >= 0; j-- {
		out = append(out, loop[j])
	}
	return append(out, out[0])
}
