// Package graph models a recipe's steps as a directed dependency graph.
//
// A Graph is built once from a step list and never mutated afterwards, so it
// may be shared freely between goroutines. Edges point from a dependency to
// the step that needs it: if B depends on A, A is a predecessor of B and B is
// a successor of A. Every slice returned by the graph follows the recipe's
// step order, never map iteration order.
package graph

import (
	"github.com/hammamikhairi/mise/internal/domain"
)

// Graph is the immutable dependency structure of one recipe.
type Graph struct {
	order []string            // step ids in recipe order
	index map[string]int      // id -> position in order
	preds map[string][]string // dependsOn, deduplicated, declaration order
	succs map[string][]string // dependents, recipe order
	dups  []string            // ids declared more than once
}

// New builds a graph from the recipe's steps. It never fails: structural
// problems are reported by Validate.
func New(steps []domain.Step) *Graph {
	g := &Graph{
		order: make([]string, 0, len(steps)),
		index: make(map[string]int, len(steps)),
		preds: make(map[string][]string, len(steps)),
		succs: make(map[string][]string, len(steps)),
	}

	for _, s := range steps {
		if _, ok := g.index[s.ID]; ok {
			g.dups = append(g.dups, s.ID)
			continue
		}
		g.index[s.ID] = len(g.order)
		g.order = append(g.order, s.ID)
	}

	for _, s := range steps {
		if _, ok := g.preds[s.ID]; ok {
			continue // duplicate declaration, first one wins
		}
		seen := make(map[string]bool, len(s.DependsOn))
		deps := make([]string, 0, len(s.DependsOn))
		for _, d := range s.DependsOn {
			if seen[d] {
				continue
			}
			seen[d] = true
			deps = append(deps, d)
		}
		g.preds[s.ID] = deps
	}

	// Successors are appended while walking steps in recipe order, which
	// keeps every successor list in recipe order too.
	for _, id := range g.order {
		for _, d := range g.preds[id] {
			if _, ok := g.index[d]; ok {
				g.succs[d] = append(g.succs[d], id)
			}
		}
	}

	return g
}

// Len returns the number of distinct steps.
func (g *Graph) Len() int { return len(g.order) }

// Has reports whether the step id is part of the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Index returns the recipe position of a step, or -1.
func (g *Graph) Index(id string) int {
	if i, ok := g.index[id]; ok {
		return i
	}
	return -1
}

// StepIDs returns all step ids in recipe order.
func (g *Graph) StepIDs() []string {
	return clone(g.order)
}

// Predecessors returns the ids the step depends on, in declaration order.
// Unknown ids yield nil.
func (g *Graph) Predecessors(id string) []string {
	return clone(g.preds[id])
}

// Successors returns the ids that depend on the step, in recipe order.
func (g *Graph) Successors(id string) []string {
	return clone(g.succs[id])
}

// InDegree returns how many distinct dependencies the step declares.
func (g *Graph) InDegree(id string) int {
	return len(g.preds[id])
}

// Roots returns the steps with no dependencies, in recipe order.
func (g *Graph) Roots() []string {
	var roots []string
	for _, id := range g.order {
		if len(g.preds[id]) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

func clone(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
