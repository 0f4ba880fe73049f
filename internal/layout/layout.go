// Package layout assigns each step of a dependency graph a rank (longest
// path from a dependency-free step) and a track index within that rank, so
// a renderer can draw steps that may run at the same time side by side.
package layout

import (
	"github.com/hammamikhairi/mise/internal/domain"
	"github.com/hammamikhairi/mise/internal/graph"
)

// Position is where a step sits in the drawing.
type Position struct {
	Rank  int // 0 = no dependencies
	Track int // index among steps of the same rank, recipe order
}

// Layout maps step ids to positions. It also remembers the recipe order it
// was built from so derived views never depend on map iteration.
type Layout struct {
	Positions map[string]Position
	order     []string
}

// Compute ranks every step with Kahn's algorithm, propagating
// rank = max(rank(pred)) + 1 along the topological order. It never recurses,
// so deep chains are fine. A cycle is detected by steps left unprocessed and
// reported as *domain.CycleError; a dangling reference is reported as
// *domain.DanglingReferenceError.
func Compute(g *graph.Graph) (Layout, error) {
	ids := g.StepIDs()
	order, err := topoOrder(g)
	if err != nil {
		return Layout{}, err
	}

	rank := make(map[string]int, len(ids))
	for _, id := range order {
		for _, succ := range g.Successors(id) {
			if r := rank[id] + 1; r > rank[succ] {
				rank[succ] = r
			}
		}
	}

	l := Layout{
		Positions: make(map[string]Position, len(ids)),
		order:     ids,
	}
	next := make(map[int]int)
	for _, id := range ids {
		r := rank[id]
		l.Positions[id] = Position{Rank: r, Track: next[r]}
		next[r]++
	}
	return l, nil
}

// Depth returns the number of ranks.
func (l Layout) Depth() int {
	depth := 0
	for _, p := range l.Positions {
		if p.Rank+1 > depth {
			depth = p.Rank + 1
		}
	}
	return depth
}

// Tracks groups step ids by rank; each group is in track order.
func (l Layout) Tracks() [][]string {
	tracks := make([][]string, l.Depth())
	for _, id := range l.order {
		p := l.Positions[id]
		tracks[p.Rank] = append(tracks[p.Rank], id)
	}
	return tracks
}

// Width returns the largest number of steps sharing a rank: how many things
// can be going on at once at the busiest depth.
func (l Layout) Width() int {
	w := 0
	for _, t := range l.Tracks() {
		if len(t) > w {
			w = len(t)
		}
	}
	return w
}

// topoOrder returns the steps in a topological order using Kahn's algorithm.
// The queue is seeded and fed in recipe order so the result is reproducible.
func topoOrder(g *graph.Graph) ([]string, error) {
	ids := g.StepIDs()

	inDegree := make(map[string]int, len(ids))
	for _, id := range ids {
		for _, p := range g.Predecessors(id) {
			if !g.Has(p) {
				return nil, &domain.DanglingReferenceError{StepID: id, Missing: p}
			}
		}
		inDegree[id] = g.InDegree(id)
	}

	queue := make([]string, 0, len(ids))
	for _, id := range ids {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]string, 0, len(ids))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		for _, succ := range g.Successors(id) {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	if len(order) != len(ids) {
		return nil, &domain.CycleError{Cycle: g.FindCycle()}
	}
	return order, nil
}
