package layout

import (
	"github.com/hammamikhairi/mise/internal/domain"
	"github.com/hammamikhairi/mise/internal/graph"
)

// CriticalPath returns the dependency chain with the largest total duration
// and that duration in minutes. Steps without a duration count as zero.
// Among chains of equal length the one ending latest in topological order
// wins, so the path runs through to the final step.
func CriticalPath(g *graph.Graph, steps []domain.Step) (float64, []string, error) {
	order, err := topoOrder(g)
	if err != nil {
		return 0, nil, err
	}

	dur := make(map[string]float64, len(steps))
	for _, s := range steps {
		if _, ok := dur[s.ID]; !ok && s.DurationMinutes > 0 {
			dur[s.ID] = s.DurationMinutes
		}
	}

	finish := make(map[string]float64, len(order))
	via := make(map[string]string, len(order))
	for _, id := range order {
		best, from := 0.0, ""
		for _, p := range g.Predecessors(id) {
			if from == "" || finish[p] > best {
				best, from = finish[p], p
			}
		}
		finish[id] = best + dur[id]
		if from != "" {
			via[id] = from
		}
	}

	var end string
	total := -1.0
	for _, id := range order {
		if finish[id] >= total {
			total, end = finish[id], id
		}
	}
	if end == "" {
		return 0, nil, nil
	}

	var path []string
	for id := end; id != ""; id = via[id] {
		path = append(path, id)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return total, path, nil
}
