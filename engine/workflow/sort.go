package workflow

import (
	"fmt"
	"sort"
)

// Sort produces the deterministic topological order of the workflow using
// Kahn's algorithm. The frontier is kept sorted by step ID so ties break
// identically across runs. An incomplete cover means the graph still
// contains a cycle, which the validator should have rejected; it is
// reported as an internal error.
func Sort(w *Config) ([]string, error) {
	adj := w.adjacency()
	inDegree := make(map[string]int, len(w.Steps))
	for i := range w.Steps {
		inDegree[w.Steps[i].ID] = 0
	}
	for _, edge := range w.Edges {
		inDegree[edge.ToStepID]++
	}

	var frontier []string
	for i := range w.Steps {
		if inDegree[w.Steps[i].ID] == 0 {
			frontier = append(frontier, w.Steps[i].ID)
		}
	}
	sort.Strings(frontier)

	order := make([]string, 0, len(w.Steps))
	for len(frontier) > 0 {
		node := frontier[0]
		frontier = frontier[1:]
		order = append(order, node)
		for _, neighbor := range adj[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				frontier = insertSorted(frontier, neighbor)
			}
		}
	}

	if len(order) != len(w.Steps) {
		return nil, fmt.Errorf("internal error: topological sort covered %d of %d steps (cycle not caught by validation)", len(order), len(w.Steps))
	}
	return order, nil
}

func insertSorted(frontier []string, id string) []string {
	at := sort.SearchStrings(frontier, id)
	frontier = append(frontier, "")
	copy(frontier[at+1:], frontier[at:])
	frontier[at] = id
	return frontier
}
