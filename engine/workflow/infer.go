package workflow

import (
	"regexp"
	"sort"
	"strings"
)

// stepRefRE matches reference expressions of the form <id>.<path>; the
// $input. prefix is excluded separately so user-input references never
// imply edges.
var stepRefRE = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\..+$`)

const inputRefPrefix = "$input."

// IsInputRef reports whether the reference expression draws from user
// inputs.
func IsInputRef(ref string) bool {
	return strings.HasPrefix(ref, inputRefPrefix)
}

// ParseStepRef splits a step reference expression into its step ID and
// dotted path. ok is false for input references, literals, and dotted
// strings whose prefix is not a plausible identifier.
func ParseStepRef(ref string) (stepID, path string, ok bool) {
	if IsInputRef(ref) {
		return "", "", false
	}
	match := stepRefRE.FindStringSubmatch(ref)
	if match == nil {
		return "", "", false
	}
	return match[1], ref[len(match[1])+1:], true
}

// InferEdges scans input mappings for step references and returns the
// union of declared and implied edges, deduplicated, with inferred edges
// appended in sorted order. Explicit edges are never removed. The
// function is pure; Validate writes the result back onto the workflow.
func InferEdges(w *Config) []Edge {
	stepIDs := make(map[string]bool, len(w.Steps))
	for i := range w.Steps {
		stepIDs[w.Steps[i].ID] = true
	}
	existing := make(map[Edge]bool, len(w.Edges))
	for _, edge := range w.Edges {
		existing[edge] = true
	}

	inferred := make(map[Edge]bool)
	for i := range w.Steps {
		step := &w.Steps[i]
		for _, ref := range step.InputMapping {
			refID, _, ok := ParseStepRef(ref)
			if !ok || !stepIDs[refID] || refID == step.ID {
				continue
			}
			edge := Edge{FromStepID: refID, ToStepID: step.ID}
			if !existing[edge] {
				inferred[edge] = true
			}
		}
	}

	merged := make([]Edge, len(w.Edges), len(w.Edges)+len(inferred))
	copy(merged, w.Edges)
	added := make([]Edge, 0, len(inferred))
	for edge := range inferred {
		added = append(added, edge)
	}
	sort.Slice(added, func(i, j int) bool {
		if added[i].FromStepID != added[j].FromStepID {
			return added[i].FromStepID < added[j].FromStepID
		}
		return added[i].ToStepID < added[j].ToStepID
	})
	return append(merged, added...)
}
