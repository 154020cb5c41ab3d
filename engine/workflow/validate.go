package workflow

import (
	"fmt"
	"sort"
	"strings"
)

// ToolResolver answers whether a tool ID exists in the registry supplied
// for a run.
type ToolResolver interface {
	Has(toolID string) bool
}

// ValidationError carries a machine-readable code plus the offending step
// IDs (for cycles, the cycle path in traversal order).
type ValidationError struct {
	Code    string
	Message string
	Steps   []string
}

const (
	CodeEmptyStepID    = "empty_step_id"
	CodeDuplicateStep  = "duplicate_step_id"
	CodeUnknownEdgeRef = "unknown_edge_ref"
	CodeCycle          = "cycle"
	CodeUnreachableRef = "unreachable_ref"
	CodeUnknownTool    = "unknown_tool"
)

func (e *ValidationError) Error() string {
	if len(e.Steps) == 0 {
		return fmt.Sprintf("workflow validation failed (%s): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("workflow validation failed (%s): %s [%s]", e.Code, e.Message, strings.Join(e.Steps, " -> "))
}

// Validate normalises and checks the workflow graph. Passes run in order,
// each failure aborting: step ID checks, edge inference (written back),
// edge endpoint references, cycle detection, mapping reachability, and
// tool resolution. After a successful call w.Edges is closed under
// references-imply-edges.
func Validate(w *Config, tools ToolResolver) error {
	if err := checkStepIDs(w); err != nil {
		return err
	}
	w.Edges = InferEdges(w)
	if err := checkEdgeRefs(w); err != nil {
		return err
	}
	if err := checkNoCycles(w); err != nil {
		return err
	}
	if err := checkMappingReachability(w); err != nil {
		return err
	}
	return checkToolRefs(w, tools)
}

func checkStepIDs(w *Config) error {
	seen := make(map[string]bool, len(w.Steps))
	for i := range w.Steps {
		id := w.Steps[i].ID
		if id == "" {
			return &ValidationError{Code: CodeEmptyStepID, Message: fmt.Sprintf("step at index %d has an empty id", i)}
		}
		if seen[id] {
			return &ValidationError{Code: CodeDuplicateStep, Message: "duplicate step id", Steps: []string{id}}
		}
		seen[id] = true
	}
	return nil
}

func checkEdgeRefs(w *Config) error {
	stepIDs := make(map[string]bool, len(w.Steps))
	for i := range w.Steps {
		stepIDs[w.Steps[i].ID] = true
	}
	for _, edge := range w.Edges {
		if !stepIDs[edge.FromStepID] {
			return &ValidationError{Code: CodeUnknownEdgeRef, Message: "edge references unknown step", Steps: []string{edge.FromStepID}}
		}
		if !stepIDs[edge.ToStepID] {
			return &ValidationError{Code: CodeUnknownEdgeRef, Message: "edge references unknown step", Steps: []string{edge.ToStepID}}
		}
	}
	return nil
}

// checkNoCycles runs a three-colour DFS over sorted step IDs; hitting a
// grey node is a back edge and the grey chain from that node is the
// reported cycle path.
func checkNoCycles(w *Config) error {
	const (
		white = 0
		grey  = 1
		black = 2
	)
	adj := w.adjacency()
	color := make(map[string]int, len(w.Steps))
	ids := w.StepIDs()
	sort.Strings(ids)

	var stack []string
	var visit func(node string) *ValidationError
	visit = func(node string) *ValidationError {
		color[node] = grey
		stack = append(stack, node)
		for _, neighbor := range adj[node] {
			switch color[neighbor] {
			case grey:
				cycle := cyclePath(stack, neighbor)
				return &ValidationError{Code: CodeCycle, Message: "cycle detected in workflow", Steps: cycle}
			case white:
				if err := visit(neighbor); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[node] = black
		return nil
	}

	for _, id := range ids {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// cyclePath slices the DFS stack from the first occurrence of start and
// closes the loop.
func cyclePath(stack []string, start string) []string {
	for i, node := range stack {
		if node == start {
			path := make([]string, 0, len(stack)-i+1)
			path = append(path, stack[i:]...)
			return append(path, start)
		}
	}
	return []string{start, start}
}

// checkMappingReachability requires every step reference in an input
// mapping to point at a transitive predecessor. Inference has already
// added direct edges for well-formed references, so this catches
// self-references and references to steps that exist but cannot have
// completed first.
func checkMappingReachability(w *Config) error {
	stepIDs := make(map[string]bool, len(w.Steps))
	for i := range w.Steps {
		stepIDs[w.Steps[i].ID] = true
	}
	preds := w.predecessors()
	for i := range w.Steps {
		step := &w.Steps[i]
		names := sortedKeys(step.InputMapping)
		for _, name := range names {
			refID, _, ok := ParseStepRef(step.InputMapping[name])
			if !ok || !stepIDs[refID] {
				continue
			}
			if !preds[step.ID][refID] {
				return &ValidationError{
					Code:    CodeUnreachableRef,
					Message: fmt.Sprintf("step %q input %q references step %q which is not a predecessor", step.ID, name, refID),
					Steps:   []string{step.ID, refID},
				}
			}
		}
	}
	return nil
}

func checkToolRefs(w *Config, tools ToolResolver) error {
	for i := range w.Steps {
		step := &w.Steps[i]
		if tools == nil || !tools.Has(step.ToolID) {
			return &ValidationError{
				Code:    CodeUnknownTool,
				Message: fmt.Sprintf("step %q references unknown tool %q", step.ID, step.ToolID),
				Steps:   []string{step.ID},
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
