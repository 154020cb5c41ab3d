package workflow

import (
	"sort"
	"time"
)

// -----------------------------------------------------------------------------
// Steps and edges
// -----------------------------------------------------------------------------

// Step is one node of the workflow graph. InputMapping maps the tool's
// input names to reference expressions:
//
//	$input.<path>   draw from the run's user inputs
//	<step_id>.<path> draw from a completed step's output
//	anything else    literal string value
type Step struct {
	ID           string            `json:"id"                      yaml:"id"`
	Name         string            `json:"name,omitempty"          yaml:"name,omitempty"`
	ToolID       string            `json:"tool_id"                 yaml:"tool_id"`
	InputMapping map[string]string `json:"input_mapping,omitempty" yaml:"input_mapping,omitempty"`
	Validations  []Validation      `json:"validations,omitempty"   yaml:"validations,omitempty"`
}

// Edge orders two steps; FromStepID must complete before ToStepID starts.
type Edge struct {
	FromStepID string `json:"from_step_id" yaml:"from_step_id"`
	ToStepID   string `json:"to_step_id"   yaml:"to_step_id"`
}

// Validation is an optional data check run against a step's resolved
// inputs (target "input") or its output (target "output"). Critical
// failures fail the step; the rest surface as warnings.
type Validation struct {
	Target   string `json:"target"            yaml:"target"`
	Field    string `json:"field"             yaml:"field"`
	Check    string `json:"check"             yaml:"check"`
	Value    string `json:"value,omitempty"   yaml:"value,omitempty"`
	Message  string `json:"message,omitempty" yaml:"message,omitempty"`
	Critical bool   `json:"critical"          yaml:"critical"`
}

// -----------------------------------------------------------------------------
// Workflow
// -----------------------------------------------------------------------------

// Config is the static workflow description. Validate mutates Edges so
// that the set is closed under references-imply-edges; after validation
// the config is the canonical form all downstream components consume.
type Config struct {
	ID        string     `json:"id"                   yaml:"id"`
	Name      string     `json:"name,omitempty"       yaml:"name,omitempty"`
	Version   string     `json:"version,omitempty"    yaml:"version,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	Steps     []Step     `json:"steps"                yaml:"steps"`
	Edges     []Edge     `json:"edges,omitempty"      yaml:"edges,omitempty"`
}

// StepIDs returns all step IDs in declaration order.
func (w *Config) StepIDs() []string {
	ids := make([]string, 0, len(w.Steps))
	for i := range w.Steps {
		ids = append(ids, w.Steps[i].ID)
	}
	return ids
}

// GetStep returns the step with the given ID, nil when absent.
func (w *Config) GetStep(stepID string) *Step {
	for i := range w.Steps {
		if w.Steps[i].ID == stepID {
			return &w.Steps[i]
		}
	}
	return nil
}

// adjacency builds the outgoing-neighbour map with neighbours sorted for
// deterministic traversal.
func (w *Config) adjacency() map[string][]string {
	adj := make(map[string][]string, len(w.Steps))
	for i := range w.Steps {
		adj[w.Steps[i].ID] = nil
	}
	for _, edge := range w.Edges {
		adj[edge.FromStepID] = append(adj[edge.FromStepID], edge.ToStepID)
	}
	for id := range adj {
		sort.Strings(adj[id])
	}
	return adj
}

// predecessors builds the transitive-predecessor set for every step.
func (w *Config) predecessors() map[string]map[string]bool {
	direct := make(map[string][]string, len(w.Steps))
	for _, edge := range w.Edges {
		direct[edge.ToStepID] = append(direct[edge.ToStepID], edge.FromStepID)
	}
	result := make(map[string]map[string]bool, len(w.Steps))
	var collect func(stepID string, into map[string]bool)
	collect = func(stepID string, into map[string]bool) {
		for _, pred := range direct[stepID] {
			if into[pred] {
				continue
			}
			into[pred] = true
			collect(pred, into)
		}
	}
	for i := range w.Steps {
		set := make(map[string]bool)
		collect(w.Steps[i].ID, set)
		result[w.Steps[i].ID] = set
	}
	return result
}
