package run

import (
	"time"

	"github.com/apiflow/apiflow/engine/core"
)

// StepResult records one step's lifecycle within a run. A step moves
// PENDING -> RUNNING -> (SUCCESS | FAILED); steps after the first failure
// move PENDING -> SKIPPED with no error.
type StepResult struct {
	StepID     string          `json:"step_id"`
	Status     core.StatusType `json:"status"`
	Output     core.Output     `json:"output,omitempty"`
	Error      string          `json:"error,omitempty"`
	ErrorKind  string          `json:"error_kind,omitempty"`
	Warnings   []string        `json:"warnings,omitempty"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// Snapshot returns an immutable copy safe to hand to callbacks while the
// run keeps mutating.
func (s *StepResult) Snapshot() StepResult {
	snapshot := *s
	if s.Output != nil {
		if cloned, err := s.Output.Clone(); err == nil && cloned != nil {
			snapshot.Output = *cloned
		}
	}
	if s.Warnings != nil {
		snapshot.Warnings = append([]string(nil), s.Warnings...)
	}
	return snapshot
}

// Run is a single execution instance of a workflow.
type Run struct {
	ID          core.ID                `json:"id"`
	WorkflowID  string                 `json:"workflow_id"`
	Status      core.StatusType        `json:"status"`
	UserInputs  core.Input             `json:"user_inputs,omitempty"`
	StepResults map[string]*StepResult `json:"step_results"`
	// StepOrder preserves the topological order the results were
	// produced in; StepResults alone does not.
	StepOrder  []string   `json:"step_order,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// New creates a run in PENDING with a PENDING result for every step in
// the given topological order.
func New(id core.ID, workflowID string, userInputs core.Input, stepOrder []string) *Run {
	results := make(map[string]*StepResult, len(stepOrder))
	for _, stepID := range stepOrder {
		results[stepID] = &StepResult{StepID: stepID, Status: core.StatusPending}
	}
	return &Run{
		ID:          id,
		WorkflowID:  workflowID,
		Status:      core.StatusPending,
		UserInputs:  userInputs,
		StepResults: results,
		StepOrder:   append([]string(nil), stepOrder...),
	}
}

// Result returns the step result for stepID, nil when absent.
func (r *Run) Result(stepID string) *StepResult {
	return r.StepResults[stepID]
}

// Succeeded reports whether every step finished SUCCESS.
func (r *Run) Succeeded() bool {
	for _, result := range r.StepResults {
		if result.Status != core.StatusSuccess {
			return false
		}
	}
	return true
}
