package executor

import (
	"fmt"
	"strings"

	"github.com/apiflow/apiflow/engine/core"
	"github.com/apiflow/apiflow/engine/workflow"
	"github.com/apiflow/apiflow/pkg/dotpath"
)

// StateManager resolves a step's input mapping against the run's user
// inputs and the outputs of completed steps. One instance belongs to one
// run; only the run executor mutates it, and steps execute sequentially,
// so no locking is needed.
type StateManager struct {
	userInputs  map[string]any
	stepOutputs map[string]map[string]any
}

func NewStateManager(userInputs core.Input) *StateManager {
	return &StateManager{
		userInputs:  map[string]any(userInputs),
		stepOutputs: make(map[string]map[string]any),
	}
}

// RecordOutput stores a completed step's output for downstream references.
func (s *StateManager) RecordOutput(stepID string, output core.Output) {
	s.stepOutputs[stepID] = map[string]any(output)
}

// Resolve produces the flat name -> value mapping for one step.
func (s *StateManager) Resolve(inputMapping map[string]string) (core.Input, error) {
	resolved := make(core.Input, len(inputMapping))
	for name, ref := range inputMapping {
		value, err := s.resolveRef(ref)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", name, err)
		}
		resolved[name] = value
	}
	return resolved, nil
}

func (s *StateManager) resolveRef(ref string) (any, error) {
	if workflow.IsInputRef(ref) {
		path := strings.TrimPrefix(ref, "$input.")
		value, err := dotpath.Traverse(s.userInputs, path)
		if err != nil {
			return nil, &ResolutionError{Ref: ref, Reason: fmt.Sprintf("missing user input: %v", err)}
		}
		return value, nil
	}

	if dot := strings.Index(ref, "."); dot > 0 {
		stepID := ref[:dot]
		path := ref[dot+1:]
		output, ok := s.stepOutputs[stepID]
		if !ok {
			return nil, &ResolutionError{Ref: ref, Reason: fmt.Sprintf("missing output from step %q", stepID)}
		}
		value, err := dotpath.Traverse(output, path)
		if err != nil {
			return nil, &ResolutionError{Ref: ref, Reason: err.Error()}
		}
		return value, nil
	}

	// Bare string with no dot: literal pass-through.
	return ref, nil
}
