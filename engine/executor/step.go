package executor

import (
	"context"
	"strings"

	"github.com/apiflow/apiflow/engine/core"
	"github.com/apiflow/apiflow/engine/tool"
	"github.com/apiflow/apiflow/engine/workflow"
)

// executeStep runs one step end to end: resolve the input mapping, check
// input validations, dispatch the HTTP call, record the output for
// downstream steps, then check output validations. The returned output
// may be non-nil even on error when the call itself succeeded but an
// output validation failed.
func (e *Executor) executeStep(
	ctx context.Context,
	step *workflow.Step,
	t *tool.Config,
	state *StateManager,
	toolCfg map[string]string,
) (core.Output, []string, error) {
	resolved, err := state.Resolve(step.InputMapping)
	if err != nil {
		return nil, nil, err
	}

	var warnings []string
	inputChecks := runChecks(resolved.AsMap(), step.Validations, "input")
	warnings = append(warnings, inputChecks.warnings...)
	if len(inputChecks.errors) > 0 {
		return nil, warnings, &StepError{
			Kind:   KindValidation,
			ToolID: t.ID,
			Reason: "input validation failed: " + strings.Join(inputChecks.errors, "; "),
		}
	}

	output, err := e.dispatcher.Call(ctx, t, resolved, toolCfg)
	if err != nil {
		return nil, warnings, err
	}
	state.RecordOutput(step.ID, output)

	outputChecks := runChecks(output.AsMap(), step.Validations, "output")
	warnings = append(warnings, outputChecks.warnings...)
	if len(outputChecks.errors) > 0 {
		return output, warnings, &StepError{
			Kind:   KindValidation,
			ToolID: t.ID,
			Reason: "output validation failed: " + strings.Join(outputChecks.errors, "; "),
		}
	}

	return output, warnings, nil
}
