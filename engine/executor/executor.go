// Package executor drives workflow runs: it validates and orders the
// graph, resolves per-step inputs, dispatches the configured HTTP calls,
// and maintains the run record. Steps execute sequentially in
// deterministic topological order; the first failure skips everything
// after it.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/apiflow/apiflow/engine/core"
	"github.com/apiflow/apiflow/engine/run"
	"github.com/apiflow/apiflow/engine/tool"
	"github.com/apiflow/apiflow/engine/workflow"
	"github.com/apiflow/apiflow/pkg/logger"
)

// StepCallback observes terminal step transitions (SUCCESS, FAILED,
// SKIPPED) with an immutable snapshot. Callbacks run synchronously in
// topological order, before the next step begins; panics are logged and
// do not affect the run.
type StepCallback func(result run.StepResult)

type Option func(*options)

type options struct {
	runID    core.ID
	callback StepCallback
}

// WithRunID pins the run's ID instead of generating one.
func WithRunID(id core.ID) Option {
	return func(o *options) { o.runID = id }
}

// WithStepCallback registers the progress observer.
func WithStepCallback(cb StepCallback) Option {
	return func(o *options) { o.callback = cb }
}

type Executor struct {
	dispatcher *Dispatcher
}

func New(dispatcher *Dispatcher) *Executor {
	if dispatcher == nil {
		dispatcher = NewDispatcher(DefaultTimeout)
	}
	return &Executor{dispatcher: dispatcher}
}

// Execute runs the workflow to completion and returns the final run.
// Step-level failures never surface as errors; they are recorded on the
// run. An error return means nothing was attempted (validation) or an
// internal invariant broke. The context cancels cooperatively: it is
// checked between steps, and an in-flight call fails with reason
// "cancelled" once it returns.
func (e *Executor) Execute(
	ctx context.Context,
	wf *workflow.Config,
	registry *tool.Registry,
	userInputs core.Input,
	toolConfigs map[string]map[string]string,
	opts ...Option,
) (*run.Run, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := workflow.Validate(wf, registry); err != nil {
		return nil, err
	}
	order, err := workflow.Sort(wf)
	if err != nil {
		return nil, err
	}

	runID := o.runID
	if runID.IsZero() {
		runID, err = core.NewID()
		if err != nil {
			return nil, err
		}
	}

	r := run.New(runID, wf.ID, userInputs, order)
	startedAt := time.Now().UTC()
	r.Status = core.StatusRunning
	r.StartedAt = &startedAt

	log := logger.FromContext(ctx).With("run_id", runID.String(), "workflow_id", wf.ID)
	log.Info("run started", "steps", len(order))

	state := NewStateManager(userInputs)

	for i, stepID := range order {
		if ctx.Err() != nil {
			log.Warn("run cancelled", "at_step", stepID)
			e.skipRemaining(ctx, r, order[i:], &o)
			break
		}

		result := r.Result(stepID)
		stepStarted := time.Now().UTC()
		result.Status = core.StatusRunning
		result.StartedAt = &stepStarted

		step := wf.GetStep(stepID)
		toolDef, err := registry.Get(step.ToolID)
		if err != nil {
			return nil, fmt.Errorf("internal error: tool %q vanished after validation: %w", step.ToolID, err)
		}

		output, warnings, stepErr := e.executeStep(ctx, step, toolDef, state, toolConfigs[step.ToolID])
		stepFinished := time.Now().UTC()
		result.Warnings = warnings
		result.FinishedAt = &stepFinished

		if stepErr != nil {
			result.Status = core.StatusFailed
			result.Error = stepErr.Error()
			result.ErrorKind = string(classify(stepErr))
			if output != nil {
				result.Output = output
			}
			log.Error("step failed", "step_id", stepID, "kind", result.ErrorKind, "error", stepErr.Error())
			e.notify(ctx, &o, result)
			e.skipRemaining(ctx, r, order[i+1:], &o)
			break
		}

		result.Status = core.StatusSuccess
		result.Output = output
		log.Debug("step succeeded", "step_id", stepID)
		e.notify(ctx, &o, result)
	}

	finishedAt := time.Now().UTC()
	r.FinishedAt = &finishedAt
	if r.Succeeded() {
		r.Status = core.StatusSuccess
	} else {
		r.Status = core.StatusFailed
	}
	log.Info("run finished", "status", r.Status.String())
	return r, nil
}

// skipRemaining marks every still-pending step SKIPPED, notifying the
// callback for each.
func (e *Executor) skipRemaining(ctx context.Context, r *run.Run, stepIDs []string, o *options) {
	for _, stepID := range stepIDs {
		result := r.Result(stepID)
		if result.Status != core.StatusPending {
			continue
		}
		skippedAt := time.Now().UTC()
		result.Status = core.StatusSkipped
		result.FinishedAt = &skippedAt
		e.notify(ctx, o, result)
	}
}

// notify hands the callback a snapshot; only terminal transitions are
// observable.
func (e *Executor) notify(ctx context.Context, o *options, result *run.StepResult) {
	if o.callback == nil || !result.Status.IsTerminal() {
		return
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.FromContext(ctx).Error("step callback panicked", "step_id", result.StepID, "panic", recovered)
		}
	}()
	o.callback(result.Snapshot())
}
