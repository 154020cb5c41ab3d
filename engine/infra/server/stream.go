package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/apiflow/apiflow/engine/executor"
	"github.com/apiflow/apiflow/engine/run"
	"github.com/apiflow/apiflow/engine/workflow"
	"github.com/apiflow/apiflow/pkg/logger"
)

type streamEvent struct {
	name    string
	payload any
}

// handleStreamRun executes a run while streaming each terminal step
// transition as an SSE "step" event, then a final "run" event with the
// whole record. Client disconnects cancel the run cooperatively through
// the request context.
func (s *Server) handleStreamRun(c *gin.Context) {
	wf, err := s.store.LoadWorkflow(c.Param("workflow_id"))
	if err != nil {
		respondProblem(c, http.StatusNotFound, "workflow not found", err)
		return
	}
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondProblem(c, http.StatusBadRequest, "invalid run payload", err)
		return
	}

	ctx := c.Request.Context()
	events := make(chan streamEvent, 32)
	// A disconnected client stops draining events; dropping them on
	// ctx.Done keeps the executor goroutine from blocking so the run
	// still finishes and persists.
	send := func(event streamEvent) {
		select {
		case events <- event:
		case <-ctx.Done():
		}
	}
	go func() {
		defer close(events)
		result, err := s.exec.Execute(
			ctx,
			wf,
			s.registry,
			req.Input,
			req.ToolConfigs,
			executor.WithStepCallback(func(stepResult run.StepResult) {
				send(streamEvent{name: "step", payload: stepResult})
			}),
		)
		if err != nil {
			status := http.StatusInternalServerError
			var validationErr *workflow.ValidationError
			if errors.As(err, &validationErr) {
				status = http.StatusUnprocessableEntity
			}
			send(streamEvent{name: "error", payload: problem{Status: status, Error: err.Error()}})
			return
		}
		if err := s.store.SaveRun(result); err != nil {
			logger.FromContext(ctx).Error("failed to persist streamed run", "run_id", result.ID.String(), "error", err)
		}
		send(streamEvent{name: "run", payload: result})
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Stream(func(_ io.Writer) bool {
		event, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent(event.name, event.payload)
		return true
	})
}
