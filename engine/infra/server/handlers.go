package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/apiflow/apiflow/engine/core"
	"github.com/apiflow/apiflow/engine/workflow"
)

// problem is the error envelope every failing endpoint returns.
type problem struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code,omitempty"`
}

func respondProblem(c *gin.Context, status int, message string, err error) {
	p := problem{Status: status, Error: message}
	if err != nil {
		p.Details = err.Error()
		var validationErr *workflow.ValidationError
		if errors.As(err, &validationErr) {
			p.Code = validationErr.Code
		}
	}
	c.JSON(status, p)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": s.registry.List()})
}

func (s *Server) handleCreateWorkflow(c *gin.Context) {
	var wf workflow.Config
	if err := c.ShouldBindJSON(&wf); err != nil {
		respondProblem(c, http.StatusBadRequest, "invalid workflow payload", err)
		return
	}
	// Validation writes inferred edges back, so the canonical form is
	// what persists.
	if err := workflow.Validate(&wf, s.registry); err != nil {
		respondProblem(c, http.StatusUnprocessableEntity, "workflow validation failed", err)
		return
	}
	if err := s.store.SaveWorkflow(&wf); err != nil {
		respondProblem(c, http.StatusInternalServerError, "failed to persist workflow", err)
		return
	}
	c.JSON(http.StatusCreated, wf)
}

func (s *Server) handleListWorkflows(c *gin.Context) {
	workflows, err := s.store.ListWorkflows()
	if err != nil {
		respondProblem(c, http.StatusInternalServerError, "failed to list workflows", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflows": workflows})
}

func (s *Server) handleGetWorkflow(c *gin.Context) {
	wf, err := s.store.LoadWorkflow(c.Param("workflow_id"))
	if err != nil {
		respondProblem(c, http.StatusNotFound, "workflow not found", err)
		return
	}
	c.JSON(http.StatusOK, wf)
}

// executeRequest is the payload for both run endpoints.
type executeRequest struct {
	Input       core.Input                   `json:"input"`
	ToolConfigs map[string]map[string]string `json:"tool_configs"`
}

func (s *Server) handleExecuteRun(c *gin.Context) {
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
	result, err := s.exec.Execute(c.Request.Context(), wf, s.registry, req.Input, req.ToolConfigs)
	if err != nil {
		var validationErr *workflow.ValidationError
		if errors.As(err, &validationErr) {
			respondProblem(c, http.StatusUnprocessableEntity, "workflow validation failed", err)
			return
		}
		respondProblem(c, http.StatusInternalServerError, "run execution failed", err)
		return
	}
	if err := s.store.SaveRun(result); err != nil {
		respondProblem(c, http.StatusInternalServerError, "failed to persist run", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListRuns(c *gin.Context) {
	runs, err := s.store.ListRuns(c.Query("workflow_id"))
	if err != nil {
		respondProblem(c, http.StatusInternalServerError, "failed to list runs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleGetRun(c *gin.Context) {
	result, err := s.store.LoadRun(c.Param("run_id"))
	if err != nil {
		respondProblem(c, http.StatusNotFound, "run not found", err)
		return
	}
	c.JSON(http.StatusOK, result)
}
