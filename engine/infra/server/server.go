// Package server exposes the engine over REST. Runs can execute
// synchronously or stream step events over SSE as the executor's
// progress callback fires.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/apiflow/apiflow/engine/executor"
	"github.com/apiflow/apiflow/engine/infra/store"
	"github.com/apiflow/apiflow/engine/tool"
	"github.com/apiflow/apiflow/pkg/config"
	"github.com/apiflow/apiflow/pkg/logger"
)

type Server struct {
	cfg      *config.Config
	store    *store.Store
	registry *tool.Registry
	exec     *executor.Executor
}

func New(cfg *config.Config, st *store.Store, registry *tool.Registry, exec *executor.Executor) *Server {
	return &Server{cfg: cfg, store: st, registry: registry, exec: exec}
}

func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api/v0")
	api.GET("/health", s.handleHealth)
	api.GET("/tools", s.handleListTools)
	api.POST("/workflows", s.handleCreateWorkflow)
	api.GET("/workflows", s.handleListWorkflows)
	api.GET("/workflows/:workflow_id", s.handleGetWorkflow)
	api.POST("/workflows/:workflow_id/runs", s.handleExecuteRun)
	api.POST("/workflows/:workflow_id/runs/stream", s.handleStreamRun)
	api.GET("/runs", s.handleListRuns)
	api.GET("/runs/:run_id", s.handleGetRun)
	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.FromContext(ctx).Info("server listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
