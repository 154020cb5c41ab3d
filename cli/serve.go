package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/apiflow/apiflow/engine/executor"
	"github.com/apiflow/apiflow/engine/infra/server"
	"github.com/apiflow/apiflow/engine/infra/store"
	"github.com/apiflow/apiflow/engine/tool"
	"github.com/apiflow/apiflow/pkg/config"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the workflow engine API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			fs := afero.NewOsFs()
			registry := tool.NewRegistry()
			if err := registry.LoadDir(fs, cfg.Runtime.RegistryDir); err != nil {
				return err
			}
			st, err := store.New(fs, cfg.Runtime.DataDir)
			if err != nil {
				return err
			}
			exec := executor.New(executor.NewDispatcher(cfg.Runtime.DispatchTimeout))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return server.New(cfg, st, registry, exec).Run(ctx)
		},
	}
}
