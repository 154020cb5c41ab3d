package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/apiflow/apiflow/engine/tool"
	"github.com/apiflow/apiflow/pkg/config"
)

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tool definitions in the registry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			registry := tool.NewRegistry()
			if err := registry.LoadDir(afero.NewOsFs(), cfg.Runtime.RegistryDir); err != nil {
				return err
			}
			for _, def := range registry.List() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-6s %s%s\n", def.ID, def.EffectiveMethod(), def.BaseURL, def.Path)
			}
			return nil
		},
	}
}
