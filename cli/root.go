// Package cli wires the engine into a command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/apiflow/apiflow/pkg/logger"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "apiflow",
		Short: "Deterministic DAG-execution engine for API-call workflows",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logLevel, logJSON, logSource, err := logger.GetLoggerConfig(cmd)
			if err != nil {
				return err
			}
			logger.SetupLogger(logLevel, logJSON, logSource)
			return nil
		},
	}

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "emit logs as JSON")
	rootCmd.PersistentFlags().Bool("log-source", false, "include source locations in logs")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newExecuteCmd())
	rootCmd.AddCommand(newToolsCmd())
	return rootCmd
}

func Execute() error {
	return NewRootCmd().Execute()
}
