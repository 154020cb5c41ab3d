package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/apiflow/apiflow/engine/core"
	"github.com/apiflow/apiflow/engine/executor"
	"github.com/apiflow/apiflow/engine/run"
	"github.com/apiflow/apiflow/engine/tool"
	"github.com/apiflow/apiflow/engine/workflow"
	"github.com/apiflow/apiflow/pkg/config"
	"github.com/apiflow/apiflow/pkg/logger"
)

func newExecuteCmd() *cobra.Command {
	var (
		workflowFile string
		inputFile    string
		inputFlags   []string
		configFile   string
	)

	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Execute a workflow from a JSON file and print the run",
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

			wf, err := loadWorkflowFile(fs, workflowFile)
			if err != nil {
				return err
			}
			inputs, err := collectInputs(fs, inputFile, inputFlags)
			if err != nil {
				return err
			}
			toolConfigs, err := loadToolConfigs(fs, configFile)
			if err != nil {
				return err
			}

			exec := executor.New(executor.NewDispatcher(cfg.Runtime.DispatchTimeout))
			result, err := exec.Execute(
				cmd.Context(),
				wf,
				registry,
				inputs,
				toolConfigs,
				executor.WithStepCallback(func(stepResult run.StepResult) {
					logger.Info("step finished",
						"step_id", stepResult.StepID,
						"status", stepResult.Status.String(),
					)
				}),
			)
			if err != nil {
				return err
			}

			encoded, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return nil
		},
	}

	cmd.Flags().StringVarP(&workflowFile, "workflow", "w", "", "path to the workflow JSON file")
	cmd.Flags().StringVarP(&inputFile, "input-file", "f", "", "path to a JSON file with user inputs")
	cmd.Flags().StringArrayVarP(&inputFlags, "input", "i", nil, "user input override as key=value (repeatable)")
	cmd.Flags().StringVarP(&configFile, "tool-configs", "t", "", "path to a JSON file with per-tool runtime config")
	_ = cmd.MarkFlagRequired("workflow")
	return cmd
}

func loadWorkflowFile(fs afero.Fs, path string) (*workflow.Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file %q: %w", path, err)
	}
	var wf workflow.Config
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("failed to parse workflow file %q: %w", path, err)
	}
	return &wf, nil
}

// collectInputs layers --input overrides on top of the input file.
func collectInputs(fs afero.Fs, inputFile string, inputFlags []string) (core.Input, error) {
	overrides := core.Input{}
	for _, flag := range inputFlags {
		key, value, found := strings.Cut(flag, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --input %q, expected key=value", flag)
		}
		overrides[key] = value
	}
	if inputFile == "" {
		return overrides, nil
	}

	data, err := afero.ReadFile(fs, inputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file %q: %w", inputFile, err)
	}
	var fromFile core.Input
	if err := json.Unmarshal(data, &fromFile); err != nil {
		return nil, fmt.Errorf("failed to parse input file %q: %w", inputFile, err)
	}
	merged, err := overrides.Merge(&fromFile)
	if err != nil {
		return nil, err
	}
	if merged == nil {
		return core.Input{}, nil
	}
	return *merged, nil
}

func loadToolConfigs(fs afero.Fs, path string) (map[string]map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tool config file %q: %w", path, err)
	}
	var configs map[string]map[string]string
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("failed to parse tool config file %q: %w", path, err)
	}
	return configs, nil
}
