package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dxos/version-check/internal/log"
	"github.com/dxos/version-check/internal/models"
	"github.com/dxos/version-check/internal/reporter"
	"github.com/dxos/version-check/internal/scanner"
)

func newCheckCmd(a *app) *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that all packages use the same version of each dependency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, a, fix)
		},
	}
	cmd.Flags().BoolVarP(&fix, "fix", "f", false, "Fix errors automatically")
	return cmd
}

func runCheck(cmd *cobra.Command, a *app, fix bool) error {
	cfg, s, err := a.open(cmd)
	if err != nil {
		return err
	}

	result, err := s.Check(fix)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	output, err := reporter.Get(cfg.OutputFormat, cfg.Color).Check(s.Workspace().Root, result)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	if err := writeOutput(cmd, cfg, output); err != nil {
		return err
	}

	if result.Failed {
		return &ExitError{Code: 1}
	}
	return nil
}

// open resolves the configuration and loads the workspace
func (a *app) open(cmd *cobra.Command) (*models.Config, *scanner.Scanner, error) {
	cfg, err := a.config(cmd)
	if err != nil {
		return nil, nil, err
	}
	s, err := scanner.New(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	if a.registry != nil {
		s.SetRegistry(a.registry)
	}
	return cfg, s, nil
}

// writeOutput sends a report to the output file or the command's stdout
func writeOutput(cmd *cobra.Command, cfg *models.Config, output []byte) error {
	if cfg.OutputFile != "" {
		if err := os.WriteFile(cfg.OutputFile, output, 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		log.Info("Report written to %s", cfg.OutputFile)
		return nil
	}
	_, err := cmd.OutOrStdout().Write(output)
	return err
}
