package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dxos/version-check/internal/reporter"
)

func newInstalledCmd(a *app) *cobra.Command {
	var pkg, scope string
	cmd := &cobra.Command{
		Use:   "installed",
		Short: "Print the installed module trees and duplicated packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, s, err := a.open(cmd)
			if err != nil {
				return err
			}

			report, err := s.Installed(pkg, scope)
			if err != nil {
				return err
			}

			output, err := reporter.Get(cfg.OutputFormat, cfg.Color).Installed(report)
			if err != nil {
				return fmt.Errorf("failed to generate report: %w", err)
			}
			return writeOutput(cmd, cfg, output)
		},
	}
	cmd.Flags().StringVar(&pkg, "package", "", "Only show paths leading to this package")
	cmd.Flags().StringVar(&scope, "scope", "", "Only read node_modules/<scope>, e.g. @dxos")
	return cmd
}
