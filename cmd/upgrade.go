package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dxos/version-check/internal/reporter"
	"github.com/dxos/version-check/internal/upgrade"
	"github.com/dxos/version-check/internal/version"
)

func newUpgradeCmd(a *app) *cobra.Command {
	var (
		opts  upgrade.Options
		preid string
	)
	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Upgrade dependencies to the latest compatible version from the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Preid = version.Preid(preid)
			return runUpgrade(cmd, a, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Scope, "scope", "", "Upgrade packages only from a specific scope")
	cmd.Flags().StringVar(&opts.Package, "package", "", "Upgrade this package only")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show what packages would be updated, but don't update them")
	cmd.Flags().StringVar(&preid, "preid", "", "Upgrade packages to a specific preid")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Force upgrade packages even to a lower stability level")
	return cmd
}

func runUpgrade(cmd *cobra.Command, a *app, opts upgrade.Options) error {
	cfg, s, err := a.open(cmd)
	if err != nil {
		return err
	}

	result, err := s.Upgrade(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("upgrade failed: %w", err)
	}

	output, err := reporter.Get(cfg.OutputFormat, cfg.Color).Upgrade(result)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	return writeOutput(cmd, cfg, output)
}
