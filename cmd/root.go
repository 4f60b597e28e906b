// Package cmd implements the version-check command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dxos/version-check/internal/log"
	"github.com/dxos/version-check/internal/merge"
	"github.com/dxos/version-check/internal/upgrade"
)

// Set via -ldflags at build time.
var buildVersion = "dev"

// ExitError carries a non-zero process status out of a command
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// app holds the global flags shared by every command
type app struct {
	cwd        string
	configPath string
	format     string
	output     string
	provider   string
	timeout    int
	noColor    bool
	noCache    bool
	verbose    bool

	// Collaborators replaced in tests
	registry upgrade.Registry
	merger   merge.Merger
}

func newRootCmd() *cobra.Command {
	return newRootCmdFor(&app{})
}

func newRootCmdFor(a *app) *cobra.Command {
	var fix bool

	rootCmd := &cobra.Command{
		Use:   "version-check",
		Short: "Keep dependency versions consistent across a yarn, npm or pnpm workspace",
		Long: `version-check audits every package of a JavaScript monorepo and reports
dependencies that are declared with different version specifiers.

Without a subcommand it runs "check".

Examples:
  # Report inconsistent specifiers (exit 1 when any are found)
  version-check

  # Rewrite manifests to the highest specifier in use
  version-check --fix

  # Preview registry upgrades for one scope
  version-check upgrade --scope @dxos/ --dry-run

  # Show duplicated installs of a package
  version-check installed --package @dxos/echo-db

  # Resolve a package.json merge conflict (git merge driver)
  version-check merge --ancestor %O --ours %A --theirs %B

  # Output SARIF for GitHub Code Scanning
  version-check --format sarif --output results.sarif`,
		Version:       buildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if a.verbose {
				log.SetLevel(log.LevelDebug)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, a, fix)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cwd, "cwd", ".", "Directory inside the workspace")
	flags.StringVar(&a.configPath, "config", "", "Config file (default: <workspace root>/"+ConfigFileName+")")
	flags.StringVar(&a.format, "format", "terminal", "Output format: terminal, json, sarif")
	flags.StringVarP(&a.output, "output", "o", "", "Output file path (default: stdout)")
	flags.StringVar(&a.provider, "provider", "auto", "Workspace provider: auto, pnpm, glob, yarn")
	flags.IntVar(&a.timeout, "timeout", 60, "Registry request timeout in seconds")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable colored output")
	flags.BoolVar(&a.noCache, "no-cache", false, "Disable registry response caching")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Log debug output")

	rootCmd.Flags().BoolVarP(&fix, "fix", "f", false, "Fix errors automatically")

	rootCmd.AddCommand(
		newCheckCmd(a),
		newUpgradeCmd(a),
		newInstalledCmd(a),
		newMergeCmd(a),
	)
	return rootCmd
}

// Execute runs the command line and exits with its status: 0 on success,
// the command's ExitError code, or 2 on any other error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	log.Error("%v", err)
	return 2
}
