package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dxos/version-check/internal/log"
	"github.com/dxos/version-check/internal/models"
	"github.com/dxos/version-check/internal/reporter"
	"github.com/dxos/version-check/internal/workspace"
)

// ConfigFileName is looked up in the workspace root when --config is not set
const ConfigFileName = ".version-check.toml"

// fileConfig is the on-disk configuration. Durations are strings such as
// "30s" or "2h".
type fileConfig struct {
	Registry        string `toml:"registry"`
	Provider        string `toml:"provider"`
	LockfileCommand string `toml:"lockfile_command"`
	InstalledScope  string `toml:"installed_scope"`
	MaxConcurrent   int    `toml:"max_concurrent"`
	Timeout         string `toml:"timeout"`
	CacheTTL        string `toml:"cache_ttl"`
	NoCache         *bool  `toml:"no_cache"`
}

// loadConfigFile decodes path and overlays the values it sets onto cfg
func loadConfigFile(path string, cfg *models.Config) error {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		log.Warn("%s: unknown key %q", path, key.String())
	}

	if fc.Registry != "" {
		cfg.Registry = fc.Registry
	}
	if fc.Provider != "" {
		cfg.Provider = fc.Provider
	}
	if fc.LockfileCommand != "" {
		cfg.LockfileCommand = fc.LockfileCommand
	}
	if fc.InstalledScope != "" {
		cfg.InstalledScope = fc.InstalledScope
	}
	if fc.MaxConcurrent > 0 {
		cfg.MaxConcurrent = fc.MaxConcurrent
	}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("config %s: timeout: %w", path, err)
		}
		cfg.Timeout = d
	}
	if fc.CacheTTL != "" {
		d, err := time.ParseDuration(fc.CacheTTL)
		if err != nil {
			return fmt.Errorf("config %s: cache_ttl: %w", path, err)
		}
		cfg.CacheTTL = d
	}
	if fc.NoCache != nil {
		cfg.NoCache = *fc.NoCache
	}
	return nil
}

// findConfigFile returns the config file of the workspace containing dir,
// or "" when there is none
func findConfigFile(dir string) string {
	root, err := workspace.FindRoot(dir)
	if err != nil {
		return ""
	}
	path := filepath.Join(root, ConfigFileName)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// config builds the run configuration: defaults, then the config file, then
// any flag given on the command line
func (a *app) config(cmd *cobra.Command) (*models.Config, error) {
	cfg := models.DefaultConfig()
	cfg.Dir = a.cwd

	path := a.configPath
	if path == "" {
		path = findConfigFile(a.cwd)
	}
	if path != "" {
		log.Debug("using config %s", path)
		if err := loadConfigFile(path, cfg); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Provider = a.provider
	}
	if flags.Changed("timeout") {
		cfg.Timeout = time.Duration(a.timeout) * time.Second
	}
	if flags.Changed("no-cache") {
		cfg.NoCache = a.noCache
	}

	if !slices.Contains(reporter.Formats, a.format) {
		return nil, fmt.Errorf("unknown format %q (want one of %s)", a.format, strings.Join(reporter.Formats, ", "))
	}
	cfg.OutputFormat = a.format
	cfg.OutputFile = a.output
	cfg.Color = !a.noColor && a.output == "" && isTerminal(cmd.OutOrStdout())
	return cfg, nil
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
