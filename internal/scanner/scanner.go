// Package scanner wires a workspace, the registry client and the cache into
// the check, upgrade and installed operations.
package scanner

import (
	"context"
	"fmt"

	"github.com/dxos/version-check/internal/cache"
	"github.com/dxos/version-check/internal/check"
	"github.com/dxos/version-check/internal/clients"
	"github.com/dxos/version-check/internal/installed"
	"github.com/dxos/version-check/internal/log"
	"github.com/dxos/version-check/internal/models"
	"github.com/dxos/version-check/internal/upgrade"
	"github.com/dxos/version-check/internal/workspace"
)

// Scanner holds everything one invocation needs
type Scanner struct {
	config   *models.Config
	ws       *workspace.Workspace
	registry upgrade.Registry
}

// New locates and loads the workspace containing config.Dir
func New(ctx context.Context, config *models.Config) (*Scanner, error) {
	root, err := workspace.FindRoot(config.Dir)
	if err != nil {
		return nil, err
	}

	ws, err := workspace.Load(ctx, root, config.Provider)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}

	var c *cache.Cache
	if !config.NoCache {
		c, err = cache.New(cache.AppName, config.CacheTTL)
		if err != nil {
			// Non-fatal: continue without cache
			log.Debug("registry cache disabled: %v", err)
			c = nil
		}
	}

	return &Scanner{
		config:   config,
		ws:       ws,
		registry: clients.NewRegistryClient(config.Registry, config.Timeout, c),
	}, nil
}

// Workspace returns the loaded workspace
func (s *Scanner) Workspace() *workspace.Workspace {
	return s.ws
}

// SetRegistry replaces the registry collaborator
func (s *Scanner) SetRegistry(r upgrade.Registry) {
	s.registry = r
}

// Check runs the consistency check, fixing findings when fix is set
func (s *Scanner) Check(fix bool) (*models.CheckResult, error) {
	return check.New(s.ws, fix, s.config.LockfileCommand).Run()
}

// Upgrade plans and applies registry upgrades
func (s *Scanner) Upgrade(ctx context.Context, opts upgrade.Options) (*models.UpgradeResult, error) {
	opts.MaxConcurrent = s.config.MaxConcurrent
	opts.LockfileCommand = s.config.LockfileCommand
	return upgrade.New(s.ws, s.registry, opts).Run(ctx)
}

// Installed walks the installed modules, optionally pruned to the paths
// leading to pkg. An empty scope falls back to the configured one.
func (s *Scanner) Installed(pkg, scope string) (*installed.Report, error) {
	if scope == "" {
		scope = s.config.InstalledScope
	}
	report, err := installed.Walk(s.ws.Root, s.ws.Packages, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to read installed modules: %w", err)
	}
	if pkg != "" {
		report = report.Filter(pkg)
	}
	return report, nil
}
