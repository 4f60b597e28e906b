// Package upgrade bumps workspace dependencies to the newest compatible
// versions published on the registry.
package upgrade

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dxos/version-check/internal/log"
	"github.com/dxos/version-check/internal/manifest"
	"github.com/dxos/version-check/internal/models"
	"github.com/dxos/version-check/internal/version"
	"github.com/dxos/version-check/internal/workspace"
)

// Registry fetches the published versions of a package
type Registry interface {
	FetchManifest(ctx context.Context, name string) (*models.PackageManifest, error)
}

// Options selects which dependencies are upgraded and how
type Options struct {
	Scope   string        // Only names starting with this prefix
	Package string        // Only this exact name
	Preid   version.Preid // Target prerelease label; empty keeps each dependency's own
	Force   bool          // Allow moving to a less stable preid
	DryRun  bool

	MaxConcurrent   int
	LockfileCommand string
}

// Upgrader plans and applies upgrades for one workspace
type Upgrader struct {
	ws       *workspace.Workspace
	registry Registry
	opts     Options
}

// New creates an upgrader
func New(ws *workspace.Workspace, registry Registry, opts Options) *Upgrader {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = models.DefaultConfig().MaxConcurrent
	}
	if opts.LockfileCommand == "" {
		opts.LockfileCommand = models.DefaultConfig().LockfileCommand
	}
	return &Upgrader{ws: ws, registry: registry, opts: opts}
}

// candidate is a dependency that passed the filters and the stability guard
type candidate struct {
	name    string
	current string
	preid   version.Preid
}

// Run computes the upgrade decisions and, unless this is a dry run, rewrites
// every affected manifest.
func (u *Upgrader) Run(ctx context.Context) (*models.UpgradeResult, error) {
	result := &models.UpgradeResult{DryRun: u.opts.DryRun}

	names := u.matching()
	if u.opts.Package != "" && len(names) == 0 {
		msg := fmt.Sprintf("%s is not a dependency of any workspace package", u.opts.Package)
		if suggestions := u.ws.Index.Suggest(u.opts.Package); len(suggestions) > 0 {
			msg += fmt.Sprintf("; did you mean %s?", strings.Join(suggestions, ", "))
		}
		log.Warn("%s", msg)
	}

	var candidates []candidate
	for _, name := range names {
		current, err := u.currentMax(name)
		if err != nil {
			return nil, fmt.Errorf("resolving current version of %s: %w", name, err)
		}
		preid, err := version.PreidOf(current)
		if err != nil {
			return nil, fmt.Errorf("resolving preid of %s@%s: %w", name, current, err)
		}

		if u.opts.Preid != "" && !u.opts.Force && version.IsMoreStable(preid, u.opts.Preid) {
			log.Info("More stable version for %s is already installed: %s. Skipping.", name, current)
			result.Skipped = append(result.Skipped, models.Skip{Dependency: name, Current: current, Reason: models.SkipMoreStable})
			continue
		}
		candidates = append(candidates, candidate{name: name, current: current, preid: preid})
	}

	manifests := u.fetchAll(ctx, candidates)

	for i, c := range candidates {
		pm := manifests[i]
		if pm == nil {
			result.Skipped = append(result.Skipped, models.Skip{Dependency: c.name, Current: c.current, Reason: models.SkipRegistryUnavailable})
			continue
		}

		preid := c.preid
		if u.opts.Preid != "" {
			preid = u.opts.Preid
		}
		major, hasMajor := version.MajorOf(c.current)
		target, ok := version.PickCompatible(pm.Versions, major, hasMajor, preid)
		if !ok {
			log.Debug("no published version of %s matches major %d and preid %q", c.name, major, preid)
			result.Skipped = append(result.Skipped, models.Skip{Dependency: c.name, Current: c.current, Reason: models.SkipNoCompatible})
			continue
		}

		for _, spec := range u.ws.Index.Specifiers(c.name) {
			if spec == target {
				continue
			}
			result.Decisions = append(result.Decisions, models.UpgradeDecision{
				Dependency: c.name,
				From:       spec,
				To:         target,
				Sites:      u.ws.Index.Sites(c.name, spec),
			})
		}
	}

	if result.UpToDate() || u.opts.DryRun {
		return result, nil
	}

	batch := manifest.NewBatch()
	for _, d := range result.Decisions {
		for _, site := range d.Sites {
			batch.Add(u.ws.ManifestPath(site.Location), d.Dependency, d.To)
		}
	}
	changed, err := batch.Apply()
	if err != nil {
		return nil, err
	}
	log.Debug("rewrote %d manifests", len(changed))

	result.Applied = true
	result.Reminder = fmt.Sprintf("Don't forget to run %s to regenerate the lockfile.", u.opts.LockfileCommand)
	return result, nil
}

// matching returns the indexed dependency names that pass the scope and
// package filters, in index order
func (u *Upgrader) matching() []string {
	var names []string
	for _, name := range u.ws.Index.Names() {
		if u.opts.Scope != "" && !strings.HasPrefix(name, u.opts.Scope) {
			continue
		}
		if u.opts.Package != "" && name != u.opts.Package {
			continue
		}
		names = append(names, name)
	}
	return names
}

// currentMax returns the highest specifier in use. A lone specifier is
// returned as is, so a dependency pinned to a tag can still be upgraded
// within that tag.
func (u *Upgrader) currentMax(name string) (string, error) {
	specs := u.ws.Index.Specifiers(name)
	if len(specs) == 1 {
		return specs[0], nil
	}
	return version.HighestOf(specs)
}

// fetchAll queries the registry for every candidate concurrently. A failed
// fetch leaves a nil slot and never cancels the others.
func (u *Upgrader) fetchAll(ctx context.Context, candidates []candidate) []*models.PackageManifest {
	manifests := make([]*models.PackageManifest, len(candidates))
	if len(candidates) == 0 {
		return manifests
	}

	log.Info("Querying registry for package manifests...")
	var g errgroup.Group
	g.SetLimit(u.opts.MaxConcurrent)
	for i, c := range candidates {
		g.Go(func() error {
			pm, err := u.registry.FetchManifest(ctx, c.name)
			if err != nil {
				log.Warn("Failed to get package manifest for %s: %v", c.name, err)
				return nil
			}
			manifests[i] = pm
			return nil
		})
	}
	g.Wait()
	log.Info("Done.")
	return manifests
}
