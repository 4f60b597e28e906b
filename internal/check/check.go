// Package check finds dependencies declared with inconsistent specifiers
// across a workspace and optionally rewrites the manifests to agree.
package check

import (
	"fmt"

	"github.com/dxos/version-check/internal/log"
	"github.com/dxos/version-check/internal/manifest"
	"github.com/dxos/version-check/internal/models"
	"github.com/dxos/version-check/internal/version"
	"github.com/dxos/version-check/internal/workspace"
)

// Checker audits one workspace
type Checker struct {
	ws              *workspace.Workspace
	fix             bool
	lockfileCommand string
}

// New creates a checker. With fix set, every finding is repaired in place.
func New(ws *workspace.Workspace, fix bool, lockfileCommand string) *Checker {
	if lockfileCommand == "" {
		lockfileCommand = models.DefaultConfig().LockfileCommand
	}
	return &Checker{ws: ws, fix: fix, lockfileCommand: lockfileCommand}
}

// Run checks every indexed dependency in index order
func (c *Checker) Run() (*models.CheckResult, error) {
	result := &models.CheckResult{}
	batch := manifest.NewBatch()

	for _, name := range c.ws.Index.Names() {
		groups := c.ws.Index.Groups(name)

		if pkg, ok := c.ws.Lookup(name); ok && pkg.Manifest.Version != "" {
			groups = c.checkWorkspaceVersion(name, pkg.Manifest.Version, groups, result, batch)
		}

		// A single specifier across all packages is consistent.
		if len(groups) <= 1 {
			continue
		}

		result.Findings = append(result.Findings, models.Finding{
			Kind:       models.KindMultipleSpecifiers,
			Dependency: name,
			Groups:     groups,
		})
		if !c.fix {
			continue
		}

		specs := make([]string, 0, len(groups))
		for _, g := range groups {
			specs = append(specs, g.Specifier)
		}
		top, err := version.HighestOf(specs)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", name, err)
		}

		fix := models.Fix{Kind: models.KindMultipleSpecifiers, Dependency: name, To: top}
		for _, g := range groups {
			if g.Specifier == top {
				continue
			}
			fix.Sites = append(fix.Sites, g.Sites...)
		}
		c.queue(batch, fix)
		result.Fixes = append(result.Fixes, fix)
		log.Debug("fixing %s: %d sites -> %s", name, len(fix.Sites), top)
	}

	if c.fix && batch.Len() > 0 {
		changed, err := batch.Apply()
		if err != nil {
			return nil, err
		}
		log.Debug("rewrote %d manifests", len(changed))
		result.Fixed = true
		result.Reminder = fmt.Sprintf("Don't forget to run %s to regenerate the lockfile.", c.lockfileCommand)
	}

	result.Failed = !c.fix && len(result.Findings) > 0
	return result, nil
}

// checkWorkspaceVersion flags ranges on a workspace package that exclude its
// own version. In fix mode the offending sites move to ^current and the
// returned groups reflect that rewrite.
func (c *Checker) checkWorkspaceVersion(name, current string, groups []models.SpecifierGroup, result *models.CheckResult, batch *manifest.Batch) []models.SpecifierGroup {
	target := "^" + current
	rewritten := false

	for i, g := range groups {
		if version.Classify(g.Specifier) != version.KindRange {
			continue
		}
		ok, err := version.Satisfies(current, g.Specifier)
		if err != nil {
			log.Debug("skipping workspace version check of %s@%s: %v", name, g.Specifier, err)
			continue
		}
		if ok {
			continue
		}

		result.Findings = append(result.Findings, models.Finding{
			Kind:           models.KindIncompatibleWorkspaceVersion,
			Dependency:     name,
			Groups:         []models.SpecifierGroup{g},
			CurrentVersion: current,
		})
		if !c.fix {
			continue
		}

		fix := models.Fix{Kind: models.KindIncompatibleWorkspaceVersion, Dependency: name, To: target, Sites: g.Sites}
		c.queue(batch, fix)
		result.Fixes = append(result.Fixes, fix)
		log.Debug("fixing workspace package %s: %d sites -> %s", name, len(fix.Sites), target)

		groups[i].Specifier = target
		rewritten = true
	}

	if !rewritten {
		return groups
	}
	return regroup(groups)
}

func (c *Checker) queue(batch *manifest.Batch, fix models.Fix) {
	for _, site := range fix.Sites {
		batch.Add(c.ws.ManifestPath(site.Location), fix.Dependency, fix.To)
	}
}

// regroup merges groups that now share a specifier, keeping first-seen order
func regroup(groups []models.SpecifierGroup) []models.SpecifierGroup {
	var out []models.SpecifierGroup
	pos := make(map[string]int)
	for _, g := range groups {
		if i, ok := pos[g.Specifier]; ok {
			out[i].Sites = append(out[i].Sites, g.Sites...)
			continue
		}
		pos[g.Specifier] = len(out)
		out = append(out, models.SpecifierGroup{
			Specifier: g.Specifier,
			Sites:     append([]models.DependencySite(nil), g.Sites...),
		})
	}
	return out
}
