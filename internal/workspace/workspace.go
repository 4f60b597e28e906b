// Package workspace discovers the packages of a yarn, npm or pnpm workspace
// and indexes their declared dependencies.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dxos/version-check/internal/log"
	"github.com/dxos/version-check/internal/manifest"
)

// ErrNoWorkspace is returned when no workspace root is found above a directory.
var ErrNoWorkspace = errors.New("cannot find workspace root")

// Workspace is the per-invocation view of the workspace tree.
type Workspace struct {
	Root     string
	Provider string
	Packages []Package
	Index    *Index
}

// ManifestPath returns the absolute manifest path of a package location.
func (w *Workspace) ManifestPath(location string) string {
	return filepath.Join(w.Root, filepath.FromSlash(location), manifest.FileName)
}

// Lookup returns the workspace package called name.
func (w *Workspace) Lookup(name string) (Package, bool) {
	for _, p := range w.Packages {
		if p.Name == name {
			return p, true
		}
	}
	return Package{}, false
}

// Locations returns the package directories in workspace order.
func (w *Workspace) Locations() []string {
	locs := make([]string, 0, len(w.Packages))
	for _, p := range w.Packages {
		locs = append(locs, p.Location)
	}
	return locs
}

// FindRoot walks up from dir to the first directory that declares a
// workspace, either through a "workspaces" field or a pnpm-workspace.yaml.
func FindRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for {
		if isWorkspaceRoot(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoWorkspace
		}
		dir = parent
	}
}

func isWorkspaceRoot(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, pnpmWorkspaceFile)); err == nil {
		return true
	}
	m, err := manifest.Load(filepath.Join(dir, manifest.FileName))
	if err != nil {
		return false
	}
	_, ok := m.Raw("workspaces")
	return ok
}

// Load discovers the workspace packages under root with the named provider
// ("auto" picks the first provider that detects the layout) and indexes them.
func Load(ctx context.Context, root, providerName string) (*Workspace, error) {
	provider, err := selectProvider(root, providerName)
	if err != nil {
		return nil, err
	}

	pkgs, err := provider.Packages(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("listing %s workspace packages: %w", provider.Name(), err)
	}
	log.Debug("found %d workspace packages with %s provider", len(pkgs), provider.Name())

	return &Workspace{
		Root:     root,
		Provider: provider.Name(),
		Packages: pkgs,
		Index:    BuildIndex(pkgs),
	}, nil
}

func selectProvider(root, name string) (Provider, error) {
	for _, p := range GetAllProviders() {
		if name == "" || name == "auto" {
			if p.Detect(root) {
				return p, nil
			}
			continue
		}
		if p.Name() == name {
			return p, nil
		}
	}
	if name == "" || name == "auto" {
		return nil, fmt.Errorf("%w: no provider recognizes %s", ErrNoWorkspace, root)
	}
	return nil, fmt.Errorf("unknown workspace provider %q", name)
}

// loadPackages reads the manifests of the given relative package directories.
func loadPackages(root string, dirs []string) ([]Package, error) {
	pkgs := make([]Package, 0, len(dirs))
	for _, dir := range dirs {
		path := filepath.Join(root, filepath.FromSlash(dir), manifest.FileName)
		m, err := manifest.Load(path)
		if err != nil {
			return nil, err
		}
		if m.Name == "" {
			log.Warn("skipping %s: manifest has no name", path)
			continue
		}
		pkgs = append(pkgs, Package{Name: m.Name, Location: filepath.ToSlash(dir), Manifest: m})
	}
	return pkgs, nil
}
