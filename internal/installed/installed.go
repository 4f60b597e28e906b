// Package installed walks the node_modules trees of a workspace and reports
// packages that resolved to more than one version.
package installed

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/dxos/version-check/internal/log"
	"github.com/dxos/version-check/internal/manifest"
	"github.com/dxos/version-check/internal/workspace"
)

const modulesDir = "node_modules"

// RootLabel names the tree of the workspace root's node_modules
const RootLabel = "workspace root"

// Node is one installed package
type Node struct {
	Name     string
	Version  string
	Path     string // Directory relative to the workspace root, slash separated
	Symlink  bool   // Linked package; its dependencies are not walked
	Children []*Node
}

// Tree is the installed packages of one node_modules directory
type Tree struct {
	Label string // Workspace package name, or RootLabel
	Nodes []*Node
}

// Duplicate is a package installed at several versions
type Duplicate struct {
	Name     string
	Versions []string
}

// Report is the installed state of the whole workspace
type Report struct {
	Trees []Tree
}

// Walk reads the installed packages of the workspace root and of every
// workspace package that has a node_modules directory. With a scope such as
// "@dxos" only node_modules/<scope> is read at every level.
func Walk(root string, pkgs []workspace.Package, scope string) (*Report, error) {
	w := &walker{root: root, scope: scope}

	nodes, err := w.readModules(filepath.Join(root, modulesDir))
	if err != nil {
		return nil, err
	}
	report := &Report{Trees: []Tree{{Label: RootLabel, Nodes: nodes}}}

	for _, pkg := range pkgs {
		dir := filepath.Join(root, filepath.FromSlash(pkg.Location), modulesDir)
		if _, err := os.Stat(w.scoped(dir)); err != nil {
			continue
		}
		nodes, err := w.readModules(dir)
		if err != nil {
			return nil, err
		}
		report.Trees = append(report.Trees, Tree{Label: pkg.Name, Nodes: nodes})
	}
	return report, nil
}

type walker struct {
	root  string
	scope string
}

func (w *walker) scoped(modules string) string {
	if w.scope == "" {
		return modules
	}
	return filepath.Join(modules, w.scope)
}

// readModules lists the packages installed in a node_modules directory
func (w *walker) readModules(modules string) ([]*Node, error) {
	dir := w.scoped(modules)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var nodes []*Node
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if w.scope == "" && strings.HasPrefix(name, "@") && e.IsDir() {
			scopedEntries, err := os.ReadDir(filepath.Join(dir, name))
			if err != nil {
				return nil, err
			}
			for _, se := range scopedEntries {
				node, err := w.readPackage(filepath.Join(dir, name, se.Name()), se)
				if err != nil {
					return nil, err
				}
				if node != nil {
					nodes = append(nodes, node)
				}
			}
			continue
		}

		node, err := w.readPackage(filepath.Join(dir, name), e)
		if err != nil {
			return nil, err
		}
		if node != nil {
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

// readPackage reads one installed package. Entries without a readable
// manifest are skipped.
func (w *walker) readPackage(dir string, e fs.DirEntry) (*Node, error) {
	if strings.HasPrefix(e.Name(), ".") {
		return nil, nil
	}
	symlink := e.Type()&fs.ModeSymlink != 0
	if !symlink && !e.IsDir() {
		return nil, nil
	}

	m, err := manifest.Load(filepath.Join(dir, manifest.FileName))
	if err != nil {
		log.Debug("skipping %s: %v", dir, err)
		return nil, nil
	}

	rel, err := filepath.Rel(w.root, dir)
	if err != nil {
		rel = dir
	}
	node := &Node{
		Name:    m.Name,
		Version: m.Version,
		Path:    filepath.ToSlash(rel),
		Symlink: symlink,
	}
	if symlink {
		return node, nil
	}

	children, err := w.readModules(filepath.Join(dir, modulesDir))
	if err != nil {
		return nil, err
	}
	node.Children = children
	return node, nil
}

// Versions returns the distinct installed versions of every package, sorted
// from lowest to highest
func (r *Report) Versions() map[string][]string {
	seen := make(map[string]map[string]bool)
	r.walk(func(n *Node) {
		if seen[n.Name] == nil {
			seen[n.Name] = make(map[string]bool)
		}
		seen[n.Name][n.Version] = true
	})

	versions := make(map[string][]string, len(seen))
	for name, set := range seen {
		list := make([]string, 0, len(set))
		for v := range set {
			list = append(list, v)
		}
		sortVersions(list)
		versions[name] = list
	}
	return versions
}

// Duplicates returns the packages installed at more than one version, by name
func (r *Report) Duplicates() []Duplicate {
	var dups []Duplicate
	for name, versions := range r.Versions() {
		if len(versions) > 1 {
			dups = append(dups, Duplicate{Name: name, Versions: versions})
		}
	}
	sort.Slice(dups, func(i, j int) bool { return dups[i].Name < dups[j].Name })
	return dups
}

// Filter returns a copy of the report pruned to the paths that lead to name.
// Trees with no such path are dropped.
func (r *Report) Filter(name string) *Report {
	out := &Report{}
	for _, t := range r.Trees {
		nodes := prune(t.Nodes, name)
		if len(nodes) > 0 {
			out.Trees = append(out.Trees, Tree{Label: t.Label, Nodes: nodes})
		}
	}
	return out
}

func prune(nodes []*Node, name string) []*Node {
	var out []*Node
	for _, n := range nodes {
		children := prune(n.Children, name)
		if n.Name != name && len(children) == 0 {
			continue
		}
		cp := *n
		cp.Children = children
		out = append(out, &cp)
	}
	return out
}

func (r *Report) walk(fn func(*Node)) {
	var visit func([]*Node)
	visit = func(nodes []*Node) {
		for _, n := range nodes {
			fn(n)
			visit(n.Children)
		}
	}
	for _, t := range r.Trees {
		visit(t.Nodes)
	}
}

// sortVersions orders semantic versions ascending; anything unparseable sorts
// after them, lexically
func sortVersions(list []string) {
	sort.Slice(list, func(i, j int) bool {
		a, errA := semver.NewVersion(list[i])
		b, errB := semver.NewVersion(list[j])
		switch {
		case errA == nil && errB == nil:
			return a.LessThan(b)
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return list[i] < list[j]
	})
}
