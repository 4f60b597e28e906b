package workspace

import (
	"github.com/dxos/version-check/internal/manifest"
	"github.com/dxos/version-check/internal/models"
	"github.com/sahilm/fuzzy"
)

// indexedSections are the manifest sections that take part in consistency
// checks and upgrades.
var indexedSections = []string{models.SectionDependencies, models.SectionDevDependencies}

// Index maps dependency name -> specifier -> sites. Names and specifiers keep
// the order in which they were first seen.
type Index struct {
	names   []string
	entries map[string]*entry
}

type entry struct {
	specifiers []string
	sites      map[string][]models.DependencySite
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{entries: make(map[string]*entry)}
}

// BuildIndex records every dependency and devDependency of every package,
// in package order.
func BuildIndex(pkgs []Package) *Index {
	idx := NewIndex()
	for _, pkg := range pkgs {
		for _, section := range indexedSections {
			for _, dep := range pkg.Manifest.Section(section) {
				idx.Add(models.DependencySite{
					Dependency: dep.Name,
					Package:    pkg.Name,
					Location:   pkg.Location,
					Specifier:  dep.Specifier,
					Section:    section,
				})
			}
		}
	}
	return idx
}

// Add appends a site under its dependency and specifier.
func (i *Index) Add(site models.DependencySite) {
	e, ok := i.entries[site.Dependency]
	if !ok {
		e = &entry{sites: make(map[string][]models.DependencySite)}
		i.entries[site.Dependency] = e
		i.names = append(i.names, site.Dependency)
	}
	if _, ok := e.sites[site.Specifier]; !ok {
		e.specifiers = append(e.specifiers, site.Specifier)
	}
	e.sites[site.Specifier] = append(e.sites[site.Specifier], site)
}

// Names returns every indexed dependency name.
func (i *Index) Names() []string {
	return append([]string(nil), i.names...)
}

// Has reports whether name is declared anywhere in the workspace.
func (i *Index) Has(name string) bool {
	_, ok := i.entries[name]
	return ok
}

// Specifiers returns the distinct specifiers used for name.
func (i *Index) Specifiers(name string) []string {
	e, ok := i.entries[name]
	if !ok {
		return nil
	}
	return append([]string(nil), e.specifiers...)
}

// Sites returns the sites declaring name with exactly spec.
func (i *Index) Sites(name, spec string) []models.DependencySite {
	e, ok := i.entries[name]
	if !ok {
		return nil
	}
	return append([]models.DependencySite(nil), e.sites[spec]...)
}

// AllSites returns every site of name grouped by specifier order.
func (i *Index) AllSites(name string) []models.DependencySite {
	var sites []models.DependencySite
	for _, spec := range i.Specifiers(name) {
		sites = append(sites, i.Sites(name, spec)...)
	}
	return sites
}

// Groups returns the specifier groups of name.
func (i *Index) Groups(name string) []models.SpecifierGroup {
	var groups []models.SpecifierGroup
	for _, spec := range i.Specifiers(name) {
		groups = append(groups, models.SpecifierGroup{Specifier: spec, Sites: i.Sites(name, spec)})
	}
	return groups
}

// Suggest returns up to three indexed names that fuzzily match name.
func (i *Index) Suggest(name string) []string {
	var out []string
	for _, m := range fuzzy.Find(name, i.names) {
		out = append(out, m.Str)
		if len(out) == 3 {
			break
		}
	}
	return out
}

// Package is a workspace member.
type Package struct {
	Name     string
	Location string // Directory relative to the workspace root, slash separated
	Manifest *manifest.Manifest
}
