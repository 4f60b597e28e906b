// Package merge reconciles concurrent edits to the dependency sections of a
// package.json before handing the rest of the file to a line-based merge.
package merge

import (
	"fmt"

	"github.com/dxos/version-check/internal/log"
	"github.com/dxos/version-check/internal/manifest"
	"github.com/dxos/version-check/internal/version"
)

// Change is one entry of a dependency diff: a new specifier or a removal
type Change struct {
	Specifier string
	Removed   bool
}

func (c Change) String() string {
	if c.Removed {
		return "<removed>"
	}
	return c.Specifier
}

// Diff returns the dependencies whose specifier differs between from and to
func Diff(from, to []manifest.Dependency) map[string]Change {
	toMap := asMap(to)
	fromMap := asMap(from)

	diff := make(map[string]Change)
	for _, d := range from {
		spec, ok := toMap[d.Name]
		switch {
		case !ok:
			diff[d.Name] = Change{Removed: true}
		case spec != d.Specifier:
			diff[d.Name] = Change{Specifier: spec}
		}
	}
	for _, d := range to {
		if _, ok := fromMap[d.Name]; !ok {
			diff[d.Name] = Change{Specifier: d.Specifier}
		}
	}
	return diff
}

// Resolve merges ours and theirs against their common ancestor:
//   - both sides changed a dependency: the higher specifier wins
//   - either side removed it: it is dropped
//   - one side changed it: that side wins
//
// The result lists ancestor dependencies first, then additions from ours,
// then additions from theirs.
func Resolve(ancestor, ours, theirs []manifest.Dependency) ([]manifest.Dependency, error) {
	oursDiff := Diff(ancestor, ours)
	theirsDiff := Diff(ancestor, theirs)
	base := asMap(ancestor)

	var (
		keys []string
		seen = make(map[string]bool)
	)
	for _, list := range [][]manifest.Dependency{ancestor, ours, theirs} {
		for _, d := range list {
			if seen[d.Name] {
				continue
			}
			seen[d.Name] = true
			keys = append(keys, d.Name)
		}
	}

	var out []manifest.Dependency
	for _, name := range keys {
		o, oursChanged := oursDiff[name]
		t, theirsChanged := theirsDiff[name]
		if oursChanged || theirsChanged {
			log.Info("%s: %s -> ours: %s theirs: %s", name, orNone(base, name), describe(o, oursChanged), describe(t, theirsChanged))
		}

		switch {
		case oursChanged && theirsChanged && !o.Removed && !t.Removed:
			spec := o.Specifier
			if o.Specifier != t.Specifier {
				top, err := version.HighestOf([]string{o.Specifier, t.Specifier})
				if err != nil {
					return nil, fmt.Errorf("resolving %s: %w", name, err)
				}
				spec = top
			}
			out = append(out, manifest.Dependency{Name: name, Specifier: spec})
		case (oursChanged && o.Removed) || (theirsChanged && t.Removed):
			continue
		case oursChanged:
			out = append(out, manifest.Dependency{Name: name, Specifier: o.Specifier})
		case theirsChanged:
			out = append(out, manifest.Dependency{Name: name, Specifier: t.Specifier})
		default:
			out = append(out, manifest.Dependency{Name: name, Specifier: base[name]})
		}
	}
	return out, nil
}

func asMap(deps []manifest.Dependency) map[string]string {
	m := make(map[string]string, len(deps))
	for _, d := range deps {
		m[d.Name] = d.Specifier
	}
	return m
}

func orNone(m map[string]string, name string) string {
	if spec, ok := m[name]; ok {
		return spec
	}
	return "<none>"
}

func describe(c Change, changed bool) string {
	if !changed {
		return "-"
	}
	return c.String()
}
