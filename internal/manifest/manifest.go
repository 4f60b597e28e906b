// Package manifest reads and writes package.json files.
//
// A Manifest exposes the fields this tool cares about (name, version and the
// dependency sections) as typed values, and keeps every other top-level field
// as raw JSON so a rewrite only touches the sections that actually changed.
// Field order is preserved and HTML characters are not escaped, so the output
// matches what JSON.stringify(manifest, null, 2) would produce.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dxos/version-check/internal/models"
	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"
)

// FileName is the manifest file inside every package directory.
const FileName = "package.json"

// Sections lists the dependency sections in manifest order.
var Sections = []string{
	models.SectionDependencies,
	models.SectionDevDependencies,
	models.SectionPeerDependencies,
	models.SectionOptionalDependencies,
}

// Dependency is one name/specifier entry of a dependency section.
type Dependency struct {
	Name      string
	Specifier string
}

type field struct {
	key string
	raw []byte
}

// Manifest is a parsed package.json.
type Manifest struct {
	Name    string
	Version string

	fields   []field
	sections map[string][]Dependency
	dirty    map[string]bool
}

// Parse decodes and validates manifest content.
func Parse(data []byte) (*Manifest, error) {
	m := &Manifest{
		sections: make(map[string][]Dependency),
		dirty:    make(map[string]bool),
	}

	l := &jlexer.Lexer{Data: data}
	l.Delim('{')
	for !l.IsDelim('}') {
		key := l.String()
		l.WantColon()
		raw := l.Raw()
		l.WantComma()
		if !l.Ok() {
			break
		}
		m.fields = append(m.fields, field{key: key, raw: raw})
	}
	l.Delim('}')
	l.Consumed()
	if err := l.Error(); err != nil {
		return nil, err
	}

	for _, f := range m.fields {
		var err error
		switch f.key {
		case "name":
			m.Name, err = decodeString(f.raw)
		case "version":
			m.Version, err = decodeString(f.raw)
		case models.SectionDependencies, models.SectionDevDependencies,
			models.SectionPeerDependencies, models.SectionOptionalDependencies:
			m.sections[f.key], err = decodeSection(f.raw)
		}
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.key, err)
		}
	}
	return m, nil
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, &MalformedError{Path: path, Err: err}
	}
	return m, nil
}

// Save writes the manifest to path.
func Save(path string, m *Manifest) error {
	data, err := m.Encode()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0644)
}

// Raw returns the undecoded JSON of a top-level field.
func (m *Manifest) Raw(key string) ([]byte, bool) {
	for _, f := range m.fields {
		if f.key == key {
			return f.raw, true
		}
	}
	return nil, false
}

// HasSection reports whether the manifest declares the section at all.
func (m *Manifest) HasSection(section string) bool {
	_, ok := m.Raw(section)
	return ok
}

// Section returns a copy of a dependency section in manifest order.
func (m *Manifest) Section(section string) []Dependency {
	return append([]Dependency(nil), m.sections[section]...)
}

// Get returns the specifier of dep in section.
func (m *Manifest) Get(section, dep string) (string, bool) {
	for _, d := range m.sections[section] {
		if d.Name == dep {
			return d.Specifier, true
		}
	}
	return "", false
}

// Set rewrites the specifier of an existing dep in section. It reports
// whether anything changed; missing entries are not added.
func (m *Manifest) Set(section, dep, spec string) bool {
	changed := false
	deps := m.sections[section]
	for i := range deps {
		if deps[i].Name == dep && deps[i].Specifier != spec {
			deps[i].Specifier = spec
			changed = true
		}
	}
	if changed {
		m.dirty[section] = true
	}
	return changed
}

// ReplaceSection swaps a whole dependency section, appending the field when
// the manifest did not have it.
func (m *Manifest) ReplaceSection(section string, deps []Dependency) {
	if !m.HasSection(section) {
		m.fields = append(m.fields, field{key: section})
	}
	m.sections[section] = append([]Dependency{}, deps...)
	m.dirty[section] = true
}

// Encode renders the manifest with two-space indentation and a trailing newline.
func (m *Manifest) Encode() ([]byte, error) {
	w := jwriter.Writer{NoEscapeHTML: true}
	w.RawByte('{')
	for i, f := range m.fields {
		if i > 0 {
			w.RawByte(',')
		}
		w.String(f.key)
		w.RawByte(':')
		if m.dirty[f.key] {
			writeSection(&w, m.sections[f.key])
			continue
		}
		w.Raw(f.raw, nil)
	}
	w.RawByte('}')

	compact, err := w.BuildBytes()
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func writeSection(w *jwriter.Writer, deps []Dependency) {
	w.RawByte('{')
	for i, d := range deps {
		if i > 0 {
			w.RawByte(',')
		}
		w.String(d.Name)
		w.RawByte(':')
		w.String(d.Specifier)
	}
	w.RawByte('}')
}

func decodeString(raw []byte) (string, error) {
	l := jlexer.Lexer{Data: raw}
	s := l.String()
	l.Consumed()
	return s, l.Error()
}

func decodeSection(raw []byte) ([]Dependency, error) {
	l := jlexer.Lexer{Data: raw}
	if l.IsNull() {
		l.Skip()
		l.Consumed()
		return nil, l.Error()
	}

	var deps []Dependency
	l.Delim('{')
	for !l.IsDelim('}') {
		name := l.String()
		l.WantColon()
		spec := l.String()
		l.WantComma()
		if !l.Ok() {
			break
		}
		deps = append(deps, Dependency{Name: name, Specifier: spec})
	}
	l.Delim('}')
	l.Consumed()
	if err := l.Error(); err != nil {
		return nil, err
	}
	return deps, nil
}
