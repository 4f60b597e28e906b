package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sample = `{
  "name": "@dxos/echo",
  "version": "1.2.0",
  "description": "Echo <database> & friends",
  "main": "dist/index.js",
  "dependencies": {
    "zeta": "^1.0.0",
    "alpha": "~2.1.0"
  },
  "devDependencies": {
    "typescript": "^4.1.0"
  },
  "scripts": {
    "build": "tsc"
  }
}
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParse(t *testing.T) {
	t.Parallel()
	m, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if m.Name != "@dxos/echo" {
		t.Errorf("Name = %q; want %q", m.Name, "@dxos/echo")
	}
	if m.Version != "1.2.0" {
		t.Errorf("Version = %q; want %q", m.Version, "1.2.0")
	}

	deps := m.Section("dependencies")
	if len(deps) != 2 || deps[0].Name != "zeta" || deps[1].Name != "alpha" {
		t.Errorf("dependencies = %v; want zeta, alpha in file order", deps)
	}
	if spec, ok := m.Get("devDependencies", "typescript"); !ok || spec != "^4.1.0" {
		t.Errorf("Get(devDependencies, typescript) = (%q, %v)", spec, ok)
	}
	if m.HasSection("peerDependencies") {
		t.Error("HasSection(peerDependencies) = true; want false")
	}
}

func TestParse_malformed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
	}{
		{"not json", `{"name": `},
		{"array", `[1, 2]`},
		{"numeric name", `{"name": 3}`},
		{"numeric specifier", `{"name": "a", "dependencies": {"b": 1}}`},
		{"section is a list", `{"name": "a", "devDependencies": ["b"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.content)); err == nil {
				t.Errorf("Parse(%s) succeeded; want error", tt.content)
			}
		})
	}
}

func TestEncode_unchangedRoundTrip(t *testing.T) {
	t.Parallel()
	m, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	out, err := m.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != sample {
		t.Errorf("Encode changed an untouched manifest:\n%s", out)
	}
}

func TestChangeVersion(t *testing.T) {
	t.Parallel()
	path := writeManifest(t, sample)

	changed, err := ChangeVersion(path, "alpha", "~2.3.0")
	if err != nil {
		t.Fatalf("ChangeVersion error: %v", err)
	}
	if !changed {
		t.Fatal("ChangeVersion reported no change")
	}

	data, _ := os.ReadFile(path)
	out := string(data)
	if !strings.Contains(out, `"alpha": "~2.3.0"`) {
		t.Errorf("alpha not rewritten:\n%s", out)
	}
	if strings.Index(out, `"zeta"`) > strings.Index(out, `"alpha"`) {
		t.Errorf("dependency order not preserved:\n%s", out)
	}
	if strings.Index(out, `"main"`) > strings.Index(out, `"dependencies"`) {
		t.Errorf("field order not preserved:\n%s", out)
	}
	if !strings.Contains(out, "Echo <database> & friends") {
		t.Errorf("HTML characters escaped:\n%s", out)
	}
	if !strings.HasSuffix(out, "}\n") {
		t.Errorf("missing trailing newline: %q", out[len(out)-3:])
	}
}

func TestChangeVersion_devDependencies(t *testing.T) {
	t.Parallel()
	path := writeManifest(t, sample)

	if _, err := ChangeVersion(path, "typescript", "^4.2.0"); err != nil {
		t.Fatal(err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if spec, _ := m.Get("devDependencies", "typescript"); spec != "^4.2.0" {
		t.Errorf("typescript = %q; want ^4.2.0", spec)
	}
}

func TestChangeVersion_noopDoesNotWrite(t *testing.T) {
	t.Parallel()
	path := writeManifest(t, sample)
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	for _, dep := range []string{"zeta", "missing"} {
		spec := "^1.0.0"
		changed, err := ChangeVersion(path, dep, spec)
		if err != nil {
			t.Fatal(err)
		}
		if changed {
			t.Errorf("ChangeVersion(%s, %s) reported a change", dep, spec)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(old) {
		t.Error("file rewritten although nothing changed")
	}
}

func TestLoad_errors(t *testing.T) {
	t.Parallel()
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Load of missing file succeeded")
	}

	path := writeManifest(t, `{"name": "x", "dependencies": 12}`)
	_, err := Load(path)
	var malformed *MalformedError
	if !errors.As(err, &malformed) {
		t.Fatalf("error = %v; want *MalformedError", err)
	}
	if malformed.Path != path {
		t.Errorf("Path = %q; want %q", malformed.Path, path)
	}
}

func TestBatch_writesEachFileOnce(t *testing.T) {
	t.Parallel()
	a := writeManifest(t, sample)
	b := writeManifest(t, `{"name": "other", "dependencies": {"zeta": "^0.9.0"}}`)

	batch := NewBatch()
	batch.Add(a, "zeta", "^1.1.0")
	batch.Add(a, "alpha", "~2.2.0")
	batch.Add(b, "zeta", "^1.1.0")
	if batch.Len() != 3 {
		t.Errorf("Len = %d; want 3", batch.Len())
	}

	changed, err := batch.Apply()
	if err != nil {
		t.Fatal(err)
	}
	if len(changed) != 2 || changed[0] != a || changed[1] != b {
		t.Errorf("changed = %v; want [%s %s]", changed, a, b)
	}

	m, _ := Load(a)
	if spec, _ := m.Get("dependencies", "zeta"); spec != "^1.1.0" {
		t.Errorf("zeta = %q; want ^1.1.0", spec)
	}
	if spec, _ := m.Get("dependencies", "alpha"); spec != "~2.2.0" {
		t.Errorf("alpha = %q; want ~2.2.0", spec)
	}

	data, _ := os.ReadFile(b)
	want := "{\n  \"name\": \"other\",\n  \"dependencies\": {\n    \"zeta\": \"^1.1.0\"\n  }\n}\n"
	if string(data) != want {
		t.Errorf("compact manifest re-rendered as\n%s\nwant\n%s", data, want)
	}
}

func TestReplaceSection(t *testing.T) {
	t.Parallel()
	m, err := Parse([]byte(`{"name": "a", "dependencies": {"x": "^1.0.0"}}`))
	if err != nil {
		t.Fatal(err)
	}
	m.ReplaceSection("dependencies", nil)
	m.ReplaceSection("peerDependencies", []Dependency{{Name: "react", Specifier: "^17.0.0"}})

	out, err := m.Encode()
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"name\": \"a\",\n  \"dependencies\": {},\n  \"peerDependencies\": {\n    \"react\": \"^17.0.0\"\n  }\n}\n"
	if string(out) != want {
		t.Errorf("Encode =\n%s\nwant\n%s", out, want)
	}
}
