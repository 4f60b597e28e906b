package installed

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/dxos/version-check/internal/workspace"
)

func installPackage(t *testing.T, dir, name, version string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	content := `{"name": "` + name + `", "version": "` + version + `"}`
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// setup builds:
//
//	node_modules/@dxos/core@2.0.0
//	node_modules/@dxos/client@1.0.0 -> node_modules/@dxos/core@1.10.0
//	node_modules/lodash@4.17.21
//	node_modules/.bin
//	packages/app/node_modules/@dxos/core@1.9.0
//	packages/app/node_modules/@dxos/app -> symlink to packages/app
func setup(t *testing.T) (string, []workspace.Package) {
	t.Helper()
	root := t.TempDir()
	nm := filepath.Join(root, "node_modules")
	installPackage(t, filepath.Join(nm, "@dxos", "core"), "@dxos/core", "2.0.0")
	installPackage(t, filepath.Join(nm, "@dxos", "client"), "@dxos/client", "1.0.0")
	installPackage(t, filepath.Join(nm, "@dxos", "client", "node_modules", "@dxos", "core"), "@dxos/core", "1.10.0")
	installPackage(t, filepath.Join(nm, "lodash"), "lodash", "4.17.21")
	if err := os.MkdirAll(filepath.Join(nm, ".bin"), 0755); err != nil {
		t.Fatal(err)
	}

	app := filepath.Join(root, "packages", "app")
	installPackage(t, app, "@dxos/app", "0.1.0")
	installPackage(t, filepath.Join(app, "node_modules", "@dxos", "core"), "@dxos/core", "1.9.0")
	if err := os.Symlink(app, filepath.Join(app, "node_modules", "@dxos", "app")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	installPackage(t, filepath.Join(root, "packages", "empty"), "@dxos/empty", "0.1.0")

	return root, []workspace.Package{
		{Name: "@dxos/app", Location: "packages/app"},
		{Name: "@dxos/empty", Location: "packages/empty"},
	}
}

func names(nodes []*Node) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Name+"@"+n.Version)
	}
	return out
}

func TestWalk(t *testing.T) {
	t.Parallel()
	root, pkgs := setup(t)

	report, err := Walk(root, pkgs, "")
	if err != nil {
		t.Fatalf("Walk error: %v", err)
	}
	if len(report.Trees) != 2 {
		t.Fatalf("trees = %d; want root and @dxos/app", len(report.Trees))
	}

	rootTree := report.Trees[0]
	if rootTree.Label != RootLabel {
		t.Errorf("first tree = %q; want %q", rootTree.Label, RootLabel)
	}
	want := []string{"@dxos/client@1.0.0", "@dxos/core@2.0.0", "lodash@4.17.21"}
	if got := names(rootTree.Nodes); !reflect.DeepEqual(got, want) {
		t.Errorf("root nodes = %v; want %v", got, want)
	}
	client := rootTree.Nodes[0]
	if got := names(client.Children); !reflect.DeepEqual(got, []string{"@dxos/core@1.10.0"}) {
		t.Errorf("client children = %v", got)
	}
	if client.Children[0].Path != "node_modules/@dxos/client/node_modules/@dxos/core" {
		t.Errorf("nested path = %q", client.Children[0].Path)
	}

	appTree := report.Trees[1]
	if appTree.Label != "@dxos/app" {
		t.Errorf("second tree = %q", appTree.Label)
	}
	var link *Node
	for _, n := range appTree.Nodes {
		if n.Name == "@dxos/app" {
			link = n
		}
	}
	if link == nil || !link.Symlink || len(link.Children) != 0 {
		t.Errorf("symlinked package = %+v; want recorded but not walked", link)
	}
}

func TestWalk_scope(t *testing.T) {
	t.Parallel()
	root, pkgs := setup(t)

	report, err := Walk(root, pkgs, "@dxos")
	if err != nil {
		t.Fatalf("Walk error: %v", err)
	}
	for _, n := range report.Trees[0].Nodes {
		if n.Name == "lodash" {
			t.Error("scoped walk included lodash")
		}
	}
	if len(report.Trees[0].Nodes[0].Children) != 1 {
		t.Errorf("scoped walk lost nested scoped package")
	}
}

func TestReport_Duplicates(t *testing.T) {
	t.Parallel()
	root, pkgs := setup(t)
	report, err := Walk(root, pkgs, "")
	if err != nil {
		t.Fatal(err)
	}

	dups := report.Duplicates()
	want := []Duplicate{{Name: "@dxos/core", Versions: []string{"1.9.0", "1.10.0", "2.0.0"}}}
	if !reflect.DeepEqual(dups, want) {
		t.Errorf("Duplicates = %+v; want %+v", dups, want)
	}
	if got := report.Versions()["lodash"]; len(got) != 1 {
		t.Errorf("Versions[lodash] = %v; want a single version", got)
	}
}

func TestReport_Filter(t *testing.T) {
	t.Parallel()
	root, pkgs := setup(t)
	report, err := Walk(root, pkgs, "")
	if err != nil {
		t.Fatal(err)
	}

	filtered := report.Filter("@dxos/core")
	if len(filtered.Trees) != 2 {
		t.Fatalf("filtered trees = %d; want 2", len(filtered.Trees))
	}
	want := []string{"@dxos/client@1.0.0", "@dxos/core@2.0.0"}
	if got := names(filtered.Trees[0].Nodes); !reflect.DeepEqual(got, want) {
		t.Errorf("filtered root = %v; want %v", got, want)
	}
	if len(report.Trees[0].Nodes) != 3 {
		t.Error("Filter modified the original report")
	}

	if got := report.Filter("lodash"); len(got.Trees) != 1 || len(got.Trees[0].Nodes) != 1 {
		t.Errorf("Filter(lodash) = %+v", got)
	}
	if got := report.Filter("missing"); len(got.Trees) != 0 {
		t.Errorf("Filter(missing) kept %d trees", len(got.Trees))
	}
}
