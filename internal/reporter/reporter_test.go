package reporter

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dxos/version-check/internal/installed"
	"github.com/dxos/version-check/internal/models"
)

func site(pkg, spec string) models.DependencySite {
	return models.DependencySite{Dependency: "lib", Package: pkg, Location: "packages/" + pkg, Specifier: spec, Section: models.SectionDependencies}
}

func checkResult() *models.CheckResult {
	return &models.CheckResult{
		Findings: []models.Finding{
			{
				Kind:       models.KindMultipleSpecifiers,
				Dependency: "lib",
				Groups: []models.SpecifierGroup{
					{Specifier: "^1.0.0", Sites: []models.DependencySite{site("p", "^1.0.0"), site("q", "^1.0.0")}},
					{Specifier: "^2.0.0", Sites: []models.DependencySite{site("r", "^2.0.0")}},
				},
			},
		},
		Failed: true,
	}
}

func upgradeResult() *models.UpgradeResult {
	return &models.UpgradeResult{
		Decisions: []models.UpgradeDecision{
			{Dependency: "lib", From: "^1.0.0", To: "1.5.3", Sites: []models.DependencySite{site("p", "^1.0.0")}},
		},
		Skipped: []models.Skip{{Dependency: "beta-lib", Current: "^1.0.0", Reason: models.SkipMoreStable}},
		DryRun:  true,
	}
}

func installedReport() *installed.Report {
	return &installed.Report{Trees: []installed.Tree{
		{Label: installed.RootLabel, Nodes: []*installed.Node{
			{Name: "a", Version: "1.0.0", Path: "node_modules/a", Children: []*installed.Node{
				{Name: "b", Version: "1.0.0", Path: "node_modules/a/node_modules/b"},
			}},
			{Name: "b", Version: "2.0.0", Path: "node_modules/b"},
		}},
	}}
}

func TestGet(t *testing.T) {
	t.Parallel()
	tests := []struct {
		format string
		want   string
	}{
		{"json", "*reporter.JSONReporter"},
		{"sarif", "*reporter.SARIFReporter"},
		{"terminal", "*reporter.TerminalReporter"},
		{"", "*reporter.TerminalReporter"},
	}
	for _, tt := range tests {
		if got := fmt.Sprintf("%T", Get(tt.format, false)); got != tt.want {
			t.Errorf("Get(%q) = %s; want %s", tt.format, got, tt.want)
		}
	}
}

func TestTerminal_Check(t *testing.T) {
	t.Parallel()
	root := filepath.FromSlash("/work/repo")
	out, err := NewTerminalReporter(false).Check(root, checkResult())
	if err != nil {
		t.Fatal(err)
	}
	text := string(out)
	for _, want := range []string{
		"Found multiple different version specifiers of lib in the workspace:",
		"\t ^1.0.0 in " + filepath.Join(root, "packages", "p", "package.json"),
		"\t ^2.0.0 in " + filepath.Join(root, "packages", "r", "package.json"),
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}

	fixed := &models.CheckResult{
		Findings: checkResult().Findings,
		Fixes:    []models.Fix{{Kind: models.KindMultipleSpecifiers, Dependency: "lib", To: "^2.0.0"}},
		Fixed:    true,
		Reminder: "Don't forget to run yarn to regenerate the lockfile.",
	}
	out, err = NewTerminalReporter(false).Check(root, fixed)
	if err != nil {
		t.Fatal(err)
	}
	text = string(out)
	if !strings.Contains(text, "Updating all versions of lib to ^2.0.0") || !strings.Contains(text, "Don't forget to run yarn to regenerate the lockfile.") {
		t.Errorf("fix output =\n%s", text)
	}
	if strings.Contains(text, "Found multiple") {
		t.Errorf("fix output repeats findings:\n%s", text)
	}
}

func TestTerminal_Upgrade(t *testing.T) {
	t.Parallel()
	out, err := NewTerminalReporter(false).Upgrade(upgradeResult())
	if err != nil {
		t.Fatal(err)
	}
	text := string(out)
	for _, want := range []string{
		"Some packages were skipped. Run with --force to apply updates to those.",
		"\tlib ^1.0.0 -> 1.5.3",
		"Dry-run: no changes will be applied.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}

	out, _ = NewTerminalReporter(false).Upgrade(&models.UpgradeResult{})
	if !strings.Contains(string(out), "All packages are up-to-date.") {
		t.Errorf("up-to-date output = %q", out)
	}
}

func TestTerminal_Installed(t *testing.T) {
	t.Parallel()
	out, err := NewTerminalReporter(false).Installed(installedReport())
	if err != nil {
		t.Fatal(err)
	}
	want := "workspace root\n" +
		"├─ a@1.0.0\n" +
		"│  └─ b@1.0.0\n" +
		"└─ b@2.0.0\n" +
		"\n" +
		"Duplicates found:\n" +
		"  b:\n" +
		"    1.0.0\n" +
		"    2.0.0\n"
	if string(out) != want {
		t.Errorf("output =\n%s\nwant\n%s", out, want)
	}
}

func TestJSON(t *testing.T) {
	t.Parallel()
	r := &JSONReporter{}

	out, err := r.Check("/repo", checkResult())
	if err != nil {
		t.Fatal(err)
	}
	var check jsonCheckOutput
	if err := json.Unmarshal(out, &check); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !check.Summary.Failed || len(check.Findings) != 1 || check.Findings[0].Specifiers[0].Sites[1].Manifest != "packages/q/package.json" {
		t.Errorf("check output = %+v", check)
	}

	out, err = r.Upgrade(upgradeResult())
	if err != nil {
		t.Fatal(err)
	}
	var upgrade jsonUpgradeOutput
	if err := json.Unmarshal(out, &upgrade); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !upgrade.DryRun || upgrade.Decisions[0].To != "1.5.3" || upgrade.Skipped[0].Reason != "more-stable-installed" {
		t.Errorf("upgrade output = %+v", upgrade)
	}

	out, err = r.Installed(installedReport())
	if err != nil {
		t.Fatal(err)
	}
	var inst jsonInstalledOutput
	if err := json.Unmarshal(out, &inst); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(inst.Duplicates) != 1 || inst.Trees[0].Packages[0].Dependencies[0].Name != "b" {
		t.Errorf("installed output = %+v", inst)
	}
}

func TestSARIF(t *testing.T) {
	t.Parallel()
	r := &SARIFReporter{}

	out, err := r.Check("/repo", checkResult())
	if err != nil {
		t.Fatal(err)
	}
	var report sarifReport
	if err := json.Unmarshal(out, &report); err != nil {
		t.Fatalf("invalid SARIF: %v", err)
	}
	results := report.Runs[0].Results
	if len(results) != 3 {
		t.Fatalf("results = %d; want one per site", len(results))
	}
	if results[0].RuleID != "multiple-specifiers" || results[0].RuleIndex != 0 || results[0].Level != "error" {
		t.Errorf("result = %+v", results[0])
	}
	if uri := results[2].Locations[0].PhysicalLocation.ArtifactLocation.URI; uri != "packages/r/package.json" {
		t.Errorf("uri = %q", uri)
	}

	out, err = r.Installed(installedReport())
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(out, &report); err != nil {
		t.Fatalf("invalid SARIF: %v", err)
	}
	if n := len(report.Runs[0].Results); n != 2 {
		t.Errorf("duplicate results = %d; want 2", n)
	}

	out, err = r.Upgrade(&models.UpgradeResult{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `"results": []`) {
		t.Errorf("empty upgrade SARIF should carry an empty results array:\n%s", out)
	}
}
