package reporter

import (
	"encoding/json"

	"github.com/dxos/version-check/internal/installed"
	"github.com/dxos/version-check/internal/models"
)

// JSONReporter outputs results in JSON format
type JSONReporter struct{}

type jsonCheckOutput struct {
	Summary  jsonCheckSummary `json:"summary"`
	Findings []jsonFinding    `json:"findings"`
	Fixes    []jsonFix        `json:"fixes"`
	Reminder string           `json:"reminder,omitempty"`
}

type jsonCheckSummary struct {
	TotalFindings int  `json:"total_findings"`
	Fixed         bool `json:"fixed"`
	Failed        bool `json:"failed"`
}

type jsonFinding struct {
	Kind           string      `json:"kind"`
	Dependency     string      `json:"dependency"`
	CurrentVersion string      `json:"current_version,omitempty"`
	Specifiers     []jsonGroup `json:"specifiers"`
}

type jsonGroup struct {
	Specifier string     `json:"specifier"`
	Sites     []jsonSite `json:"sites"`
}

type jsonSite struct {
	Package  string `json:"package"`
	Manifest string `json:"manifest"`
	Section  string `json:"section"`
}

type jsonFix struct {
	Kind       string     `json:"kind"`
	Dependency string     `json:"dependency"`
	To         string     `json:"to"`
	Sites      []jsonSite `json:"sites"`
}

type jsonUpgradeOutput struct {
	DryRun    bool           `json:"dry_run"`
	Applied   bool           `json:"applied"`
	UpToDate  bool           `json:"up_to_date"`
	Decisions []jsonDecision `json:"decisions"`
	Skipped   []jsonSkip     `json:"skipped"`
	Reminder  string         `json:"reminder,omitempty"`
}

type jsonDecision struct {
	Dependency string     `json:"dependency"`
	From       string     `json:"from"`
	To         string     `json:"to"`
	Sites      []jsonSite `json:"sites"`
}

type jsonSkip struct {
	Dependency string `json:"dependency"`
	Current    string `json:"current"`
	Reason     string `json:"reason"`
}

type jsonInstalledOutput struct {
	Trees      []jsonTree      `json:"trees"`
	Duplicates []jsonDuplicate `json:"duplicates"`
}

type jsonTree struct {
	Label    string     `json:"label"`
	Packages []jsonNode `json:"packages"`
}

type jsonNode struct {
	Name         string     `json:"name"`
	Version      string     `json:"version"`
	Path         string     `json:"path"`
	Symlink      bool       `json:"symlink,omitempty"`
	Dependencies []jsonNode `json:"dependencies,omitempty"`
}

type jsonDuplicate struct {
	Name     string   `json:"name"`
	Versions []string `json:"versions"`
}

// Check generates JSON output for a check or fix run
func (r *JSONReporter) Check(_ string, result *models.CheckResult) ([]byte, error) {
	output := jsonCheckOutput{
		Summary: jsonCheckSummary{
			TotalFindings: len(result.Findings),
			Fixed:         result.Fixed,
			Failed:        result.Failed,
		},
		Findings: make([]jsonFinding, 0, len(result.Findings)),
		Fixes:    make([]jsonFix, 0, len(result.Fixes)),
		Reminder: result.Reminder,
	}

	for _, f := range result.Findings {
		jf := jsonFinding{
			Kind:           string(f.Kind),
			Dependency:     f.Dependency,
			CurrentVersion: f.CurrentVersion,
			Specifiers:     make([]jsonGroup, 0, len(f.Groups)),
		}
		for _, g := range f.Groups {
			jf.Specifiers = append(jf.Specifiers, jsonGroup{Specifier: g.Specifier, Sites: toJSONSites(g.Sites)})
		}
		output.Findings = append(output.Findings, jf)
	}
	for _, f := range result.Fixes {
		output.Fixes = append(output.Fixes, jsonFix{
			Kind:       string(f.Kind),
			Dependency: f.Dependency,
			To:         f.To,
			Sites:      toJSONSites(f.Sites),
		})
	}

	return json.MarshalIndent(output, "", "  ")
}

// Upgrade generates JSON output for an upgrade run
func (r *JSONReporter) Upgrade(result *models.UpgradeResult) ([]byte, error) {
	output := jsonUpgradeOutput{
		DryRun:    result.DryRun,
		Applied:   result.Applied,
		UpToDate:  result.UpToDate(),
		Decisions: make([]jsonDecision, 0, len(result.Decisions)),
		Skipped:   make([]jsonSkip, 0, len(result.Skipped)),
		Reminder:  result.Reminder,
	}
	for _, d := range result.Decisions {
		output.Decisions = append(output.Decisions, jsonDecision{
			Dependency: d.Dependency,
			From:       d.From,
			To:         d.To,
			Sites:      toJSONSites(d.Sites),
		})
	}
	for _, s := range result.Skipped {
		output.Skipped = append(output.Skipped, jsonSkip{Dependency: s.Dependency, Current: s.Current, Reason: string(s.Reason)})
	}

	return json.MarshalIndent(output, "", "  ")
}

// Installed generates JSON output for the installed module trees
func (r *JSONReporter) Installed(report *installed.Report) ([]byte, error) {
	output := jsonInstalledOutput{
		Trees:      make([]jsonTree, 0, len(report.Trees)),
		Duplicates: make([]jsonDuplicate, 0),
	}
	for _, t := range report.Trees {
		output.Trees = append(output.Trees, jsonTree{Label: t.Label, Packages: toJSONNodes(t.Nodes)})
	}
	for _, d := range report.Duplicates() {
		output.Duplicates = append(output.Duplicates, jsonDuplicate{Name: d.Name, Versions: d.Versions})
	}

	return json.MarshalIndent(output, "", "  ")
}

func toJSONSites(sites []models.DependencySite) []jsonSite {
	out := make([]jsonSite, 0, len(sites))
	for _, s := range sites {
		out = append(out, jsonSite{Package: s.Package, Manifest: manifestURI(s), Section: s.Section})
	}
	return out
}

func toJSONNodes(nodes []*installed.Node) []jsonNode {
	out := make([]jsonNode, 0, len(nodes))
	for _, n := range nodes {
		jn := jsonNode{Name: n.Name, Version: n.Version, Path: n.Path, Symlink: n.Symlink}
		if len(n.Children) > 0 {
			jn.Dependencies = toJSONNodes(n.Children)
		}
		out = append(out, jn)
	}
	return out
}
