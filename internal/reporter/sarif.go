package reporter

import (
	"encoding/json"
	"fmt"

	"github.com/dxos/version-check/internal/installed"
	"github.com/dxos/version-check/internal/models"
)

const (
	toolName    = "version-check"
	toolVersion = "0.1.0"
	toolURI     = "https://github.com/dxos/version-check"

	ruleOutdated  = "outdated-dependency"
	ruleDuplicate = "duplicate-install"
)

// SARIFReporter outputs results in SARIF format for GitHub Code Scanning
type SARIFReporter struct{}

// SARIF structures
type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	ShortDescription sarifText       `json:"shortDescription"`
	Help             sarifText       `json:"help"`
	DefaultConfig    sarifRuleConfig `json:"defaultConfiguration"`
	Properties       sarifProperties `json:"properties"`
}

type sarifText struct {
	Text string `json:"text"`
}

type sarifRuleConfig struct {
	Level string `json:"level"`
}

type sarifProperties struct {
	Tags []string `json:"tags"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	RuleIndex           int               `json:"ruleIndex"`
	Level               string            `json:"level"`
	Message             sarifText         `json:"message"`
	Locations           []sarifLocation   `json:"locations"`
	PartialFingerprints map[string]string `json:"partialFingerprints"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

// rules is the fixed rule table; results refer to it by index
var rules = []sarifRule{
	{
		ID:               string(models.KindMultipleSpecifiers),
		Name:             "MultipleSpecifiers",
		ShortDescription: sarifText{Text: "Dependency declared with different version specifiers across the workspace"},
		Help:             sarifText{Text: "Run version-check --fix to move every package to the highest specifier."},
		DefaultConfig:    sarifRuleConfig{Level: "error"},
		Properties:       sarifProperties{Tags: []string{"dependencies", "consistency"}},
	},
	{
		ID:               string(models.KindIncompatibleWorkspaceVersion),
		Name:             "IncompatibleWorkspaceVersion",
		ShortDescription: sarifText{Text: "Range on a workspace package excludes its current version"},
		Help:             sarifText{Text: "Run version-check --fix to depend on ^<current version>."},
		DefaultConfig:    sarifRuleConfig{Level: "error"},
		Properties:       sarifProperties{Tags: []string{"dependencies", "workspace"}},
	},
	{
		ID:               ruleOutdated,
		Name:             "OutdatedDependency",
		ShortDescription: sarifText{Text: "A newer compatible version is published"},
		Help:             sarifText{Text: "Run version-check upgrade to move to the newest compatible version."},
		DefaultConfig:    sarifRuleConfig{Level: "note"},
		Properties:       sarifProperties{Tags: []string{"dependencies", "upgrade"}},
	},
	{
		ID:               ruleDuplicate,
		Name:             "DuplicateInstall",
		ShortDescription: sarifText{Text: "Package installed at more than one version"},
		Help:             sarifText{Text: "Align the specifiers that pull in the package so it hoists to a single version."},
		DefaultConfig:    sarifRuleConfig{Level: "warning"},
		Properties:       sarifProperties{Tags: []string{"dependencies", "hoisting"}},
	},
}

func ruleIndex(id string) int {
	for i, r := range rules {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func newResult(ruleID, msg, uri, fingerprint string) sarifResult {
	i := ruleIndex(ruleID)
	return sarifResult{
		RuleID:    ruleID,
		RuleIndex: i,
		Level:     rules[i].DefaultConfig.Level,
		Message:   sarifText{Text: msg},
		Locations: []sarifLocation{{
			PhysicalLocation: sarifPhysicalLocation{ArtifactLocation: sarifArtifact{URI: uri}},
		}},
		PartialFingerprints: map[string]string{"primaryLocationLineHash": fingerprint},
	}
}

func (r *SARIFReporter) render(results []sarifResult) ([]byte, error) {
	if results == nil {
		results = []sarifResult{}
	}
	report := sarifReport{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool: sarifTool{
				Driver: sarifDriver{
					Name:           toolName,
					Version:        toolVersion,
					InformationURI: toolURI,
					Rules:          rules,
				},
			},
			Results: results,
		}},
	}
	return json.MarshalIndent(report, "", "  ")
}

// Check generates SARIF output with one result per offending site
func (r *SARIFReporter) Check(_ string, result *models.CheckResult) ([]byte, error) {
	var results []sarifResult
	for _, f := range result.Findings {
		for _, g := range f.Groups {
			for _, site := range g.Sites {
				var msg string
				switch f.Kind {
				case models.KindIncompatibleWorkspaceVersion:
					msg = fmt.Sprintf("Dependency on workspace package %s uses %s, which excludes the current version %s",
						f.Dependency, g.Specifier, f.CurrentVersion)
				default:
					msg = fmt.Sprintf("%s is declared as %s here but with %d different specifiers across the workspace",
						f.Dependency, g.Specifier, len(f.Groups))
				}
				results = append(results, newResult(string(f.Kind), msg, manifestURI(site),
					fmt.Sprintf("%s:%s:%s:%s", f.Kind, site.Location, f.Dependency, g.Specifier)))
			}
		}
	}
	return r.render(results)
}

// Upgrade generates SARIF output with one result per site to upgrade
func (r *SARIFReporter) Upgrade(result *models.UpgradeResult) ([]byte, error) {
	var results []sarifResult
	for _, d := range result.Decisions {
		for _, site := range d.Sites {
			msg := fmt.Sprintf("%s can be upgraded from %s to %s", d.Dependency, d.From, d.To)
			results = append(results, newResult(ruleOutdated, msg, manifestURI(site),
				fmt.Sprintf("%s:%s:%s:%s", ruleOutdated, site.Location, d.Dependency, d.From)))
		}
	}
	return r.render(results)
}

// Installed generates SARIF output with one result per duplicated install
func (r *SARIFReporter) Installed(report *installed.Report) ([]byte, error) {
	versions := report.Versions()
	var results []sarifResult
	var visit func(nodes []*installed.Node)
	visit = func(nodes []*installed.Node) {
		for _, n := range nodes {
			if len(versions[n.Name]) > 1 {
				msg := fmt.Sprintf("%s@%s is one of %d installed versions of %s", n.Name, n.Version, len(versions[n.Name]), n.Name)
				results = append(results, newResult(ruleDuplicate, msg, n.Path+"/package.json",
					fmt.Sprintf("%s:%s", ruleDuplicate, n.Path)))
			}
			visit(n.Children)
		}
	}
	for _, t := range report.Trees {
		visit(t.Nodes)
	}
	return r.render(results)
}
