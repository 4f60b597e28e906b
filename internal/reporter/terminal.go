package reporter

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dxos/version-check/internal/installed"
	"github.com/dxos/version-check/internal/models"
)

// TerminalReporter outputs results in a human-readable terminal format
type TerminalReporter struct {
	bold   lipgloss.Style
	red    lipgloss.Style
	green  lipgloss.Style
	yellow lipgloss.Style
}

// NewTerminalReporter creates a terminal reporter, styled when color is set
func NewTerminalReporter(color bool) *TerminalReporter {
	r := &TerminalReporter{
		bold:   lipgloss.NewStyle(),
		red:    lipgloss.NewStyle(),
		green:  lipgloss.NewStyle(),
		yellow: lipgloss.NewStyle(),
	}
	if color {
		r.bold = r.bold.Bold(true)
		r.red = r.red.Foreground(lipgloss.Color("1"))
		r.green = r.green.Foreground(lipgloss.Color("2"))
		r.yellow = r.yellow.Foreground(lipgloss.Color("3"))
	}
	return r
}

// Check generates terminal output for a check or fix run
func (r *TerminalReporter) Check(root string, result *models.CheckResult) ([]byte, error) {
	var sb strings.Builder

	if len(result.Fixes) > 0 {
		for _, f := range result.Fixes {
			switch f.Kind {
			case models.KindIncompatibleWorkspaceVersion:
				sb.WriteString(fmt.Sprintf("Updating all usages of workspace package %s to %s\n", r.bold.Render(f.Dependency), r.bold.Render(f.To)))
			default:
				sb.WriteString(fmt.Sprintf("Updating all versions of %s to %s\n", r.bold.Render(f.Dependency), r.bold.Render(f.To)))
			}
		}
	} else {
		for _, f := range result.Findings {
			r.writeFinding(&sb, root, f)
		}
	}

	if len(result.Findings) == 0 {
		sb.WriteString("No version inconsistencies found.\n")
	}
	if result.Reminder != "" {
		sb.WriteString("\n" + r.reminder(result.Reminder) + "\n")
	}
	sb.WriteString("\n")
	return []byte(sb.String()), nil
}

func (r *TerminalReporter) writeFinding(sb *strings.Builder, root string, f models.Finding) {
	switch f.Kind {
	case models.KindIncompatibleWorkspaceVersion:
		g := f.Groups[0]
		sb.WriteString(fmt.Sprintf("\n%s Dependency on workspace package %s uses a version range incompatible with the current source.\n",
			r.red.Render("error:"), r.bold.Render(f.Dependency)))
		sb.WriteString(fmt.Sprintf("Version requested: %s. Current version: %s\n", r.bold.Render(g.Specifier), r.bold.Render(f.CurrentVersion)))
		for _, site := range g.Sites {
			sb.WriteString(fmt.Sprintf("  in %s\n", sitePath(root, site)))
		}
		sb.WriteString("\n")
	default:
		sb.WriteString(fmt.Sprintf("\nFound multiple different version specifiers of %s in the workspace:\n", r.bold.Render(f.Dependency)))
		for _, g := range f.Groups {
			for _, site := range g.Sites {
				sb.WriteString(fmt.Sprintf("\t %s in %s\n", r.bold.Render(g.Specifier), sitePath(root, site)))
			}
		}
	}
}

// reminder emphasizes the command inside the lockfile reminder
func (r *TerminalReporter) reminder(text string) string {
	const prefix, suffix = "Don't forget to run ", " to regenerate the lockfile."
	if cmd, ok := strings.CutPrefix(text, prefix); ok {
		if cmd, ok := strings.CutSuffix(cmd, suffix); ok {
			return prefix + r.bold.Render(cmd) + suffix
		}
	}
	return text
}

// Upgrade generates terminal output for an upgrade run
func (r *TerminalReporter) Upgrade(result *models.UpgradeResult) ([]byte, error) {
	var sb strings.Builder

	if result.SkippedFor(models.SkipMoreStable) {
		sb.WriteString(fmt.Sprintf("\nSome packages were skipped. Run with %s to apply updates to those.\n\n", r.bold.Render("--force")))
	}

	if result.UpToDate() {
		sb.WriteString("All packages are up-to-date.\n")
		return []byte(sb.String()), nil
	}

	sb.WriteString("The following updates will be applied:\n\n")
	for _, d := range result.Decisions {
		sb.WriteString(fmt.Sprintf("\t%s %s -> %s\n", r.bold.Render(d.Dependency), r.red.Render(d.From), r.green.Render(d.To)))
	}
	sb.WriteString("\n")

	if result.DryRun {
		sb.WriteString(r.yellow.Render("Dry-run: no changes will be applied.") + "\n")
		return []byte(sb.String()), nil
	}
	if result.Reminder != "" {
		sb.WriteString("\n" + r.reminder(result.Reminder) + "\n")
	}
	return []byte(sb.String()), nil
}

// Installed generates terminal output for the installed module trees
func (r *TerminalReporter) Installed(report *installed.Report) ([]byte, error) {
	var sb strings.Builder
	versions := report.Versions()

	format := func(n *installed.Node) string {
		label := n.Name + "@" + n.Version
		if len(versions[n.Name]) > 1 {
			label = r.red.Render(label)
		}
		if n.Symlink {
			label += " (linked)"
		}
		return label
	}

	for _, t := range report.Trees {
		sb.WriteString(t.Label + "\n")
		writeSubtree(&sb, t.Nodes, "", format)
		sb.WriteString("\n")
	}

	dups := report.Duplicates()
	if len(dups) == 0 {
		sb.WriteString("No duplicates found.\n")
		return []byte(sb.String()), nil
	}
	sb.WriteString("Duplicates found:\n")
	for _, d := range dups {
		sb.WriteString(fmt.Sprintf("  %s:\n", d.Name))
		for _, v := range d.Versions {
			sb.WriteString(fmt.Sprintf("    %s\n", v))
		}
	}
	return []byte(sb.String()), nil
}

func writeSubtree(sb *strings.Builder, nodes []*installed.Node, spacing string, format func(*installed.Node) string) {
	for i, n := range nodes {
		last := i == len(nodes)-1
		branch, indent := "├─ ", "│  "
		if last {
			branch, indent = "└─ ", "   "
		}
		sb.WriteString(spacing + branch + format(n) + "\n")
		writeSubtree(sb, n.Children, spacing+indent, format)
	}
}

func sitePath(root string, site models.DependencySite) string {
	return filepath.Join(root, filepath.FromSlash(manifestURI(site)))
}
