// Package reporter renders check, upgrade and installed results.
package reporter

import (
	"path"

	"github.com/dxos/version-check/internal/installed"
	"github.com/dxos/version-check/internal/manifest"
	"github.com/dxos/version-check/internal/models"
)

// Reporter is the interface for output formatters
type Reporter interface {
	// Check renders a check or fix run. root is the workspace root.
	Check(root string, result *models.CheckResult) ([]byte, error)

	// Upgrade renders an upgrade run
	Upgrade(result *models.UpgradeResult) ([]byte, error)

	// Installed renders the installed module trees
	Installed(report *installed.Report) ([]byte, error)
}

// Get returns a reporter for the specified format. color only affects the
// terminal format.
func Get(format string, color bool) Reporter {
	switch format {
	case "json":
		return &JSONReporter{}
	case "sarif":
		return &SARIFReporter{}
	default:
		return NewTerminalReporter(color)
	}
}

// Formats lists the accepted --format values
var Formats = []string{"terminal", "json", "sarif"}

// manifestURI returns the slash separated manifest path of a site relative to
// the workspace root
func manifestURI(site models.DependencySite) string {
	return path.Join(site.Location, manifest.FileName)
}
