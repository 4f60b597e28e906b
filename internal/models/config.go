package models

import "time"

// Config holds configuration for a version-check run
type Config struct {
	// Directory to start looking for the workspace root from
	Dir string

	// Workspace discovery: "auto", "yarn", "pnpm", "glob"
	Provider string

	// Output settings
	OutputFormat string // "terminal", "json", "sarif"
	OutputFile   string // Optional output file path
	Color        bool

	// Registry settings
	Registry      string
	Timeout       time.Duration
	MaxConcurrent int

	// Cache settings
	CacheTTL time.Duration
	NoCache  bool

	// Command printed in the reminder after manifests change
	LockfileCommand string

	// Restricts the installed report to node_modules/<scope>
	InstalledScope string
}

// DefaultRegistry is the public npm registry
const DefaultRegistry = "https://registry.npmjs.org"

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Dir:             ".",
		Provider:        "auto",
		OutputFormat:    "terminal",
		Registry:        DefaultRegistry,
		Timeout:         60 * time.Second,
		MaxConcurrent:   10,
		CacheTTL:        time.Hour,
		NoCache:         false,
		LockfileCommand: "yarn",
	}
}
