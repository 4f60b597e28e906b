package models

// FindingKind tells which check produced a finding
type FindingKind string

const (
	// KindMultipleSpecifiers: the dependency is declared with more than one specifier
	KindMultipleSpecifiers FindingKind = "multiple-specifiers"
	// KindIncompatibleWorkspaceVersion: a range excludes the workspace package's own version
	KindIncompatibleWorkspaceVersion FindingKind = "incompatible-workspace-version"
)

// SpecifierGroup lists the sites sharing one specifier
type SpecifierGroup struct {
	Specifier string
	Sites     []DependencySite
}

// Finding is a consistency problem for one dependency
type Finding struct {
	Kind           FindingKind
	Dependency     string
	Groups         []SpecifierGroup
	CurrentVersion string // Workspace version, for KindIncompatibleWorkspaceVersion
}

// Fix records a rewrite applied (or planned) by the fixer
type Fix struct {
	Kind       FindingKind // The finding this fix resolves
	Dependency string
	To         string
	Sites      []DependencySite
}

// CheckResult is the outcome of a check or fix run
type CheckResult struct {
	Findings []Finding
	Fixes    []Fix
	Fixed    bool
	Failed   bool   // Inconsistencies remain; the caller should exit non-zero
	Reminder string // Lockfile regeneration reminder, set when files changed
}

// UpgradeDecision is a planned move of one specifier to a published version
type UpgradeDecision struct {
	Dependency string
	From       string
	To         string
	Sites      []DependencySite
}

// SkipReason explains why a dependency was left alone by the upgrader
type SkipReason string

const (
	SkipMoreStable          SkipReason = "more-stable-installed"
	SkipRegistryUnavailable SkipReason = "registry-unavailable"
	SkipNoCompatible        SkipReason = "no-compatible-version"
)

// Skip records a dependency the upgrader did not touch
type Skip struct {
	Dependency string
	Current    string
	Reason     SkipReason
}

// UpgradeResult is the outcome of an upgrade run
type UpgradeResult struct {
	Decisions []UpgradeDecision
	Skipped   []Skip
	DryRun    bool
	Applied   bool
	Reminder  string
}

// UpToDate reports whether the run found nothing to change
func (r *UpgradeResult) UpToDate() bool {
	return len(r.Decisions) == 0
}

// SkippedFor reports whether any dependency was skipped for the given reason
func (r *UpgradeResult) SkippedFor(reason SkipReason) bool {
	for _, s := range r.Skipped {
		if s.Reason == reason {
			return true
		}
	}
	return false
}
