package models

// Manifest sections holding dependency maps
const (
	SectionDependencies         = "dependencies"
	SectionDevDependencies      = "devDependencies"
	SectionPeerDependencies     = "peerDependencies"
	SectionOptionalDependencies = "optionalDependencies"
)

// DependencySite is one place in the workspace where a dependency is declared
type DependencySite struct {
	Dependency string // Name of the dependency
	Package    string // Name of the workspace package declaring it
	Location   string // Package directory relative to the workspace root
	Specifier  string // Version specifier exactly as written
	Section    string // Manifest section it was found in
}

// String returns a human-readable representation
func (d DependencySite) String() string {
	return d.Dependency + "@" + d.Specifier
}

// PackageManifest is the registry document describing a published package
type PackageManifest struct {
	Name     string
	DistTags map[string]string
	Versions []string
}
