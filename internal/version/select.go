package version

import (
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Preid is a prerelease identifier such as beta or alpha. The empty Preid
// stands for a full release.
type Preid string

// Release is the Preid of a version without a prerelease component.
const Release Preid = ""

// stabilityOrder lists the known preids from most to least stable.
var stabilityOrder = []Preid{Release, "beta", "alpha"}

// HighestOf returns the specifier whose minimum satisfying version is the
// greatest. Ties go to the one listed last. Every specifier must be a range.
func HighestOf(specs []string) (string, error) {
	if len(specs) == 0 {
		return "", nil
	}

	type ranked struct {
		spec string
		min  *semver.Version
	}
	items := make([]ranked, 0, len(specs))
	for _, s := range specs {
		v, err := MinVersion(s)
		if err != nil {
			return "", err
		}
		items = append(items, ranked{spec: s, min: v})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].min.LessThan(items[j].min)
	})
	return items[len(items)-1].spec, nil
}

// PreidOf returns the stability label of a specifier: the tag itself for
// tags, nothing for repository references, and the first prerelease
// identifier of the minimum version for ranges.
func PreidOf(spec string) (Preid, error) {
	switch Classify(spec) {
	case KindRepoReference:
		return Release, nil
	case KindTag:
		return Preid(spec), nil
	}

	v, err := MinVersion(spec)
	if err != nil {
		return Release, err
	}
	return preidOfVersion(v), nil
}

func preidOfVersion(v *semver.Version) Preid {
	pre := v.Prerelease()
	if pre == "" {
		return Release
	}
	first, _, _ := strings.Cut(pre, ".")
	if isNumeric(first) {
		return Release
	}
	return Preid(first)
}

// MajorOf returns the major component of the minimum version of a range.
// Tags, repository references and unparseable ranges have no major.
func MajorOf(spec string) (uint64, bool) {
	if Classify(spec) != KindRange {
		return 0, false
	}
	v, err := MinVersion(spec)
	if err != nil {
		return 0, false
	}
	return v.Major(), true
}

// IsMoreStable reports whether a ranks strictly before b in the order
// release, beta, alpha. Unknown preids are never ranked.
func IsMoreStable(a, b Preid) bool {
	ia, ib := stabilityRank(a), stabilityRank(b)
	if ia < 0 || ib < 0 {
		return false
	}
	return ia < ib
}

func stabilityRank(p Preid) int {
	for i, known := range stabilityOrder {
		if p == known {
			return i
		}
	}
	return -1
}

// PickCompatible returns the greatest of versions whose preid is exactly preid
// and, when hasMajor is set, whose major is major. Versions are compared
// directly, not through their ranges.
func PickCompatible(versions []string, major uint64, hasMajor bool, preid Preid) (string, bool) {
	var (
		best    *semver.Version
		bestRaw string
	)
	for _, raw := range versions {
		v, err := semver.NewVersion(raw)
		if err != nil {
			continue
		}
		if preidOfVersion(v) != preid {
			continue
		}
		if hasMajor && v.Major() != major {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best, bestRaw = v, raw
		}
	}
	return bestRaw, best != nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
