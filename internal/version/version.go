// Package version classifies npm-style version specifiers and picks the
// highest, most stable or most compatible one out of a set.
//
// Range semantics (operators, x-ranges, hyphen ranges, || sets) come from
// github.com/Masterminds/semver/v3. MinVersion adds the one thing that
// library does not expose: the lowest version admitted by a range.
package version

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Kind classifies a version specifier.
type Kind int

const (
	// KindRange is a semantic-version range such as ^1.2.0 or >=2 <3.
	KindRange Kind = iota
	// KindTag is a dist-tag such as beta or latest.
	KindTag
	// KindRepoReference is a hosted repository shorthand such as org/repo.
	KindRepoReference
)

// String returns the kind name used in reports.
func (k Kind) String() string {
	switch k {
	case KindTag:
		return "tag"
	case KindRepoReference:
		return "repository"
	default:
		return "range"
	}
}

var (
	repoReferencePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+(#.*)?$`)
	tagPattern           = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// Classify reports whether a specifier is a range, a tag or a repository
// reference. Bare tokens that are valid ranges on their own (1, x) stay ranges.
func Classify(spec string) Kind {
	spec = strings.TrimSpace(spec)
	if repoReferencePattern.MatchString(spec) {
		return KindRepoReference
	}
	if tagPattern.MatchString(spec) {
		if _, err := semver.NewConstraint(spec); err != nil {
			return KindTag
		}
	}
	return KindRange
}

// Satisfies reports whether version is admitted by the range spec.
func Satisfies(version, spec string) (bool, error) {
	c, err := semver.NewConstraint(spec)
	if err != nil {
		return false, &InvalidVersionError{Specifier: spec, Err: err}
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, &InvalidVersionError{Specifier: version, Err: err}
	}
	return c.Check(v), nil
}

// MinVersion returns the lowest version that satisfies the range spec.
func MinVersion(spec string) (*semver.Version, error) {
	if Classify(spec) != KindRange {
		return nil, &InvalidVersionError{Specifier: spec, Err: errNotRange}
	}
	constraint, err := semver.NewConstraint(spec)
	if err != nil {
		return nil, &InvalidVersionError{Specifier: spec, Err: err}
	}

	zero := semver.New(0, 0, 0, "", "")
	if constraint.Check(zero) {
		return zero, nil
	}

	var lowest *semver.Version
	for _, set := range strings.Split(spec, "||") {
		setMin, err := minOfSet(set)
		if err != nil {
			return nil, &InvalidVersionError{Specifier: spec, Err: err}
		}
		if setMin != nil && (lowest == nil || lowest.GreaterThan(setMin)) {
			lowest = setMin
		}
	}

	if lowest == nil || !constraint.Check(lowest) {
		return nil, &InvalidVersionError{Specifier: spec, Err: errNoMinimum}
	}
	return lowest, nil
}

// minOfSet returns the greatest lower bound among the comparators of one
// AND-ed comparator set, or nil when the set has no lower bound.
func minOfSet(set string) (*semver.Version, error) {
	tokens := tokenize(set)

	var setMin *semver.Version
	consider := func(v *semver.Version) {
		if v != nil && (setMin == nil || v.GreaterThan(setMin)) {
			setMin = v
		}
	}

	for i := 0; i < len(tokens); i++ {
		// Hyphen range: only the left side bounds from below.
		if i+2 < len(tokens) && tokens[i+1] == "-" {
			v, _, err := parsePartial(tokens[i])
			if err != nil {
				return nil, err
			}
			consider(v)
			i += 2
			continue
		}

		op, rest := splitOperator(tokens[i])
		v, parts, err := parsePartial(rest)
		if err != nil {
			return nil, err
		}

		switch op {
		case ">":
			consider(above(v, parts))
		case "", "=", ">=", "^", "~", "~>":
			consider(v)
		}
	}
	return setMin, nil
}

// above returns the lowest version strictly greater than every version
// matched by the partial version v with the given number of numeric parts.
func above(v *semver.Version, parts int) *semver.Version {
	switch parts {
	case 0:
		return nil
	case 1:
		return semver.New(v.Major()+1, 0, 0, "", "")
	case 2:
		return semver.New(v.Major(), v.Minor()+1, 0, "", "")
	}
	if v.Prerelease() == "" {
		next := v.IncPatch()
		return &next
	}
	next, err := v.SetPrerelease(v.Prerelease() + ".0")
	if err != nil {
		return nil
	}
	return &next
}

var operators = []string{">=", "<=", "~>", "!=", ">", "<", "=", "^", "~"}

func splitOperator(token string) (string, string) {
	for _, op := range operators {
		if strings.HasPrefix(token, op) {
			return op, strings.TrimSpace(token[len(op):])
		}
	}
	return "", token
}

// tokenize splits a comparator set into comparators, gluing detached
// operators (">= 1.2.3") back onto their version.
func tokenize(set string) []string {
	fields := strings.Fields(strings.ReplaceAll(set, ",", " "))
	var tokens []string
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if op, rest := splitOperator(f); op != "" && rest == "" && i+1 < len(fields) {
			f = op + fields[i+1]
			i++
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// parsePartial parses a possibly partial version (1, 1.2, 1.x, *) filling the
// missing parts with zero. parts is the number of numeric components given.
func parsePartial(s string) (*semver.Version, int, error) {
	s = strings.TrimLeft(s, "vV=")
	if s == "" || s == "*" || s == "x" || s == "X" {
		return semver.New(0, 0, 0, "", ""), 0, nil
	}

	core, suffix := s, ""
	if idx := strings.IndexAny(s, "-+"); idx >= 0 {
		core, suffix = s[:idx], s[idx:]
	}

	var nums [3]uint64
	parts := 0
	for _, seg := range strings.SplitN(core, ".", 3) {
		if seg == "x" || seg == "X" || seg == "*" {
			break
		}
		n, err := strconv.ParseUint(seg, 10, 64)
		if err != nil {
			return nil, 0, err
		}
		nums[parts] = n
		parts++
	}

	if parts == 3 && suffix != "" {
		v, err := semver.NewVersion(core + suffix)
		if err != nil {
			return nil, 0, err
		}
		return v, parts, nil
	}
	return semver.New(nums[0], nums[1], nums[2], "", ""), parts, nil
}
