// Package version implements Ansybl protocol version parsing, compatibility
// classification, and structural feature detection.
package version

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version is a parsed Ansybl protocol version.
type Version struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string

	sv *semver.Version
}

// versionCore matches "<major>.<minor>[.<patch>][-<prerelease>]": the plain
// semver and 2-part short surfaces. A bare major is not a valid version.
var versionCore = regexp.MustCompile(`^(\d+)\.(\d+)(?:\.(\d+))?(-[0-9A-Za-z.-]+)?$`)

// Parse accepts the three interchangeable surface syntaxes: the URL form
// (".../version/1.0"), plain semver ("1.0.2-beta"), and the 2-part short
// form ("1.0"). Unrecognized syntax is a hard error.
func Parse(s string) (Version, error) {
	core := s
	if i := strings.Index(s, "/version/"); i >= 0 {
		core = s[i+len("/version/"):]
	}
	core = strings.TrimSpace(core)
	if !versionCore.MatchString(core) {
		return Version{}, fmt.Errorf("version: unrecognized version syntax %q", s)
	}
	sv, err := semver.NewVersion(core)
	if err != nil {
		return Version{}, fmt.Errorf("version: %q: %w", s, err)
	}
	return Version{
		Major:      int(sv.Major()),
		Minor:      int(sv.Minor()),
		Patch:      int(sv.Patch()),
		Prerelease: sv.Prerelease(),
		sv:         sv,
	}, nil
}

// MustParse panics on error; for static tables only.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	return s
}

// ShortString renders the normalized "major.minor" form used as a
// compatibility-matrix key.
func (v Version) ShortString() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compare totally orders versions: major, then minor, then patch, then
// prerelease. A release sorts above its own prereleases.
func (v Version) Compare(o Version) int {
	return v.semver().Compare(o.semver())
}

func (v Version) semver() *semver.Version {
	if v.sv != nil {
		return v.sv
	}
	sv, err := semver.NewVersion(v.String())
	if err != nil {
		// Version fields are non-negative ints and a validated prerelease;
		// re-parsing the rendered form cannot fail.
		panic(err)
	}
	return sv
}

// crossMajorCompatible is the explicit exception table for cross-major
// compatibility. Currently empty; extensible by protocol revisions.
var crossMajorCompatible = map[[2]int]bool{}

// IsCompatibleWith treats equal-major versions as compatible and otherwise
// consults the cross-major exception table.
func (v Version) IsCompatibleWith(o Version) bool {
	if v.Major == o.Major {
		return true
	}
	return crossMajorCompatible[[2]int{v.Major, o.Major}]
}
