// Package semver implements the Semantic Version model: parsing,
// rendering, comparison and the increment operations the rest of nextver
// drives the calculation with.
package semver

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/blang/semver"
)

// Format selects a rendering of a SemanticVersion.
type Format int

const (
	// FormatCanonical renders "M.m.p[-pre.N][+build]".
	FormatCanonical Format = iota
	// FormatFull always includes pre-release and build metadata when present.
	FormatFull
	// FormatShort renders "M.m.p[-pre.N]" without build metadata.
	FormatShort
)

// PreRelease is the structured pre-release component of a version: a label
// and an optional counter.
type PreRelease struct {
	Name   string
	Number *int
}

// String renders the pre-release as it appears after the "-" separator.
func (p *PreRelease) String() string {
	if p == nil || p.Name == "" {
		return ""
	}
	if p.Number == nil {
		return p.Name
	}
	return fmt.Sprintf("%s.%d", p.Name, *p.Number)
}

// BuildMetadata is the structured build-metadata component.
type BuildMetadata struct {
	CommitsSinceTag int
	BranchName      string
	SHA             string
	CommitDate      time.Time
}

// String renders the build metadata as it appears after the "+" separator.
func (b *BuildMetadata) String() string {
	if b == nil {
		return ""
	}
	parts := []string{strconv.Itoa(b.CommitsSinceTag)}
	if b.BranchName != "" {
		parts = append(parts, sanitizeBuildIdentifier(b.BranchName))
	}
	if b.SHA != "" {
		parts = append(parts, b.SHA)
	}
	return strings.Join(parts, ".")
}

func sanitizeBuildIdentifier(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

// SemanticVersion is the parsed, comparable, renderable version value the
// rest of nextver operates on.
type SemanticVersion struct {
	Major, Minor, Patch uint64
	Pre                 *PreRelease
	Build               *BuildMetadata
}

// Parse parses s into a SemanticVersion, accepting an optional leading "v".
// It rejects negative or non-numeric major/minor/patch components.
func Parse(s string) (*SemanticVersion, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "v")
	// blang/semver accepts only the "major.minor.patch[-pre][+build]" grammar;
	// we parse the numeric/pre-release parts with it and keep build metadata
	// out of its scope since ours is structured, not a raw string slice.
	base := trimmed
	if idx := strings.IndexByte(base, '+'); idx >= 0 {
		base = base[:idx]
	}
	parsed, err := semver.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing version %q: %w", s, err)
	}
	sv := &SemanticVersion{Major: parsed.Major, Minor: parsed.Minor, Patch: parsed.Patch}
	if len(parsed.Pre) > 0 {
		pre := &PreRelease{Name: parsed.Pre[0].VersionStr}
		if len(parsed.Pre) > 1 && parsed.Pre[1].IsNumeric() {
			n := int(parsed.Pre[1].VersionNum)
			pre.Number = &n
		}
		sv.Pre = pre
	}
	return sv, nil
}

// Render formats the version per the requested Format.
func (v *SemanticVersion) Render(format Format) string {
	base := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	pre := ""
	if v.Pre != nil && v.Pre.String() != "" {
		pre = "-" + v.Pre.String()
	}
	switch format {
	case FormatShort:
		return base + pre
	case FormatFull:
		build := ""
		if v.Build != nil && v.Build.String() != "" {
			build = "+" + v.Build.String()
		}
		return base + pre + build
	default: // FormatCanonical
		build := ""
		if v.Build != nil && v.Build.String() != "" {
			build = "+" + v.Build.String()
		}
		return base + pre + build
	}
}

// String renders the version canonically.
func (v *SemanticVersion) String() string {
	return v.Render(FormatCanonical)
}

// Compare returns -1, 0 or 1 comparing a and b by SemVer 2.0.0 precedence.
// Build metadata is ignored, matching SemVer 2.0.0 §11.
func Compare(a, b *SemanticVersion) int {
	if c := compareUint(a.Major, b.Major); c != 0 {
		return c
	}
	if c := compareUint(a.Minor, b.Minor); c != 0 {
		return c
	}
	if c := compareUint(a.Patch, b.Patch); c != 0 {
		return c
	}
	return comparePreRelease(a.Pre, b.Pre)
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// comparePreRelease orders absent pre-release after any present pre-release
// with the same major.minor.patch triple, and orders present pre-releases
// by name then by number.
func comparePreRelease(a, b *PreRelease) int {
	aEmpty := a == nil || a.Name == "" && a.Number == nil
	bEmpty := b == nil || b.Name == "" && b.Number == nil
	switch {
	case aEmpty && bEmpty:
		return 0
	case aEmpty:
		return 1
	case bEmpty:
		return -1
	}
	if a.Name != b.Name {
		if a.Name < b.Name {
			return -1
		}
		return 1
	}
	switch {
	case a.Number == nil && b.Number == nil:
		return 0
	case a.Number == nil:
		return -1
	case b.Number == nil:
		return 1
	case *a.Number < *b.Number:
		return -1
	case *a.Number > *b.Number:
		return 1
	default:
		return 0
	}
}

// IncrementMajor bumps Major and resets Minor, Patch and any pre-release.
func (v *SemanticVersion) IncrementMajor() {
	v.Major++
	v.Minor = 0
	v.Patch = 0
	v.Pre = nil
}

// IncrementMinor bumps Minor and resets Patch and any pre-release.
func (v *SemanticVersion) IncrementMinor() {
	v.Minor++
	v.Patch = 0
	v.Pre = nil
}

// IncrementPatch bumps Patch and resets any pre-release.
func (v *SemanticVersion) IncrementPatch() {
	v.Patch++
	v.Pre = nil
}

// IncrementPreReleaseNumber increments only the pre-release counter,
// leaving major.minor.patch and the pre-release label untouched. A nil
// pre-release or a labelled-but-uncounted pre-release starts counting at 1.
func (v *SemanticVersion) IncrementPreReleaseNumber() {
	if v.Pre == nil {
		v.Pre = &PreRelease{}
	}
	if v.Pre.Number == nil {
		one := 1
		v.Pre.Number = &one
		return
	}
	*v.Pre.Number++
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (v *SemanticVersion) Clone() *SemanticVersion {
	if v == nil {
		return nil
	}
	out := &SemanticVersion{Major: v.Major, Minor: v.Minor, Patch: v.Patch}
	if v.Pre != nil {
		pre := *v.Pre
		if v.Pre.Number != nil {
			n := *v.Pre.Number
			pre.Number = &n
		}
		out.Pre = &pre
	}
	if v.Build != nil {
		build := *v.Build
		out.Build = &build
	}
	return out
}
