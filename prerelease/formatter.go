// Package prerelease expands a branch's pre-release tag template and
// computes the per-versioning-mode pre-release counter and build metadata
// (spec §4.8).
package prerelease

import (
	"strings"

	"github.com/nextver/nextver/config"
	"github.com/nextver/nextver/gitrepo"
	"github.com/nextver/nextver/semver"
)

// Format computes the label, pre-release number (if any), and build
// metadata for the incremented base version v, given the effective branch
// configuration, the current branch/commit, and the commits counted since
// the base version's anchor commit (newest first, as gitrepo.Adapter
// returns them).
func Format(v *semver.SemanticVersion, bc *config.BranchConfig, currentBranch string, head gitrepo.CommitInfo, commitsSinceBase []gitrepo.CommitInfo) {
	label := Label(bc, currentBranch)

	v.Build = &semver.BuildMetadata{
		CommitsSinceTag: len(commitsSinceBase),
		BranchName:      currentBranch,
		SHA:             string(head.SHA),
		CommitDate:      head.CommitterDate,
	}

	if label == "" {
		v.Pre = nil
		return
	}

	switch bc.VersioningMode {
	case config.ContinuousDeployment:
		v.Pre = &semver.PreRelease{Name: label}
	case config.Mainline:
		if bc.IsMainline {
			v.Pre = nil
			return
		}
		n := len(commitsSinceBase)
		v.Pre = &semver.PreRelease{Name: label, Number: &n}
	default: // ContinuousDelivery
		n := len(commitsSinceBase)
		if n == 0 {
			n = 1
		}
		v.Pre = &semver.PreRelease{Name: label, Number: &n}
	}
}

// Label resolves the effective pre-release label for bc (spec §4.8
// "Pre-release label"): an empty tag means no pre-release, "useBranchName"
// echoes the sanitized last path segment of the branch name, a template
// containing "{BranchName}" substitutes that same segment, anything else
// is literal. A mainline-classified branch
// is not special-cased here: spec §8 scenario 6 configures the mainline
// branch with an explicit tag and expects it honored in
// ContinuousDelivery mode, so suppression on mainline is left entirely to
// Format's per-VersioningMode rule (only Mainline mode suppresses it).
func Label(bc *config.BranchConfig, currentBranch string) string {
	if bc.Tag == "" {
		return ""
	}
	shortName := Sanitize(lastPathSegment(currentBranch))
	if bc.Tag == "useBranchName" {
		return shortName
	}
	if strings.Contains(bc.Tag, "{BranchName}") {
		return strings.ReplaceAll(bc.Tag, "{BranchName}", shortName)
	}
	return bc.Tag
}

// lastPathSegment returns the part of a branch name after its last "/",
// e.g. "custom/foo" -> "foo". Branch-family prefixes (feature/, release/,
// custom/, ...) are structural, not part of the label a developer meant.
func lastPathSegment(branchName string) string {
	idx := strings.LastIndexByte(branchName, '/')
	if idx < 0 {
		return branchName
	}
	return branchName[idx+1:]
}

// Sanitize turns a branch name into a valid SemVer pre-release identifier:
// each run of characters outside [0-9A-Za-z] (slashes, underscores,
// hyphens, ...) becomes a single hyphen, and leading or trailing hyphens
// are dropped.
func Sanitize(branchName string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range branchName {
		if r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			if pendingHyphen && b.Len() > 0 {
				b.WriteRune('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// TagSeed inspects tags, returning the highest pre-release number tagged
// with label among them, for baseline seeding ahead of a Format call.
func TagSeed(label string, tags []gitrepo.TagInfo, tagPrefix string) int {
	best := 0
	for _, tag := range tags {
		stripped := gitrepo.StripTagPrefix(tag.Name, tagPrefix)
		v, err := semver.Parse(stripped)
		if err != nil || v.Pre == nil || v.Pre.Name != label || v.Pre.Number == nil {
			continue
		}
		if *v.Pre.Number > best {
			best = *v.Pre.Number
		}
	}
	return best
}

// SeedCounter folds a TagSeed baseline into a freshly Format-ed
// pre-release number, so a tagged "0.1.0-test.1" plus one more commit
// yields "test.2" rather than restarting at 1. Build.CommitsSinceTag is
// kept in sync with the seeded count (spec §8 scenario 6: "0.1.0-test.1"
// plus one commit renders as "0.1.0-test.2+2", the same number on both
// sides of the "+").
func SeedCounter(v *semver.SemanticVersion, baseline int, commitsSinceTag int) {
	if v.Pre == nil {
		return
	}
	n := baseline + commitsSinceTag
	if n < 1 {
		n = 1
	}
	v.Pre.Number = &n
	if v.Build != nil {
		v.Build.CommitsSinceTag = n
	}
}
