// Package increment decides which SemVer component to bump, given the
// arbiter's output, the effective branch configuration, and the commit
// directives found in the commits since the base version (spec §4.7).
package increment

import (
	"github.com/nextver/nextver/baseversion"
	"github.com/nextver/nextver/config"
	"github.com/nextver/nextver/directive"
	"github.com/nextver/nextver/gitrepo"
)

// Decision is the outcome of the increment engine: whether to bump at
// all, and if so, which component.
type Decision struct {
	Increment config.Increment
	Reason    string
}

// Decide implements the ordered rules of spec §4.7. commits is the list of
// commits since the arbiter's baseVersionSource (or from repository root,
// if BaseVersionSource is gitrepo.ZeroHash); Decide scans their messages
// for "+semver:" directives before falling back to branch configuration.
func Decide(winner *baseversion.Candidate, bc *config.BranchConfig, commits []gitrepo.CommitInfo) Decision {
	if !winner.ShouldIncrement {
		return Decision{Increment: config.IncrementNone, Reason: "base version candidate is an exact assertion"}
	}

	messages := make([]string, 0, len(commits))
	for _, c := range commits {
		messages = append(messages, c.Message)
	}
	severity := directive.HighestAmong(messages)
	switch severity {
	case directive.Major:
		return Decision{Increment: config.IncrementMajor, Reason: "+semver:major directive"}
	case directive.Minor:
		return Decision{Increment: config.IncrementMinor, Reason: "+semver:minor directive"}
	case directive.Patch:
		return Decision{Increment: config.IncrementPatch, Reason: "+semver:patch directive"}
	case directive.Suppress:
		return Decision{Increment: config.IncrementNone, Reason: "+semver:none directive"}
	}

	if winner.SemVer.Pre != nil {
		// The winning base version is itself an unreleased pre-release
		// (e.g. a tagged "0.1.0-test.1"): later commits continue that
		// pre-release rather than bump major.minor.patch (spec §8
		// scenario 6).
		return Decision{Increment: config.IncrementNone, Reason: "continuing the base version's existing pre-release"}
	}

	if bc.Increment != config.IncrementInherit {
		return Decision{Increment: bc.Increment, Reason: "branch configuration"}
	}

	if bc.VersioningMode == config.Mainline && bc.IsMainline {
		return Decision{Increment: config.IncrementMinor, Reason: "Mainline mode default on mainline branch"}
	}
	return Decision{Increment: config.IncrementPatch, Reason: "default increment"}
}

// Apply mutates v in place according to d. A Major, Minor or Patch bump
// clears any pre-release on the base (pre-release is reassembled by the
// formatter); IncrementNone leaves v untouched, pre-release included.
func Apply(v SemanticVersionIncrementer, d Decision) {
	switch d.Increment {
	case config.IncrementMajor:
		v.IncrementMajor()
	case config.IncrementMinor:
		v.IncrementMinor()
	case config.IncrementPatch:
		v.IncrementPatch()
	case config.IncrementNone:
		// verbatim
	}
}

// SemanticVersionIncrementer is the narrow capability Apply needs; *semver.SemanticVersion satisfies it.
type SemanticVersionIncrementer interface {
	IncrementMajor()
	IncrementMinor()
	IncrementPatch()
}
