// Package baseversion implements the base-version candidate providers and
// the arbiter that reduces their output to one (baseVersion,
// shouldIncrement, sourceCommit) triple.
package baseversion

import (
	"context"

	"github.com/nextver/nextver/config"
	"github.com/nextver/nextver/gitrepo"
	"github.com/nextver/nextver/semver"
)

// Candidate is one proposal for the base version: where it came from, the
// version itself, whether the increment engine should still bump it, and
// the commit it is anchored to (gitrepo.ZeroHash means "no anchor; count
// from repository root").
type Candidate struct {
	Source            string
	ShouldIncrement   bool
	SemVer            *semver.SemanticVersion
	BaseVersionSource gitrepo.Hash
}

// Provider proposes zero or more Candidates for the current invocation.
// Each implementation is independent of the others; the Arbiter reconciles
// their output.
type Provider interface {
	Propose(ctx context.Context, repo gitrepo.Adapter, cfg *config.Configuration, bc *config.BranchConfig, currentBranch string, currentCommit gitrepo.Hash) ([]Candidate, error)
}

// DefaultProviders returns the five base-version providers in the order
// spec §4.5 names them: P1 ConfigNextVersion, P2 TaggedCommit,
// P3 MergeMessage, P4 BranchName, P5 Fallback.
func DefaultProviders() []Provider {
	return []Provider{
		ConfigNextVersionProvider{},
		TaggedCommitProvider{},
		MergeMessageProvider{},
		BranchNameProvider{},
		FallbackProvider{},
	}
}
