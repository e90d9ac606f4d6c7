// Package nextver computes a Semantic Version for a Git working copy by
// combining the repository adapter, configuration, branch resolution,
// base-version arbitration, increment strategy, and pre-release
// formatting into a single next-version calculation.
package nextver

import (
	"github.com/nextver/nextver/config"
	"github.com/nextver/nextver/gitrepo"
)

// GitContext is the immutable per-invocation snapshot every downstream
// step reads from. It is built once and never mutated afterward.
type GitContext struct {
	CurrentBranch     string
	CurrentCommit     gitrepo.Hash
	RepositoryAdapter gitrepo.Adapter
	ResolvedConfig    *config.Configuration
	BranchConfig      *config.BranchConfig
}
