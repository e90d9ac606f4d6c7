package nextver

import (
	"context"

	"github.com/nextver/nextver/baseversion"
	"github.com/nextver/nextver/config"
	"github.com/nextver/nextver/gitrepo"
	"github.com/nextver/nextver/increment"
	"github.com/nextver/nextver/prerelease"
	"github.com/nextver/nextver/semver"
)

// assemble applies the increment engine and the pre-release formatter to
// the arbiter's winning candidate, producing the final SemanticVersion
// (spec §4.7, §4.8).
func assemble(ctx context.Context, gctx *GitContext, winner *baseversion.Candidate) (*semver.SemanticVersion, error) {
	commitsSinceBase, err := commitsSince(ctx, gctx.RepositoryAdapter, gctx.CurrentCommit, winner.BaseVersionSource)
	if err != nil {
		return nil, &RepositoryError{Op: "enumerating commits since base version", Err: err}
	}

	v := winner.SemVer.Clone()
	decision := increment.Decide(winner, gctx.BranchConfig, commitsSinceBase)
	increment.Apply(v, decision)

	head, err := gctx.RepositoryAdapter.Commit(ctx, gctx.CurrentCommit)
	if err != nil {
		return nil, &RepositoryError{Op: "reading HEAD commit", Err: err}
	}

	prerelease.Format(v, gctx.BranchConfig, gctx.CurrentBranch, head, commitsSinceBase)

	if v.Pre != nil {
		seedTagSeeding(ctx, gctx, v, len(commitsSinceBase))
	}

	return v, nil
}

// commitsSince enumerates the commits reachable from head but not from
// base, newest-first. A gitrepo.ZeroHash base means "count from
// repository root": every commit reachable from head.
func commitsSince(ctx context.Context, repo gitrepo.Adapter, head, base gitrepo.Hash) ([]gitrepo.CommitInfo, error) {
	all, err := repo.CommitsFrom(ctx, head)
	if err != nil {
		return nil, err
	}
	if base == gitrepo.ZeroHash {
		return all, nil
	}
	baseHistory, err := repo.CommitsFrom(ctx, base)
	if err != nil {
		return nil, err
	}
	reachableFromBase := make(map[gitrepo.Hash]bool, len(baseHistory))
	for _, c := range baseHistory {
		reachableFromBase[c.SHA] = true
	}
	out := make([]gitrepo.CommitInfo, 0, len(all))
	for _, c := range all {
		if !reachableFromBase[c.SHA] {
			out = append(out, c)
		}
	}
	return out, nil
}

// seedTagSeeding folds any previously-tagged pre-release of the same
// label into v's pre-release counter (spec §4.8: a tag "0.1.0-test.1"
// seeds the baseline so the next commit is "test.2").
func seedTagSeeding(ctx context.Context, gctx *GitContext, v *semver.SemanticVersion, commitsSinceTag int) {
	if gctx.BranchConfig.VersioningMode != config.ContinuousDelivery {
		return
	}
	tags, err := gctx.RepositoryAdapter.Tags(ctx)
	if err != nil {
		return
	}
	baseline := prerelease.TagSeed(v.Pre.Name, tags, gctx.ResolvedConfig.TagPrefix)
	if baseline > 0 {
		prerelease.SeedCounter(v, baseline, commitsSinceTag)
	}
}
