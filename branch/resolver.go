// Package branch resolves the current branch name against configuration
// into a single effective, fully concrete BranchConfig: matching,
// specificity ranking, and Inherit-field folding against the most likely
// source branch.
package branch

import (
	"context"
	"fmt"

	"github.com/nextver/nextver/config"
	"github.com/nextver/nextver/gitrepo"
)

// MergeBaseFinder is the narrow capability Resolve needs from a
// repository: the newest common ancestor of two branch tips. gitrepo.Adapter
// satisfies this directly.
type MergeBaseFinder interface {
	Branch(ctx context.Context, name string) (gitrepo.BranchInfo, error)
	MergeBase(ctx context.Context, a, b gitrepo.Hash) (gitrepo.Hash, error)
	Commit(ctx context.Context, sha gitrepo.Hash) (gitrepo.CommitInfo, error)
}

// Resolve computes the effective BranchConfig for currentBranch, folding
// any Inherit fields against the most likely source branch (spec §4.3).
func Resolve(ctx context.Context, repo MergeBaseFinder, cfg *config.Configuration, currentBranch string, currentCommit gitrepo.Hash) (*config.BranchConfig, error) {
	matched := match(cfg, currentBranch)
	if matched == nil {
		unknown, ok := cfg.Branches["unknown"]
		if !ok {
			return nil, fmt.Errorf("no branch configuration matched %q and no fallback \"unknown\" configuration exists", currentBranch)
		}
		matched = unknown
	}

	if matched.Increment != config.IncrementInherit {
		return matched, nil
	}

	source, err := findSourceBranch(ctx, repo, cfg, matched, currentBranch, currentCommit)
	if err != nil {
		return nil, err
	}
	if source == nil || source.Increment == config.IncrementInherit {
		unknown := cfg.Branches["unknown"]
		if unknown == nil || unknown.Increment == config.IncrementInherit {
			return resolvedCopy(matched, config.IncrementPatch), nil
		}
		return resolvedCopy(matched, unknown.Increment), nil
	}
	return resolvedCopy(matched, source.Increment), nil
}

// match finds the configured branch whose regex matches name with the
// longest literal prefix, breaking ties by BranchOrder (spec §4.3 rules
// 1 and 3). It returns nil if nothing matches.
func match(cfg *config.Configuration, name string) *config.BranchConfig {
	var best *config.BranchConfig
	bestSpecificity := -1
	bestOrder := len(cfg.BranchOrder)

	order := make(map[string]int, len(cfg.BranchOrder))
	for i, n := range cfg.BranchOrder {
		order[n] = i
	}

	for branchName, bc := range cfg.Branches {
		if branchName == "unknown" {
			continue
		}
		if !bc.Regex.MatchString(name) {
			continue
		}
		specificity := literalPrefixLen(bc.Regex.String())
		pos, known := order[branchName]
		if !known {
			pos = len(cfg.BranchOrder)
		}
		if specificity > bestSpecificity || (specificity == bestSpecificity && pos < bestOrder) {
			best = bc
			bestSpecificity = specificity
			bestOrder = pos
		}
	}
	return best
}

// literalPrefixLen measures how many leading characters of a regex
// pattern are literal (not a meta-character), as a practical stand-in for
// "most specific" (spec §4.3 rule 3: "longest literal prefix").
func literalPrefixLen(pattern string) int {
	runes := []rune(pattern)
	i := 0
	if i < len(runes) && runes[i] == '^' {
		i++
	}
	n := 0
	for ; i < len(runes); i++ {
		if isMeta(runes[i]) {
			break
		}
		n++
	}
	return n
}

func isMeta(r rune) bool {
	switch r {
	case '^', '$', '.', '*', '+', '?', '(', ')', '[', ']', '{', '}', '|', '\\':
		return true
	default:
		return false
	}
}

// findSourceBranch locates, among matched.SourceBranches, the branch whose
// merge-base with currentCommit is newest — the branch this one most
// likely branched from (spec §4.3 rule 4).
func findSourceBranch(ctx context.Context, repo MergeBaseFinder, cfg *config.Configuration, matched *config.BranchConfig, currentBranch string, currentCommit gitrepo.Hash) (*config.BranchConfig, error) {
	var best *config.BranchConfig
	var bestWhen *gitrepo.CommitInfo

	for _, sourceName := range matched.SourceBranches {
		sourceCfg, ok := cfg.Branches[sourceName]
		if !ok {
			continue
		}
		branchInfo, err := findMatchingBranchRef(ctx, repo, sourceCfg, currentBranch)
		if err != nil {
			continue
		}
		base, err := repo.MergeBase(ctx, branchInfo.Tip, currentCommit)
		if err != nil || base == gitrepo.ZeroHash {
			continue
		}
		commit, err := repo.Commit(ctx, base)
		if err != nil {
			continue
		}
		if bestWhen == nil || commit.CommitterDate.After(bestWhen.CommitterDate) {
			c := commit
			bestWhen = &c
			best = sourceCfg
		}
	}
	return best, nil
}

// findMatchingBranchRef resolves a concrete branch ref for a source
// *family* (e.g. "mainline" matches whichever of master/main exists).
func findMatchingBranchRef(ctx context.Context, repo MergeBaseFinder, family *config.BranchConfig, currentBranch string) (gitrepo.BranchInfo, error) {
	candidates := []string{family.Name, "master", "main", "develop", "development"}
	var lastErr error
	for _, name := range candidates {
		if name == currentBranch {
			continue
		}
		if info, err := repo.Branch(ctx, name); err == nil {
			if family.Regex.MatchString(info.Name) {
				return info, nil
			}
		} else {
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no branch ref matched family %q", family.Name)
	}
	return gitrepo.BranchInfo{}, lastErr
}

func resolvedCopy(base *config.BranchConfig, increment config.Increment) *config.BranchConfig {
	clone := *base
	clone.Increment = increment
	return &clone
}
