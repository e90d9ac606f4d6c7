package baseversion

import (
	"context"

	"github.com/nextver/nextver/config"
	"github.com/nextver/nextver/gitrepo"
	"github.com/nextver/nextver/semver"
)

// Arbitrate runs every provider and reduces their candidates to a single
// winner per spec §4.6: group candidates that compare equal by SemVer
// precedence, take the highest-precedence group, and within that group an
// explicit "this is the version" assertion (any shouldIncrement == false)
// suppresses further bumping for the whole group.
func Arbitrate(ctx context.Context, providers []Provider, repo gitrepo.Adapter, cfg *config.Configuration, bc *config.BranchConfig, currentBranch string, currentCommit gitrepo.Hash) (*Candidate, error) {
	var all []Candidate
	for _, p := range providers {
		candidates, err := p.Propose(ctx, repo, cfg, bc, currentBranch, currentCommit)
		if err != nil {
			return nil, err
		}
		all = append(all, candidates...)
	}
	if len(all) == 0 {
		return nil, &NoCandidateError{}
	}

	highest := all[0].SemVer
	for _, c := range all[1:] {
		if semver.Compare(c.SemVer, highest) > 0 {
			highest = c.SemVer
		}
	}

	var group []Candidate
	for _, c := range all {
		if semver.Compare(c.SemVer, highest) == 0 {
			group = append(group, c)
		}
	}

	shouldIncrement := true
	source := group[0].Source
	baseVersionSource := gitrepo.ZeroHash
	haveSource := false
	for _, c := range group {
		if !c.ShouldIncrement {
			shouldIncrement = false
		}
		if !haveSource && c.BaseVersionSource != gitrepo.ZeroHash {
			baseVersionSource = c.BaseVersionSource
			haveSource = true
		}
	}

	return &Candidate{
		Source:            source,
		ShouldIncrement:   shouldIncrement,
		SemVer:            highest,
		BaseVersionSource: baseVersionSource,
	}, nil
}

// NoCandidateError indicates every provider declined to propose a base
// version, which should not happen since FallbackProvider always does.
type NoCandidateError struct{}

func (*NoCandidateError) Error() string {
	return "no base-version candidate was proposed by any provider"
}
