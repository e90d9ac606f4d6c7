package baseversion

import (
	"context"
	"regexp"

	"github.com/nextver/nextver/config"
	"github.com/nextver/nextver/gitrepo"
	"github.com/nextver/nextver/semver"
)

// ConfigNextVersionProvider is P1: if NextVersion is set, it is the
// intended output outright. It never asks the increment engine to bump.
type ConfigNextVersionProvider struct{}

func (ConfigNextVersionProvider) Propose(_ context.Context, _ gitrepo.Adapter, cfg *config.Configuration, _ *config.BranchConfig, _ string, _ gitrepo.Hash) ([]Candidate, error) {
	if cfg.NextVersion == "" {
		return nil, nil
	}
	v, err := semver.Parse(cfg.NextVersion)
	if err != nil {
		return nil, err
	}
	return []Candidate{{
		Source:            "NextVersion in config",
		ShouldIncrement:   false,
		SemVer:            v,
		BaseVersionSource: gitrepo.ZeroHash,
	}}, nil
}

// TaggedCommitProvider is P2: every reachable tag that parses as a SemVer
// is a candidate. A tag sitting on the current commit does not need a
// further bump; any other tag does.
type TaggedCommitProvider struct{}

func (TaggedCommitProvider) Propose(ctx context.Context, repo gitrepo.Adapter, cfg *config.Configuration, _ *config.BranchConfig, _ string, currentCommit gitrepo.Hash) ([]Candidate, error) {
	commits, err := repo.CommitsFrom(ctx, currentCommit)
	if err != nil {
		return nil, err
	}
	var candidates []Candidate
	for _, c := range commits {
		if cfg.Ignore.Shas[string(c.SHA)] {
			continue
		}
		tags, err := repo.TagsOn(ctx, c.SHA)
		if err != nil {
			return nil, err
		}
		for _, tag := range tags {
			stripped := gitrepo.StripTagPrefix(tag.Name, cfg.TagPrefix)
			v, err := semver.Parse(stripped)
			if err != nil {
				continue
			}
			candidates = append(candidates, Candidate{
				Source:            "Git tag " + v.String(),
				ShouldIncrement:   c.SHA != currentCommit,
				SemVer:            v,
				BaseVersionSource: c.SHA,
			})
		}
	}
	return candidates, nil
}

// MergeMessageProvider is P3: merge-commit messages that embed a version
// reference (spec's configured mergeMessageFormats, e.g. "Merge branch
// 'release/1.2.3'") anchor a candidate at that merge commit.
type MergeMessageProvider struct{}

func (MergeMessageProvider) Propose(ctx context.Context, repo gitrepo.Adapter, cfg *config.Configuration, _ *config.BranchConfig, _ string, currentCommit gitrepo.Hash) ([]Candidate, error) {
	commits, err := repo.CommitsFrom(ctx, currentCommit)
	if err != nil {
		return nil, err
	}
	var candidates []Candidate
	for _, c := range commits {
		if !c.IsMerge() || cfg.Ignore.Shas[string(c.SHA)] {
			continue
		}
		for _, format := range cfg.MergeMessageFormats {
			m := format.FindStringSubmatch(c.Message)
			if m == nil {
				continue
			}
			ref := m[len(m)-1]
			versionPart := versionSubstring.FindString(ref)
			if versionPart == "" {
				continue
			}
			v, err := semver.Parse(versionPart)
			if err != nil {
				continue
			}
			candidates = append(candidates, Candidate{
				Source:            "Merge commit into " + string(c.SHA),
				ShouldIncrement:   true,
				SemVer:            v,
				BaseVersionSource: c.SHA,
			})
			break
		}
	}
	return candidates, nil
}

// BranchNameProvider is P4: a branch like "release/1.2.3" or
// "hotfix/1.2.3" names its own exact intended version.
type BranchNameProvider struct{}

var versionSubstring = regexp.MustCompile(`\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?`)

func (BranchNameProvider) Propose(_ context.Context, _ gitrepo.Adapter, _ *config.Configuration, _ *config.BranchConfig, currentBranch string, _ gitrepo.Hash) ([]Candidate, error) {
	match := versionSubstring.FindString(currentBranch)
	if match == "" {
		return nil, nil
	}
	v, err := semver.Parse(match)
	if err != nil {
		return nil, nil
	}
	return []Candidate{{
		Source:            "Branch name " + currentBranch,
		ShouldIncrement:   false,
		SemVer:            v,
		BaseVersionSource: gitrepo.ZeroHash,
	}}, nil
}

// FallbackProvider is P5: when nothing else proposes a candidate, the
// fallback guarantees at least one: 0.0.0, wanting an increment so the
// increment engine's branch-configured default still applies.
type FallbackProvider struct{}

func (FallbackProvider) Propose(_ context.Context, _ gitrepo.Adapter, _ *config.Configuration, _ *config.BranchConfig, _ string, _ gitrepo.Hash) ([]Candidate, error) {
	v := &semver.SemanticVersion{Major: 0, Minor: 0, Patch: 0}
	return []Candidate{{
		Source:            "Fallback",
		ShouldIncrement:   true,
		SemVer:            v,
		BaseVersionSource: gitrepo.ZeroHash,
	}}, nil
}
