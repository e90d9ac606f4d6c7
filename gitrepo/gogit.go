package gitrepo

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GoGitAdapter implements Adapter over a *git.Repository opened with
// go-git. It is the only Adapter implementation nextver ships; callers who
// want a different backing library implement Adapter themselves.
type GoGitAdapter struct {
	repo *git.Repository
}

// OpenRepository opens a Git repository at path, searching parent
// directories for ".git" the way a normal Git client does.
func OpenRepository(path string) (*GoGitAdapter, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening git repository at %q: %w", path, err)
	}
	return &GoGitAdapter{repo: repo}, nil
}

// NewGoGitAdapter wraps an already-open *git.Repository, mainly for tests
// that build repositories in memory.
func NewGoGitAdapter(repo *git.Repository) *GoGitAdapter {
	return &GoGitAdapter{repo: repo}
}

// Head implements Adapter.
func (a *GoGitAdapter) Head(_ context.Context) (Hash, error) {
	ref, err := a.repo.Head()
	if err != nil {
		return ZeroHash, fmt.Errorf("resolving HEAD: %w", err)
	}
	return Hash(ref.Hash().String()), nil
}

// CurrentBranch implements Adapter.
func (a *GoGitAdapter) CurrentBranch(_ context.Context) (string, error) {
	ref, err := a.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}
	if !ref.Name().IsBranch() {
		return "", ErrDetachedHead
	}
	return ref.Name().Short(), nil
}

// Commit implements Adapter.
func (a *GoGitAdapter) Commit(_ context.Context, sha Hash) (CommitInfo, error) {
	commit, err := a.repo.CommitObject(plumbing.NewHash(string(sha)))
	if err != nil {
		return CommitInfo{}, fmt.Errorf("getting commit %s: %w", sha, err)
	}
	return toCommitInfo(commit), nil
}

// CommitsFrom implements Adapter.
func (a *GoGitAdapter) CommitsFrom(_ context.Context, from Hash) ([]CommitInfo, error) {
	commit, err := a.repo.CommitObject(plumbing.NewHash(string(from)))
	if err != nil {
		return nil, fmt.Errorf("getting commit %s: %w", from, err)
	}
	walker := object.NewCommitPreorderIter(commit, nil, nil)
	var out []CommitInfo
	err = walker.ForEach(func(c *object.Commit) error {
		out = append(out, toCommitInfo(c))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking commits from %s: %w", from, err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CommitterDate.After(out[j].CommitterDate)
	})
	return out, nil
}

func toCommitInfo(c *object.Commit) CommitInfo {
	parents := make([]Hash, 0, len(c.ParentHashes))
	for _, p := range c.ParentHashes {
		parents = append(parents, Hash(p.String()))
	}
	return CommitInfo{
		SHA:           Hash(c.Hash.String()),
		Message:       c.Message,
		Parents:       parents,
		CommitterDate: c.Committer.When,
	}
}

// Tags implements Adapter.
func (a *GoGitAdapter) Tags(_ context.Context) ([]TagInfo, error) {
	refs, err := a.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	var out []TagInfo
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		commit, resolveErr := a.resolveTagCommit(ref)
		if resolveErr != nil {
			// Skip tags we cannot resolve to a commit rather than failing
			// the whole listing.
			return nil
		}
		out = append(out, TagInfo{Name: ref.Name().Short(), Commit: commit})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterating tags: %w", err)
	}
	return out, nil
}

// TagsOn implements Adapter.
func (a *GoGitAdapter) TagsOn(ctx context.Context, commit Hash) ([]TagInfo, error) {
	all, err := a.Tags(ctx)
	if err != nil {
		return nil, err
	}
	var out []TagInfo
	for _, tag := range all {
		if tag.Commit == commit {
			out = append(out, tag)
		}
	}
	return out, nil
}

func (a *GoGitAdapter) resolveTagCommit(ref *plumbing.Reference) (Hash, error) {
	if commit, err := a.repo.CommitObject(ref.Hash()); err == nil {
		return Hash(commit.Hash.String()), nil
	}
	tagObj, err := a.repo.TagObject(ref.Hash())
	if err != nil {
		return ZeroHash, fmt.Errorf("resolving tag %s: %w", ref.Name().Short(), err)
	}
	commit, err := a.repo.CommitObject(tagObj.Target)
	if err != nil {
		return ZeroHash, fmt.Errorf("resolving annotated tag %s: %w", ref.Name().Short(), err)
	}
	return Hash(commit.Hash.String()), nil
}

// Branch implements Adapter.
func (a *GoGitAdapter) Branch(_ context.Context, name string) (BranchInfo, error) {
	ref, err := a.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	if err != nil {
		return BranchInfo{}, fmt.Errorf("finding branch %q: %w", name, err)
	}
	return BranchInfo{Name: name, Tip: Hash(ref.Hash().String())}, nil
}

// MergeBase implements Adapter.
func (a *GoGitAdapter) MergeBase(_ context.Context, x, y Hash) (Hash, error) {
	commitX, err := a.repo.CommitObject(plumbing.NewHash(string(x)))
	if err != nil {
		return ZeroHash, fmt.Errorf("getting commit %s: %w", x, err)
	}
	commitY, err := a.repo.CommitObject(plumbing.NewHash(string(y)))
	if err != nil {
		return ZeroHash, fmt.Errorf("getting commit %s: %w", y, err)
	}
	bases, err := commitX.MergeBase(commitY)
	if err != nil {
		return ZeroHash, fmt.Errorf("computing merge base of %s and %s: %w", x, y, err)
	}
	if len(bases) == 0 {
		return ZeroHash, nil
	}
	return Hash(bases[0].Hash.String()), nil
}

// CommitsSince implements Adapter.
func (a *GoGitAdapter) CommitsSince(_ context.Context, commit, ancestor Hash) (int, error) {
	head, err := a.repo.CommitObject(plumbing.NewHash(string(commit)))
	if err != nil {
		return 0, fmt.Errorf("getting commit %s: %w", commit, err)
	}
	excluded := map[plumbing.Hash]bool{}
	if ancestor != ZeroHash {
		base, err := a.repo.CommitObject(plumbing.NewHash(string(ancestor)))
		if err != nil {
			return 0, fmt.Errorf("getting commit %s: %w", ancestor, err)
		}
		err = object.NewCommitPreorderIter(base, nil, nil).ForEach(func(c *object.Commit) error {
			excluded[c.Hash] = true
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("walking commits from %s: %w", ancestor, err)
		}
	}
	count := 0
	err = object.NewCommitPreorderIter(head, excluded, nil).ForEach(func(*object.Commit) error {
		count++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("counting commits since %s: %w", ancestor, err)
	}
	return count, nil
}

// StripTagPrefix removes a configured prefix (or the bare "v") and any
// path-style module component from a tag name, leaving a bare version
// string suitable for semver.Parse. Mirrors the teacher's
// stripModuleTagPrefixes for Go module-proxy-style tags ("sdk/v2.1.0").
func StripTagPrefix(tag, configuredPrefix string) string {
	_, last := splitPath(tag)
	if configuredPrefix != "" && strings.HasPrefix(last, configuredPrefix) {
		return strings.TrimPrefix(last, configuredPrefix)
	}
	return strings.TrimPrefix(last, "v")
}

func splitPath(tag string) (dir, last string) {
	idx := strings.LastIndexByte(tag, '/')
	if idx < 0 {
		return "", tag
	}
	return tag[:idx], tag[idx+1:]
}
