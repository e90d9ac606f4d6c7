package gitrepo

import (
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
)

// TestSignature is a fixed author/committer signature used by every test
// fixture in this package, so commit output is deterministic except for
// the timestamp.
var TestSignature = &object.Signature{
	Name:  "nextver-test",
	Email: "nextver-test@example.com",
	When:  time.Now(),
}

// NewTestRepo creates an empty in-memory repository with an in-memory
// worktree, for tests that build commit histories by hand.
func NewTestRepo() (*git.Repository, error) {
	storage := memory.NewStorage()
	fs := memfs.New()
	return git.Init(storage, fs)
}

// CommitFile writes a file with the given content into the repository's
// worktree, stages it, and commits it with TestSignature.
func CommitFile(repo *git.Repository, filename, content, message string) (plumbing.Hash, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if err := writeFile(wt.Filesystem, filename, content); err != nil {
		return plumbing.ZeroHash, err
	}
	if _, err := wt.Add(filename); err != nil {
		return plumbing.ZeroHash, err
	}
	return wt.Commit(message, &git.CommitOptions{Author: TestSignature})
}

// CommitMerge records a merge commit on the current worktree, with
// otherParent as an additional parent alongside the current HEAD.
func CommitMerge(repo *git.Repository, message string, otherParent plumbing.Hash) (plumbing.Hash, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	head, err := repo.Head()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return wt.Commit(message, &git.CommitOptions{
		Author:  TestSignature,
		Parents: []plumbing.Hash{head.Hash(), otherParent},
	})
}

// Tag creates a lightweight tag named name pointing at commit.
func Tag(repo *git.Repository, name string, commit plumbing.Hash) error {
	_, err := repo.CreateTag(name, commit, nil)
	return err
}

// AnnotatedTag creates an annotated tag named name pointing at commit.
func AnnotatedTag(repo *git.Repository, name string, commit plumbing.Hash) error {
	_, err := repo.CreateTag(name, commit, &git.CreateTagOptions{
		Tagger:  TestSignature,
		Message: "release " + name,
	})
	return err
}

// Branch creates a branch reference named name pointing at commit and
// checks it out, so subsequent CommitFile calls extend that branch.
func Branch(repo *git.Repository, name string, commit plumbing.Hash) error {
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), commit)
	if err := repo.Storer.SetReference(ref); err != nil {
		return err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	return wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(name)})
}

func writeFile(fs billy.Filesystem, filename, content string) error {
	file, err := fs.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = file.Write([]byte(content))
	return err
}
