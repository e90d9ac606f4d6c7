// Package cache memoizes a computed version against the commit and
// configuration that produced it, so repeated invocations against an
// unchanged HEAD can skip re-walking history entirely. It is ambient,
// supplemented machinery: the calculation engine itself never touches
// disk (spec §1), but real CI usage re-invokes the tool on every push to
// the same ref, and GitVersion itself ships a cache for exactly this
// reason.
//
// Storage mirrors compozy-releasepr's JSONStateRepository: a single JSON
// document under afero.Fs, guarded by a gofrs/flock advisory lock so two
// concurrent invocations in the same worktree don't race, written
// atomically via a temp file plus rename.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/spf13/afero"

	"github.com/nextver/nextver/config"
	"github.com/nextver/nextver/semver"
)

const (
	// FileName is the cache document's name, stored inside the
	// repository's .git directory so it never ends up committed.
	FileName = "nextver-cache.json"

	schemaVersion = "1"

	filePermissions = 0o600
	dirPermissions  = 0o700

	lockBaseDelay  = 10 * time.Millisecond
	lockMaxRetries = 30
)

// entry is one memoized calculation result.
type entry struct {
	Version    string    `json:"version"`
	ComputedAt time.Time `json:"computed_at"`
}

// document is the on-disk shape of the whole cache file.
type document struct {
	SchemaVersion string           `json:"schema_version"`
	Entries       map[string]entry `json:"entries"`
}

// Store is a JSON-backed, lock-guarded cache of computed versions, keyed
// by commit SHA + configuration hash.
type Store struct {
	fs   afero.Fs
	path string
}

// New returns a Store persisting to <gitDir>/nextver-cache.json. gitDir
// is ordinarily the repository's .git directory, so the cache file rides
// alongside other repository-local, non-committed state.
func New(fs afero.Fs, gitDir string) *Store {
	return &Store{fs: fs, path: filepath.Join(gitDir, FileName)}
}

// Key derives the cache key for a commit SHA and a configuration hash
// (see HashConfiguration). Two calculations with the same HEAD but a
// different effective configuration must not share a cache entry.
func Key(commitSHA, configHash string) string {
	sum := sha256.Sum256([]byte(commitSHA + ":" + configHash))
	return hex.EncodeToString(sum[:])
}

// HashConfiguration derives a stable hash of the fields of cfg that can
// influence a calculation's outcome. cfg.Branches holds compiled
// *regexp.Regexp values that don't round-trip through json.Marshal
// meaningfully, so the hash is built from an explicit, ordered
// rendering instead of a generic struct marshal.
func HashConfiguration(cfg *config.Configuration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "next-version=%s\n", cfg.NextVersion)
	fmt.Fprintf(&b, "tag-prefix=%s\n", cfg.TagPrefix)
	fmt.Fprintf(&b, "versioning-mode=%s\n", cfg.VersioningMode)
	fmt.Fprintf(&b, "increment=%s\n", cfg.Increment)

	shas := make([]string, 0, len(cfg.Ignore.Shas))
	for sha := range cfg.Ignore.Shas {
		shas = append(shas, sha)
	}
	sort.Strings(shas)
	fmt.Fprintf(&b, "ignore-shas=%s\n", strings.Join(shas, ","))
	if cfg.Ignore.CommitsBeforeDate != nil {
		fmt.Fprintf(&b, "commits-before-date=%s\n", cfg.Ignore.CommitsBeforeDate.Format(time.RFC3339))
	}

	for _, pattern := range cfg.MergeMessageFormats {
		fmt.Fprintf(&b, "merge-message-format=%s\n", pattern.String())
	}

	for _, name := range cfg.BranchOrder {
		bc, ok := cfg.Branches[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "branch=%s regex=%s tag=%s increment=%s mode=%s prevent-increment=%t track-merge-target=%t sources=%s release=%t mainline=%t\n",
			name, bc.Regex.String(), bc.Tag, bc.Increment, bc.VersioningMode,
			bc.PreventIncrementOfMergedBranchVersion, bc.TrackMergeTarget,
			strings.Join(bc.SourceBranches, ","), bc.IsReleaseBranch, bc.IsMainline)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached version for key, if present. A miss is not an
// error: ok is false and err is nil.
func (s *Store) Get(ctx context.Context, key string) (v *semver.SemanticVersion, ok bool, err error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, false, err
	}
	e, found := doc.Entries[key]
	if !found {
		return nil, false, nil
	}
	parsed, err := semver.Parse(e.Version)
	if err != nil {
		// A corrupted or foreign-written entry is a cache miss, not a
		// fatal error: recompute and overwrite it.
		return nil, false, nil
	}
	return parsed, true, nil
}

// Put memoizes v under key, creating the cache file and its directory if
// necessary.
func (s *Store) Put(ctx context.Context, key string, v *semver.SemanticVersion) error {
	return s.withLock(ctx, func() error {
		doc, err := s.readLocked()
		if err != nil {
			return err
		}
		doc.Entries[key] = entry{Version: v.String(), ComputedAt: time.Now()}
		return s.writeLocked(doc)
	})
}

// Clear removes every memoized entry, backing the `cache clear`
// subcommand.
func (s *Store) Clear(ctx context.Context) error {
	return s.withLock(ctx, func() error {
		return s.writeLocked(document{SchemaVersion: schemaVersion, Entries: map[string]entry{}})
	})
}

// read acquires a shared lock for the duration of a single read.
func (s *Store) read(ctx context.Context) (document, error) {
	var doc document
	err := s.withSharedLock(ctx, func() error {
		var readErr error
		doc, readErr = s.readLocked()
		return readErr
	})
	return doc, err
}

// readLocked loads the document assuming the caller already holds the
// appropriate lock. A missing file is treated as an empty, fresh cache.
func (s *Store) readLocked() (document, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return document{SchemaVersion: schemaVersion, Entries: map[string]entry{}}, nil
		}
		return document{}, fmt.Errorf("reading cache file: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		// Corrupted cache: start fresh rather than failing the
		// calculation over stale or foreign bytes.
		return document{SchemaVersion: schemaVersion, Entries: map[string]entry{}}, nil
	}
	if doc.Entries == nil {
		doc.Entries = map[string]entry{}
	}
	return doc, nil
}

// writeLocked writes doc atomically: a temp file in the same directory,
// then a rename, exactly as compozy-releasepr's JSONStateRepository.Save
// does.
func (s *Store) writeLocked(doc document) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), dirPermissions); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling cache document: %w", err)
	}
	tempFile := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tempFile, data, filePermissions); err != nil {
		return fmt.Errorf("writing temp cache file: %w", err)
	}
	if err := s.fs.Rename(tempFile, s.path); err != nil {
		_ = s.fs.Remove(tempFile)
		return fmt.Errorf("renaming cache file into place: %w", err)
	}
	return nil
}

func (s *Store) lockPath() string {
	return s.path + ".lock"
}

// withLock runs fn holding an exclusive lock on the cache file, retrying
// acquisition with bounded exponential backoff via sethvargo/go-retry,
// mirroring compozy-releasepr's saga_executor retry of a flaky step.
func (s *Store) withLock(ctx context.Context, fn func() error) error {
	return s.acquire(ctx, advisoryLock.TryLock, fn)
}

// withSharedLock is the read-side counterpart of withLock.
func (s *Store) withSharedLock(ctx context.Context, fn func() error) error {
	return s.acquire(ctx, advisoryLock.TryRLock, fn)
}

func (s *Store) acquire(ctx context.Context, tryLock func(advisoryLock) (bool, error), fn func() error) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), dirPermissions); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	lock := newAdvisoryLock(s.fs, s.lockPath())
	defer func() {
		_ = lock.Unlock()
	}()

	backoff := retry.WithMaxRetries(lockMaxRetries, retry.NewExponential(lockBaseDelay))
	err := retry.Do(ctx, backoff, func(retryCtx context.Context) error {
		locked, lockErr := tryLock(lock)
		if lockErr != nil {
			return retry.RetryableError(lockErr)
		}
		if !locked {
			return retry.RetryableError(fmt.Errorf("cache lock %s held by another process", s.lockPath()))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("acquiring cache lock: %w", err)
	}

	return fn()
}

// GitDir derives the .git directory to store a cache file alongside,
// given a repository's working-tree root. Bare repositories and
// worktrees are out of scope: this is a convenience for the common case
// the CLI runs in.
func GitDir(repoPath string) string {
	return filepath.Join(repoPath, ".git")
}
