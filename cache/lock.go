package cache

import (
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"
)

// advisoryLock is the narrow locking capability withLock/withSharedLock
// need. osLock backs it with a real gofrs/flock (one process, one file
// descriptor, safe across processes). memLock backs it with a
// process-local RWMutex keyed by path, for any afero.Fs that isn't the
// real OS filesystem (afero.NewMemMapFs() in tests, most notably): a
// gofrs/flock needs a real file descriptor to hold an OS-level lock, and
// handing it a path that only exists inside an in-memory afero.Fs just
// fails against the real disk, regardless of what's backing Store.fs.
type advisoryLock interface {
	TryLock() (bool, error)
	TryRLock() (bool, error)
	Unlock() error
}

// newAdvisoryLock picks the lock implementation appropriate for fs: a
// real flock when fs is backed by the OS filesystem, an in-memory
// fallback otherwise.
func newAdvisoryLock(fs afero.Fs, path string) advisoryLock {
	if _, ok := fs.(*afero.OsFs); ok {
		return &osLock{Flock: flock.New(path)}
	}
	return newMemLock(path)
}

type osLock struct {
	*flock.Flock
}

func (l *osLock) TryLock() (bool, error)  { return l.Flock.TryLock() }
func (l *osLock) TryRLock() (bool, error) { return l.Flock.TryRLock() }
func (l *osLock) Unlock() error           { return l.Flock.Unlock() }

var (
	memLocksMu sync.Mutex
	memLocks   = map[string]*sync.RWMutex{}
)

func memLockFor(path string) *sync.RWMutex {
	memLocksMu.Lock()
	defer memLocksMu.Unlock()
	mu, ok := memLocks[path]
	if !ok {
		mu = &sync.RWMutex{}
		memLocks[path] = mu
	}
	return mu
}

// memLock adapts a process-local sync.RWMutex to advisoryLock, the same
// exclusive/shared/try-without-blocking shape flock.Flock exposes.
type memLock struct {
	mu     *sync.RWMutex
	held   bool
	shared bool
}

func newMemLock(path string) *memLock {
	return &memLock{mu: memLockFor(path)}
}

func (l *memLock) TryLock() (bool, error) {
	if l.mu.TryLock() {
		l.held, l.shared = true, false
		return true, nil
	}
	return false, nil
}

func (l *memLock) TryRLock() (bool, error) {
	if l.mu.TryRLock() {
		l.held, l.shared = true, true
		return true, nil
	}
	return false, nil
}

func (l *memLock) Unlock() error {
	if !l.held {
		return nil
	}
	if l.shared {
		l.mu.RUnlock()
	} else {
		l.mu.Unlock()
	}
	l.held = false
	return nil
}
