// Package lockfile provides dhstore's single-writer guard: an
// advisory file lock over a store's root directory, backed by
// github.com/juju/fslock. It exists because the store façade assumes
// exclusive access (spec.md §5) but has no other way to detect a
// second process opening the same path.
package lockfile

import (
	"path/filepath"

	"github.com/juju/fslock"

	"github.com/dhstore/dhstore/dherr"
)

// Lock is a held advisory lock over one store root. The zero value is
// not usable; construct with Acquire.
type Lock struct {
	fl *fslock.Lock
}

// Acquire takes the exclusive lock for the store rooted at dir,
// failing immediately (rather than blocking) if another process
// already holds it.
func Acquire(dir string) (*Lock, error) {
	fl := fslock.New(filepath.Join(dir, ".dhstore.lock"))
	if err := fl.TryLock(); err != nil {
		return nil, dherr.IO("lockfile: another process holds the store lock", err)
	}
	return &Lock{fl: fl}, nil
}

// Release gives up the lock.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return dherr.IO("lockfile: releasing store lock", err)
	}
	return nil
}
