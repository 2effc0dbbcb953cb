package state

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileName = "fred.lock"

// Lock is a file-based lock on the state directory. Reconciliation assumes
// a single writer; the lock turns a second process into a hard error
// instead of silent state corruption.
type Lock struct {
	lock *flock.Flock
	path string
}

// Acquire takes the state-directory lock, failing immediately when another
// process holds it.
func Acquire(dir string) (*Lock, error) {
	path := filepath.Join(dir, lockFileName)
	l := flock.New(path)

	locked, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock on %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("another fred process is using %s", dir)
	}
	return &Lock{lock: l, path: path}, nil
}

// Release drops the lock and removes the lock file.
func (l *Lock) Release() error {
	if err := l.lock.Unlock(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	_ = os.Remove(l.path)
	return nil
}
