package update

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock is an exclusive advisory lock serializing syncs against one install
type Lock struct {
	fl *flock.Flock
}

// AcquireLock takes the lock at path without waiting.
// Returns ErrLocked if another process holds it.
func AcquireLock(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock held: %s)", ErrLocked, path)
	}

	return &Lock{fl: fl}, nil
}

// Path returns the lock file location
func (l *Lock) Path() string {
	return l.fl.Path()
}

// Release unlocks. The lock file itself is left on disk.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
