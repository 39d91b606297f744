package storage

import (
	stderrors "errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	errs "wallheaven-sync/pkg/errors"
)

// LockFile is created in the storage root while a command holds the store
const LockFile = ".wallheaven-sync.lock"

// ErrLocked is returned when another process holds the storage root
var ErrLocked = stderrors.New("storage is in use by another wallheaven-sync process")

// Lock takes an exclusive lock on the storage root without blocking.
// The root must already exist.
// The returned function releases it.
func (s *Store) Lock() (func() error, error) {
	if !s.Exists() {
		return nil, errs.New(errs.ErrorTypeStorage, fmt.Sprintf("storage root %s does not exist", s.root))
	}

	lock := flock.New(filepath.Join(s.root, LockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeStorage, err, "failed to acquire storage lock")
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock file %s)", ErrLocked, lock.Path())
	}

	return lock.Unlock, nil
}
