package signatures

import (
	"fmt"
	"os"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

const lockFileSuffix = ".lock"

// fileLock serializes read-modify-write cycles across processes
type fileLock struct {
	lock   *flock.Flock
	path   string
	logger *zap.Logger
}

func newFileLock(storePath string, logger *zap.Logger) *fileLock {
	lockPath := storePath + lockFileSuffix
	return &fileLock{
		lock:   flock.New(lockPath),
		path:   lockPath,
		logger: logger,
	}
}

// Lock acquires the lock, waiting if another process holds it
func (l *fileLock) Lock() error {
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}

	if !locked {
		l.logger.Info("Another process is updating the signature store, waiting", zap.String("lock", l.path))
		if err := l.lock.Lock(); err != nil {
			return fmt.Errorf("failed to acquire lock on %s after waiting: %w", l.path, err)
		}
	}
	return nil
}

// Unlock releases the lock
func (l *fileLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}
