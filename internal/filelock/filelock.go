// Package filelock provides advisory file locking and atomic file replacement
// for the pipeline state store. Locks coordinate across processes, not just
// goroutines: the intended callers are independent CLI invocations racing on
// the same state file.
package filelock

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// Lock is an advisory, per-path exclusive lock.
type Lock struct {
	flock *flock.Flock
	path  string
}

// New creates a lock backed by the file at path. The lock file is created on
// first acquisition and left in place after release.
func New(path string) *Lock {
	return &Lock{
		flock: flock.New(path),
		path:  path,
	}
}

// TryAcquire attempts to take the lock without blocking. It returns false
// when another process holds the lock.
func (l *Lock) TryAcquire() (bool, error) {
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("try lock %s: %w", l.path, err)
	}
	return acquired, nil
}

// AcquireWithin spins on TryAcquire up to attempts times, sleeping backoff
// between tries. It returns true if the lock was taken within the budget.
// Lock-layer errors count as a failed attempt rather than surfacing: callers
// fall back to an unlocked write instead of failing the pipeline.
func (l *Lock) AcquireWithin(attempts int, backoff time.Duration) bool {
	for i := 0; i < attempts; i++ {
		if acquired, err := l.TryAcquire(); err == nil && acquired {
			return true
		}
		time.Sleep(backoff)
	}
	return false
}

// Release drops the lock.
func (l *Lock) Release() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("unlock %s: %w", l.path, err)
	}
	return nil
}

// AtomicWrite replaces the file at path with data via a same-directory temp
// file and rename, so a reader never observes a partially written file. The
// parent directory is created if missing. On any failure the original file is
// left untouched.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	// Temp file must live in the target directory: rename is only atomic
	// within one filesystem.
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file to %s: %w", path, err)
	}

	tmp = nil
	return nil
}
