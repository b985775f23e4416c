package servoconfig

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Sentinel errors, the same typed-sentinel idiom the teacher's
// internal/lock package uses (lock.ErrLocked/ErrNotLocked/ErrInvalidLock),
// rewritten here against gofrs/flock instead of a hand-rolled PID file.
var (
	ErrLocked = errors.New("servo: another instance already holds the lock")
)

// InstanceLock is the single-instance guard over <servo-dir>/servo.lock,
// preventing two `servo serve` processes from fighting over the same
// SQLite file and TCP/UDP ports.
type InstanceLock struct {
	fl *flock.Flock
}

// NewInstanceLock returns a lock scoped to servoDir.
func NewInstanceLock(servoDir string) *InstanceLock {
	return &InstanceLock{fl: flock.New(filepath.Join(servoDir, "servo.lock"))}
}

// Acquire takes the lock without blocking, returning ErrLocked if another
// live process already holds it.
func (l *InstanceLock) Acquire() error {
	ok, err := l.fl.TryLock()
	if err != nil {
		return fmt.Errorf("servoconfig: acquiring instance lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

// Release gives up the lock.
func (l *InstanceLock) Release() error {
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("servoconfig: releasing instance lock: %w", err)
	}
	return nil
}
