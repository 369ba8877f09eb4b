package ledger

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrLockTimeout indicates the ledger lock could not be acquired within its
// bounded wait. No counter mutation happens in that case.
var ErrLockTimeout = errors.New("ledger: lock wait timed out")

// Locker guards the ledger's read-modify-write critical section. Acquire
// blocks at most the configured wait and returns a release function that must
// be called on every exit path.
type Locker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// MutexLocker is the in-process Locker: a weighted semaphore of capacity one
// acquired with a context-bounded wait.
type MutexLocker struct {
	sem  *semaphore.Weighted
	wait time.Duration
}

// NewMutexLocker builds a MutexLocker with the given maximum wait.
func NewMutexLocker(wait time.Duration) *MutexLocker {
	if wait <= 0 {
		wait = 30 * time.Second
	}
	return &MutexLocker{sem: semaphore.NewWeighted(1), wait: wait}
}

// Acquire implements Locker.
func (l *MutexLocker) Acquire(ctx context.Context) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, ErrLockTimeout
	}
	return func() { l.sem.Release(1) }, nil
}
