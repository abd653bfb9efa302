// Package lock implements the cross-process named locks embedded in the
// shared memory header's Locks array. Each lock is a single int32 word:
// 0 means free, 1 means held. Acquisition is a compare-and-swap on that
// word followed by a futex-style wait when contended, so two unrelated
// processes mapping the same region can block on the same word without
// either one owning the mapping.
package lock

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ehrlich-b/beamformer-shm/internal/constants"
)

const (
	stateFree = 0
	stateHeld = 1
)

// Word is a handle to one lock word living inside the shared region.
// Callers obtain one via FromPointer, which must point at a live int32
// inside the mapped region — Word never allocates or owns memory.
type Word struct {
	addr *int32
}

// FromPointer wraps an existing int32 slot (typically
// &header.Locks[idx]) as a Word.
func FromPointer(addr *int32) Word {
	return Word{addr: addr}
}

// Peek reports whether the lock is currently held, without acquiring
// it. Matches the original library's ability to "peek at the status of
// the lock without leaving userspace."
func (w Word) Peek() bool {
	return atomic.LoadInt32(w.addr) == stateHeld
}

// TryAcquire attempts to take the lock, waiting up to timeout for it to
// become free. A timeout of 0 means try once and return immediately. A
// negative timeout blocks until ctx is done or the lock is acquired.
func (w Word) TryAcquire(ctx context.Context, timeout time.Duration) bool {
	if atomic.CompareAndSwapInt32(w.addr, stateFree, stateHeld) {
		return true
	}
	if timeout == 0 {
		return false
	}

	deadline, hasDeadline := time.Time{}, false
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
		hasDeadline = true
	}

	for {
		if hasDeadline {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return false
			}
			waitOnWord(ctx, w.addr, stateHeld, remaining)
		} else {
			waitOnWord(ctx, w.addr, stateHeld, constants.LockWaitPollInterval)
		}

		select {
		case <-ctx.Done():
			return false
		default:
		}

		if atomic.CompareAndSwapInt32(w.addr, stateFree, stateHeld) {
			return true
		}
		if hasDeadline && !time.Now().Before(deadline) {
			return false
		}
	}
}

// Release marks the lock free and wakes one waiter. Releasing a lock
// that is not held is a caller bug in release builds (it silently
// becomes a no-op, mirroring the original's debug-only assertion around
// post_sync_barrier) but is always safe to call in debug/test code that
// wants symmetric acquire/release regardless of who actually holds it.
func (w Word) Release() {
	if atomic.CompareAndSwapInt32(w.addr, stateHeld, stateFree) {
		wakeWord(w.addr)
	}
}

// PostSyncBarrier releases the lock only if it is currently held,
// exactly mirroring post_sync_barrier's guarded unlock: a consumer that
// processed a work item carrying a lock it never acquired (because the
// item was malformed, say) must not release someone else's lock.
func (w Word) PostSyncBarrier() {
	w.Release()
}
