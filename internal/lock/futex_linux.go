//go:build linux

package lock

import (
	"context"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Raw futex operation codes. x/sys/unix does not expose a high-level
// futex wrapper, so these are issued directly via unix.Syscall, the
// same raw-syscall style used for the region's mmap calls.
const (
	futexWait = 0
	futexWake = 1
)

// waitOnWord blocks until *addr no longer equals expected or timeout
// elapses, whichever comes first. ctx is checked only before the wait
// starts; a cancellation during the wait is seen once it returns. A
// spurious wake is always safe: callers re-check the CAS after returning.
func waitOnWord(ctx context.Context, addr *int32, expected int32, timeout time.Duration) {
	if ctx.Err() != nil {
		return
	}

	ts := unix.Timespec{
		Sec:  int64(timeout / time.Second),
		Nsec: int64(timeout % time.Second),
	}

	_, _, _ = unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWait),
		uintptr(expected),
		uintptr(unsafe.Pointer(&ts)),
		0, 0,
	)
}

// wakeWord wakes up to one waiter blocked in waitOnWord on addr.
func wakeWord(addr *int32) {
	_, _, _ = unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWake),
		1,
		0, 0, 0,
	)
}
