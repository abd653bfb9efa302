//go:build !linux

package lock

import (
	"context"
	"time"

	"github.com/ehrlich-b/beamformer-shm/internal/constants"
)

// waitOnWord on non-Linux platforms falls back to bounded polling —
// there is no portable futex-equivalent that works across an
// anonymous-to-the-kernel shared mapping, so we pay a small fixed
// latency per contended acquire instead.
func waitOnWord(ctx context.Context, addr *int32, expected int32, timeout time.Duration) {
	if timeout > constants.LockWaitPollInterval {
		timeout = constants.LockWaitPollInterval
	}
	select {
	case <-ctx.Done():
	case <-time.After(timeout):
	}
}

func wakeWord(addr *int32) {}
