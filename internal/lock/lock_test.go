package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTryAcquireUncontended(t *testing.T) {
	var word int32
	w := FromPointer(&word)

	assert.False(t, w.Peek())
	assert.True(t, w.TryAcquire(context.Background(), 0))
	assert.True(t, w.Peek())
}

func TestTryAcquireZeroTimeoutFailsWhenHeld(t *testing.T) {
	var word int32
	w := FromPointer(&word)

	require := assert.New(t)
	require.True(w.TryAcquire(context.Background(), 0))
	require.False(w.TryAcquire(context.Background(), 0))
}

func TestReleaseThenAcquireSucceeds(t *testing.T) {
	var word int32
	w := FromPointer(&word)

	assert.True(t, w.TryAcquire(context.Background(), 0))
	w.Release()
	assert.False(t, w.Peek())
	assert.True(t, w.TryAcquire(context.Background(), 0))
}

func TestTryAcquireTimesOutWhenHeldByAnother(t *testing.T) {
	var word int32
	w := FromPointer(&word)
	assert.True(t, w.TryAcquire(context.Background(), 0))

	start := time.Now()
	ok := w.TryAcquire(context.Background(), 30*time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestTryAcquireWakesOnRelease(t *testing.T) {
	var word int32
	w := FromPointer(&word)
	assert.True(t, w.TryAcquire(context.Background(), 0))

	var wg sync.WaitGroup
	wg.Add(1)
	var acquired bool
	go func() {
		defer wg.Done()
		acquired = w.TryAcquire(context.Background(), time.Second)
	}()

	time.Sleep(10 * time.Millisecond)
	w.Release()
	wg.Wait()
	assert.True(t, acquired)
}

func TestTryAcquireRespectsContextCancellation(t *testing.T) {
	var word int32
	w := FromPointer(&word)
	assert.True(t, w.TryAcquire(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool, 1)
	go func() {
		done <- w.TryAcquire(ctx, -1)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("TryAcquire did not respect context cancellation")
	}
}

func TestPostSyncBarrierNoopWhenNotHeld(t *testing.T) {
	var word int32
	w := FromPointer(&word)
	assert.NotPanics(t, func() { w.PostSyncBarrier() })
	assert.False(t, w.Peek())
}
