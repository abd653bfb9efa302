package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/beamformer-shm/internal/constants"
	"github.com/ehrlich-b/beamformer-shm/internal/wire"
)

func TestPushPopRoundTrip(t *testing.T) {
	var wq wire.WorkQueue
	r := NewRing(&wq)

	item, ok := r.Push()
	require.True(t, ok)
	item.SetCompute(wire.ComputeWorkContext{FrameHandle: 7, ParameterBlock: 1})
	r.PushCommit()

	got, ok := r.Pop()
	require.True(t, ok)
	assert.Equal(t, wire.WorkKindCompute, got.Kind)
	assert.Equal(t, uint64(7), got.Compute().FrameHandle)
	r.PopCommit()

	_, ok = r.Pop()
	assert.False(t, ok)
}

func TestRingFillsToCapacityMinusOne(t *testing.T) {
	var wq wire.WorkQueue
	r := NewRing(&wq)

	pushed := 0
	for {
		item, ok := r.Push()
		if !ok {
			break
		}
		item.SetReloadShader(wire.ReloadShaderContext{Handle: uint64(pushed)})
		r.PushCommit()
		pushed++
	}

	assert.Equal(t, constants.QueueCapacity-1, pushed)
	assert.True(t, r.ObservedFull())

	_, ok := r.Push()
	assert.False(t, ok)
}

func TestPushClearsSentinelOnNextSuccess(t *testing.T) {
	var wq wire.WorkQueue
	r := NewRing(&wq)

	for i := 0; i < constants.QueueCapacity-1; i++ {
		item, _ := r.Push()
		item.SetReloadShader(wire.ReloadShaderContext{})
		r.PushCommit()
	}
	assert.True(t, r.ObservedFull())

	_, ok := r.Pop()
	require.True(t, ok)
	r.PopCommit()

	_, ok = r.Push()
	require.True(t, ok)
	assert.False(t, r.ObservedFull())
}

func TestPopNeverClearsSentinel(t *testing.T) {
	var wq wire.WorkQueue
	r := NewRing(&wq)

	for i := 0; i < constants.QueueCapacity-1; i++ {
		item, _ := r.Push()
		item.SetReloadShader(wire.ReloadShaderContext{})
		r.PushCommit()
	}
	assert.True(t, r.ObservedFull())

	for {
		_, ok := r.Pop()
		if !ok {
			break
		}
		r.PopCommit()
	}

	assert.True(t, r.ObservedFull(), "pop must never clear the observed-full sentinel")
}

func TestConcurrentProducerConsumerPreservesOrder(t *testing.T) {
	var wq wire.WorkQueue
	r := NewRing(&wq)

	const n = 5000
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := uint64(0); i < n; i++ {
			for {
				item, ok := r.Push()
				if ok {
					item.SetCompute(wire.ComputeWorkContext{FrameHandle: i})
					r.PushCommit()
					break
				}
			}
		}
	}()

	received := make([]uint64, 0, n)
	go func() {
		defer wg.Done()
		for len(received) < n {
			item, ok := r.Pop()
			if !ok {
				continue
			}
			received = append(received, item.Compute().FrameHandle)
			r.PopCommit()
		}
	}()

	wg.Wait()
	require.Len(t, received, n)
	for i, v := range received {
		assert.Equal(t, uint64(i), v)
	}
}
