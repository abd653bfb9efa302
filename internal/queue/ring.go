// Package queue implements the lock-free single-producer/single-consumer
// work queue embedded in the shared memory header. The ring packs its
// write and read indices into one 64-bit word so a single atomic load
// observes a consistent pair, exactly mirroring the original queue's
// union{u64 queue; struct{u32 widx, ridx;}} layout.
package queue

import (
	"sync/atomic"

	"github.com/ehrlich-b/beamformer-shm/internal/constants"
	"github.com/ehrlich-b/beamformer-shm/internal/wire"
)

const mask = constants.QueueMask

// Ring wraps a *wire.WorkQueue with the four-phase push/commit and
// pop/commit protocol. A Ring is only safe for one producer and one
// consumer calling concurrently with each other — multiple producers
// (or multiple consumers) must serialize externally, same as the
// original single-writer, single-reader contract.
type Ring struct {
	wq *wire.WorkQueue
}

// NewRing wraps an existing work queue, typically
// &region.Header().WorkQueue.
func NewRing(wq *wire.WorkQueue) *Ring {
	return &Ring{wq: wq}
}

// Push claims the next free slot for writing and returns a pointer to
// it, zeroed, along with true. If the ring is full it sets the
// "observed full" sentinel bit and returns (nil, false); the sentinel
// is cleared automatically the next time Push succeeds — never by Pop.
// Callers must fill the returned item and then call PushCommit.
func (r *Ring) Push() (*wire.WorkItem, bool) {
	val := atomic.LoadUint64(&r.wq.QueueWord)
	widx := val & mask
	ridx := (val >> 32) & mask
	next := (widx + 1) & mask

	if val&constants.QueueFullSentinel != 0 {
		clearBit(&r.wq.QueueWord, constants.QueueFullSentinel)
	}

	if next == ridx {
		setBit(&r.wq.QueueWord, constants.QueueFullSentinel)
		return nil, false
	}

	item := &r.wq.Items[widx]
	*item = wire.WorkItem{}
	return item, true
}

// PushCommit advances widx, publishing the slot Push returned to the
// consumer. Must be called exactly once per successful Push, after the
// item has been fully written.
func (r *Ring) PushCommit() {
	atomic.AddUint64(&r.wq.QueueWord, 1)
}

// Pop returns a pointer to the next unread item, or (nil, false) if
// the ring is empty. The returned item remains valid (and must not be
// overwritten by the producer) until PopCommit is called.
func (r *Ring) Pop() (*wire.WorkItem, bool) {
	val := atomic.LoadUint64(&r.wq.QueueWord)
	widx := val & mask
	ridx := (val >> 32) & mask
	if ridx == widx {
		return nil, false
	}
	return &r.wq.Items[ridx], true
}

// PopCommit advances ridx, freeing the slot Pop returned for reuse by
// the producer. Must be called exactly once per successful Pop, after
// the item has been fully consumed.
func (r *Ring) PopCommit() {
	atomic.AddUint64(&r.wq.QueueWord, 0x100000000)
}

// ObservedFull reports whether the sentinel bit set by a failed Push
// is currently set. Exposed for tests and metrics; not part of the
// push/pop protocol itself.
func (r *Ring) ObservedFull() bool {
	return atomic.LoadUint64(&r.wq.QueueWord)&constants.QueueFullSentinel != 0
}

// Depth reports the number of items currently queued and not yet popped.
func (r *Ring) Depth() uint32 {
	val := atomic.LoadUint64(&r.wq.QueueWord)
	widx := val & mask
	ridx := (val >> 32) & mask
	return uint32((widx - ridx) & mask)
}

func setBit(word *uint64, bit uint64) {
	for {
		old := atomic.LoadUint64(word)
		if old&bit != 0 {
			return
		}
		if atomic.CompareAndSwapUint64(word, old, old|bit) {
			return
		}
	}
}

func clearBit(word *uint64, bit uint64) {
	for {
		old := atomic.LoadUint64(word)
		if old&bit == 0 {
			return
		}
		if atomic.CompareAndSwapUint64(word, old, old&^bit) {
			return
		}
	}
}
