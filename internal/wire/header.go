package wire

import (
	"github.com/ehrlich-b/beamformer-shm/internal/constants"
)

// WorkQueue is the lock-free SPSC ring embedded at the tail of Header.
// QueueWord packs the write and read indices into one 64-bit word so a
// single atomic load observes a consistent (widx, ridx) pair: bits
// 0-31 are widx, bits 32-63 are ridx, matching the original union of
// {u64 queue; struct{u32 widx, ridx;}}. Bit 31 of widx doubles as the
// "queue observed full" sentinel (see constants.QueueFullSentinel);
// it is set by a push that finds no free slot and cleared only by the
// next push that succeeds — pop never touches it.
type WorkQueue struct {
	QueueWord uint64
	Items     [constants.QueueCapacity]WorkItem
}

// Header is the fixed-layout region prologue. Everything after it
// (ReservedParameterBlocks worth of ParameterBlock, then the scratch
// arena) is addressed relative to the end of the whole Header, embedded
// WorkQueue included (see ParameterBlockOffset), never through a
// pointer captured by one process and handed to another.
type Header struct {
	Version uint32

	// Invalid, once the server sets it, means every attached client
	// must stop trusting the region; see beamformer.Client.checkInvalid.
	Invalid uint32

	// Locks holds the named locks (LockKind) followed by one entry
	// per reserved parameter block. A lock value's sign and magnitude
	// are owned by the internal/lock package; Header only stores them.
	Locks [int(lockKindCount) + constants.MaxParameterBlockSlots]int32

	ReservedParameterBlocks uint32
	ScratchRFSize           uint32

	// LiveImagingParameters is opaque to the control plane: the UI
	// writes it directly and flags changed fields in
	// LiveImagingDirtyFlags. The consumer neither reads nor forwards
	// either field.
	LiveImagingParameters [liveImagingParametersSize]byte
	LiveImagingDirtyFlags uint32

	// ExportPipeName is the NUL-terminated path of the FIFO the
	// consumer should write synchronous export output to. Written by
	// the client before it raises LockExportSync's request.
	ExportPipeName [constants.ExportPipeNameSize]byte

	WorkQueue WorkQueue
}

// ParameterBlockLockIndex returns block's index into Header.Locks.
func ParameterBlockLockIndex(block uint32) int {
	return int(lockKindCount) + int(block)
}

// IsInvalid reports whether the region has been marked invalid by the
// consumer (region teardown, fatal error, version bump).
func (h *Header) IsInvalid() bool {
	return h.Invalid != 0
}
