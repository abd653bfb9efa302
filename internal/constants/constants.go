// Package constants holds the compile-time sizes and defaults shared across
// the beamformer shared-memory control plane.
package constants

import "time"

// SharedMemoryVersion must match between server and every attaching client.
// A mismatch causes the client to refuse the region (VersionMismatch).
// Carried over from the original implementation's
// BEAMFORMER_SHARED_MEMORY_VERSION so traces and fixtures stay comparable.
const SharedMemoryVersion uint32 = 14

const (
	// RegionSize is the exact size of the shared memory mapping.
	RegionSize = 2 << 30 // 2 GiB

	// QueueCapacity is the number of slots in the work queue ring.
	// Must stay a power of two; the ring arithmetic masks on Capacity-1.
	QueueCapacity = 1 << 6
	QueueMask     = QueueCapacity - 1

	// QueueFullSentinel is set by push() when it finds no free slot and
	// cleared on the next successful push. Never cleared by pop, by design
	// (see SPEC_FULL.md §12).
	QueueFullSentinel uint64 = 1 << 31

	// MaxParameterBlockSlots bounds reserved_parameter_blocks.
	MaxParameterBlockSlots = 8

	// DefaultReservedParameterBlocks is the block count a fresh region starts with.
	DefaultReservedParameterBlocks = 1

	// MaxChannelCount bounds channel mapping / sparse element / focal vector arrays.
	MaxChannelCount = 256

	// MaxComputeShaderStages bounds a compute pipeline's stage list.
	MaxComputeShaderStages = 16

	// FilterSlots is the size of the server's GPU filter handle table.
	FilterSlots = 16

	// ScratchAlignment is the byte alignment the scratch arena start is rounded up to.
	ScratchAlignment = 4096

	// ExportPipeNameSize is the fixed width of the header's export pipe name field.
	ExportPipeNameSize = 256
)

// Default paths and network-free IPC endpoints.
const (
	DefaultRegionName     = "/beamformer_shared_memory"
	DefaultExportPipeDir  = "/tmp"
	DefaultExportPipeName = "beamformer_output_pipe"
)

// Timeout sentinels mirroring the client library's timeout_ms convention.
const (
	TimeoutInfinite uint32 = 0xFFFFFFFF
	TimeoutNone     uint32 = 0
)

// LockWaitPollInterval bounds how often a non-futex waiter re-checks a lock
// word on the portable (non-Linux) lock backend. On every platform it is
// also the length of each wait when TryAcquire has no deadline.
const LockWaitPollInterval = 500 * time.Microsecond

// StatsCPUSampleWindow bounds how long an ExportKindStats request blocks
// sampling CPU load before returning a snapshot.
const StatsCPUSampleWindow = 50 * time.Millisecond
