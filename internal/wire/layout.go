package wire

import "unsafe"

// headerTotalSize is the full Header size including the embedded
// WorkQueue, i.e. the byte offset at which the first ParameterBlock
// begins.
var headerTotalSize = int(unsafe.Sizeof(Header{}))

// ParameterBlockOffset returns block's byte offset from the start of
// the region. Callers must have already checked block against the
// region's ReservedParameterBlocks.
func ParameterBlockOffset(block uint32) int {
	return headerTotalSize + int(block)*ParameterBlockSize
}

// ScratchArenaOffset returns the byte offset of the first scratch byte,
// rounded up to constants.ScratchAlignment, given how many parameter
// blocks the region has reserved.
func ScratchArenaOffset(reservedParameterBlocks uint32, alignment int) int {
	raw := ParameterBlockOffset(reservedParameterBlocks)
	if alignment <= 1 {
		return raw
	}
	rem := raw % alignment
	if rem == 0 {
		return raw
	}
	return raw + (alignment - rem)
}

// MaxScratchSize returns how many scratch bytes are available in a
// regionSize-byte region once reservedParameterBlocks blocks and the
// alignment pad are accounted for.
func MaxScratchSize(regionSize int, reservedParameterBlocks uint32, alignment int) int {
	start := ScratchArenaOffset(reservedParameterBlocks, alignment)
	if start >= regionSize {
		return 0
	}
	return regionSize - start
}
