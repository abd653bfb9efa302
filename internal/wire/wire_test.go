package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkItemComputeRoundTrip(t *testing.T) {
	var w WorkItem
	w.SetCompute(ComputeWorkContext{FrameHandle: 0xDEADBEEF, ParameterBlock: 3})
	assert.Equal(t, WorkKindCompute, w.Kind)
	got := w.Compute()
	assert.Equal(t, uint64(0xDEADBEEF), got.FrameHandle)
	assert.Equal(t, uint32(3), got.ParameterBlock)
}

func TestWorkItemCreateFilterRoundTrip(t *testing.T) {
	var w WorkItem
	ctx := CreateFilterContext{
		Kind: FilterKindKaiser,
		Parameters: FilterParameters{
			Kaiser:            KaiserFilterParameters{Beta: 6.5, Cutoff: 0.3, Length: 65},
			SamplingFrequency: 40e6,
			Complex:           true,
		},
		FilterSlot:     2,
		ParameterBlock: 0,
	}
	require.NoError(t, w.SetCreateFilter(ctx))

	got := w.CreateFilter()
	assert.Equal(t, FilterKindKaiser, got.Kind)
	assert.InDelta(t, 6.5, got.Parameters.Kaiser.Beta, 1e-6)
	assert.InDelta(t, 0.3, got.Parameters.Kaiser.Cutoff, 1e-6)
	assert.InDelta(t, 65, got.Parameters.Kaiser.Length, 1e-6)
	assert.True(t, got.Parameters.Complex)
	assert.Equal(t, uint8(2), got.FilterSlot)
}

func TestWorkItemCreateFilterRejectsUnknownKind(t *testing.T) {
	var w WorkItem
	err := w.SetCreateFilter(CreateFilterContext{Kind: FilterKind(99)})
	assert.Error(t, err)
}

func TestWorkKindValid(t *testing.T) {
	assert.True(t, WorkKindUploadBuffer.Valid())
	assert.False(t, WorkKind(99).Valid())
}

func TestParameterBlockDirtyRegionsCAS(t *testing.T) {
	var pb ParameterBlock
	assert.False(t, pb.IsDirty())

	pb.MarkRegionDirty(RegionParameters)
	pb.MarkRegionDirty(RegionChannelMapping)
	assert.True(t, pb.IsDirty())

	mask := uint32(1) << uint32(RegionParameters)
	pb.ClearDirtyRegions(mask)
	assert.Equal(t, uint32(1)<<uint32(RegionChannelMapping), pb.DirtyRegions)
}

func TestParameterBlockRegionOffsetsAreDistinct(t *testing.T) {
	seen := map[uintptr]bool{}
	for _, off := range ParameterBlockRegionOffsets {
		assert.False(t, seen[off], "duplicate region offset %d", off)
		seen[off] = true
	}
}

func TestParameterBlockRegionOffsetsAreAligned(t *testing.T) {
	for region, off := range ParameterBlockRegionOffsets {
		assert.Equal(t, uintptr(0), off%16, "region %v offset %d is not 16-byte aligned", ParameterBlockRegion(region), off)
	}
}

func TestLayoutOffsetsAreMonotonic(t *testing.T) {
	b0 := ParameterBlockOffset(0)
	b1 := ParameterBlockOffset(1)
	assert.Equal(t, ParameterBlockSize, b1-b0)

	scratch := ScratchArenaOffset(2, 4096)
	assert.GreaterOrEqual(t, scratch, ParameterBlockOffset(2))
	assert.Equal(t, 0, scratch%4096)
}

func TestMaxScratchSizeNeverNegative(t *testing.T) {
	size := MaxScratchSize(1<<16, 64, 4096)
	assert.Equal(t, 0, size)
}
