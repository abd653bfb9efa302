package wire

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/ehrlich-b/beamformer-shm/internal/constants"
)

// ParameterBlockRegion names one of the five independently-dirtyable
// regions of a ParameterBlock. Order and values are part of the wire
// contract: a client sets bit (1<<region) in DirtyRegions after writing
// that region, and the consumer clears exactly the bits it has applied.
type ParameterBlockRegion uint32

const (
	RegionComputePipeline ParameterBlockRegion = iota
	RegionChannelMapping
	RegionFocalVectors
	RegionParameters
	RegionSparseElements

	regionCount
)

// RegionCount is the number of independently-dirtyable regions.
const RegionCount = int(regionCount)

func (r ParameterBlockRegion) String() string {
	switch r {
	case RegionComputePipeline:
		return "ComputePipeline"
	case RegionChannelMapping:
		return "ChannelMapping"
	case RegionFocalVectors:
		return "FocalVectors"
	case RegionParameters:
		return "Parameters"
	case RegionSparseElements:
		return "SparseElements"
	default:
		return fmt.Sprintf("ParameterBlockRegion(%d)", uint32(r))
	}
}

// InterpolationMode and AcquisitionKind are small closed enumerations
// embedded in Parameters. Values are opaque to the control plane; it
// only carries them between client and consumer.
type InterpolationMode uint32
type AcquisitionKind uint32

// Parameters holds the scalar acquisition/reconstruction parameters
// that drive a compute dispatch. Every field is fixed-width so the
// struct can be copied directly into and out of shared memory.
type Parameters struct {
	SpeedOfSoundMPerS          float32
	SamplingFrequencyHz        float32
	DecimationRate             uint32
	TimeOffsetSec              float32
	FNumber                    float32
	InterpolationMode          InterpolationMode
	AcquisitionKind            AcquisitionKind
	TransmitReceiveOrientation uint32
	OutputMinCoordinate        [4]float32
	OutputMaxCoordinate        [4]float32
	OutputPoints               [4]uint32
	RFRawDim                   [2]uint32
}

// ShaderParameters is a closed union of per-stage shader arguments.
// Only FilterSlot is defined today; the union exists so a later shader
// kind can add its own field without growing ComputePipeline's stride.
type ShaderParameters struct {
	FilterSlot uint8
}

// ComputePipeline describes an ordered list of compute shader stages
// and the data kind flowing between them.
type ComputePipeline struct {
	Shaders        [constants.MaxComputeShaderStages]uint32
	StageParams    [constants.MaxComputeShaderStages]ShaderParameters
	ProgramIndices [constants.MaxComputeShaderStages]uint32
	ShaderCount    uint32
	DataKind       uint32
}

// FocalVector is one transmit-angle/focal-depth pair.
type FocalVector struct {
	Angle float32
	Depth float32
}

// ParameterBlock is one reservable slot of acquisition/reconstruction
// state. DirtyRegions is a bitmap of ParameterBlockRegion values the
// client has written since the consumer last cleared them; clearing
// must use a compare-and-swap loop (ClearDirtyRegions) so a client
// setting a new bit concurrently with the consumer's clear is never
// lost. The two padding fields exist only to push Pipeline and
// ChannelMapping onto 16-byte boundaries; SparseElements and
// FocalVectors land there for free since every region from
// ChannelMapping on is itself a multiple of 16 bytes.
type ParameterBlock struct {
	Parameters     Parameters
	DirtyRegions   uint32
	_              [4]byte
	Pipeline       ComputePipeline
	_              [8]byte
	ChannelMapping [constants.MaxChannelCount]int16
	SparseElements [constants.MaxChannelCount]int16
	FocalVectors   [constants.MaxChannelCount]FocalVector
}

// Byte offsets of each region within a ParameterBlock, computed once at
// compile time via unsafe.Offsetof rather than hand-maintained — the Go
// analogue of the original offsetof-initialized lookup table.
const (
	parametersOffset     = unsafe.Offsetof(ParameterBlock{}.Parameters)
	pipelineOffset       = unsafe.Offsetof(ParameterBlock{}.Pipeline)
	channelMappingOffset = unsafe.Offsetof(ParameterBlock{}.ChannelMapping)
	sparseElementsOffset = unsafe.Offsetof(ParameterBlock{}.SparseElements)
	focalVectorsOffset   = unsafe.Offsetof(ParameterBlock{}.FocalVectors)
)

// ParameterBlockRegionOffsets gives the byte offset of each region
// within a ParameterBlock.
var ParameterBlockRegionOffsets = [regionCount]uintptr{
	RegionComputePipeline: pipelineOffset,
	RegionChannelMapping:  channelMappingOffset,
	RegionFocalVectors:    focalVectorsOffset,
	RegionParameters:      parametersOffset,
	RegionSparseElements:  sparseElementsOffset,
}

// Every substruct boundary named in ParameterBlockRegionOffsets must
// land on a 16-byte boundary. These conversions only compile if the
// modulus is zero, the same compile-time-assertion idiom sizes.go uses
// for WorkItemSize.
var (
	_ [0]byte = [pipelineOffset % 16]byte{}
	_ [0]byte = [channelMappingOffset % 16]byte{}
	_ [0]byte = [sparseElementsOffset % 16]byte{}
	_ [0]byte = [focalVectorsOffset % 16]byte{}
)

// ParameterBlockSize is the fixed stride between parameter blocks in
// the region; the scratch arena begins immediately after the last
// reserved block.
const ParameterBlockSize = int(unsafe.Sizeof(ParameterBlock{}))

// IsDirty reports whether any region of the block is marked dirty.
func (pb *ParameterBlock) IsDirty() bool {
	return atomic.LoadUint32(&pb.DirtyRegions) != 0
}

// MarkRegionDirty atomically sets region's bit. Safe for concurrent
// callers writing distinct regions of the same block.
func (pb *ParameterBlock) MarkRegionDirty(region ParameterBlockRegion) {
	bit := uint32(1) << uint32(region)
	for {
		old := atomic.LoadUint32(&pb.DirtyRegions)
		if atomic.CompareAndSwapUint32(&pb.DirtyRegions, old, old|bit) {
			return
		}
	}
}

// ClearDirtyRegions atomically clears exactly the bits in mask,
// preserving any bit a concurrent writer set after the consumer
// started reading but before the clear lands.
func (pb *ParameterBlock) ClearDirtyRegions(mask uint32) {
	for {
		old := atomic.LoadUint32(&pb.DirtyRegions)
		next := old &^ mask
		if atomic.CompareAndSwapUint32(&pb.DirtyRegions, old, next) {
			return
		}
	}
}
