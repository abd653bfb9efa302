package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// WorkKind is a closed tag identifying which union member of a WorkItem
// is valid. Adding a kind here requires adding its context type, its
// marshal/unmarshal branch, and a consumer dispatch case together.
type WorkKind uint32

const (
	WorkKindCompute WorkKind = iota
	WorkKindComputeIndirect
	WorkKindCreateFilter
	WorkKindReloadShader
	WorkKindExportBuffer
	WorkKindUploadBuffer

	workKindCount
)

func (k WorkKind) String() string {
	switch k {
	case WorkKindCompute:
		return "Compute"
	case WorkKindComputeIndirect:
		return "ComputeIndirect"
	case WorkKindCreateFilter:
		return "CreateFilter"
	case WorkKindReloadShader:
		return "ReloadShader"
	case WorkKindExportBuffer:
		return "ExportBuffer"
	case WorkKindUploadBuffer:
		return "UploadBuffer"
	default:
		return fmt.Sprintf("WorkKind(%d)", uint32(k))
	}
}

// Valid reports whether k is one of the known work kinds.
func (k WorkKind) Valid() bool { return k < workKindCount }

// LockKind identifies one of the named locks that live in Header.Locks.
// Parameter-block locks are addressed separately (see ParameterBlockLockIndex)
// and are not part of this enumeration, mirroring the original layout
// where locks[] holds the named locks followed by one slot per block.
type LockKind uint32

const (
	LockScratchSpace LockKind = iota
	LockUploadRF
	LockExportSync
	LockDispatchCompute

	lockKindCount
)

func (k LockKind) String() string {
	switch k {
	case LockScratchSpace:
		return "ScratchSpace"
	case LockUploadRF:
		return "UploadRF"
	case LockExportSync:
		return "ExportSync"
	case LockDispatchCompute:
		return "DispatchCompute"
	default:
		return fmt.Sprintf("LockKind(%d)", uint32(k))
	}
}

// LockKindCount is the number of named (non-parameter-block) locks.
func LockKindCount() uint32 { return uint32(lockKindCount) }

// ExportKind selects what an ExportBuffer work item copies into the
// synchronous export pipe.
type ExportKind uint32

const (
	ExportKindBeamformedData ExportKind = iota
	ExportKindStats
)

func (k ExportKind) Valid() bool { return k == ExportKindBeamformedData || k == ExportKindStats }

// FilterKind is a closed union tag for CreateFilterContext.Parameters.
// Only these two filter families exist; adding a third means adding its
// parameter struct, a branch in every (un)marshal path below, and a
// generator in the filter package.
type FilterKind uint32

const (
	FilterKindKaiser FilterKind = iota
	FilterKindMatchedChirp

	filterKindCount
)

func (k FilterKind) Valid() bool { return k < filterKindCount }

// KaiserFilterParameters describes a windowed-sinc lowpass filter.
type KaiserFilterParameters struct {
	Beta   float32
	Cutoff float32
	Length float32
}

// MatchedChirpFilterParameters describes a linear-chirp matched filter.
type MatchedChirpFilterParameters struct {
	Duration float32
	MinFreq  float32
	MaxFreq  float32
}

// FilterParameters is the closed union of filter-kind-specific fields
// plus the fields common to every filter kind.
type FilterParameters struct {
	Kaiser            KaiserFilterParameters
	MatchedChirp      MatchedChirpFilterParameters
	SamplingFrequency float32
	Complex           bool
}

// CreateFilterContext is the payload of a CreateFilter work item.
type CreateFilterContext struct {
	Kind           FilterKind
	Parameters     FilterParameters
	FilterSlot     uint8
	ParameterBlock uint8
}

// ComputeWorkContext is the payload of a Compute work item: dispatch the
// named parameter block's pipeline against a specific frame.
type ComputeWorkContext struct {
	FrameHandle    uint64
	ParameterBlock uint32
}

// ComputeIndirectWorkContext is the payload of a ComputeIndirect work
// item: dispatch against the server's current live frame.
type ComputeIndirectWorkContext struct {
	ViewPlaneTag   uint32
	ParameterBlock uint32
}

// ExportContext is the payload of an ExportBuffer work item.
type ExportContext struct {
	Kind ExportKind
	Size uint32
}

// UploadBufferContext is the payload of an UploadBuffer work item: bytes
// already staged in the scratch arena at Offset should be copied into
// GPU-visible storage.
type UploadBufferContext struct {
	Offset uint64
	Size   uint32
}

// ReloadShaderContext is the payload of a ReloadShader work item.
type ReloadShaderContext struct {
	Handle uint64
}

// WorkItem is one fixed-stride slot of the work queue ring. Kind
// discriminates which accessor below is valid; Lock names the lock (if
// any) the consumer must hold while acting on the item and release via
// PostSyncBarrier once done.
type WorkItem struct {
	Kind    WorkKind
	Lock    LockKind
	Payload [WorkItemPayloadSize]byte
}

// HasLock reports whether consuming this item requires taking Lock.
// Compute and ComputeIndirect items carry no lock of their own: the
// compute pipeline they reference is guarded at the parameter-block
// level instead.
func (w *WorkItem) HasLock() bool {
	switch w.Kind {
	case WorkKindCompute, WorkKindComputeIndirect:
		return false
	default:
		return true
	}
}

// SetCompute encodes a ComputeWorkContext into the item payload.
func (w *WorkItem) SetCompute(ctx ComputeWorkContext) {
	w.Kind = WorkKindCompute
	binary.LittleEndian.PutUint64(w.Payload[0:8], ctx.FrameHandle)
	binary.LittleEndian.PutUint32(w.Payload[8:12], ctx.ParameterBlock)
}

// Compute decodes the payload as a ComputeWorkContext. The caller must
// have checked Kind == WorkKindCompute first.
func (w *WorkItem) Compute() ComputeWorkContext {
	return ComputeWorkContext{
		FrameHandle:    binary.LittleEndian.Uint64(w.Payload[0:8]),
		ParameterBlock: binary.LittleEndian.Uint32(w.Payload[8:12]),
	}
}

// SetComputeIndirect encodes a ComputeIndirectWorkContext into the payload.
func (w *WorkItem) SetComputeIndirect(ctx ComputeIndirectWorkContext) {
	w.Kind = WorkKindComputeIndirect
	binary.LittleEndian.PutUint32(w.Payload[0:4], ctx.ViewPlaneTag)
	binary.LittleEndian.PutUint32(w.Payload[4:8], ctx.ParameterBlock)
}

func (w *WorkItem) ComputeIndirect() ComputeIndirectWorkContext {
	return ComputeIndirectWorkContext{
		ViewPlaneTag:   binary.LittleEndian.Uint32(w.Payload[0:4]),
		ParameterBlock: binary.LittleEndian.Uint32(w.Payload[4:8]),
	}
}

// SetCreateFilter encodes a CreateFilterContext into the payload.
func (w *WorkItem) SetCreateFilter(ctx CreateFilterContext) error {
	if !ctx.Kind.Valid() {
		return fmt.Errorf("wire: invalid filter kind %d", ctx.Kind)
	}
	w.Kind = WorkKindCreateFilter
	w.Lock = LockDispatchCompute
	binary.LittleEndian.PutUint32(w.Payload[0:4], uint32(ctx.Kind))
	putFloat32(w.Payload[4:8], ctx.Parameters.Kaiser.Beta)
	putFloat32(w.Payload[8:12], ctx.Parameters.Kaiser.Cutoff)
	putFloat32(w.Payload[12:16], ctx.Parameters.Kaiser.Length)
	putFloat32(w.Payload[16:20], ctx.Parameters.MatchedChirp.Duration)
	putFloat32(w.Payload[20:24], ctx.Parameters.MatchedChirp.MinFreq)
	putFloat32(w.Payload[24:28], ctx.Parameters.MatchedChirp.MaxFreq)
	w.Payload[28] = ctx.FilterSlot
	w.Payload[29] = ctx.ParameterBlock
	if ctx.Parameters.Complex {
		w.Payload[30] = 1
	}
	return nil
}

func (w *WorkItem) CreateFilter() CreateFilterContext {
	return CreateFilterContext{
		Kind: FilterKind(binary.LittleEndian.Uint32(w.Payload[0:4])),
		Parameters: FilterParameters{
			Kaiser: KaiserFilterParameters{
				Beta:   getFloat32(w.Payload[4:8]),
				Cutoff: getFloat32(w.Payload[8:12]),
				Length: getFloat32(w.Payload[12:16]),
			},
			MatchedChirp: MatchedChirpFilterParameters{
				Duration: getFloat32(w.Payload[16:20]),
				MinFreq:  getFloat32(w.Payload[20:24]),
				MaxFreq:  getFloat32(w.Payload[24:28]),
			},
			Complex: w.Payload[30] != 0,
		},
		FilterSlot:     w.Payload[28],
		ParameterBlock: w.Payload[29],
	}
}

// SetExportBuffer encodes an ExportContext into the payload.
func (w *WorkItem) SetExportBuffer(ctx ExportContext) {
	w.Kind = WorkKindExportBuffer
	w.Lock = LockExportSync
	binary.LittleEndian.PutUint32(w.Payload[0:4], uint32(ctx.Kind))
	binary.LittleEndian.PutUint32(w.Payload[4:8], ctx.Size)
}

func (w *WorkItem) ExportBuffer() ExportContext {
	return ExportContext{
		Kind: ExportKind(binary.LittleEndian.Uint32(w.Payload[0:4])),
		Size: binary.LittleEndian.Uint32(w.Payload[4:8]),
	}
}

// SetUploadBuffer encodes an UploadBufferContext into the payload.
func (w *WorkItem) SetUploadBuffer(ctx UploadBufferContext) {
	w.Kind = WorkKindUploadBuffer
	w.Lock = LockUploadRF
	binary.LittleEndian.PutUint64(w.Payload[0:8], ctx.Offset)
	binary.LittleEndian.PutUint32(w.Payload[8:12], ctx.Size)
}

func (w *WorkItem) UploadBuffer() UploadBufferContext {
	return UploadBufferContext{
		Offset: binary.LittleEndian.Uint64(w.Payload[0:8]),
		Size:   binary.LittleEndian.Uint32(w.Payload[8:12]),
	}
}

// SetReloadShader encodes a ReloadShaderContext into the payload.
func (w *WorkItem) SetReloadShader(ctx ReloadShaderContext) {
	w.Kind = WorkKindReloadShader
	w.Lock = LockDispatchCompute
	binary.LittleEndian.PutUint64(w.Payload[0:8], ctx.Handle)
}

func (w *WorkItem) ReloadShader() ReloadShaderContext {
	return ReloadShaderContext{Handle: binary.LittleEndian.Uint64(w.Payload[0:8])}
}

func putFloat32(b []byte, f float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(f))
}

func getFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
