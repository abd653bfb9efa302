// Package compute provides the server's dispatch backend: the code
// that actually turns a work item's parameters into an output buffer.
// Stub is a CPU-only implementation safe for tests and for running the
// control plane without a GPU; a real deployment would satisfy
// interfaces.Compute against an OpenGL/Vulkan/CUDA pipeline instead,
// the way the in-memory block store it was adapted from stood in for a
// real block device.
package compute

import (
	"fmt"
	"math"
	"sync"

	"github.com/ehrlich-b/beamformer-shm/internal/filter"
	"github.com/ehrlich-b/beamformer-shm/internal/interfaces"
	"github.com/ehrlich-b/beamformer-shm/internal/wire"
)

// frameShards bounds how many independent locks guard the output
// frame store, the same sharded-locking trade-off the original memory
// backend made between parallelism and lock overhead.
const frameShards = 64

// Stub is an in-memory stand-in compute backend. It does not perform
// real beamforming; it produces deterministic, correctly-sized output
// so the rest of the control plane (dispatch, export, upload) can be
// exercised end-to-end without GPU hardware.
type Stub struct {
	filters *filter.Generator

	mu         sync.RWMutex
	shardLocks [frameShards]sync.Mutex
	frames     map[uint64][]float32
	liveFrame  []float32

	filterSlots map[uint8]filterCoefficients
	shaders     map[uint64]bool
}

type filterCoefficients struct {
	real, imag []float32
}

// NewStub returns a ready-to-use Stub compute backend.
func NewStub() *Stub {
	return &Stub{
		filters:     filter.NewGenerator(),
		frames:      make(map[uint64][]float32),
		filterSlots: make(map[uint8]filterCoefficients),
		shaders:     make(map[uint64]bool),
	}
}

func (s *Stub) shardFor(key uint64) *sync.Mutex {
	return &s.shardLocks[key%frameShards]
}

// Dispatch synthesizes a fixed-size output frame (see
// syntheticFrameSize; the parameter block's output points are not
// consulted) and records it under FrameHandle (direct dispatch) or as
// the current live frame (indirect dispatch).
func (s *Stub) Dispatch(ctx interfaces.DispatchContext) error {
	samples := syntheticFrameSize(ctx.ParameterBlock)
	out := make([]float32, samples)
	for i := range out {
		out[i] = float32(i) * 1e-3
	}

	if ctx.Indirect {
		s.mu.Lock()
		s.liveFrame = out
		s.mu.Unlock()
		return nil
	}

	lock := s.shardFor(ctx.FrameHandle)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	s.frames[ctx.FrameHandle] = out
	s.mu.Unlock()
	return nil
}

// syntheticFrameSize stands in for the real pipeline's output-point
// calculation; callers of Stub in tests care about shape stability
// more than a particular sample count.
func syntheticFrameSize(parameterBlock uint32) int {
	return 4096
}

// CreateFilter generates and stores coefficients for filterSlot.
func (s *Stub) CreateFilter(filterSlot uint8, create wire.CreateFilterContext) error {
	real, imag, err := s.filters.Coefficients(create)
	if err != nil {
		return fmt.Errorf("compute: create filter: %w", err)
	}
	s.mu.Lock()
	s.filterSlots[filterSlot] = filterCoefficients{real: real, imag: imag}
	s.mu.Unlock()
	return nil
}

// ReloadShader records that handle has been (re)loaded. The stub has
// no actual shader program to recompile.
func (s *Stub) ReloadShader(handle uint64) error {
	s.mu.Lock()
	s.shaders[handle] = true
	s.mu.Unlock()
	return nil
}

// ExportInto copies the current frame for the requested export kind
// into dst as little-endian float32 samples, returning bytes written.
// BeamformerExportKind_Stats is not produced here: stats export is
// served directly from internal/sysstats, not the compute backend.
func (s *Stub) ExportInto(kind wire.ExportKind, dst []byte) (int, error) {
	if kind != wire.ExportKindBeamformedData {
		return 0, fmt.Errorf("compute: stub does not export kind %v", kind)
	}

	s.mu.RLock()
	frame := s.liveFrame
	s.mu.RUnlock()

	n := copy(dst, float32BytesLE(frame))
	return n, nil
}

func float32BytesLE(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, v := range samples {
		bits := math.Float32bits(v)
		out[i*4+0] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
	return out
}

// FilterCoefficients returns the coefficients last stored for a slot,
// for use by tests and by ExportInto-adjacent diagnostics.
func (s *Stub) FilterCoefficients(slot uint8) (real, imag []float32, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fc, ok := s.filterSlots[slot]
	return fc.real, fc.imag, ok
}

// Close releases the stub's resources. Nothing to do: it holds no
// file descriptors or GPU handles.
func (s *Stub) Close() error { return nil }

var _ interfaces.Compute = (*Stub)(nil)
