package beamformer

import (
	"sync"

	"github.com/ehrlich-b/beamformer-shm/internal/interfaces"
	"github.com/ehrlich-b/beamformer-shm/internal/wire"
)

// MockCompute provides a mock implementation of interfaces.Compute for
// testing applications built on this package without a real compute
// backend. It tracks method calls for verification.
type MockCompute struct {
	closed bool

	mu            sync.RWMutex
	dispatchCalls int
	filterCalls   int
	shaderCalls   int
	exportCalls   int

	lastDispatch interfaces.DispatchContext
	filters      map[uint8]wire.CreateFilterContext
	shaders      map[uint64]bool
	exportData   map[wire.ExportKind][]byte
}

// NewMockCompute creates a new mock compute backend.
func NewMockCompute() *MockCompute {
	return &MockCompute{
		filters:    make(map[uint8]wire.CreateFilterContext),
		shaders:    make(map[uint64]bool),
		exportData: make(map[wire.ExportKind][]byte),
	}
}

// Dispatch implements interfaces.Compute.
func (m *MockCompute) Dispatch(ctx interfaces.DispatchContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dispatchCalls++
	if m.closed {
		return NewError("Dispatch", ErrCodeRegionInvalid, "mock compute closed")
	}
	m.lastDispatch = ctx
	return nil
}

// CreateFilter implements interfaces.Compute.
func (m *MockCompute) CreateFilter(filterSlot uint8, create wire.CreateFilterContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.filterCalls++
	if !create.Kind.Valid() {
		return NewError("CreateFilter", ErrCodeInvalidFilterKind, "invalid filter kind")
	}
	m.filters[filterSlot] = create
	return nil
}

// ReloadShader implements interfaces.Compute.
func (m *MockCompute) ReloadShader(handle uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shaderCalls++
	m.shaders[handle] = true
	return nil
}

// ExportInto implements interfaces.Compute.
func (m *MockCompute) ExportInto(kind wire.ExportKind, dst []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.exportCalls++
	data, ok := m.exportData[kind]
	if !ok {
		return 0, NewError("ExportInto", ErrCodeInvalidParameters, "no data staged for export kind")
	}
	return copy(dst, data), nil
}

// Close implements interfaces.Compute.
func (m *MockCompute) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// Testing utility methods

// SetExportData stages bytes to be returned by every later ExportInto
// call for the given kind, until replaced.
func (m *MockCompute) SetExportData(kind wire.ExportKind, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exportData[kind] = data
}

// LastDispatch returns the arguments of the most recent Dispatch call.
func (m *MockCompute) LastDispatch() interfaces.DispatchContext {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastDispatch
}

// IsClosed returns true if Close has been called.
func (m *MockCompute) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// CallCounts returns the number of times each method has been called.
func (m *MockCompute) CallCounts() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]int{
		"dispatch": m.dispatchCalls,
		"filter":   m.filterCalls,
		"shader":   m.shaderCalls,
		"export":   m.exportCalls,
	}
}

// Reset resets all call counters and recorded state.
func (m *MockCompute) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dispatchCalls = 0
	m.filterCalls = 0
	m.shaderCalls = 0
	m.exportCalls = 0
	m.lastDispatch = interfaces.DispatchContext{}
	m.filters = make(map[uint8]wire.CreateFilterContext)
	m.shaders = make(map[uint64]bool)
}

var _ interfaces.Compute = (*MockCompute)(nil)
