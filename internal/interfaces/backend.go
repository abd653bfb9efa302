// Package interfaces provides internal interface definitions for the
// beamformer control plane. These are separate from the public
// interfaces to avoid circular imports between the root package and
// internal packages.
package interfaces

import "github.com/ehrlich-b/beamformer-shm/internal/wire"

// Compute defines the interface every compute backend must implement.
// The server dispatches work items to it; production builds drive a
// real GPU compute pipeline, test builds use an in-memory stub.
type Compute interface {
	// Dispatch runs the parameter block's pipeline against frameHandle
	// (or, for indirect dispatch, the current live frame).
	Dispatch(ctx DispatchContext) error

	// CreateFilter generates coefficients for the given filter context
	// and uploads them into filterSlot.
	CreateFilter(filterSlot uint8, create wire.CreateFilterContext) error

	// ReloadShader recompiles/reloads the shader named by handle.
	ReloadShader(handle uint64) error

	// ExportInto copies the requested export kind's current output into
	// dst, returning the number of bytes written.
	ExportInto(kind wire.ExportKind, dst []byte) (int, error)

	Close() error
}

// DispatchContext carries the resolved arguments of a Compute or
// ComputeIndirect work item.
type DispatchContext struct {
	FrameHandle    uint64
	ViewPlaneTag   uint32
	ParameterBlock uint32
	Indirect       bool
}

// Logger interface for optional logging.
type Logger interface {
	Printf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// Observer interface for metrics collection. Implementations must be
// thread-safe: methods are called from the consumer loop.
type Observer interface {
	ObserveDispatch(latencyNs uint64, success bool)
	ObserveFilterCreate(latencyNs uint64, success bool)
	ObserveExport(bytes uint64, latencyNs uint64, success bool)
	ObserveUpload(bytes uint64, latencyNs uint64, success bool)
	ObserveQueueDepth(depth uint32)
}
