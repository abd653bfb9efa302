// Package wire defines the fixed-layout structures that are read and
// written directly against the mapped shared memory region. Every type
// here has a stable, compile-time-checked size: the region is shared
// across process boundaries, so there is no wire-format negotiation
// the way there would be on a socket.
package wire

import "unsafe"

// WorkItemPayloadSize bounds the union area inside WorkItem. It must be
// large enough to hold the widest concrete context (currently
// CreateFilterContext) without growing the queue's per-slot stride.
const WorkItemPayloadSize = 32

// WorkItemSize is the fixed stride of one work queue slot. Keeping this
// a compile-time constant means the queue's ring arithmetic never needs
// to know about payload contents.
const WorkItemSize = 4 + 4 + WorkItemPayloadSize

var _ [WorkItemSize]byte = [unsafe.Sizeof(WorkItem{})]byte{}

// liveImagingParametersSize is a placeholder payload size for the
// opaque live-imaging parameter block the UI writes into directly.
// The control plane never interprets these bytes.
const liveImagingParametersSize = 128

// HeaderFixedSize is the size of Header up to (but excluding) the
// embedded WorkQueue. ParameterBlockOffset does not use it: the first
// ParameterBlock begins after the whole Header, WorkQueue included.
var HeaderFixedSize = int(unsafe.Sizeof(Header{})) - int(unsafe.Sizeof(WorkQueue{}))
