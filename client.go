package beamformer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ehrlich-b/beamformer-shm/internal/config"
	"github.com/ehrlich-b/beamformer-shm/internal/constants"
	"github.com/ehrlich-b/beamformer-shm/internal/export"
	"github.com/ehrlich-b/beamformer-shm/internal/lock"
	"github.com/ehrlich-b/beamformer-shm/internal/queue"
	"github.com/ehrlich-b/beamformer-shm/internal/shmregion"
	"github.com/ehrlich-b/beamformer-shm/internal/wire"
)

// Client is the attaching side of the control plane: it maps an
// existing region created by a running server, validates its version,
// and pushes work items onto its queue. A Client does not own the
// region's lifetime; call Detach (not StopAndDelete) when done with it.
type Client struct {
	region      *shmregion.Region
	ring        *queue.Ring
	lockTimeout time.Duration
	exportDir   string
}

// NewClient attaches to the named shared memory region and validates
// that its header version matches this build's SharedMemoryVersion.
func NewClient(name string, lockTimeout time.Duration) (*Client, error) {
	region, err := shmregion.Attach(name)
	if err != nil {
		return nil, fmt.Errorf("beamformer: attach %s: %w", name, err)
	}

	c := &Client{region: region, lockTimeout: lockTimeout, exportDir: DefaultExportPipeDir}
	if err := c.checkInvalid(); err != nil {
		region.Close()
		return nil, err
	}
	return c, nil
}

// NewClientFromConfig attaches using settings loaded from the process
// environment (see internal/config.ClientConfig).
func NewClientFromConfig() (*Client, error) {
	cfg, err := config.LoadClientConfig()
	if err != nil {
		return nil, fmt.Errorf("beamformer: load client config: %w", err)
	}
	c, err := NewClient(cfg.RegionName, cfg.LockTimeout)
	if err != nil {
		return nil, err
	}
	c.exportDir = cfg.ExportPipeDir
	return c, nil
}

// checkInvalid returns ErrCodeVersionMismatch or ErrCodeRegionInvalid if
// the attached region is not one this client can safely drive.
func (c *Client) checkInvalid() error {
	h := c.region.Header()
	if h.Version != SharedMemoryVersion {
		return NewError("Attach", ErrCodeVersionMismatch,
			fmt.Sprintf("region version %d does not match client version %d", h.Version, SharedMemoryVersion))
	}
	if h.IsInvalid() {
		return NewError("Attach", ErrCodeRegionInvalid, "region has been invalidated by its server")
	}
	return nil
}

// Detach unmaps the region without deleting it; the server remains
// free to keep serving other clients.
func (c *Client) Detach() error {
	return c.region.Close()
}

func (c *Client) workRing() *queue.Ring {
	if c.ring == nil {
		c.ring = queue.NewRing(&c.region.Header().WorkQueue)
	}
	return c.ring
}

// push claims a queue slot, runs fill against it, and commits. Returns
// ErrCodeQueueFull if the ring has no free slot.
func (c *Client) push(op string, fill func(*wire.WorkItem)) error {
	if err := c.checkInvalid(); err != nil {
		return err
	}
	item, ok := c.workRing().Push()
	if !ok {
		return NewError(op, ErrCodeQueueFull, "work queue has no free slot")
	}
	fill(item)
	c.workRing().PushCommit()
	return nil
}

// withLock acquires the named lock and runs fn, which is expected to
// enqueue a work item carrying the same kind. Ownership of the unlock
// passes to the server: once the work item is queued, the lock stays
// held until the consumer loop finishes the item and calls
// PostSyncBarrier, exactly as post_sync_barrier's "whoever queues a
// locked item is not the one who unlocks it" convention requires. If fn
// fails before a work item reaches the queue, nothing will ever drain
// it, so withLock releases the lock itself rather than leaking it.
func (c *Client) withLock(ctx context.Context, kind wire.LockKind, op string, fn func() error) error {
	word := lock.FromPointer(&c.region.Header().Locks[kind])
	if !word.TryAcquire(ctx, c.lockTimeout) {
		return NewError(op, ErrCodeLockTimeout, fmt.Sprintf("timed out acquiring %s lock", kind))
	}
	if err := fn(); err != nil {
		word.Release()
		return err
	}
	return nil
}

// ReserveParameterBlocks grows the region's reserved parameter block
// count to n, moving the scratch arena start by (n - current) ×
// sizeof(ParameterBlock). It holds LockScratchSpace for the duration
// since growing the reservation changes where the scratch arena begins.
// Per the region's startup-window invariant this only ever increases n;
// shrinking requires the region be invalidated and reattached.
func (c *Client) ReserveParameterBlocks(ctx context.Context, n uint32) error {
	if n > constants.MaxParameterBlockSlots {
		return NewError("ReserveParameterBlocks", ErrCodeInvalidParameters, "requested block count exceeds MaxParameterBlockSlots")
	}

	word := lock.FromPointer(&c.region.Header().Locks[wire.LockScratchSpace])
	if !word.TryAcquire(ctx, c.lockTimeout) {
		return NewError("ReserveParameterBlocks", ErrCodeLockTimeout, "timed out acquiring ScratchSpace lock")
	}
	defer word.Release()

	header := c.region.Header()
	if n < header.ReservedParameterBlocks {
		return NewError("ReserveParameterBlocks", ErrCodeInvalidParameters, "reserved_parameter_blocks may only be increased; reattach after invalidating the region to shrink it")
	}
	atomic.StoreUint32(&header.ReservedParameterBlocks, n)
	return nil
}

// SetComputePipeline writes shaderIDs as the ordered compute pipeline
// for parameter block blockIdx and flags RegionComputePipeline dirty.
func (c *Client) SetComputePipeline(blockIdx uint32, shaderIDs []uint32) error {
	if int(blockIdx) >= int(c.region.Header().ReservedParameterBlocks) {
		return NewParameterBlockError("SetComputePipeline", int(blockIdx), ErrCodeParameterBlockOOB, "parameter block slot not reserved")
	}
	if len(shaderIDs) > len(wire.ComputePipeline{}.Shaders) {
		return NewError("SetComputePipeline", ErrCodeInvalidParameters, "too many compute shader stages")
	}

	block := c.region.ParameterBlock(blockIdx)
	copy(block.Pipeline.Shaders[:], shaderIDs)
	block.Pipeline.ShaderCount = uint32(len(shaderIDs))
	block.MarkRegionDirty(wire.RegionComputePipeline)
	return nil
}

// SetPipelineStageParameters writes params into pipeline stage `stage`
// of parameter block blockIdx and flags RegionComputePipeline dirty.
func (c *Client) SetPipelineStageParameters(blockIdx uint32, stage uint32, params wire.ShaderParameters) error {
	if int(blockIdx) >= int(c.region.Header().ReservedParameterBlocks) {
		return NewParameterBlockError("SetPipelineStageParameters", int(blockIdx), ErrCodeParameterBlockOOB, "parameter block slot not reserved")
	}
	if int(stage) >= len(wire.ComputePipeline{}.StageParams) {
		return NewError("SetPipelineStageParameters", ErrCodeInvalidParameters, "stage index exceeds MaxComputeShaderStages")
	}

	block := c.region.ParameterBlock(blockIdx)
	block.Pipeline.StageParams[stage] = params
	block.MarkRegionDirty(wire.RegionComputePipeline)
	return nil
}

// SetParameters overwrites parameter block blockIdx's scalar
// acquisition/reconstruction parameters and flags RegionParameters dirty.
func (c *Client) SetParameters(blockIdx uint32, params wire.Parameters) error {
	if int(blockIdx) >= int(c.region.Header().ReservedParameterBlocks) {
		return NewParameterBlockError("SetParameters", int(blockIdx), ErrCodeParameterBlockOOB, "parameter block slot not reserved")
	}
	block := c.region.ParameterBlock(blockIdx)
	block.Parameters = params
	block.MarkRegionDirty(wire.RegionParameters)
	return nil
}

// SetChannelMapping overwrites parameter block blockIdx's channel
// mapping table and flags RegionChannelMapping dirty.
func (c *Client) SetChannelMapping(blockIdx uint32, mapping []int16) error {
	if int(blockIdx) >= int(c.region.Header().ReservedParameterBlocks) {
		return NewParameterBlockError("SetChannelMapping", int(blockIdx), ErrCodeParameterBlockOOB, "parameter block slot not reserved")
	}
	block := c.region.ParameterBlock(blockIdx)
	copy(block.ChannelMapping[:], mapping)
	block.MarkRegionDirty(wire.RegionChannelMapping)
	return nil
}

// SetSparseElements overwrites parameter block blockIdx's sparse
// element table and flags RegionSparseElements dirty.
func (c *Client) SetSparseElements(blockIdx uint32, elements []int16) error {
	if int(blockIdx) >= int(c.region.Header().ReservedParameterBlocks) {
		return NewParameterBlockError("SetSparseElements", int(blockIdx), ErrCodeParameterBlockOOB, "parameter block slot not reserved")
	}
	block := c.region.ParameterBlock(blockIdx)
	copy(block.SparseElements[:], elements)
	block.MarkRegionDirty(wire.RegionSparseElements)
	return nil
}

// SetFocalVectors overwrites parameter block blockIdx's focal vector
// table and flags RegionFocalVectors dirty.
func (c *Client) SetFocalVectors(blockIdx uint32, vectors []wire.FocalVector) error {
	if int(blockIdx) >= int(c.region.Header().ReservedParameterBlocks) {
		return NewParameterBlockError("SetFocalVectors", int(blockIdx), ErrCodeParameterBlockOOB, "parameter block slot not reserved")
	}
	block := c.region.ParameterBlock(blockIdx)
	copy(block.FocalVectors[:], vectors)
	block.MarkRegionDirty(wire.RegionFocalVectors)
	return nil
}

// CreateFilter enqueues a CreateFilter work item under LockDispatchCompute;
// the server releases the lock once it has processed the item. Dispatch
// and DispatchIndirect do not take this lock, so they are not serialized
// against it.
func (c *Client) CreateFilter(ctx context.Context, create wire.CreateFilterContext) error {
	return c.withLock(ctx, wire.LockDispatchCompute, "CreateFilter", func() error {
		return c.push("CreateFilter", func(item *wire.WorkItem) {
			item.SetCreateFilter(create)
		})
	})
}

// Dispatch enqueues a direct Compute work item against frameHandle.
func (c *Client) Dispatch(frameHandle uint64, parameterBlock uint32) error {
	return c.push("Dispatch", func(item *wire.WorkItem) {
		item.SetCompute(wire.ComputeWorkContext{FrameHandle: frameHandle, ParameterBlock: parameterBlock})
	})
}

// DispatchIndirect enqueues a ComputeIndirect work item against the
// server's current live frame.
func (c *Client) DispatchIndirect(viewPlaneTag uint32, parameterBlock uint32) error {
	return c.push("DispatchIndirect", func(item *wire.WorkItem) {
		item.SetComputeIndirect(wire.ComputeIndirectWorkContext{ViewPlaneTag: viewPlaneTag, ParameterBlock: parameterBlock})
	})
}

// ReloadShader enqueues a ReloadShader work item.
func (c *Client) ReloadShader(ctx context.Context, handle uint64) error {
	return c.withLock(ctx, wire.LockDispatchCompute, "ReloadShader", func() error {
		return c.push("ReloadShader", func(item *wire.WorkItem) {
			item.SetReloadShader(wire.ReloadShaderContext{Handle: handle})
		})
	})
}

// UploadRF copies RF data into the region's scratch arena at offset 0
// and enqueues an UploadBuffer work item, holding LockUploadRF for the
// duration exactly as the original library held its equivalent upload
// lock across the copy and the work item's lifetime.
func (c *Client) UploadRF(ctx context.Context, data []byte) error {
	return c.withLock(ctx, wire.LockUploadRF, "UploadRF", func() error {
		scratch := c.region.Scratch()
		if len(data) > len(scratch) {
			return NewError("UploadRF", ErrCodeScratchOverflow, "RF data exceeds scratch arena size")
		}
		copy(scratch, data)
		return c.push("UploadRF", func(item *wire.WorkItem) {
			item.SetUploadBuffer(wire.UploadBufferContext{Offset: 0, Size: uint32(len(data))})
		})
	})
}

// ExportSynchronized requests a synchronous export of kind into dst: it
// opens a private FIFO, writes its name into the region header, enqueues
// an ExportBuffer work item under LockExportSync, and blocks (up to
// timeoutMs) reading the server's reply. The FIFO is recreated on every
// call and removed afterward — a client that calls this concurrently
// with itself on the same Client is a caller bug, matching the
// original library's single global export pipe.
func (c *Client) ExportSynchronized(ctx context.Context, kind wire.ExportKind, dst []byte, timeoutMs int) (int, error) {
	pipeName := fmt.Sprintf("%s/beamformer_export_%d", c.exportDir, time.Now().UnixNano())

	reader, err := export.OpenForRead(pipeName)
	if err != nil {
		return 0, WrapError("ExportSynchronized", err)
	}
	defer reader.Close()

	header := c.region.Header()
	copy(header.ExportPipeName[:], []byte(pipeName))
	header.ExportPipeName[len(pipeName)] = 0

	err = c.withLock(ctx, wire.LockExportSync, "ExportSynchronized", func() error {
		return c.push("ExportSynchronized", func(item *wire.WorkItem) {
			item.SetExportBuffer(wire.ExportContext{Kind: kind, Size: uint32(len(dst))})
		})
	})
	if err != nil {
		return 0, err
	}

	n, err := reader.WaitRead(ctx, dst, timeoutMs)
	if err != nil {
		return n, NewError("ExportSynchronized", ErrCodeExportTimeout, err.Error())
	}
	return n, nil
}
