// Package server implements the control plane's consumer loop: the
// single goroutine that drains the shared memory work queue and
// dispatches each item to the compute backend, the filter generator, or
// the synchronous export path. It plays the role the original ublk
// queue Runner played for I/O — one loop per shared resource, driven by
// polling rather than by an OS-delivered completion, because the
// resource here is a plain mapped memory region rather than a device
// file descriptor.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/ehrlich-b/beamformer-shm/internal/constants"
	"github.com/ehrlich-b/beamformer-shm/internal/export"
	"github.com/ehrlich-b/beamformer-shm/internal/interfaces"
	"github.com/ehrlich-b/beamformer-shm/internal/lock"
	"github.com/ehrlich-b/beamformer-shm/internal/logging"
	"github.com/ehrlich-b/beamformer-shm/internal/queue"
	"github.com/ehrlich-b/beamformer-shm/internal/shmregion"
	"github.com/ehrlich-b/beamformer-shm/internal/sysstats"
	"github.com/ehrlich-b/beamformer-shm/internal/wire"
)

// Config holds everything the consumer loop needs to run.
type Config struct {
	Region       *shmregion.Region
	Compute      interfaces.Compute
	Logger       interfaces.Logger
	Observer     interfaces.Observer
	PollInterval time.Duration
}

// Server drains one region's work queue until stopped.
type Server struct {
	region       *shmregion.Region
	ring         *queue.Ring
	compute      interfaces.Compute
	logger       interfaces.Logger
	observer     interfaces.Observer
	pollInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Server bound to config.Region's embedded work queue.
// Call Run to start draining it.
func New(ctx context.Context, config Config) *Server {
	interval := config.PollInterval
	if interval <= 0 {
		interval = 200 * time.Microsecond
	}

	ctx, cancel := context.WithCancel(ctx)
	return &Server{
		region:       config.Region,
		ring:         queue.NewRing(&config.Region.Header().WorkQueue),
		compute:      config.Compute,
		logger:       config.Logger,
		observer:     config.Observer,
		pollInterval: interval,
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
}

// Run drains the work queue until ctx is canceled or Stop is called.
// It blocks the calling goroutine; callers typically run it in its own
// goroutine, mirroring the teacher's one-OS-thread-per-queue loop.
func (s *Server) Run() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		item, ok := s.ring.Pop()
		if !ok {
			time.Sleep(s.pollInterval)
			continue
		}

		s.process(item)
		s.ring.PopCommit()
	}
}

// Stop requests the loop exit and blocks until it has.
func (s *Server) Stop() {
	s.cancel()
	<-s.done
}

func (s *Server) process(item *wire.WorkItem) {
	var lockWord lock.Word
	if item.HasLock() {
		lockWord = lock.FromPointer(&s.region.Header().Locks[item.Lock])
		defer lockWord.PostSyncBarrier()
	}

	start := time.Now()
	var err error

	switch item.Kind {
	case wire.WorkKindCompute:
		ctx := item.Compute()
		err = s.compute.Dispatch(interfaces.DispatchContext{
			FrameHandle:    ctx.FrameHandle,
			ParameterBlock: ctx.ParameterBlock,
		})
		s.observeDispatch(start, err)

	case wire.WorkKindComputeIndirect:
		ctx := item.ComputeIndirect()
		err = s.compute.Dispatch(interfaces.DispatchContext{
			ViewPlaneTag:   ctx.ViewPlaneTag,
			ParameterBlock: ctx.ParameterBlock,
			Indirect:       true,
		})
		s.observeDispatch(start, err)

	case wire.WorkKindCreateFilter:
		ctx := item.CreateFilter()
		err = s.compute.CreateFilter(ctx.FilterSlot, ctx)
		if s.observer != nil {
			s.observer.ObserveFilterCreate(uint64(time.Since(start).Nanoseconds()), err == nil)
		}

	case wire.WorkKindReloadShader:
		ctx := item.ReloadShader()
		err = s.compute.ReloadShader(ctx.Handle)

	case wire.WorkKindExportBuffer:
		err = s.handleExport(item.ExportBuffer(), start)

	case wire.WorkKindUploadBuffer:
		err = s.handleUpload(item.UploadBuffer(), start)

	default:
		err = fmt.Errorf("server: unknown work kind %v", item.Kind)
	}

	if err != nil {
		s.logError(item.Kind, err)
	}
}

func (s *Server) observeDispatch(start time.Time, err error) {
	if s.observer != nil {
		s.observer.ObserveDispatch(uint64(time.Since(start).Nanoseconds()), err == nil)
	}
}

func (s *Server) handleExport(ctx wire.ExportContext, start time.Time) error {
	header := s.region.Header()
	name := cString(header.ExportPipeName[:])
	if name == "" {
		return fmt.Errorf("server: export requested with no pipe name set")
	}

	staged := queue.GetBuffer(ctx.Size)
	defer queue.PutBuffer(staged)

	var err error
	switch ctx.Kind {
	case wire.ExportKindBeamformedData:
		_, err = s.compute.ExportInto(ctx.Kind, staged)

	case wire.ExportKindStats:
		var snapshot sysstats.Snapshot
		snapshot, err = sysstats.Collect(s.ctx, constants.StatsCPUSampleWindow, s.ring.Depth())
		if err == nil {
			var encoded []byte
			encoded, err = snapshot.Marshal()
			if err == nil {
				for i := range staged {
					staged[i] = 0
				}
				if len(encoded) > len(staged) {
					err = fmt.Errorf("server: stats snapshot (%d bytes) exceeds requested export size %d", len(encoded), len(staged))
				} else {
					copy(staged, encoded)
				}
			}
		}

	default:
		err = fmt.Errorf("server: unsupported export kind %v", ctx.Kind)
	}
	if err != nil {
		return err
	}

	err = export.WriteOutput(name, staged)
	if s.observer != nil {
		s.observer.ObserveExport(uint64(len(staged)), uint64(time.Since(start).Nanoseconds()), err == nil)
	}
	return err
}

func (s *Server) handleUpload(ctx wire.UploadBufferContext, start time.Time) error {
	scratch := s.region.Scratch()
	if ctx.Offset+uint64(ctx.Size) > uint64(len(scratch)) {
		return fmt.Errorf("server: upload [%d,%d) exceeds scratch arena size %d", ctx.Offset, ctx.Offset+uint64(ctx.Size), len(scratch))
	}

	if s.observer != nil {
		s.observer.ObserveUpload(uint64(ctx.Size), uint64(time.Since(start).Nanoseconds()), true)
	}
	return nil
}

func (s *Server) logError(kind wire.WorkKind, err error) {
	if s.logger != nil {
		s.logger.Printf("server: %v work item failed: %v", kind, err)
	} else {
		logging.Default().Errorf("%v work item failed: %v", kind, err)
	}
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
