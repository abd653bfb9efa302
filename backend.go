// Package beamformer provides the main API for attaching to and
// serving the ultrasound beamformer shared-memory control plane.
package beamformer

import (
	"context"
	"fmt"
	"time"

	"github.com/ehrlich-b/beamformer-shm/internal/interfaces"
	"github.com/ehrlich-b/beamformer-shm/internal/logging"
	"github.com/ehrlich-b/beamformer-shm/internal/server"
	"github.com/ehrlich-b/beamformer-shm/internal/shmregion"
)

// InstanceParams contains parameters for creating a served region.
type InstanceParams struct {
	// Compute provides the dispatch/filter/export implementation.
	Compute interfaces.Compute

	// RegionName names the POSIX shared memory object, e.g.
	// "/beamformer_shared_memory". Defaults to DefaultRegionName.
	RegionName string

	// PollInterval controls how often the consumer loop checks the
	// work queue when it finds it empty. Defaults to 200us.
	PollInterval time.Duration
}

// DefaultParams returns default instance parameters for the given
// compute backend.
func DefaultParams(compute interfaces.Compute) InstanceParams {
	return InstanceParams{
		Compute:    compute,
		RegionName: DefaultRegionName,
	}
}

// Options contains additional options for instance creation.
type Options struct {
	// Context for cancellation (if nil, uses context.Background())
	Context context.Context

	// Logger for debug/info messages (if nil, messages go to
	// logging.Default())
	Logger interfaces.Logger

	// Observer for metrics collection (if nil, records into the
	// instance's own Metrics)
	Observer interfaces.Observer
}

// Instance represents a running control-plane server bound to one
// shared memory region.
type Instance struct {
	RegionName string

	region  *shmregion.Region
	srv     *server.Server
	compute interfaces.Compute

	ctx    context.Context
	cancel context.CancelFunc

	started bool

	metrics  *Metrics
	observer interfaces.Observer
}

// CreateAndServe creates (or recreates) the named shared memory region
// and starts the consumer loop that drains its work queue against the
// given compute backend. This is the main entry point for standing up
// a beamformer control plane server.
//
// The instance continues serving work items until:
//   - The context is cancelled
//   - StopAndDelete is called
//
// Example:
//
//	compute := compute.NewStub()
//	params := beamformer.DefaultParams(compute)
//	instance, err := beamformer.CreateAndServe(context.Background(), params, nil)
func CreateAndServe(ctx context.Context, params InstanceParams, options *Options) (*Instance, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if options == nil {
		options = &Options{}
	}
	if options.Context != nil {
		ctx = options.Context
	}
	if params.Compute == nil {
		return nil, NewError("CreateAndServe", ErrCodeInvalidParameters, "InstanceParams.Compute is required")
	}

	name := params.RegionName
	if name == "" {
		name = DefaultRegionName
	}

	region, err := shmregion.Create(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared memory region %s: %w", name, err)
	}

	metrics := NewMetrics()
	var observer interfaces.Observer = &NoOpObserver{}
	if options.Observer != nil {
		observer = options.Observer
	} else {
		observer = NewMetricsObserver(metrics)
	}

	instanceCtx, cancel := context.WithCancel(ctx)

	srv := server.New(instanceCtx, server.Config{
		Region:       region,
		Compute:      params.Compute,
		Logger:       options.Logger,
		Observer:     observer,
		PollInterval: params.PollInterval,
	})

	instance := &Instance{
		RegionName: name,
		region:     region,
		srv:        srv,
		compute:    params.Compute,
		ctx:        instanceCtx,
		cancel:     cancel,
		started:    true,
		metrics:    metrics,
		observer:   observer,
	}

	go srv.Run()

	logger := logging.Default()
	logger.Info("control plane region initialized")
	if options.Logger != nil {
		options.Logger.Printf("Region created: %s", name)
	}

	return instance, nil
}

// InstanceState represents the current state of a served instance.
type InstanceState string

const (
	InstanceStateCreated InstanceState = "created"
	InstanceStateRunning InstanceState = "running"
	InstanceStateStopped InstanceState = "stopped"
)

// State returns the current state of the instance.
func (in *Instance) State() InstanceState {
	if in == nil {
		return InstanceStateStopped
	}
	if !in.started {
		return InstanceStateCreated
	}
	if in.ctx != nil {
		select {
		case <-in.ctx.Done():
			return InstanceStateStopped
		default:
			return InstanceStateRunning
		}
	}
	return InstanceStateRunning
}

// IsRunning returns true if the instance is currently draining work items.
func (in *Instance) IsRunning() bool {
	return in.State() == InstanceStateRunning
}

// Region returns the underlying shared memory region.
func (in *Instance) Region() *shmregion.Region {
	return in.region
}

// Metrics returns the current metrics for the instance.
func (in *Instance) Metrics() *Metrics {
	if in == nil {
		return nil
	}
	return in.metrics
}

// MetricsSnapshot returns a point-in-time snapshot of instance metrics.
func (in *Instance) MetricsSnapshot() MetricsSnapshot {
	if in == nil || in.metrics == nil {
		return MetricsSnapshot{}
	}
	return in.metrics.Snapshot()
}

// StopAndDelete stops the consumer loop, closes the compute backend,
// and unmaps and unlinks the shared memory region. This should be
// called to cleanly shut down a served instance.
func StopAndDelete(ctx context.Context, instance *Instance) error {
	if instance == nil {
		return NewError("StopAndDelete", ErrCodeInvalidParameters, "instance is nil")
	}

	if instance.cancel != nil {
		instance.cancel()
	}
	if instance.metrics != nil {
		instance.metrics.Stop()
	}

	if instance.srv != nil {
		instance.srv.Stop()
	}

	if instance.compute != nil {
		if err := instance.compute.Close(); err != nil {
			return fmt.Errorf("failed to close compute backend: %w", err)
		}
	}

	region := instance.region
	instance.region = nil
	if region != nil {
		region.Invalidate()
		if err := region.Close(); err != nil {
			return fmt.Errorf("failed to close shared memory region: %w", err)
		}
	}

	instance.started = false
	return nil
}
