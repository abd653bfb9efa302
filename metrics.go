package beamformer

import (
	"sync/atomic"
	"time"

	"github.com/ehrlich-b/beamformer-shm/internal/interfaces"
)

// LatencyBuckets defines the latency histogram buckets in nanoseconds.
// Buckets cover from 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks performance and operational statistics for a region's
// control plane: dispatch, filter creation, synchronous export, and RF
// upload.
type Metrics struct {
	DispatchOps    atomic.Uint64
	FilterCreateOps atomic.Uint64
	ExportOps      atomic.Uint64
	UploadOps      atomic.Uint64

	ExportBytes atomic.Uint64
	UploadBytes atomic.Uint64

	DispatchErrors     atomic.Uint64
	FilterCreateErrors atomic.Uint64
	ExportErrors       atomic.Uint64
	UploadErrors       atomic.Uint64

	QueueDepthTotal atomic.Uint64
	QueueDepthCount atomic.Uint64
	MaxQueueDepth   atomic.Uint32

	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64

	// LatencyBuckets holds cumulative counts: bucket[i] counts
	// operations with latency <= LatencyBuckets[i].
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordDispatch records a compute dispatch (direct or indirect).
func (m *Metrics) RecordDispatch(latencyNs uint64, success bool) {
	m.DispatchOps.Add(1)
	if !success {
		m.DispatchErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordFilterCreate records a filter coefficient generation.
func (m *Metrics) RecordFilterCreate(latencyNs uint64, success bool) {
	m.FilterCreateOps.Add(1)
	if !success {
		m.FilterCreateErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordExport records a synchronous export round trip.
func (m *Metrics) RecordExport(bytes uint64, latencyNs uint64, success bool) {
	m.ExportOps.Add(1)
	if success {
		m.ExportBytes.Add(bytes)
	} else {
		m.ExportErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordUpload records an RF data upload into the scratch arena.
func (m *Metrics) RecordUpload(bytes uint64, latencyNs uint64, success bool) {
	m.UploadOps.Add(1)
	if success {
		m.UploadBytes.Add(bytes)
	} else {
		m.UploadErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordQueueDepth records current queue depth for statistics.
func (m *Metrics) RecordQueueDepth(depth uint32) {
	m.QueueDepthTotal.Add(uint64(depth))
	m.QueueDepthCount.Add(1)

	for {
		current := m.MaxQueueDepth.Load()
		if depth <= current {
			break
		}
		if m.MaxQueueDepth.CompareAndSwap(current, depth) {
			break
		}
	}
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)

	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the server as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time snapshot of Metrics.
type MetricsSnapshot struct {
	DispatchOps     uint64
	FilterCreateOps uint64
	ExportOps       uint64
	UploadOps       uint64

	ExportBytes uint64
	UploadBytes uint64

	DispatchErrors     uint64
	FilterCreateErrors uint64
	ExportErrors       uint64
	UploadErrors       uint64

	AvgQueueDepth float64
	MaxQueueDepth uint32

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	TotalOps   uint64
	TotalBytes uint64
	ErrorRate  float64
}

// Snapshot creates a point-in-time snapshot of metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		DispatchOps:        m.DispatchOps.Load(),
		FilterCreateOps:    m.FilterCreateOps.Load(),
		ExportOps:          m.ExportOps.Load(),
		UploadOps:          m.UploadOps.Load(),
		ExportBytes:        m.ExportBytes.Load(),
		UploadBytes:        m.UploadBytes.Load(),
		DispatchErrors:     m.DispatchErrors.Load(),
		FilterCreateErrors: m.FilterCreateErrors.Load(),
		ExportErrors:       m.ExportErrors.Load(),
		UploadErrors:       m.UploadErrors.Load(),
		MaxQueueDepth:      m.MaxQueueDepth.Load(),
	}

	snap.TotalOps = snap.DispatchOps + snap.FilterCreateOps + snap.ExportOps + snap.UploadOps
	snap.TotalBytes = snap.ExportBytes + snap.UploadBytes

	queueDepthTotal := m.QueueDepthTotal.Load()
	queueDepthCount := m.QueueDepthCount.Load()
	if queueDepthCount > 0 {
		snap.AvgQueueDepth = float64(queueDepthTotal) / float64(queueDepthCount)
	}

	totalLatencyNs := m.TotalLatencyNs.Load()
	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	totalErrors := snap.DispatchErrors + snap.FilterCreateErrors + snap.ExportErrors + snap.UploadErrors
	if snap.TotalOps > 0 {
		snap.ErrorRate = float64(totalErrors) / float64(snap.TotalOps) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile (0.0-1.0)
// using linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}

	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset resets all metrics counters (useful for testing).
func (m *Metrics) Reset() {
	m.DispatchOps.Store(0)
	m.FilterCreateOps.Store(0)
	m.ExportOps.Store(0)
	m.UploadOps.Store(0)
	m.ExportBytes.Store(0)
	m.UploadBytes.Store(0)
	m.DispatchErrors.Store(0)
	m.FilterCreateErrors.Store(0)
	m.ExportErrors.Store(0)
	m.UploadErrors.Store(0)
	m.QueueDepthTotal.Store(0)
	m.QueueDepthCount.Store(0)
	m.MaxQueueDepth.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// NoOpObserver is a no-op implementation of interfaces.Observer.
type NoOpObserver struct{}

func (NoOpObserver) ObserveDispatch(uint64, bool)           {}
func (NoOpObserver) ObserveFilterCreate(uint64, bool)       {}
func (NoOpObserver) ObserveExport(uint64, uint64, bool)     {}
func (NoOpObserver) ObserveUpload(uint64, uint64, bool)     {}
func (NoOpObserver) ObserveQueueDepth(uint32)               {}

// MetricsObserver implements interfaces.Observer, recording into a
// Metrics instance so callers can run the server with the built-in
// histogram rather than (or alongside) internal/promexport.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveDispatch(latencyNs uint64, success bool) {
	o.metrics.RecordDispatch(latencyNs, success)
}

func (o *MetricsObserver) ObserveFilterCreate(latencyNs uint64, success bool) {
	o.metrics.RecordFilterCreate(latencyNs, success)
}

func (o *MetricsObserver) ObserveExport(bytes uint64, latencyNs uint64, success bool) {
	o.metrics.RecordExport(bytes, latencyNs, success)
}

func (o *MetricsObserver) ObserveUpload(bytes uint64, latencyNs uint64, success bool) {
	o.metrics.RecordUpload(bytes, latencyNs, success)
}

func (o *MetricsObserver) ObserveQueueDepth(depth uint32) {
	o.metrics.RecordQueueDepth(depth)
}

// Compile-time interface checks
var _ interfaces.Observer = (*MetricsObserver)(nil)
var _ interfaces.Observer = (*NoOpObserver)(nil)
