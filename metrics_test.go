package beamformer

import (
	"testing"
	"time"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	snap := m.Snapshot()
	if snap.TotalOps != 0 {
		t.Errorf("Expected 0 initial ops, got %d", snap.TotalOps)
	}

	m.RecordDispatch(1000000, true)      // 1ms, success
	m.RecordExport(2048, 2000000, true)  // 2KB export, 2ms, success
	m.RecordDispatch(500000, false)      // 0.5ms, error

	snap = m.Snapshot()

	if snap.DispatchOps != 2 {
		t.Errorf("Expected 2 dispatch ops, got %d", snap.DispatchOps)
	}
	if snap.ExportOps != 1 {
		t.Errorf("Expected 1 export op, got %d", snap.ExportOps)
	}

	if snap.ExportBytes != 2048 {
		t.Errorf("Expected 2048 export bytes, got %d", snap.ExportBytes)
	}

	if snap.DispatchErrors != 1 {
		t.Errorf("Expected 1 dispatch error, got %d", snap.DispatchErrors)
	}
	if snap.ExportErrors != 0 {
		t.Errorf("Expected 0 export errors, got %d", snap.ExportErrors)
	}

	expectedErrorRate := float64(1) / float64(3) * 100.0
	if snap.ErrorRate < expectedErrorRate-0.1 || snap.ErrorRate > expectedErrorRate+0.1 {
		t.Errorf("Expected error rate ~%.1f%%, got %.1f%%", expectedErrorRate, snap.ErrorRate)
	}
}

func TestMetricsQueueDepth(t *testing.T) {
	m := NewMetrics()

	m.RecordQueueDepth(10)
	m.RecordQueueDepth(20)
	m.RecordQueueDepth(15)

	snap := m.Snapshot()

	if snap.MaxQueueDepth != 20 {
		t.Errorf("Expected max queue depth 20, got %d", snap.MaxQueueDepth)
	}

	expectedAvg := float64(10+20+15) / 3.0
	if snap.AvgQueueDepth < expectedAvg-0.1 || snap.AvgQueueDepth > expectedAvg+0.1 {
		t.Errorf("Expected avg queue depth %.1f, got %.1f", expectedAvg, snap.AvgQueueDepth)
	}
}

func TestMetricsLatency(t *testing.T) {
	m := NewMetrics()

	m.RecordDispatch(1000000, true) // 1ms
	m.RecordExport(1024, 2000000, true) // 2ms

	snap := m.Snapshot()

	expectedAvgNs := uint64(1500000)
	if snap.AvgLatencyNs != expectedAvgNs {
		t.Errorf("Expected avg latency %d ns, got %d ns", expectedAvgNs, snap.AvgLatencyNs)
	}
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()

	time.Sleep(10 * time.Millisecond)

	snap := m.Snapshot()

	if snap.UptimeNs < 10*1000000 {
		t.Errorf("Expected uptime >= 10ms, got %d ns", snap.UptimeNs)
	}

	m.Stop()
	time.Sleep(5 * time.Millisecond)

	snap2 := m.Snapshot()

	if snap2.UptimeNs > snap.UptimeNs+2*1000000 {
		t.Errorf("Uptime increased too much after stop: %d -> %d", snap.UptimeNs, snap2.UptimeNs)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()

	m.RecordDispatch(1000000, true)
	m.RecordExport(2048, 2000000, true)
	m.RecordQueueDepth(10)

	snap := m.Snapshot()
	if snap.TotalOps == 0 {
		t.Error("Expected some operations before reset")
	}

	m.Reset()

	snap = m.Snapshot()
	if snap.TotalOps != 0 {
		t.Errorf("Expected 0 ops after reset, got %d", snap.TotalOps)
	}
	if snap.TotalBytes != 0 {
		t.Errorf("Expected 0 bytes after reset, got %d", snap.TotalBytes)
	}
	if snap.MaxQueueDepth != 0 {
		t.Errorf("Expected 0 max queue depth after reset, got %d", snap.MaxQueueDepth)
	}
}

func TestObserver(t *testing.T) {
	observer := &NoOpObserver{}
	observer.ObserveDispatch(1000000, true)
	observer.ObserveFilterCreate(1000000, true)
	observer.ObserveExport(1024, 1000000, true)
	observer.ObserveUpload(1024, 1000000, true)
	observer.ObserveQueueDepth(10)

	m := NewMetrics()
	metricsObserver := NewMetricsObserver(m)

	metricsObserver.ObserveDispatch(1000000, true)
	metricsObserver.ObserveExport(2048, 2000000, true)

	snap := m.Snapshot()
	if snap.DispatchOps != 1 {
		t.Errorf("Expected 1 dispatch op from observer, got %d", snap.DispatchOps)
	}
	if snap.ExportOps != 1 {
		t.Errorf("Expected 1 export op from observer, got %d", snap.ExportOps)
	}
	if snap.ExportBytes != 2048 {
		t.Errorf("Expected 2048 export bytes from observer, got %d", snap.ExportBytes)
	}
}

func TestMetricsRates(t *testing.T) {
	m := NewMetrics()

	startTime := time.Now()
	m.StartTime.Store(startTime.UnixNano())

	m.RecordExport(1024, 1000000, true)
	m.RecordUpload(2048, 2000000, true)

	stopTime := startTime.Add(1 * time.Second)
	m.StopTime.Store(stopTime.UnixNano())

	snap := m.Snapshot()

	if snap.TotalBytes != 3072 {
		t.Errorf("Expected 3072 total bytes, got %d", snap.TotalBytes)
	}
	if snap.UptimeNs < uint64(900*time.Millisecond) {
		t.Errorf("Expected uptime ~1s, got %d ns", snap.UptimeNs)
	}
}

func TestMetricsHistogram(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 50; i++ {
		m.RecordDispatch(500_000, true) // 500us
	}
	for i := 0; i < 49; i++ {
		m.RecordExport(1024, 5_000_000, true) // 5ms
	}
	m.RecordExport(1024, 50_000_000, true) // 50ms (slowest op)

	snap := m.Snapshot()

	if snap.TotalOps != 100 {
		t.Errorf("Expected 100 total ops, got %d", snap.TotalOps)
	}

	if snap.LatencyP50Ns < 100_000 || snap.LatencyP50Ns > 1_000_000 {
		t.Errorf("Expected P50 in 100us-1ms range, got %d ns", snap.LatencyP50Ns)
	}

	if snap.LatencyP99Ns < 5_000_000 || snap.LatencyP99Ns > 100_000_000 {
		t.Errorf("Expected P99 in 5ms-100ms range, got %d ns", snap.LatencyP99Ns)
	}

	totalInBuckets := uint64(0)
	for i := 0; i < len(snap.LatencyHistogram); i++ {
		totalInBuckets += snap.LatencyHistogram[i]
	}
	if totalInBuckets == 0 {
		t.Error("Expected histogram buckets to be populated")
	}
}
