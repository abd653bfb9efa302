// Package sysstats collects host resource statistics for the
// ExportKindStats export path, letting a client pull a snapshot of
// server-side load (CPU, memory, queue depth) through the same synchronous
// export round trip used for beamformed data.
package sysstats

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ehrlich-b/beamformer-shm/internal/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Snapshot is the payload written to a client's export pipe for
// ExportKindStats requests.
type Snapshot struct {
	CollectedAt     time.Time `json:"collected_at"`
	CPUPercent      float64   `json:"cpu_percent"`
	MemoryUsedBytes uint64    `json:"memory_used_bytes"`
	MemoryTotal     uint64    `json:"memory_total_bytes"`
	QueueDepth      uint32    `json:"queue_depth"`
}

// Collect gathers a fresh Snapshot. cpuSampleWindow controls how long
// the CPU percentage measurement blocks; queueDepth is supplied by the
// caller since sysstats has no access to the region itself.
func Collect(ctx context.Context, cpuSampleWindow time.Duration, queueDepth uint32) (Snapshot, error) {
	percents, err := cpu.PercentWithContext(ctx, cpuSampleWindow, false)
	if err != nil {
		logging.Default().Warnf("sysstats: cpu sample failed: %v", err)
	}
	var cpuPct float64
	if len(percents) > 0 {
		cpuPct = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		CollectedAt:     time.Now(),
		CPUPercent:      cpuPct,
		MemoryUsedBytes: vm.Used,
		MemoryTotal:     vm.Total,
		QueueDepth:      queueDepth,
	}, nil
}

// Marshal encodes a Snapshot the same way it will be written into an
// export pipe.
func (s Snapshot) Marshal() ([]byte, error) {
	return json.Marshal(s)
}
