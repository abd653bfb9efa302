package beamformer

import (
	"github.com/ehrlich-b/beamformer-shm/internal/shmregion"
)

// Region is a thin public alias of the internal shared memory mapping,
// exported so callers that need direct access (diagnostics, custom
// tooling) don't have to reach into internal/shmregion themselves.
type Region = shmregion.Region

// AttachRegion maps an existing shared memory region by name, without
// starting a Client's lock/queue bookkeeping around it. Most callers
// want NewClient instead.
func AttachRegion(name string) (*Region, error) {
	return shmregion.Attach(name)
}
