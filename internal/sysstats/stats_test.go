package sysstats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectReturnsUsableSnapshot(t *testing.T) {
	snap, err := Collect(context.Background(), 10*time.Millisecond, 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), snap.QueueDepth)
	assert.False(t, snap.CollectedAt.IsZero())
}

func TestSnapshotMarshalsToJSON(t *testing.T) {
	snap := Snapshot{QueueDepth: 1, MemoryUsedBytes: 2, MemoryTotal: 3}
	data, err := snap.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"queue_depth":1`)
}
