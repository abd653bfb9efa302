package compute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/beamformer-shm/internal/interfaces"
	"github.com/ehrlich-b/beamformer-shm/internal/wire"
)

func TestDispatchIndirectThenExport(t *testing.T) {
	s := NewStub()
	require.NoError(t, s.Dispatch(interfaces.DispatchContext{Indirect: true, ParameterBlock: 0}))

	dst := make([]byte, 4096*4)
	n, err := s.ExportInto(wire.ExportKindBeamformedData, dst)
	require.NoError(t, err)
	assert.Equal(t, len(dst), n)
}

func TestExportRejectsStatsKind(t *testing.T) {
	s := NewStub()
	_, err := s.ExportInto(wire.ExportKindStats, make([]byte, 16))
	assert.Error(t, err)
}

func TestCreateFilterStoresCoefficients(t *testing.T) {
	s := NewStub()
	err := s.CreateFilter(3, wire.CreateFilterContext{
		Kind:       wire.FilterKindKaiser,
		Parameters: wire.FilterParameters{Kaiser: wire.KaiserFilterParameters{Beta: 4, Cutoff: 0.2, Length: 9}},
	})
	require.NoError(t, err)

	real, _, ok := s.FilterCoefficients(3)
	assert.True(t, ok)
	assert.Len(t, real, 9)
}

func TestDispatchDirectIsolatesFrameHandles(t *testing.T) {
	s := NewStub()
	require.NoError(t, s.Dispatch(interfaces.DispatchContext{FrameHandle: 1}))
	require.NoError(t, s.Dispatch(interfaces.DispatchContext{FrameHandle: 2}))
	assert.Len(t, s.frames, 2)
}
