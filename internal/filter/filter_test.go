package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/beamformer-shm/internal/wire"
)

func TestKaiserLowpassIsSymmetric(t *testing.T) {
	g := NewGenerator()
	real, imag, err := g.Coefficients(wire.CreateFilterContext{
		Kind: wire.FilterKindKaiser,
		Parameters: wire.FilterParameters{
			Kaiser: wire.KaiserFilterParameters{Beta: 6, Cutoff: 0.25, Length: 21},
		},
	})
	require.NoError(t, err)
	assert.Nil(t, imag)
	require.Len(t, real, 21)
	for i := 0; i < len(real)/2; i++ {
		assert.InDelta(t, real[i], real[len(real)-1-i], 1e-5)
	}
}

func TestMatchedChirpComplexHasQuadrature(t *testing.T) {
	g := NewGenerator()
	real, imag, err := g.Coefficients(wire.CreateFilterContext{
		Kind: wire.FilterKindMatchedChirp,
		Parameters: wire.FilterParameters{
			MatchedChirp:      wire.MatchedChirpFilterParameters{Duration: 1e-6, MinFreq: 1e6, MaxFreq: 5e6},
			SamplingFrequency: 40e6,
			Complex:           true,
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, real)
	assert.Len(t, imag, len(real))
}

func TestCoefficientsAreCached(t *testing.T) {
	g := NewGenerator()
	ctx := wire.CreateFilterContext{
		Kind:       wire.FilterKindKaiser,
		Parameters: wire.FilterParameters{Kaiser: wire.KaiserFilterParameters{Beta: 4, Cutoff: 0.1, Length: 15}},
	}
	first, _, err := g.Coefficients(ctx)
	require.NoError(t, err)
	second, _, err := g.Coefficients(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestUnknownFilterKindErrors(t *testing.T) {
	g := NewGenerator()
	_, _, err := g.Coefficients(wire.CreateFilterContext{Kind: wire.FilterKind(77)})
	assert.Error(t, err)
}
