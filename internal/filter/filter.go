// Package filter generates matched-filter and window-filter coefficient
// sets for BeamformerCreateFilterContext requests and caches them so a
// repeated request with identical parameters skips regeneration.
package filter

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/VictoriaMetrics/fastcache"

	"github.com/ehrlich-b/beamformer-shm/internal/wire"
)

// cacheSizeBytes bounds the in-memory coefficient cache. Filter
// coefficient sets are small (a few KB at most), so this comfortably
// holds coefficients for every filter slot across many parameter
// changes without needing eviction tuning.
const cacheSizeBytes = 8 * 1024 * 1024

// Generator produces and caches filter coefficients.
type Generator struct {
	cache *fastcache.Cache
}

// NewGenerator returns a ready-to-use coefficient generator.
func NewGenerator() *Generator {
	return &Generator{cache: fastcache.New(cacheSizeBytes)}
}

// Coefficients returns the real (and, for a complex filter, imaginary)
// taps for create, generating and caching them if this exact parameter
// set hasn't been seen before.
func (g *Generator) Coefficients(create wire.CreateFilterContext) (real, imag []float32, err error) {
	key := cacheKey(create)
	if cached := g.cache.GetBig(nil, key); cached != nil {
		return decodeCoefficients(cached, create.Parameters.Complex)
	}

	switch create.Kind {
	case wire.FilterKindKaiser:
		real = kaiserLowpass(create.Parameters.Kaiser)
	case wire.FilterKindMatchedChirp:
		real, imag = matchedChirp(create.Parameters.MatchedChirp, create.Parameters.SamplingFrequency, create.Parameters.Complex)
	default:
		return nil, nil, fmt.Errorf("filter: unknown kind %d", create.Kind)
	}

	g.cache.SetBig(key, encodeCoefficients(real, imag))
	return real, imag, nil
}

func cacheKey(create wire.CreateFilterContext) []byte {
	buf := make([]byte, 0, 32)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(create.Kind))
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(create.Parameters.Kaiser.Beta))
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(create.Parameters.Kaiser.Cutoff))
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(create.Parameters.Kaiser.Length))
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(create.Parameters.MatchedChirp.Duration))
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(create.Parameters.MatchedChirp.MinFreq))
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(create.Parameters.MatchedChirp.MaxFreq))
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(create.Parameters.SamplingFrequency))
	if create.Parameters.Complex {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

func encodeCoefficients(real, imag []float32) []byte {
	out := make([]byte, 4+4*len(real)+4*len(imag))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(real)))
	off := 4
	for _, v := range real {
		binary.LittleEndian.PutUint32(out[off:off+4], math.Float32bits(v))
		off += 4
	}
	for _, v := range imag {
		binary.LittleEndian.PutUint32(out[off:off+4], math.Float32bits(v))
		off += 4
	}
	return out
}

func decodeCoefficients(data []byte, complex bool) (real, imag []float32, err error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("filter: cached coefficients truncated")
	}
	n := binary.LittleEndian.Uint32(data[0:4])
	off := 4
	real = make([]float32, n)
	for i := range real {
		real[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
		off += 4
	}
	if complex {
		imag = make([]float32, n)
		for i := range imag {
			imag[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
			off += 4
		}
	}
	return real, imag, nil
}

// kaiserLowpass generates a windowed-sinc lowpass filter with the given
// Kaiser window shape parameter beta, normalized cutoff frequency, and
// tap count (length). length is truncated to an integer and, if even,
// rounded up to the next odd one so the filter has a well-defined
// center tap.
func kaiserLowpass(p wire.KaiserFilterParameters) []float32 {
	n := int(p.Length)
	if n < 1 {
		n = 1
	}
	if n%2 == 0 {
		n++
	}

	taps := make([]float32, n)
	center := float64(n-1) / 2
	denom := besselI0(float64(p.Beta))

	for i := 0; i < n; i++ {
		x := float64(i) - center
		var sinc float64
		if x == 0 {
			sinc = 2 * float64(p.Cutoff)
		} else {
			arg := math.Pi * x
			sinc = math.Sin(2*math.Pi*float64(p.Cutoff)*x) / arg
		}

		ratio := x / center
		if center == 0 {
			ratio = 0
		}
		windowArg := float64(p.Beta) * math.Sqrt(math.Max(0, 1-ratio*ratio))
		window := besselI0(windowArg) / denom

		taps[i] = float32(sinc * window)
	}
	return taps
}

// matchedChirp generates a linear-frequency chirp matched filter
// spanning [minFreq, maxFreq] over duration seconds, sampled at
// samplingFrequency. When complex is true, the imaginary (quadrature)
// component is also generated.
func matchedChirp(p wire.MatchedChirpFilterParameters, samplingFrequency float32, complex bool) (real, imag []float32) {
	n := int(float64(p.Duration) * float64(samplingFrequency))
	if n < 1 {
		n = 1
	}

	k := (float64(p.MaxFreq) - float64(p.MinFreq)) / float64(p.Duration)
	real = make([]float32, n)
	if complex {
		imag = make([]float32, n)
	}

	for i := 0; i < n; i++ {
		t := float64(i) / float64(samplingFrequency)
		phase := 2 * math.Pi * (float64(p.MinFreq)*t + 0.5*k*t*t)
		// Matched filter taps are the time-reverse conjugate of the
		// transmitted chirp; reversing the tap index here avoids a
		// second pass over the slice.
		idx := n - 1 - i
		real[idx] = float32(math.Cos(phase))
		if complex {
			imag[idx] = float32(-math.Sin(phase))
		}
	}
	return real, imag
}

// besselI0 approximates the zeroth-order modified Bessel function of
// the first kind via its power series, which converges quickly for the
// |x| < ~20 range Kaiser window betas stay within.
func besselI0(x float64) float64 {
	sum := 1.0
	term := 1.0
	halfX := x / 2
	for k := 1; k < 32; k++ {
		term *= (halfX * halfX) / float64(k*k)
		sum += term
		if term < 1e-14*sum {
			break
		}
	}
	return sum
}
