package indicators

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"github.com/ostapenco/audio-stress-harness/internal/audio"
)

// Indicator names emitted by the extractor.
const (
	SpectralCentroidMean = "spectral_centroid_mean"
	SpectralCentroidStd  = "spectral_centroid_std"
	SpectralFlatnessMean = "spectral_flatness_mean"
	SpectralFlatnessStd  = "spectral_flatness_std"
	SpectralRolloffMean  = "spectral_rolloff_mean"
	SpectralRolloffStd   = "spectral_rolloff_std"
	RMSEnergy            = "rms_energy"
	CrestFactor          = "crest_factor"
	ZeroCrossingRate     = "zero_crossing_rate"
)

// Vector maps indicator names to finite values for one (segment, variant).
type Vector map[string]float64

// Clone returns an independent copy of the vector.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// STFTConfig describes the short-time transform applied uniformly to every
// buffer: analysis window length, overlap and window function.
type STFTConfig struct {
	WindowSize      int
	OverlapRatio    float64
	WindowFunc      string  // "hann", "hamming" or "rectangular"
	RolloffFraction float64 // energy fraction for spectral rolloff
}

// Extractor computes the indicator vector for an audio buffer. It holds no
// mutable state between calls, so one instance per worker is safe and cheap
// to reconstruct from the same configuration.
type Extractor struct {
	cfg    STFTConfig
	fft    *fourier.FFT
	coeffs []float64 // precomputed window coefficients
	hop    int
}

// NewExtractor validates the transform configuration and precomputes the
// analysis window.
func NewExtractor(cfg STFTConfig) (*Extractor, error) {
	if cfg.WindowSize < 16 {
		return nil, fmt.Errorf("window size must be at least 16 samples, got %d", cfg.WindowSize)
	}
	if cfg.OverlapRatio < 0 || cfg.OverlapRatio >= 1 {
		return nil, fmt.Errorf("overlap ratio must be in [0, 1), got %f", cfg.OverlapRatio)
	}
	if cfg.RolloffFraction <= 0 || cfg.RolloffFraction > 1 {
		return nil, fmt.Errorf("rolloff fraction must be in (0, 1], got %f", cfg.RolloffFraction)
	}

	coeffs := make([]float64, cfg.WindowSize)
	for i := range coeffs {
		coeffs[i] = 1
	}
	switch cfg.WindowFunc {
	case "hann", "":
		window.Hann(coeffs)
	case "hamming":
		window.Hamming(coeffs)
	case "rectangular":
		// all-ones window
	default:
		return nil, fmt.Errorf("unknown window function %q (supported: hann, hamming, rectangular)", cfg.WindowFunc)
	}

	hop := int(float64(cfg.WindowSize) * (1 - cfg.OverlapRatio))
	if hop < 1 {
		hop = 1
	}

	return &Extractor{
		cfg:    cfg,
		fft:    fourier.NewFFT(cfg.WindowSize),
		coeffs: coeffs,
		hop:    hop,
	}, nil
}

// Extract computes all indicators for the buffer. It returns finite values
// for any buffer, including all-zero (silent) input; it never panics and
// never produces NaN or Inf.
func (e *Extractor) Extract(buf *audio.Buffer) Vector {
	v := make(Vector, 9)

	centroid, flatness, rolloff := e.spectralFrames(buf)
	meanStd(v, SpectralCentroidMean, SpectralCentroidStd, centroid)
	meanStd(v, SpectralFlatnessMean, SpectralFlatnessStd, flatness)
	meanStd(v, SpectralRolloffMean, SpectralRolloffStd, rolloff)

	rms := rmsEnergy(buf.Samples)
	v[RMSEnergy] = rms
	v[CrestFactor] = crestFactor(buf.Samples, rms)
	v[ZeroCrossingRate] = zeroCrossingRate(buf.Samples)

	return v
}

// rmsEnergy returns the root-mean-square amplitude of the samples.
func rmsEnergy(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// crestFactor returns peak over RMS, defined as 0 for silent input.
func crestFactor(samples []float64, rms float64) float64 {
	if rms == 0 {
		return 0
	}
	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak / rms
}

// zeroCrossingRate counts sign changes normalized by buffer length.
func zeroCrossingRate(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples))
}
