package perturb

import (
	"fmt"
	"math"

	"github.com/ostapenco/audio-stress-harness/internal/audio"
)

// apply shifts pitch by resampling at the semitone ratio and pinning the
// result back to the original length. A bounded approximation, not a
// formant-preserving shifter.
func (p PitchShiftParams) apply(buf *audio.Buffer, _ int64) (*audio.Buffer, error) {
	if p.Semitones < MinSemitones || p.Semitones > MaxSemitones {
		return nil, fmt.Errorf("pitch shift semitones must be in [%g, %g], got %g",
			MinSemitones, MaxSemitones, p.Semitones)
	}

	factor := math.Pow(2, p.Semitones/12)
	out := resampleByStep(buf.Samples, factor)

	return &audio.Buffer{
		Samples:    fitLength(out, len(buf.Samples)),
		SampleRate: buf.SampleRate,
	}, nil
}

// apply changes playback rate by linear resampling and pins the result back
// to the original length (zero-padding when sped up, truncating when slowed).
func (p TimeStretchParams) apply(buf *audio.Buffer, _ int64) (*audio.Buffer, error) {
	if p.Rate < MinStretch || p.Rate > MaxStretch {
		return nil, fmt.Errorf("time stretch rate must be in [%g, %g], got %g",
			MinStretch, MaxStretch, p.Rate)
	}

	out := resampleByStep(buf.Samples, p.Rate)

	return &audio.Buffer{
		Samples:    fitLength(out, len(buf.Samples)),
		SampleRate: buf.SampleRate,
	}, nil
}

// resampleByStep reads the input at the given fractional step with linear
// interpolation. step > 1 shortens the signal, step < 1 lengthens it.
func resampleByStep(samples []float64, step float64) []float64 {
	outLen := int(float64(len(samples)) / step)
	if outLen < 1 {
		outLen = 1
	}

	out := make([]float64, outLen)
	for i := range out {
		pos := float64(i) * step
		left := int(pos)
		if left >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := pos - float64(left)
		out[i] = samples[left]*(1-frac) + samples[left+1]*frac
	}

	return out
}
