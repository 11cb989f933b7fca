package perturb

import (
	"math"

	"github.com/ostapenco/audio-stress-harness/internal/audio"
)

// apply approximates lossy codec damage with a 4th-order Butterworth low-pass
// followed by amplitude quantization. The filter is skipped when the cutoff
// reaches Nyquist, where it would have nothing to remove.
func (p CodecStubParams) apply(buf *audio.Buffer, _ int64) (*audio.Buffer, error) {
	out := make([]float64, len(buf.Samples))
	copy(out, buf.Samples)

	nyquist := float64(buf.SampleRate) / 2
	if p.CutoffHz < nyquist {
		out = lowpass4(out, p.CutoffHz, buf.SampleRate)
	}

	levels := math.Pow(2, float64(p.BitDepth-1))
	for i, s := range out {
		out[i] = clampUnit(math.Round(s*levels) / levels)
	}

	return &audio.Buffer{Samples: out, SampleRate: buf.SampleRate}, nil
}

// biquad is one direct-form-I second-order filter section.
type biquad struct {
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     float64
}

func (f *biquad) process(x float64) float64 {
	y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}

// newLowpassBiquad builds an RBJ low-pass section for the given cutoff and Q.
func newLowpassBiquad(cutoffHz float64, sampleRate int, q float64) *biquad {
	w0 := 2 * math.Pi * cutoffHz / float64(sampleRate)
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	a0 := 1 + alpha
	return &biquad{
		b0: (1 - cosW0) / 2 / a0,
		b1: (1 - cosW0) / a0,
		b2: (1 - cosW0) / 2 / a0,
		a1: -2 * cosW0 / a0,
		a2: (1 - alpha) / a0,
	}
}

// lowpass4 cascades two Butterworth sections into a 4th-order low-pass.
// The section Qs are the standard Butterworth pole pairings.
func lowpass4(samples []float64, cutoffHz float64, sampleRate int) []float64 {
	sections := []*biquad{
		newLowpassBiquad(cutoffHz, sampleRate, 0.54119610),
		newLowpassBiquad(cutoffHz, sampleRate, 1.30656296),
	}

	out := samples
	for _, s := range sections {
		for i, v := range out {
			out[i] = s.process(v)
		}
	}
	return out
}
