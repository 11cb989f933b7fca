package audio

import (
	"fmt"

	"github.com/gopxl/beep"
)

// Resampler converts a mono sample slice from one rate to another.
type Resampler interface {
	Resample(samples []float64, fromRate, toRate int) ([]float64, error)
}

// Resample backend names accepted by Load.
const (
	BackendLinear = "linear"
	BackendSinc   = "sinc"
)

// ResamplerFor returns the backend registered under name. The linear backend
// is the fast default; the sinc backend trades speed for fidelity and must be
// requested explicitly. Unknown names are a hard error.
func ResamplerFor(name string) (Resampler, error) {
	switch name {
	case "", BackendLinear:
		return linearResampler{}, nil
	case BackendSinc:
		return sincResampler{quality: 4}, nil
	default:
		return nil, fmt.Errorf("unknown resample backend %q (supported: linear, sinc)", name)
	}
}

func resampledLength(n, fromRate, toRate int) (int, error) {
	if fromRate <= 0 || toRate <= 0 {
		return 0, fmt.Errorf("sample rates must be positive, got %d -> %d", fromRate, toRate)
	}
	out := int(float64(n) * float64(toRate) / float64(fromRate))
	if out <= 0 {
		return 0, fmt.Errorf("resampling %d samples from %d Hz to %d Hz yields empty output", n, fromRate, toRate)
	}
	return out, nil
}

// linearResampler interpolates linearly between neighbouring samples.
type linearResampler struct{}

func (linearResampler) Resample(samples []float64, fromRate, toRate int) ([]float64, error) {
	outLen, err := resampledLength(len(samples), fromRate, toRate)
	if err != nil {
		return nil, err
	}

	if fromRate == toRate {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out, nil
	}

	out := make([]float64, outLen)
	ratio := float64(fromRate) / float64(toRate)
	for i := range out {
		pos := float64(i) * ratio
		left := int(pos)
		if left >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := pos - float64(left)
		out[i] = samples[left]*(1-frac) + samples[left+1]*frac
	}

	return out, nil
}

// sincResampler wraps beep's windowed-sinc resampler.
type sincResampler struct {
	quality int
}

func (r sincResampler) Resample(samples []float64, fromRate, toRate int) ([]float64, error) {
	outLen, err := resampledLength(len(samples), fromRate, toRate)
	if err != nil {
		return nil, err
	}

	if fromRate == toRate {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out, nil
	}

	src := &sliceStreamer{samples: samples}
	resampled := beep.Resample(r.quality, beep.SampleRate(fromRate), beep.SampleRate(toRate), src)

	out := make([]float64, 0, outLen)
	chunk := make([][2]float64, 512)
	for {
		n, ok := resampled.Stream(chunk)
		for i := 0; i < n; i++ {
			out = append(out, chunk[i][0])
		}
		if !ok {
			break
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("sinc resampler produced no output for %d samples", len(samples))
	}

	// The streamer's output length can differ from the nominal length by a
	// few samples; pin it so both backends agree on segment boundaries.
	if len(out) > outLen {
		out = out[:outLen]
	}
	for len(out) < outLen {
		out = append(out, out[len(out)-1])
	}

	return out, nil
}

// sliceStreamer adapts a mono sample slice to beep's stereo Streamer interface.
type sliceStreamer struct {
	samples []float64
	pos     int
}

func (s *sliceStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= len(s.samples) {
		return 0, false
	}
	n := 0
	for n < len(samples) && s.pos < len(s.samples) {
		v := s.samples[s.pos]
		samples[n][0] = v
		samples[n][1] = v
		s.pos++
		n++
	}
	return n, true
}

func (s *sliceStreamer) Err() error {
	return nil
}
