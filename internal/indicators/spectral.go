package indicators

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/stat"

	"github.com/ostapenco/audio-stress-harness/internal/audio"
)

// powerFloor keeps flatness and rolloff math away from log(0) and 0/0 on
// silent frames.
const powerFloor = 1e-10

// spectralFrames runs the short-time transform over the buffer and returns
// the per-frame centroid, flatness and rolloff series. Buffers shorter than
// one window are zero-padded into a single frame.
func (e *Extractor) spectralFrames(buf *audio.Buffer) (centroid, flatness, rolloff []float64) {
	n := len(buf.Samples)
	if n == 0 {
		return nil, nil, nil
	}

	frameCount := 1
	if n >= e.cfg.WindowSize {
		frameCount = 1 + (n-e.cfg.WindowSize)/e.hop
	}

	centroid = make([]float64, 0, frameCount)
	flatness = make([]float64, 0, frameCount)
	rolloff = make([]float64, 0, frameCount)

	frame := make([]float64, e.cfg.WindowSize)
	spectrum := make([]complex128, e.cfg.WindowSize/2+1)
	mags := make([]float64, len(spectrum))
	freqs := e.binFrequencies(buf.SampleRate)

	for f := 0; f < frameCount; f++ {
		start := f * e.hop
		for i := range frame {
			if start+i < n {
				frame[i] = buf.Samples[start+i] * e.coeffs[i]
			} else {
				frame[i] = 0
			}
		}

		spectrum = e.fft.Coefficients(spectrum, frame)
		for i, c := range spectrum {
			mags[i] = cmplx.Abs(c)
		}

		centroid = append(centroid, frameCentroid(mags, freqs))
		flatness = append(flatness, frameFlatness(mags))
		rolloff = append(rolloff, frameRolloff(mags, freqs, e.cfg.RolloffFraction))
	}

	return centroid, flatness, rolloff
}

// binFrequencies maps FFT coefficient indexes to frequencies in Hz.
func (e *Extractor) binFrequencies(sampleRate int) []float64 {
	freqs := make([]float64, e.cfg.WindowSize/2+1)
	for i := range freqs {
		freqs[i] = e.fft.Freq(i) * float64(sampleRate)
	}
	return freqs
}

// frameCentroid is the magnitude-weighted mean frequency, 0 for an empty frame.
func frameCentroid(mags, freqs []float64) float64 {
	var weighted, total float64
	for i, m := range mags {
		weighted += freqs[i] * m
		total += m
	}
	if total < powerFloor {
		return 0
	}
	return weighted / total
}

// frameFlatness is the geometric over arithmetic mean of frame power,
// bounded to [0, 1]. Silent frames come out maximally flat.
func frameFlatness(mags []float64) float64 {
	logSum := 0.0
	sum := 0.0
	for _, m := range mags {
		p := m * m
		if p < powerFloor {
			p = powerFloor
		}
		logSum += math.Log(p)
		sum += p
	}

	n := float64(len(mags))
	geo := math.Exp(logSum / n)
	arith := sum / n
	if arith < powerFloor {
		return 1
	}

	flat := geo / arith
	if flat > 1 {
		flat = 1
	} else if flat < 0 {
		flat = 0
	}
	return flat
}

// frameRolloff is the frequency below which the configured fraction of the
// frame's energy accumulates, 0 for a silent frame.
func frameRolloff(mags, freqs []float64, fraction float64) float64 {
	total := 0.0
	for _, m := range mags {
		total += m * m
	}
	if total < powerFloor {
		return 0
	}

	target := fraction * total
	cum := 0.0
	for i, m := range mags {
		cum += m * m
		if cum >= target {
			return freqs[i]
		}
	}
	return freqs[len(freqs)-1]
}

// meanStd folds a per-frame series into mean and population-std indicators.
// An empty series yields zeros so the contract of finite output holds.
func meanStd(v Vector, meanName, stdName string, series []float64) {
	if len(series) == 0 {
		v[meanName] = 0
		v[stdName] = 0
		return
	}
	v[meanName] = stat.Mean(series, nil)
	if len(series) < 2 {
		v[stdName] = 0
		return
	}
	v[stdName] = stat.PopStdDev(series, nil)
}
