package audio

import (
	"fmt"
	"math"
)

// Buffer holds mono PCM audio as float64 samples in [-1, 1] plus the
// sample rate they were captured at.
type Buffer struct {
	Samples    []float64
	SampleRate int
}

// NewBuffer validates and wraps a sample slice. Every sample must be finite;
// a single NaN or Inf poisons all downstream indicator math.
func NewBuffer(samples []float64, sampleRate int) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	for i, s := range samples {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("non-finite sample at index %d", i)
		}
	}

	return &Buffer{Samples: samples, SampleRate: sampleRate}, nil
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// Peak returns the maximum absolute amplitude in the buffer.
func (b *Buffer) Peak() float64 {
	peak := 0.0
	for _, s := range b.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}

// Clone returns a deep copy of the buffer. Perturbations operate on copies so
// the source segment stays untouched.
func (b *Buffer) Clone() *Buffer {
	samples := make([]float64, len(b.Samples))
	copy(samples, b.Samples)
	return &Buffer{Samples: samples, SampleRate: b.SampleRate}
}

// IsClipped reports whether the peak absolute amplitude reaches the threshold.
func IsClipped(samples []float64, threshold float64) bool {
	for _, s := range samples {
		if math.Abs(s) >= threshold {
			return true
		}
	}
	return false
}

// Segment is an immutable window over a decoded audio stream. The sample data
// is copied out of the source buffer at windowing time, so a segment can be
// handed to a worker without any coordination.
type Segment struct {
	Index      int       `json:"index"`
	Start      float64   `json:"start_seconds"`
	Duration   float64   `json:"duration_seconds"`
	SampleRate int       `json:"sample_rate"`
	Samples    []float64 `json:"-"`
}

// Buffer returns the segment's samples wrapped as a Buffer for processing.
func (s *Segment) Buffer() *Buffer {
	return &Buffer{Samples: s.Samples, SampleRate: s.SampleRate}
}

// Window slices samples into fixed-duration segments starting every hop. A
// window whose end would run past the buffer is dropped rather than padded,
// so every segment carries exactly segmentDuration of real audio. maxSegments
// of 0 means unlimited.
func Window(samples []float64, sampleRate int, segmentDuration, hopDuration float64, maxSegments int) ([]Segment, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if segmentDuration <= 0 {
		return nil, fmt.Errorf("segment duration must be positive, got %f", segmentDuration)
	}
	if hopDuration <= 0 {
		return nil, fmt.Errorf("hop duration must be positive, got %f", hopDuration)
	}
	if maxSegments < 0 {
		return nil, fmt.Errorf("max segments must be positive when set, got %d", maxSegments)
	}

	segmentSamples := int(segmentDuration * float64(sampleRate))
	hopSamples := int(hopDuration * float64(sampleRate))
	if segmentSamples <= 0 || hopSamples <= 0 {
		return nil, fmt.Errorf("segment/hop duration too short for sample rate %d", sampleRate)
	}

	segments := make([]Segment, 0)
	for start := 0; start+segmentSamples <= len(samples); start += hopSamples {
		if maxSegments > 0 && len(segments) >= maxSegments {
			break
		}

		data := make([]float64, segmentSamples)
		copy(data, samples[start:start+segmentSamples])

		segments = append(segments, Segment{
			Index:      len(segments),
			Start:      float64(start) / float64(sampleRate),
			Duration:   segmentDuration,
			SampleRate: sampleRate,
			Samples:    data,
		})
	}

	return segments, nil
}
