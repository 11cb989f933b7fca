package consistency

import (
	"testing"

	"github.com/ostapenco/audio-stress-harness/internal/indicators"
)

func centroidSeries(values ...float64) []indicators.Vector {
	out := make([]indicators.Vector, len(values))
	for i, v := range values {
		out[i] = indicators.Vector{"spectral_centroid_mean": v}
	}
	return out
}

func TestNewValidation(t *testing.T) {
	if _, err := New(0, 0.001); err == nil {
		t.Error("Expected error for zero threshold")
	}
	if _, err := New(0.5, 0); err == nil {
		t.Error("Expected error for zero min value")
	}
}

func TestFewerThanTwoSegmentsTriviallyConsistent(t *testing.T) {
	c, err := New(0.5, 0.001)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for _, baseline := range [][]indicators.Vector{nil, centroidSeries(1500)} {
		result := c.Check(baseline)
		if !result.IsConsistent {
			t.Errorf("Expected trivial consistency for %d segments", len(baseline))
		}
		if result.InconsistencyScore != 0 {
			t.Errorf("Expected score 0, got %f", result.InconsistencyScore)
		}
	}
}

func TestStableSequenceConsistent(t *testing.T) {
	c, _ := New(0.5, 0.001)

	result := c.Check(centroidSeries(1500, 1520, 1480))

	if !result.IsConsistent {
		t.Error("Expected consistent verdict for stable sequence")
	}
	if result.InconsistencyScore >= 0.5 {
		t.Errorf("Expected score below 0.5, got %f", result.InconsistencyScore)
	}
	if len(result.Flagged) != 0 {
		t.Errorf("Expected no flagged indicators, got %v", result.Flagged)
	}
}

func TestJumpySequenceInconsistent(t *testing.T) {
	c, _ := New(0.5, 0.001)

	result := c.Check(centroidSeries(1500, 5000, 1600))

	if result.IsConsistent {
		t.Error("Expected inconsistent verdict for jumpy sequence")
	}
	if result.InconsistencyScore <= 0.5 {
		t.Errorf("Expected score above 0.5, got %f", result.InconsistencyScore)
	}
	if len(result.Flagged) != 1 || result.Flagged[0] != "spectral_centroid_mean" {
		t.Errorf("Expected spectral_centroid_mean flagged, got %v", result.Flagged)
	}
}

func TestNearZeroValuesUseFloorScale(t *testing.T) {
	c, _ := New(0.5, 0.001)

	// Tiny absolute changes around zero are normalized by the floor, not
	// by the vanishing average magnitude.
	baseline := []indicators.Vector{
		{"rms_energy": 0.0},
		{"rms_energy": 1e-5},
		{"rms_energy": 0.0},
	}
	result := c.Check(baseline)

	if !result.IsConsistent {
		t.Errorf("Expected tiny near-zero wobble to stay consistent, got score %f", result.InconsistencyScore)
	}
}

func TestIndicatorMissingFromSomeSegments(t *testing.T) {
	c, _ := New(0.5, 0.001)

	// The middle vector lacks the indicator, so no consecutive pair carries
	// it and the indicator is skipped entirely.
	baseline := []indicators.Vector{
		{"spectral_centroid_mean": 1500},
		{"rms_energy": 0.5},
		{"spectral_centroid_mean": 5000},
	}
	result := c.Check(baseline)

	if !result.IsConsistent {
		t.Errorf("Expected consistent verdict when no consecutive pair exists, got %v", result)
	}
	if result.InconsistencyScore != 0 {
		t.Errorf("Expected score 0, got %f", result.InconsistencyScore)
	}
}

func TestMaxAcrossIndicators(t *testing.T) {
	c, _ := New(0.5, 0.001)

	baseline := []indicators.Vector{
		{"spectral_centroid_mean": 1500, "rms_energy": 0.5},
		{"spectral_centroid_mean": 1510, "rms_energy": 0.5},
	}
	result := c.Check(baseline)

	// Overall score is the max across indicators: centroid moves a little,
	// RMS not at all.
	want := (1510.0 - 1500.0) / 1505.0
	if diff := result.InconsistencyScore - want; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("Expected score %v, got %v", want, result.InconsistencyScore)
	}
}
