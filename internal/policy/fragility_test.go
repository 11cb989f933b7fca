package policy

import (
	"math"
	"testing"

	"github.com/ostapenco/audio-stress-harness/internal/audio"
	"github.com/ostapenco/audio-stress-harness/internal/indicators"
)

func testThresholds() Thresholds {
	return Thresholds{
		Fragility:   0.3,
		Clipping:    0.99,
		MinDuration: 0.5,
		MinMean:     1e-6,
	}
}

func testSegment(t *testing.T, duration float64, peak float64) *audio.Segment {
	t.Helper()

	rate := 16000
	n := int(duration * float64(rate))
	if n < 1 {
		n = 1
	}
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = peak * math.Sin(2*math.Pi*440*float64(i)/float64(rate))
	}
	// Make sure the intended peak is actually reached.
	samples[0] = peak

	return &audio.Segment{
		Index:      0,
		Start:      0,
		Duration:   duration,
		SampleRate: rate,
		Samples:    samples,
	}
}

func vectorsWith(name string, values ...float64) map[string]indicators.Vector {
	out := make(map[string]indicators.Vector)
	variants := []string{"identity", "additive_noise", "codec_stub", "pitch_shift"}
	for i, v := range values {
		out[variants[i]] = indicators.Vector{name: v}
	}
	return out
}

func TestNewValidatesThresholds(t *testing.T) {
	bad := testThresholds()
	bad.Fragility = 0
	if _, err := New(bad); err == nil {
		t.Error("Expected error for zero fragility threshold")
	}

	bad = testThresholds()
	bad.Clipping = 1.5
	if _, err := New(bad); err == nil {
		t.Error("Expected error for clipping threshold above 1")
	}
}

func TestFragilityBoundaryDefer(t *testing.T) {
	p, err := New(testThresholds())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	seg := testSegment(t, 3.0, 0.5)

	// CV of {1500, 3000} is 750/2250 = 0.333, above the 0.3 threshold.
	decision, err := p.Evaluate(seg, vectorsWith("spectral_centroid_mean", 1500, 3000))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if decision.Action != ActionDefer {
		t.Errorf("Expected defer_to_review, got %s", decision.Action)
	}
	if decision.FragilityScore <= 0.3 {
		t.Errorf("Expected fragility score above 0.3, got %f", decision.FragilityScore)
	}
	if len(decision.Reasons) != 1 || decision.Reasons[0] != "high_fragility_spectral_centroid_mean" {
		t.Errorf("Expected reason tag naming the indicator, got %v", decision.Reasons)
	}
}

func TestFragilityBoundaryAccept(t *testing.T) {
	p, _ := New(testThresholds())
	seg := testSegment(t, 3.0, 0.5)

	// CV of {1500, 1520} is 10/1510, far below threshold.
	decision, err := p.Evaluate(seg, vectorsWith("spectral_centroid_mean", 1500, 1520))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if decision.Action != ActionAccept {
		t.Errorf("Expected accept, got %s", decision.Action)
	}
	if len(decision.Reasons) != 0 {
		t.Errorf("Expected no reasons on accept, got %v", decision.Reasons)
	}
	if decision.FragilityScore < 0 {
		t.Errorf("Fragility score must be non-negative, got %f", decision.FragilityScore)
	}
}

func TestDurationGatePrecedence(t *testing.T) {
	p, _ := New(testThresholds())
	seg := testSegment(t, 0.1, 0.5)

	// Perfectly stable indicators must not rescue a too-short segment.
	decision, err := p.Evaluate(seg, vectorsWith("rms_energy", 0.5, 0.5, 0.5))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if decision.Action != ActionInsufficient {
		t.Errorf("Expected insufficient_evidence, got %s", decision.Action)
	}
	if len(decision.Reasons) != 1 || decision.Reasons[0] != ReasonTooShort {
		t.Errorf("Expected reason too_short, got %v", decision.Reasons)
	}
	if decision.FragilityScore != 0 {
		t.Errorf("Expected fragility 0, got %f", decision.FragilityScore)
	}
}

func TestClippingGatePrecedence(t *testing.T) {
	p, _ := New(testThresholds())
	seg := testSegment(t, 3.0, 1.0)

	decision, err := p.Evaluate(seg, vectorsWith("rms_energy", 0.5, 0.5))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if decision.Action != ActionInsufficient {
		t.Errorf("Expected insufficient_evidence, got %s", decision.Action)
	}
	if len(decision.Reasons) != 1 || decision.Reasons[0] != ReasonClipping {
		t.Errorf("Expected reason clipping_detected, got %v", decision.Reasons)
	}
}

func TestEvidenceGate(t *testing.T) {
	p, _ := New(testThresholds())
	seg := testSegment(t, 3.0, 0.5)

	// A single variant gives no indicator two observations.
	vectors := map[string]indicators.Vector{
		"identity": {"rms_energy": 0.5},
	}
	decision, err := p.Evaluate(seg, vectors)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if decision.Action != ActionInsufficient {
		t.Errorf("Expected insufficient_evidence, got %s", decision.Action)
	}
	if len(decision.Reasons) != 1 || decision.Reasons[0] != ReasonNoIndicators {
		t.Errorf("Expected reason no_valid_indicators, got %v", decision.Reasons)
	}

	decision, err = p.Evaluate(seg, map[string]indicators.Vector{})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if decision.Action != ActionInsufficient {
		t.Errorf("Expected insufficient_evidence for empty vectors, got %s", decision.Action)
	}
}

func TestNearZeroMeanUsesRobustFallback(t *testing.T) {
	p, _ := New(testThresholds())
	seg := testSegment(t, 3.0, 0.5)

	// Values straddling zero keep |mean| under the epsilon; the IQR
	// fallback must stay finite and bounded instead of dividing by ~0.
	decision, err := p.Evaluate(seg, vectorsWith("zero_crossing_rate", -1e-7, 1e-7, 0, 2e-7))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if math.IsNaN(decision.FragilityScore) || math.IsInf(decision.FragilityScore, 0) {
		t.Errorf("Fragility score not finite: %v", decision.FragilityScore)
	}
}

func TestMultipleFragileIndicatorsAllTagged(t *testing.T) {
	p, _ := New(testThresholds())
	seg := testSegment(t, 3.0, 0.5)

	vectors := map[string]indicators.Vector{
		"identity":       {"spectral_centroid_mean": 1500, "rms_energy": 0.1},
		"additive_noise": {"spectral_centroid_mean": 3000, "rms_energy": 0.9},
	}

	decision, err := p.Evaluate(seg, vectors)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if decision.Action != ActionDefer {
		t.Fatalf("Expected defer_to_review, got %s", decision.Action)
	}
	if len(decision.Reasons) != 2 {
		t.Fatalf("Expected 2 reason tags, got %v", decision.Reasons)
	}
	// Tags come out in sorted indicator order.
	if decision.Reasons[0] != "high_fragility_rms_energy" || decision.Reasons[1] != "high_fragility_spectral_centroid_mean" {
		t.Errorf("Unexpected tags: %v", decision.Reasons)
	}
}
