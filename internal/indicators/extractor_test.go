package indicators

import (
	"math"
	"testing"

	"github.com/ostapenco/audio-stress-harness/internal/audio"
)

func testConfig() STFTConfig {
	return STFTConfig{
		WindowSize:      1024,
		OverlapRatio:    0.5,
		WindowFunc:      "hann",
		RolloffFraction: 0.85,
	}
}

func sineBuffer(t *testing.T, n, rate int, freq, amp float64) *audio.Buffer {
	t.Helper()

	samples := make([]float64, n)
	for i := range samples {
		samples[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	buf, err := audio.NewBuffer(samples, rate)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	return buf
}

func assertAllFinite(t *testing.T, v Vector) {
	t.Helper()

	for name, value := range v {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			t.Errorf("Indicator %s is non-finite: %v", name, value)
		}
	}
}

func TestNewExtractorValidation(t *testing.T) {
	cfg := testConfig()
	cfg.WindowSize = 8
	if _, err := NewExtractor(cfg); err == nil {
		t.Error("Expected error for tiny window size")
	}

	cfg = testConfig()
	cfg.OverlapRatio = 1.0
	if _, err := NewExtractor(cfg); err == nil {
		t.Error("Expected error for overlap ratio of 1")
	}

	cfg = testConfig()
	cfg.WindowFunc = "blackman-nuttall"
	if _, err := NewExtractor(cfg); err == nil {
		t.Error("Expected error for unknown window function")
	}

	cfg = testConfig()
	cfg.RolloffFraction = 0
	if _, err := NewExtractor(cfg); err == nil {
		t.Error("Expected error for zero rolloff fraction")
	}
}

func TestExtractSilenceSafety(t *testing.T) {
	e, err := NewExtractor(testConfig())
	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}

	buf, _ := audio.NewBuffer(make([]float64, 4096), 16000)
	v := e.Extract(buf)

	if len(v) != 9 {
		t.Errorf("Expected 9 indicators, got %d", len(v))
	}
	assertAllFinite(t, v)

	if v[RMSEnergy] != 0 {
		t.Errorf("Expected zero RMS for silence, got %f", v[RMSEnergy])
	}
	if v[CrestFactor] != 0 {
		t.Errorf("Expected zero crest factor for silence, got %f", v[CrestFactor])
	}
	if v[ZeroCrossingRate] != 0 {
		t.Errorf("Expected zero ZCR for silence, got %f", v[ZeroCrossingRate])
	}
}

func TestExtractShorterThanWindow(t *testing.T) {
	e, _ := NewExtractor(testConfig())

	// 100 samples against a 1024-sample window: one zero-padded frame.
	buf := sineBuffer(t, 100, 16000, 440, 0.5)
	v := e.Extract(buf)
	assertAllFinite(t, v)
}

func TestExtractSineTone(t *testing.T) {
	e, _ := NewExtractor(testConfig())

	buf := sineBuffer(t, 16000, 16000, 440, 0.5)
	v := e.Extract(buf)
	assertAllFinite(t, v)

	// The centroid of a pure tone sits near its frequency, modulo leakage.
	if c := v[SpectralCentroidMean]; c < 300 || c > 700 {
		t.Errorf("Expected centroid near 440 Hz, got %f", c)
	}

	// 85%% of a pure tone's energy concentrates around its peak bin.
	if r := v[SpectralRolloffMean]; r < 300 || r > 800 {
		t.Errorf("Expected rolloff near 440 Hz, got %f", r)
	}

	// A pure tone is maximally peaky, so flatness stays low.
	if f := v[SpectralFlatnessMean]; f > 0.2 {
		t.Errorf("Expected low flatness for a pure tone, got %f", f)
	}

	// A sine crosses zero twice per cycle: 2 * 440 / 16000 = 0.055.
	if z := v[ZeroCrossingRate]; math.Abs(z-0.055) > 0.005 {
		t.Errorf("Expected ZCR near 0.055, got %f", z)
	}

	// RMS of a 0.5-amplitude sine is 0.5 / sqrt(2).
	if r := v[RMSEnergy]; math.Abs(r-0.3536) > 0.01 {
		t.Errorf("Expected RMS near 0.354, got %f", r)
	}

	// Crest factor of a sine is sqrt(2).
	if c := v[CrestFactor]; math.Abs(c-math.Sqrt2) > 0.05 {
		t.Errorf("Expected crest factor near 1.414, got %f", c)
	}
}

func TestExtractFlatnessBounds(t *testing.T) {
	e, _ := NewExtractor(testConfig())

	// White-ish content (alternating impulses) should be much flatter than
	// a tone but still within [0, 1].
	samples := make([]float64, 8192)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 0.5
		} else {
			samples[i] = -0.5
		}
	}
	buf, _ := audio.NewBuffer(samples, 16000)
	v := e.Extract(buf)

	if f := v[SpectralFlatnessMean]; f < 0 || f > 1 {
		t.Errorf("Flatness out of bounds: %f", f)
	}
}

func TestExtractDeterministic(t *testing.T) {
	e, _ := NewExtractor(testConfig())
	buf := sineBuffer(t, 8000, 16000, 440, 0.5)

	a := e.Extract(buf)
	b := e.Extract(buf)

	for name := range a {
		if a[name] != b[name] {
			t.Errorf("Indicator %s not deterministic: %v vs %v", name, a[name], b[name])
		}
	}
}

func TestExtractRectangularWindow(t *testing.T) {
	cfg := testConfig()
	cfg.WindowFunc = "rectangular"
	e, err := NewExtractor(cfg)
	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}

	v := e.Extract(sineBuffer(t, 4096, 16000, 1000, 0.5))
	assertAllFinite(t, v)

	if c := v[SpectralCentroidMean]; c < 700 || c > 1500 {
		t.Errorf("Expected centroid near 1000 Hz, got %f", c)
	}
}
