package audio

import (
	"math"
	"testing"
)

func TestEncodeDecodeWAVRoundTrip(t *testing.T) {
	samples := make([]float64, 1600)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/16000)
	}

	data, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	decoded, channels, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	if channels != 1 {
		t.Errorf("Expected 1 channel, got %d", channels)
	}
	if rate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", rate)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(decoded))
	}

	// 16-bit quantization allows roughly 1/32768 of error per sample.
	for i := range samples {
		if math.Abs(decoded[i]-samples[i]) > 1e-4 {
			t.Fatalf("Sample %d differs: got %f, want %f", i, decoded[i], samples[i])
		}
	}
}

func TestEncodeWAVValidation(t *testing.T) {
	if _, err := EncodeWAV(nil, 16000); err == nil {
		t.Error("Expected error for empty samples")
	}
	if _, err := EncodeWAV([]float64{0.1}, 0); err == nil {
		t.Error("Expected error for non-positive sample rate")
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	if _, _, _, err := DecodeWAV([]byte("not a wav file")); err == nil {
		t.Error("Expected error for short garbage input")
	}

	data, _ := EncodeWAV(make([]float64, 100), 8000)
	data[0] = 'X' // corrupt the RIFF magic
	if _, _, _, err := DecodeWAV(data); err == nil {
		t.Error("Expected error for corrupted RIFF header")
	}
}

func TestDownmixAveragesChannels(t *testing.T) {
	// Stereo frames: (0.2, 0.4) and (-0.6, 0.2).
	interleaved := []float64{0.2, 0.4, -0.6, 0.2}

	mono, err := Downmix(interleaved, 2)
	if err != nil {
		t.Fatalf("Downmix failed: %v", err)
	}

	if len(mono) != 2 {
		t.Fatalf("Expected 2 mono frames, got %d", len(mono))
	}
	if math.Abs(mono[0]-0.3) > 1e-12 {
		t.Errorf("Frame 0: got %f, want 0.3", mono[0])
	}
	if math.Abs(mono[1]-(-0.2)) > 1e-12 {
		t.Errorf("Frame 1: got %f, want -0.2", mono[1])
	}
}

func TestDownmixMonoCopies(t *testing.T) {
	src := []float64{0.1, 0.2}
	mono, err := Downmix(src, 1)
	if err != nil {
		t.Fatalf("Downmix failed: %v", err)
	}

	mono[0] = 0.9
	if src[0] != 0.1 {
		t.Error("Mono downmix shares backing array with source")
	}
}
