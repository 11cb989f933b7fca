package audio

import (
	"fmt"
	"os"
)

// Load reads a PCM WAV file, downmixes it to mono and resamples it to
// targetRate through the named backend. An empty backend name selects the
// fast linear default.
func Load(path string, targetRate int, backend string) (*Buffer, error) {
	if targetRate <= 0 {
		return nil, fmt.Errorf("target rate must be positive, got %d", targetRate)
	}

	resampler, err := ResamplerFor(backend)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file %s: %w", path, err)
	}

	interleaved, channels, sourceRate, err := DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio file %s: %w", path, err)
	}

	mono, err := Downmix(interleaved, channels)
	if err != nil {
		return nil, fmt.Errorf("failed to downmix audio file %s: %w", path, err)
	}

	if sourceRate != targetRate {
		mono, err = resampler.Resample(mono, sourceRate, targetRate)
		if err != nil {
			return nil, fmt.Errorf("failed to resample audio file %s: %w", path, err)
		}
	}

	return NewBuffer(mono, targetRate)
}
