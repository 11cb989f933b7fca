package perturb

import (
	"math"
	"math/rand"

	"github.com/ostapenco/audio-stress-harness/internal/audio"
)

const (
	// silenceFloor is the signal power below which input counts as silent.
	silenceFloor = 1e-10
	// referencePower stands in for the measured power of near-silent input
	// so the SNR scaling stays well defined.
	referencePower = 1e-6
)

// apply adds Gaussian noise scaled to hit the configured SNR. All randomness
// comes from the derived seed; no global generator is ever consulted.
func (p NoiseParams) apply(buf *audio.Buffer, seed int64) (*audio.Buffer, error) {
	power := 0.0
	for _, s := range buf.Samples {
		power += s * s
	}
	power /= float64(len(buf.Samples))

	if power < silenceFloor {
		power = referencePower
	}

	noisePower := power / math.Pow(10, p.SNRdB/10)
	sigma := math.Sqrt(noisePower)

	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, len(buf.Samples))
	for i, s := range buf.Samples {
		out[i] = clampUnit(s + sigma*rng.NormFloat64())
	}

	return &audio.Buffer{Samples: out, SampleRate: buf.SampleRate}, nil
}
