package perturb

import (
	"fmt"

	"github.com/ostapenco/audio-stress-harness/internal/audio"
)

// Kind enumerates the closed set of perturbation variants.
type Kind int

const (
	KindIdentity Kind = iota
	KindAdditiveNoise
	KindCodecStub
	KindPitchShift
	KindTimeStretch
	KindRealCodec
)

// Canonical perturbation names used for registry lookup and seed derivation.
const (
	NameIdentity      = "identity"
	NameAdditiveNoise = "additive_noise"
	NameCodecStub     = "codec_stub"
	NamePitchShift    = "pitch_shift"
	NameTimeStretch   = "time_stretch"
	NameRealCodec     = "real_codec"
)

// Parameter bounds for the warp perturbations. Inputs outside these are
// rejected before any processing happens.
const (
	MinSemitones = -24.0
	MaxSemitones = 24.0
	MinStretch   = 0.25
	MaxStretch   = 4.0
)

// NoiseParams configures the additive-noise perturbation.
type NoiseParams struct {
	SNRdB float64
}

// CodecStubParams configures the low-pass + quantization codec approximation.
type CodecStubParams struct {
	CutoffHz float64
	BitDepth int
}

// PitchShiftParams configures the pitch-shift approximation.
type PitchShiftParams struct {
	Semitones float64
}

// TimeStretchParams configures the time-stretch approximation.
type TimeStretchParams struct {
	Rate float64
}

// RealCodecParams configures the external encode/decode round trip.
type RealCodecParams struct {
	FFmpegBinary string
	Format       string
	BitrateKbps  int
}

// Spec carries the immutable parameter records for every registered kind.
type Spec struct {
	Noise       NoiseParams
	CodecStub   CodecStubParams
	PitchShift  PitchShiftParams
	TimeStretch TimeStretchParams
	RealCodec   RealCodecParams
}

// applyFunc is a pure transform of (buffer, seed) to a same-length buffer.
type applyFunc func(buf *audio.Buffer, seed int64) (*audio.Buffer, error)

// Perturbation is one registered variant: a name, a kind and its transform.
type Perturbation struct {
	Name  string
	Kind  Kind
	apply applyFunc
}

// Apply runs the transform. The input buffer is never modified.
func (p Perturbation) Apply(buf *audio.Buffer, seed int64) (*audio.Buffer, error) {
	if buf == nil || len(buf.Samples) == 0 {
		return nil, fmt.Errorf("perturbation %s: empty input buffer", p.Name)
	}
	return p.apply(buf, seed)
}

// Registry is the closed lookup table of perturbations, dispatched by name.
type Registry struct {
	entries map[string]Perturbation
	order   []string
}

// NewRegistry builds the full variant set from the given parameter records.
// Out-of-bounds warp parameters fail here, before anything can be applied.
func NewRegistry(spec Spec) (*Registry, error) {
	if spec.PitchShift.Semitones < MinSemitones || spec.PitchShift.Semitones > MaxSemitones {
		return nil, fmt.Errorf("pitch shift semitones must be in [%g, %g], got %g",
			MinSemitones, MaxSemitones, spec.PitchShift.Semitones)
	}
	if spec.TimeStretch.Rate < MinStretch || spec.TimeStretch.Rate > MaxStretch {
		return nil, fmt.Errorf("time stretch rate must be in [%g, %g], got %g",
			MinStretch, MaxStretch, spec.TimeStretch.Rate)
	}
	if spec.CodecStub.BitDepth < 2 || spec.CodecStub.BitDepth > 24 {
		return nil, fmt.Errorf("codec stub bit depth must be in [2, 24], got %d", spec.CodecStub.BitDepth)
	}
	if spec.CodecStub.CutoffHz <= 0 {
		return nil, fmt.Errorf("codec stub cutoff must be positive, got %g", spec.CodecStub.CutoffHz)
	}

	r := &Registry{entries: make(map[string]Perturbation)}
	r.register(Perturbation{Name: NameIdentity, Kind: KindIdentity, apply: applyIdentity})
	r.register(Perturbation{Name: NameAdditiveNoise, Kind: KindAdditiveNoise, apply: spec.Noise.apply})
	r.register(Perturbation{Name: NameCodecStub, Kind: KindCodecStub, apply: spec.CodecStub.apply})
	r.register(Perturbation{Name: NamePitchShift, Kind: KindPitchShift, apply: spec.PitchShift.apply})
	r.register(Perturbation{Name: NameTimeStretch, Kind: KindTimeStretch, apply: spec.TimeStretch.apply})
	r.register(Perturbation{Name: NameRealCodec, Kind: KindRealCodec, apply: spec.RealCodec.apply})

	return r, nil
}

func (r *Registry) register(p Perturbation) {
	r.entries[p.Name] = p
	r.order = append(r.order, p.Name)
}

// Get looks up a perturbation by name. Unknown names are a hard error.
func (r *Registry) Get(name string) (Perturbation, error) {
	p, ok := r.entries[name]
	if !ok {
		return Perturbation{}, fmt.Errorf("unregistered perturbation %q", name)
	}
	return p, nil
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// applyIdentity returns an owned, unchanged copy of the input.
func applyIdentity(buf *audio.Buffer, _ int64) (*audio.Buffer, error) {
	return buf.Clone(), nil
}

// fitLength pins samples to length n: longer results are truncated, shorter
// ones zero-padded, so every variant matches the nominal segment length.
func fitLength(samples []float64, n int) []float64 {
	if len(samples) == n {
		return samples
	}
	if len(samples) > n {
		return samples[:n]
	}
	out := make([]float64, n)
	copy(out, samples)
	return out
}

// clampUnit limits a sample to the valid [-1, 1] amplitude range.
func clampUnit(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return v
}
