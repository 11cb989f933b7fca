package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the complete harness configuration
type Config struct {
	Audio         AudioConfig         `yaml:"audio"`
	STFT          STFTConfig          `yaml:"stft"`
	Perturbations PerturbationsConfig `yaml:"perturbations"`
	Thresholds    ThresholdsConfig    `yaml:"thresholds"`
	Run           RunConfig           `yaml:"run"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// AudioConfig contains ingestion and windowing parameters
type AudioConfig struct {
	TargetSampleRate int     `yaml:"target_sample_rate"`
	ResampleBackend  string  `yaml:"resample_backend"`  // "linear" or "sinc"
	SegmentDuration  float64 `yaml:"segment_duration"`  // seconds
	HopDuration      float64 `yaml:"hop_duration"`      // seconds
	MaxSegments      int     `yaml:"max_segments"`      // 0 = unlimited
}

// STFTConfig contains the short-time transform parameters applied uniformly
// to every indicator extraction
type STFTConfig struct {
	WindowSize      int     `yaml:"window_size"` // samples
	OverlapRatio    float64 `yaml:"overlap_ratio"`
	WindowFunc      string  `yaml:"window_func"` // "hann", "hamming", "rectangular"
	RolloffFraction float64 `yaml:"rolloff_fraction"`
}

// PerturbationsConfig contains per-perturbation default parameters and the
// set enabled for a run
type PerturbationsConfig struct {
	Enabled        []string `yaml:"enabled"`
	NoiseSNRdB     float64  `yaml:"noise_snr_db"`
	CodecCutoffHz  float64  `yaml:"codec_cutoff_hz"`
	CodecBitDepth  int      `yaml:"codec_bit_depth"`
	PitchSemitones float64  `yaml:"pitch_semitones"`
	StretchRate    float64  `yaml:"stretch_rate"`
	FFmpegBinary   string   `yaml:"ffmpeg_binary"`
	CodecFormat    string   `yaml:"codec_format"`
	CodecBitrate   int      `yaml:"codec_bitrate_kbps"`
}

// ThresholdsConfig contains the decision thresholds for the fragility policy
// and the consistency checker
type ThresholdsConfig struct {
	Fragility           float64 `yaml:"fragility"`
	Clipping            float64 `yaml:"clipping"`
	MinDuration         float64 `yaml:"min_duration"` // seconds
	MinMean             float64 `yaml:"min_mean"`
	Consistency         float64 `yaml:"consistency"`
	ConsistencyMinValue float64 `yaml:"consistency_min_value"`
}

// RunConfig contains batch execution parameters
type RunConfig struct {
	Workers  int   `yaml:"workers"` // 1 = serial
	BaseSeed int64 `yaml:"base_seed"`
}

// MetricsConfig contains Prometheus exposure configuration
type MetricsConfig struct {
	ListenAddress string `yaml:"listen_address"` // empty = disabled
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.STFT.Validate(); err != nil {
		return fmt.Errorf("stft config: %w", err)
	}

	if err := c.Perturbations.Validate(); err != nil {
		return fmt.Errorf("perturbations config: %w", err)
	}

	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("thresholds config: %w", err)
	}

	if err := c.Run.Validate(); err != nil {
		return fmt.Errorf("run config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.TargetSampleRate < 8000 || a.TargetSampleRate > 192000 {
		return fmt.Errorf("target_sample_rate must be between 8000 and 192000 Hz, got %d", a.TargetSampleRate)
	}

	switch a.ResampleBackend {
	case "", "linear", "sinc":
	default:
		return fmt.Errorf("resample_backend must be 'linear' or 'sinc', got '%s'", a.ResampleBackend)
	}

	if a.SegmentDuration <= 0 {
		return fmt.Errorf("segment_duration must be positive, got %f", a.SegmentDuration)
	}

	if a.HopDuration <= 0 {
		return fmt.Errorf("hop_duration must be positive, got %f", a.HopDuration)
	}

	if a.MaxSegments < 0 {
		return fmt.Errorf("max_segments cannot be negative, got %d", a.MaxSegments)
	}

	return nil
}

// Validate validates STFT configuration
func (s *STFTConfig) Validate() error {
	if s.WindowSize < 16 || s.WindowSize > 65536 {
		return fmt.Errorf("window_size must be between 16 and 65536 samples, got %d", s.WindowSize)
	}

	if s.OverlapRatio < 0 || s.OverlapRatio >= 1 {
		return fmt.Errorf("overlap_ratio must be between 0 and 1 (exclusive), got %f", s.OverlapRatio)
	}

	validWindows := map[string]bool{"hann": true, "hamming": true, "rectangular": true, "": true}
	if !validWindows[s.WindowFunc] {
		return fmt.Errorf("window_func must be one of [hann, hamming, rectangular], got '%s'", s.WindowFunc)
	}

	if s.RolloffFraction <= 0 || s.RolloffFraction > 1 {
		return fmt.Errorf("rolloff_fraction must be between 0 and 1, got %f", s.RolloffFraction)
	}

	return nil
}

// Validate validates perturbation configuration
func (p *PerturbationsConfig) Validate() error {
	if len(p.Enabled) == 0 {
		return fmt.Errorf("at least one perturbation must be enabled")
	}

	if p.CodecCutoffHz <= 0 {
		return fmt.Errorf("codec_cutoff_hz must be positive, got %f", p.CodecCutoffHz)
	}

	if p.CodecBitDepth < 2 || p.CodecBitDepth > 24 {
		return fmt.Errorf("codec_bit_depth must be between 2 and 24, got %d", p.CodecBitDepth)
	}

	if p.PitchSemitones < -24 || p.PitchSemitones > 24 {
		return fmt.Errorf("pitch_semitones must be between -24 and 24, got %f", p.PitchSemitones)
	}

	if p.StretchRate < 0.25 || p.StretchRate > 4.0 {
		return fmt.Errorf("stretch_rate must be between 0.25 and 4.0, got %f", p.StretchRate)
	}

	if p.CodecBitrate < 0 {
		return fmt.Errorf("codec_bitrate_kbps cannot be negative, got %d", p.CodecBitrate)
	}

	return nil
}

// Validate validates threshold configuration
func (t *ThresholdsConfig) Validate() error {
	if t.Fragility <= 0 {
		return fmt.Errorf("fragility must be positive, got %f", t.Fragility)
	}

	if t.Clipping <= 0 || t.Clipping > 1 {
		return fmt.Errorf("clipping must be between 0 and 1, got %f", t.Clipping)
	}

	if t.MinDuration <= 0 {
		return fmt.Errorf("min_duration must be positive, got %f", t.MinDuration)
	}

	if t.MinMean <= 0 {
		return fmt.Errorf("min_mean must be positive, got %f", t.MinMean)
	}

	if t.Consistency <= 0 {
		return fmt.Errorf("consistency must be positive, got %f", t.Consistency)
	}

	if t.ConsistencyMinValue <= 0 {
		return fmt.Errorf("consistency_min_value must be positive, got %f", t.ConsistencyMinValue)
	}

	return nil
}

// Validate validates run configuration
func (r *RunConfig) Validate() error {
	if r.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", r.Workers)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}
