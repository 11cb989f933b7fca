package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ostapenco/audio-stress-harness/internal/audio"
	"github.com/ostapenco/audio-stress-harness/internal/batch"
	"github.com/ostapenco/audio-stress-harness/internal/config"
	"github.com/ostapenco/audio-stress-harness/internal/indicators"
	"github.com/ostapenco/audio-stress-harness/internal/metrics"
	"github.com/ostapenco/audio-stress-harness/internal/perturb"
	"github.com/ostapenco/audio-stress-harness/internal/policy"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "audio-stress-harness"
	serviceVersion    = "1.0.0"
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	inputPath := flag.String("input", "", "Path to the input WAV file")
	workers := flag.Int("workers", 0, "Override worker count from config (0 = use config)")
	flag.Parse()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: harness -input <file.wav> [-config <config.yaml>] [-workers N]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logging)

	logger.Info("Harness starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
		slog.String("input", *inputPath),
	)

	workerCount := cfg.Run.Workers
	if *workers > 0 {
		workerCount = *workers
	}

	logger.Info("Configuration loaded",
		slog.Int("target_sample_rate", cfg.Audio.TargetSampleRate),
		slog.Float64("segment_duration", cfg.Audio.SegmentDuration),
		slog.Float64("hop_duration", cfg.Audio.HopDuration),
		slog.Int("stft_window_size", cfg.STFT.WindowSize),
		slog.Float64("fragility_threshold", cfg.Thresholds.Fragility),
		slog.Float64("consistency_threshold", cfg.Thresholds.Consistency),
		slog.Int("workers", workerCount),
		slog.Int64("base_seed", cfg.Run.BaseSeed),
	)

	appMetrics := metrics.New()
	if cfg.Metrics.ListenAddress != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Metrics.ListenAddress, mux); err != nil {
				logger.Error("Metrics listener failed", slog.String("error", err.Error()))
			}
		}()
		logger.Info("Prometheus metrics listening", slog.String("address", cfg.Metrics.ListenAddress))
	}

	buf, err := audio.Load(*inputPath, cfg.Audio.TargetSampleRate, cfg.Audio.ResampleBackend)
	if err != nil {
		logger.Error("Failed to load audio", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Audio loaded",
		slog.Int("samples", len(buf.Samples)),
		slog.Float64("duration_seconds", buf.Duration()),
	)

	segments, err := audio.Window(buf.Samples, buf.SampleRate,
		cfg.Audio.SegmentDuration, cfg.Audio.HopDuration, cfg.Audio.MaxSegments)
	if err != nil {
		logger.Error("Failed to window audio", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if len(segments) == 0 {
		logger.Error("Input shorter than one segment, nothing to evaluate")
		os.Exit(1)
	}
	logger.Info("Audio windowed", slog.Int("segments", len(segments)))

	orchestrator, err := batch.New(logger, batch.Config{
		Perturbations: perturb.Spec{
			Noise:       perturb.NoiseParams{SNRdB: cfg.Perturbations.NoiseSNRdB},
			CodecStub:   perturb.CodecStubParams{CutoffHz: cfg.Perturbations.CodecCutoffHz, BitDepth: cfg.Perturbations.CodecBitDepth},
			PitchShift:  perturb.PitchShiftParams{Semitones: cfg.Perturbations.PitchSemitones},
			TimeStretch: perturb.TimeStretchParams{Rate: cfg.Perturbations.StretchRate},
			RealCodec: perturb.RealCodecParams{
				FFmpegBinary: cfg.Perturbations.FFmpegBinary,
				Format:       cfg.Perturbations.CodecFormat,
				BitrateKbps:  cfg.Perturbations.CodecBitrate,
			},
		},
		STFT: indicators.STFTConfig{
			WindowSize:      cfg.STFT.WindowSize,
			OverlapRatio:    cfg.STFT.OverlapRatio,
			WindowFunc:      cfg.STFT.WindowFunc,
			RolloffFraction: cfg.STFT.RolloffFraction,
		},
		Thresholds: policy.Thresholds{
			Fragility:   cfg.Thresholds.Fragility,
			Clipping:    cfg.Thresholds.Clipping,
			MinDuration: cfg.Thresholds.MinDuration,
			MinMean:     cfg.Thresholds.MinMean,
		},
		ConsistencyThreshold: cfg.Thresholds.Consistency,
		ConsistencyMinValue:  cfg.Thresholds.ConsistencyMinValue,
		BaseSeed:             cfg.Run.BaseSeed,
	}, appMetrics)
	if err != nil {
		logger.Error("Failed to create orchestrator", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var report *batch.Report
	if workerCount > 1 {
		report, err = orchestrator.RunParallel(segments, cfg.Perturbations.Enabled, workerCount)
	} else {
		report, err = orchestrator.RunSerial(segments, cfg.Perturbations.Enabled)
	}
	if err != nil {
		logger.Error("Batch run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	actions := make(map[policy.Action]int)
	warnings := 0
	for _, r := range report.Results {
		actions[r.Decision.Action]++
		warnings += len(r.Warnings)
	}

	logger.Info("Batch run complete",
		slog.String("run_id", report.RunID),
		slog.Int("segments", len(report.Results)),
		slog.Int("accepted", actions[policy.ActionAccept]),
		slog.Int("deferred", actions[policy.ActionDefer]),
		slog.Int("insufficient", actions[policy.ActionInsufficient]),
		slog.Int("warnings", warnings),
	)

	for _, r := range report.Results {
		logger.Info("Segment decision",
			slog.Int("segment", r.SegmentIndex),
			slog.String("action", string(r.Decision.Action)),
			slog.Float64("fragility_score", r.Decision.FragilityScore),
			slog.Any("reasons", r.Decision.Reasons),
		)
		for _, w := range r.Warnings {
			logger.Warn("Segment warning", slog.Int("segment", r.SegmentIndex), slog.String("warning", w))
		}
	}

	logger.Info("Temporal consistency",
		slog.Bool("is_consistent", report.Consistency.IsConsistent),
		slog.Float64("inconsistency_score", report.Consistency.InconsistencyScore),
		slog.Any("flagged", report.Consistency.Flagged),
	)

	if !report.Consistency.IsConsistent {
		os.Exit(3)
	}
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
