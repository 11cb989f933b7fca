package batch

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ostapenco/audio-stress-harness/internal/audio"
	"github.com/ostapenco/audio-stress-harness/internal/consistency"
	"github.com/ostapenco/audio-stress-harness/internal/indicators"
	"github.com/ostapenco/audio-stress-harness/internal/metrics"
	"github.com/ostapenco/audio-stress-harness/internal/perturb"
	"github.com/ostapenco/audio-stress-harness/internal/policy"
)

// Result bundles everything produced for one segment: one indicator vector
// per applied perturbation, the deferral decision, and any recoverable
// failures recorded along the way.
type Result struct {
	SegmentIndex int                          `json:"segment_index"`
	Vectors      map[string]indicators.Vector `json:"indicator_vectors"`
	Decision     policy.Decision              `json:"decision"`
	Warnings     []string                     `json:"warnings,omitempty"`
}

// Report is the run-level output: per-segment results in segment order plus
// the temporal-consistency verdict over the baseline vectors.
type Report struct {
	RunID       string             `json:"run_id"`
	Results     []Result           `json:"results"`
	Consistency consistency.Result `json:"consistency"`
}

// Config carries every value the orchestrator and its workers need. Workers
// rebuild their extractor and policy from these values rather than sharing
// instances, so the two run modes share nothing mutable.
type Config struct {
	Perturbations        perturb.Spec
	STFT                 indicators.STFTConfig
	Thresholds           policy.Thresholds
	ConsistencyThreshold float64
	ConsistencyMinValue  float64
	BaseSeed             int64
}

// Orchestrator dispatches segment evaluations serially or across a worker
// pool. Both modes produce identical numeric results for identical seeds
// because all randomness is derived per (segment, perturbation) task.
type Orchestrator struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New validates the configuration by constructing each component once and
// returns an orchestrator. metrics may be nil when instrumentation is off.
func New(logger *slog.Logger, cfg Config, m *metrics.Metrics) (*Orchestrator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := perturb.NewRegistry(cfg.Perturbations); err != nil {
		return nil, fmt.Errorf("invalid perturbation config: %w", err)
	}
	if _, err := indicators.NewExtractor(cfg.STFT); err != nil {
		return nil, fmt.Errorf("invalid STFT config: %w", err)
	}
	if _, err := policy.New(cfg.Thresholds); err != nil {
		return nil, fmt.Errorf("invalid policy thresholds: %w", err)
	}
	if _, err := consistency.New(cfg.ConsistencyThreshold, cfg.ConsistencyMinValue); err != nil {
		return nil, fmt.Errorf("invalid consistency config: %w", err)
	}

	return &Orchestrator{cfg: cfg, logger: logger, metrics: m}, nil
}

// EvaluateSegment applies the named perturbations to one segment, extracts an
// indicator vector per surviving variant and folds them into a decision.
// Unknown perturbation names are a hard error; a single variant's runtime
// failure only drops that (segment, perturbation) pair and records a warning.
func (o *Orchestrator) EvaluateSegment(seg *audio.Segment, names []string, baseSeed int64) (Result, error) {
	registry, err := perturb.NewRegistry(o.cfg.Perturbations)
	if err != nil {
		return Result{}, err
	}
	extractor, err := indicators.NewExtractor(o.cfg.STFT)
	if err != nil {
		return Result{}, err
	}
	pol, err := policy.New(o.cfg.Thresholds)
	if err != nil {
		return Result{}, err
	}

	// Resolve all names before doing any work so an unregistered name fails
	// the whole call rather than becoming a silent omission.
	perturbations := make([]perturb.Perturbation, 0, len(names))
	for _, name := range names {
		p, err := registry.Get(name)
		if err != nil {
			return Result{}, err
		}
		perturbations = append(perturbations, p)
	}

	result := Result{
		SegmentIndex: seg.Index,
		Vectors:      make(map[string]indicators.Vector, len(perturbations)),
	}

	for _, p := range perturbations {
		seed := perturb.DeriveSeed(baseSeed, seg.Index, p.Name)
		variant, err := p.Apply(seg.Buffer(), seed)
		if err != nil {
			warning := fmt.Sprintf("perturbation %s failed on segment %d: %v", p.Name, seg.Index, err)
			result.Warnings = append(result.Warnings, warning)
			o.logger.Warn("perturbation failed",
				slog.String("perturbation", p.Name),
				slog.Int("segment", seg.Index),
				slog.String("error", err.Error()),
			)
			if o.metrics != nil {
				o.metrics.RecordPerturbationFailure(p.Name)
			}
			continue
		}

		result.Vectors[p.Name] = extractor.Extract(variant)
		if o.metrics != nil {
			o.metrics.RecordPerturbationApplied()
		}
	}

	decision, err := pol.Evaluate(seg, result.Vectors)
	if err != nil {
		warning := fmt.Sprintf("decision evaluation failed on segment %d: %v", seg.Index, err)
		result.Warnings = append(result.Warnings, warning)
		o.logger.Warn("decision evaluation failed",
			slog.Int("segment", seg.Index),
			slog.String("error", err.Error()),
		)
		decision = policy.Decision{
			Action:  policy.ActionInsufficient,
			Reasons: []string{policy.ReasonEvaluationError},
		}
	}
	result.Decision = decision

	return result, nil
}

// RunSerial evaluates segments one by one in segment order.
func (o *Orchestrator) RunSerial(segments []audio.Segment, names []string) (*Report, error) {
	if err := o.validateNames(names); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(segments))
	for i := range segments {
		results = append(results, o.evaluateIsolated(&segments[i], names))
	}

	return o.buildReport(results), nil
}

// RunParallel evaluates segments across a pool of workers, one task per
// segment, then re-sorts the order-independent results by segment index.
func (o *Orchestrator) RunParallel(segments []audio.Segment, names []string, workers int) (*Report, error) {
	if workers < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", workers)
	}
	if err := o.validateNames(names); err != nil {
		return nil, err
	}

	jobs := make(chan *audio.Segment)
	out := make(chan Result, len(segments))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seg := range jobs {
				out <- o.evaluateIsolated(seg, names)
			}
		}()
	}

	for i := range segments {
		jobs <- &segments[i]
	}
	close(jobs)
	wg.Wait()
	close(out)

	results := make([]Result, 0, len(segments))
	for r := range out {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].SegmentIndex < results[j].SegmentIndex
	})

	return o.buildReport(results), nil
}

// validateNames rejects unregistered perturbation names before any segment
// work is dispatched.
func (o *Orchestrator) validateNames(names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("no perturbations requested")
	}
	registry, err := perturb.NewRegistry(o.cfg.Perturbations)
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, err := registry.Get(name); err != nil {
			return err
		}
	}
	return nil
}

// evaluateIsolated wraps EvaluateSegment so that no single segment's failure
// can abort the batch: a hard evaluation error becomes a synthetic
// insufficient_evidence result carrying the error as a warning.
func (o *Orchestrator) evaluateIsolated(seg *audio.Segment, names []string) Result {
	start := time.Now()

	result, err := o.EvaluateSegment(seg, names, o.cfg.BaseSeed)
	if err != nil {
		result = Result{
			SegmentIndex: seg.Index,
			Vectors:      map[string]indicators.Vector{},
			Decision: policy.Decision{
				Action:  policy.ActionInsufficient,
				Reasons: []string{policy.ReasonEvaluationError},
			},
			Warnings: []string{fmt.Sprintf("segment %d evaluation failed: %v", seg.Index, err)},
		}
	}

	if o.metrics != nil {
		o.metrics.RecordSegmentEvaluated(
			string(result.Decision.Action),
			result.Decision.FragilityScore,
			time.Since(start).Seconds(),
		)
	}

	return result
}

// buildReport assembles the run report and the consistency verdict over the
// baseline (identity) vectors in segment order.
func (o *Orchestrator) buildReport(results []Result) *Report {
	baseline := make([]indicators.Vector, 0, len(results))
	for _, r := range results {
		if vec, ok := r.Vectors[perturb.NameIdentity]; ok {
			baseline = append(baseline, vec)
		}
	}

	checker, _ := consistency.New(o.cfg.ConsistencyThreshold, o.cfg.ConsistencyMinValue)
	verdict := checker.Check(baseline)

	if o.metrics != nil {
		o.metrics.RecordRunCompleted(verdict.InconsistencyScore)
	}

	return &Report{
		RunID:       uuid.New().String(),
		Results:     results,
		Consistency: verdict,
	}
}
