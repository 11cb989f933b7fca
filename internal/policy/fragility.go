package policy

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ostapenco/audio-stress-harness/internal/audio"
	"github.com/ostapenco/audio-stress-harness/internal/indicators"
)

// Action is the policy's recommendation for a segment.
type Action string

const (
	ActionAccept       Action = "accept"
	ActionDefer        Action = "defer_to_review"
	ActionInsufficient Action = "insufficient_evidence"
)

// Reason tags attached to decisions.
const (
	ReasonTooShort        = "too_short"
	ReasonClipping        = "clipping_detected"
	ReasonNoIndicators    = "no_valid_indicators"
	ReasonEvaluationError = "evaluation_error"

	fragilityTagPrefix = "high_fragility_"
)

// Decision is the per-segment outcome of the fragility gates.
type Decision struct {
	Action         Action   `json:"recommended_action"`
	FragilityScore float64  `json:"fragility_score"`
	Reasons        []string `json:"reasons"`
}

// Thresholds carries the externally supplied decision thresholds. Nothing in
// the policy is hardcoded.
type Thresholds struct {
	Fragility   float64 // dispersion above this tags an indicator fragile
	Clipping    float64 // peak amplitude at or above this blocks evaluation
	MinDuration float64 // seconds below which a segment is too short
	MinMean     float64 // |mean| epsilon for the CV vs robust-fallback switch
}

// Validate checks the threshold values.
func (t Thresholds) Validate() error {
	if t.Fragility <= 0 {
		return fmt.Errorf("fragility threshold must be positive, got %f", t.Fragility)
	}
	if t.Clipping <= 0 || t.Clipping > 1 {
		return fmt.Errorf("clipping threshold must be in (0, 1], got %f", t.Clipping)
	}
	if t.MinDuration <= 0 {
		return fmt.Errorf("min duration must be positive, got %f", t.MinDuration)
	}
	if t.MinMean <= 0 {
		return fmt.Errorf("min mean threshold must be positive, got %f", t.MinMean)
	}
	return nil
}

// Policy evaluates segments against configured thresholds. Stateless; one
// instance per worker is rebuilt from the same values.
type Policy struct {
	thresholds Thresholds
}

// New builds a policy from validated thresholds.
func New(thresholds Thresholds) (*Policy, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	return &Policy{thresholds: thresholds}, nil
}

// Evaluate runs the gate sequence for one segment, first match wins:
// duration, clipping, evidence, then dispersion scoring across the segment's
// perturbation variants.
func (p *Policy) Evaluate(seg *audio.Segment, vectors map[string]indicators.Vector) (Decision, error) {
	if seg.Duration < p.thresholds.MinDuration {
		return Decision{
			Action:  ActionInsufficient,
			Reasons: []string{ReasonTooShort},
		}, nil
	}

	if audio.IsClipped(seg.Samples, p.thresholds.Clipping) {
		return Decision{
			Action:  ActionInsufficient,
			Reasons: []string{ReasonClipping},
		}, nil
	}

	series := collectSeries(vectors)
	if len(series) == 0 {
		return Decision{
			Action:  ActionInsufficient,
			Reasons: []string{ReasonNoIndicators},
		}, nil
	}

	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	maxDispersion := 0.0
	var tags []string
	for _, name := range names {
		d := p.dispersion(series[name])
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return Decision{}, fmt.Errorf("non-finite dispersion for indicator %s", name)
		}
		if d > maxDispersion {
			maxDispersion = d
		}
		if d > p.thresholds.Fragility {
			tags = append(tags, fragilityTagPrefix+name)
		}
	}

	if len(tags) > 0 {
		return Decision{
			Action:         ActionDefer,
			FragilityScore: maxDispersion,
			Reasons:        tags,
		}, nil
	}

	return Decision{
		Action:         ActionAccept,
		FragilityScore: maxDispersion,
	}, nil
}

// collectSeries gathers, per indicator, the values observed across variants,
// keeping only indicators with at least two observations.
func collectSeries(vectors map[string]indicators.Vector) map[string][]float64 {
	series := make(map[string][]float64)
	for _, vec := range vectors {
		for name, value := range vec {
			series[name] = append(series[name], value)
		}
	}
	for name, values := range series {
		if len(values) < 2 {
			delete(series, name)
		}
	}
	return series
}

// dispersion is the coefficient of variation when the mean is meaningfully
// far from zero, and IQR over (|median| + epsilon) otherwise. The fallback
// keeps near-zero indicators on a comparable scale instead of blowing up.
func (p *Policy) dispersion(values []float64) float64 {
	mean := stat.Mean(values, nil)
	if math.Abs(mean) > p.thresholds.MinMean {
		return stat.PopStdDev(values, nil) / math.Abs(mean)
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	iqr := stat.Quantile(0.75, stat.LinInterp, sorted, nil) -
		stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	median := stat.Quantile(0.5, stat.LinInterp, sorted, nil)

	return iqr / (math.Abs(median) + p.thresholds.MinMean)
}
