package consistency

import (
	"fmt"
	"math"
	"sort"

	"github.com/ostapenco/audio-stress-harness/internal/indicators"
)

// Result is the run-level temporal-consistency verdict computed from the
// baseline (unperturbed) indicator vectors of all segments.
type Result struct {
	IsConsistent       bool     `json:"is_consistent"`
	InconsistencyScore float64  `json:"inconsistency_score"`
	Flagged            []string `json:"flagged_indicators,omitempty"`
}

// Checker scores normalized indicator changes between consecutive segments.
type Checker struct {
	threshold float64 // temporal-variation score above this flags an indicator
	minValue  float64 // scale floor for near-zero comparisons
}

// New builds a checker from the configured consistency thresholds.
func New(threshold, minValue float64) (*Checker, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("consistency threshold must be positive, got %f", threshold)
	}
	if minValue <= 0 {
		return nil, fmt.Errorf("consistency min value must be positive, got %f", minValue)
	}
	return &Checker{threshold: threshold, minValue: minValue}, nil
}

// Check scores the ordered baseline vectors. Fewer than two segments is
// trivially consistent. Per indicator present in at least two consecutive
// segments, each consecutive change is |delta| over the average of the two
// magnitudes, falling back to the configured floor when that average is too
// small to normalize against; the indicator's score is the mean change.
func (c *Checker) Check(baseline []indicators.Vector) Result {
	if len(baseline) < 2 {
		return Result{IsConsistent: true}
	}

	names := make(map[string]struct{})
	for _, vec := range baseline {
		for name := range vec {
			names[name] = struct{}{}
		}
	}

	maxScore := 0.0
	var flagged []string
	for name := range names {
		score, ok := c.indicatorScore(baseline, name)
		if !ok {
			continue
		}
		if score > maxScore {
			maxScore = score
		}
		if score > c.threshold {
			flagged = append(flagged, name)
		}
	}
	sort.Strings(flagged)

	return Result{
		IsConsistent:       len(flagged) == 0,
		InconsistencyScore: maxScore,
		Flagged:            flagged,
	}
}

// indicatorScore averages the normalized consecutive changes of one
// indicator; ok is false when no consecutive pair carries the indicator.
func (c *Checker) indicatorScore(baseline []indicators.Vector, name string) (float64, bool) {
	sum := 0.0
	count := 0
	for i := 1; i < len(baseline); i++ {
		prev, okPrev := baseline[i-1][name]
		cur, okCur := baseline[i][name]
		if !okPrev || !okCur {
			continue
		}

		delta := math.Abs(cur - prev)
		scale := (math.Abs(prev) + math.Abs(cur)) / 2
		if scale > c.minValue {
			sum += delta / scale
		} else {
			sum += delta / c.minValue
		}
		count++
	}

	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}
