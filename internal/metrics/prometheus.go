package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the stress-test harness
type Metrics struct {
	// Segment evaluation metrics
	SegmentsEvaluated   prometheus.Counter
	SegmentEvalDuration prometheus.Histogram
	FragilityScore      prometheus.Histogram
	DecisionsByAction   *prometheus.CounterVec

	// Perturbation metrics
	PerturbationsApplied prometheus.Counter
	PerturbationFailures *prometheus.CounterVec

	// Run-level metrics
	RunsCompleted      prometheus.Counter
	InconsistencyScore prometheus.Gauge
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		SegmentsEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "harness_segments_evaluated_total",
			Help: "Total number of audio segments evaluated",
		}),
		SegmentEvalDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "harness_segment_eval_duration_seconds",
			Help:    "Time spent evaluating one segment across all perturbations",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),
		FragilityScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "harness_fragility_score",
			Help:    "Fragility score distribution across evaluated segments",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0.0 to 1.0
		}),
		DecisionsByAction: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "harness_decisions_total",
			Help: "Total number of deferral decisions by recommended action",
		}, []string{"action"}),

		PerturbationsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "harness_perturbations_applied_total",
			Help: "Total number of perturbation variants applied",
		}),
		PerturbationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "harness_perturbation_failures_total",
			Help: "Total number of perturbation applications that failed",
		}, []string{"perturbation"}),

		RunsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "harness_runs_completed_total",
			Help: "Total number of completed batch runs",
		}),
		InconsistencyScore: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "harness_inconsistency_score",
			Help: "Inconsistency score of the most recent batch run",
		}),
	}
}

// RecordSegmentEvaluated records one finished segment evaluation
func (m *Metrics) RecordSegmentEvaluated(action string, fragilityScore, durationSeconds float64) {
	m.SegmentsEvaluated.Inc()
	m.SegmentEvalDuration.Observe(durationSeconds)
	m.FragilityScore.Observe(fragilityScore)
	m.DecisionsByAction.WithLabelValues(action).Inc()
}

// RecordPerturbationApplied increments the applied-perturbations counter
func (m *Metrics) RecordPerturbationApplied() {
	m.PerturbationsApplied.Inc()
}

// RecordPerturbationFailure records a failed perturbation application
func (m *Metrics) RecordPerturbationFailure(name string) {
	m.PerturbationFailures.WithLabelValues(name).Inc()
}

// RecordRunCompleted records a finished run and its inconsistency score
func (m *Metrics) RecordRunCompleted(inconsistencyScore float64) {
	m.RunsCompleted.Inc()
	m.InconsistencyScore.Set(inconsistencyScore)
}
