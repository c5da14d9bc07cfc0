// Package metrics exposes Prometheus instrumentation for build passes.
package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// FileOutcome labels per-file results.
type FileOutcome string

const (
	OutcomeRendered FileOutcome = "rendered"
	OutcomeSkipped  FileOutcome = "skipped"
	OutcomeErrored  FileOutcome = "errored"
)

// BuildOutcome labels whole-pass results.
type BuildOutcome string

const (
	BuildSuccess BuildOutcome = "success"
	BuildPartial BuildOutcome = "partial"
	BuildFailed  BuildOutcome = "failed"
)

// Recorder records build metrics. All methods are nil-safe so callers can
// run without metrics wired.
type Recorder struct {
	once          sync.Once
	buildDuration prom.Histogram
	phaseDuration *prom.HistogramVec
	fileOutcomes  *prom.CounterVec
	buildOutcomes *prom.CounterVec
}

// NewRecorder constructs and registers build metrics on reg (idempotent per
// Recorder instance).
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{}
	r.once.Do(func() {
		r.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "sitegen",
			Name:      "build_duration_seconds",
			Help:      "Total build pass duration",
			Buckets:   prom.DefBuckets,
		})
		r.phaseDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "sitegen",
			Name:      "phase_duration_seconds",
			Help:      "Duration of individual build phases",
			Buckets:   prom.DefBuckets,
		}, []string{"phase"})
		r.fileOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitegen",
			Name:      "file_outcomes_total",
			Help:      "Per-file results by outcome",
		}, []string{"outcome"})
		r.buildOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitegen",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		reg.MustRegister(r.buildDuration, r.phaseDuration, r.fileOutcomes, r.buildOutcomes)
	})
	return r
}

// ObserveBuildDuration records the duration of a whole pass.
func (r *Recorder) ObserveBuildDuration(d time.Duration) {
	if r == nil || r.buildDuration == nil {
		return
	}
	r.buildDuration.Observe(d.Seconds())
}

// ObservePhaseDuration records the duration of one phase.
func (r *Recorder) ObservePhaseDuration(phase string, d time.Duration) {
	if r == nil || r.phaseDuration == nil {
		return
	}
	r.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// IncFileOutcome counts a per-file result.
func (r *Recorder) IncFileOutcome(outcome FileOutcome) {
	if r == nil || r.fileOutcomes == nil {
		return
	}
	r.fileOutcomes.WithLabelValues(string(outcome)).Inc()
}

// IncBuildOutcome counts a whole-pass result.
func (r *Recorder) IncBuildOutcome(outcome BuildOutcome) {
	if r == nil || r.buildOutcomes == nil {
		return
	}
	r.buildOutcomes.WithLabelValues(string(outcome)).Inc()
}
