// Package metrics holds the Prometheus instruments for the scoring engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ScoreDuration      prometheus.Histogram
	Calculations       *prometheus.CounterVec
	HistoryAppends     prometheus.Counter
	Grades             *prometheus.CounterVec
	CacheWriteFailures prometheus.Counter
}

// New creates the metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ScoreDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "leadscore_calculation_duration_seconds",
			Help:    "Latency of a full lead score calculation, collaborators included",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		Calculations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leadscore_calculations_total",
			Help: "Lead score calculations by outcome",
		}, []string{"outcome"}),
		HistoryAppends: factory.NewCounter(prometheus.CounterOpts{
			Name: "leadscore_history_appends_total",
			Help: "History entries appended, creation entries included",
		}),
		Grades: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leadscore_grades_total",
			Help: "Persisted scores by letter grade",
		}, []string{"grade"}),
		CacheWriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "leadscore_cache_write_failures_total",
			Help: "Best-effort cache writes that failed",
		}),
	}
}

// ObserveCalculation records the duration and outcome of one calculation.
func (m *Metrics) ObserveCalculation(started time.Time, err error) {
	if m == nil {
		return
	}
	m.ScoreDuration.Observe(time.Since(started).Seconds())
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailed
	}
	m.Calculations.WithLabelValues(outcome).Inc()
}

// RecordPersisted records the grade of a persisted score and whether history grew.
func (m *Metrics) RecordPersisted(grade string, historyAppended bool) {
	if m == nil {
		return
	}
	m.Grades.WithLabelValues(grade).Inc()
	if historyAppended {
		m.HistoryAppends.Inc()
	}
}

// IncCacheWriteFailure counts a failed best-effort cache write.
func (m *Metrics) IncCacheWriteFailure() {
	if m == nil {
		return
	}
	m.CacheWriteFailures.Inc()
}
