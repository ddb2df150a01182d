// Package observability registers Prometheus metrics for the parser and the
// persistence path.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	parsesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "babysteps",
		Subsystem: "parser",
		Name:      "parses_total",
		Help:      "Utterances parsed, labelled by the resulting action kind.",
	}, []string{"action"})
	classifierFallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "babysteps",
		Subsystem: "parser",
		Name:      "classifier_fallback_total",
		Help:      "Parses that fell back to the deterministic rules.",
	})
	entryPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "babysteps",
		Subsystem: "persistence",
		Name:      "last_entry_created_timestamp_seconds",
		Help:      "Unix timestamp of the most recent entry persisted to Postgres.",
	})
)

func init() {
	prometheus.MustRegister(parsesTotal, classifierFallbackTotal, entryPersistGauge)
}

// RecordParse counts a completed parse by action kind.
func RecordParse(action string) {
	parsesTotal.WithLabelValues(action).Inc()
}

// RecordClassifierFallback counts a fall-through to the deterministic rules.
func RecordClassifierFallback() {
	classifierFallbackTotal.Inc()
}

// RecordEntryPersisted updates the persistence watermark gauge.
func RecordEntryPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	entryPersistGauge.Set(float64(ts.Unix()))
}
