// Package telemetry exposes Prometheus metrics and OpenTelemetry tracing for
// the persistence engine.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricAppends = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scribe",
		Name:      "events_appended_total",
		Help:      "Number of events durably appended, by kind.",
	}, []string{"kind"})
	metricAppendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scribe",
		Name:      "append_failures_total",
		Help:      "Number of append attempts that failed before the rename.",
	})
	metricAppendSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scribe",
		Name:      "append_duration_seconds",
		Help:      "Wall time of a single append, lock wait included.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	})
	metricLockTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scribe",
		Name:      "lock_timeouts_total",
		Help:      "Number of appends that gave up waiting for the session lock.",
	})
	metricReplaySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scribe",
		Name:      "replay_duration_seconds",
		Help:      "Wall time of a full session replay.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	metricEventsReplayed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scribe",
		Name:      "events_replayed_total",
		Help:      "Number of events folded into session state during replays.",
	})
	metricUnmatchedActions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scribe",
		Name:      "unmatched_actions_total",
		Help:      "Number of dangling actions surfaced by recovery scans.",
	})
)

// RecordAppend records a durable append of the given event kind.
func RecordAppend(kind string, duration time.Duration) {
	metricAppends.WithLabelValues(kind).Inc()
	metricAppendSeconds.Observe(duration.Seconds())
}

// RecordAppendFailure records an append that failed before becoming visible.
func RecordAppendFailure() {
	metricAppendFailures.Inc()
}

// RecordLockTimeout records an append that gave up waiting for the lock.
func RecordLockTimeout() {
	metricLockTimeouts.Inc()
}

// RecordReplay records a completed replay of eventCount events.
func RecordReplay(eventCount int, duration time.Duration) {
	metricReplaySeconds.Observe(duration.Seconds())
	if eventCount > 0 {
		metricEventsReplayed.Add(float64(eventCount))
	}
}

// RecordUnmatchedActions records dangling actions found by a recovery scan.
func RecordUnmatchedActions(count int) {
	if count > 0 {
		metricUnmatchedActions.Add(float64(count))
	}
}
