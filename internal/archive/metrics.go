package archive

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK       = "ok"
	resultEmpty    = "empty"
	resultFailed   = "failed"
	resultAccepted = "accepted"
	resultStale    = "stale"
)

var (
	// fetchTotal counts window fetches by sweep granularity and outcome
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "archive_fetch_total",
		Help: "Archive window fetches by granularity and result",
	}, []string{"granularity", "result"})

	// fetchDuration tracks remote latency per window
	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "archive_fetch_duration_seconds",
		Help:    "Archive window fetch duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"granularity"})

	publishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "archive_publish_total",
		Help: "Archive output writes by output and result",
	}, []string{"output", "result"})

	// sweepTotal counts finished sweeps by loader kind and terminal state
	sweepTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "archive_sweep_total",
		Help: "Finished archive sweeps by loader and terminal state",
	}, []string{"loader", "state"})
)

func recordPublish(output, result string) {
	publishTotal.WithLabelValues(output, result).Inc()
}
