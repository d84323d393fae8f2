package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "harness"
)

var (
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "runs_total",
		Help:      "Count of completed runs by result",
	}, []string{
		"result",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of the last run",
	}, []string{
		"run_id",
	})

	deviceOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "device_outcomes_total",
		Help:      "Per-device execution outcomes",
	}, []string{
		"run_id",
		"device",
		"result",
	})

	deviceRunDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "device_run_duration_seconds",
		Help:      "Wall-clock duration of a device's execution unit",
	}, []string{
		"run_id",
		"device",
	})

	deviceBootDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "device_boot_duration_seconds",
		Help:      "Time for a device to reach the ready state",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	}, []string{
		"device",
	})

	teardownFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "teardown_failures_total",
		Help:      "Best-effort device teardowns that reported an error",
	}, []string{
		"device",
	})
)

// RecordError increments the error counter for the named error.
func RecordError(errorName string) {
	errorsTotal.WithLabelValues(errorName).Inc()
}

// RecordRun records a completed run.
func RecordRun(runID, result string, duration time.Duration) {
	runsTotal.WithLabelValues(result).Inc()
	runDuration.WithLabelValues(runID).Set(duration.Seconds())
}

// RecordDeviceOutcome records one device's execution outcome.
func RecordDeviceOutcome(runID, device, result string, duration time.Duration) {
	deviceOutcomesTotal.WithLabelValues(runID, device, result).Inc()
	deviceRunDuration.WithLabelValues(runID, device).Set(duration.Seconds())
}

// RecordBootDuration records how long a device took to reach ready.
func RecordBootDuration(device string, duration time.Duration) {
	deviceBootDuration.WithLabelValues(device).Observe(duration.Seconds())
}

// RecordTeardownFailure counts a swallowed teardown error.
func RecordTeardownFailure(device string) {
	teardownFailuresTotal.WithLabelValues(device).Inc()
}
