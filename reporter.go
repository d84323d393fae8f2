package harness

import (
	"github.com/fleetci/device-harness/metrics"
	"github.com/fleetci/device-harness/types"
)

// MetricsReporter is responsible for reporting metrics from run results.
type MetricsReporter interface {
	ReportResults(result *types.AggregateResult)
}

// DefaultMetricsReporter implements the MetricsReporter interface.
type DefaultMetricsReporter struct{}

// NewDefaultMetricsReporter creates a new DefaultMetricsReporter.
func NewDefaultMetricsReporter() *DefaultMetricsReporter {
	return &DefaultMetricsReporter{}
}

// ReportResults reports the run results to metrics systems.
func (r *DefaultMetricsReporter) ReportResults(result *types.AggregateResult) {
	runResult := "pass"
	if result.Failed() {
		runResult = "fail"
	}
	metrics.RecordRun(result.RunID, runResult, result.Duration)

	for _, o := range result.Outcomes {
		metrics.RecordDeviceOutcome(result.RunID, o.DeviceName, resultLabel(o), o.Duration)
	}
}
