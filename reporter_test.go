package harness

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fleetci/device-harness/types"
)

func TestMetricsReporter_ReportResults(t *testing.T) {
	r := NewDefaultMetricsReporter()

	// Reporting must not panic for passing, failing and errored outcomes.
	r.ReportResults(&types.AggregateResult{
		RunID:      "run-report",
		ExitStatus: 1,
		Duration:   2 * time.Second,
		Outcomes: []types.ExecutionOutcome{
			{DeviceName: "phone-a", ExitStatus: 0, Duration: time.Second},
			{DeviceName: "phone-b", ExitStatus: 1, Duration: 2 * time.Second},
			{DeviceName: "tablet-c", ExitStatus: 1, Err: errors.New("launch failed")},
		},
	})
}

func TestResultLabel(t *testing.T) {
	assert.Equal(t, "pass", resultLabel(types.ExecutionOutcome{ExitStatus: 0}))
	assert.Equal(t, "fail", resultLabel(types.ExecutionOutcome{ExitStatus: 3}))
	assert.Equal(t, "fail", resultLabel(types.ExecutionOutcome{Err: errors.New("boom")}))
}
