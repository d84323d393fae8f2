package harness

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetci/device-harness/types"
)

func TestConsoleResultFormatter(t *testing.T) {
	f := NewConsoleResultFormatter()
	result := &types.AggregateResult{
		RunID:      "run-fmt",
		ExitStatus: 1,
		Duration:   3 * time.Second,
		Outcomes: []types.ExecutionOutcome{
			{DeviceID: "dev-1", DeviceName: "phone-a", ExitStatus: 0, LogPath: "/tmp/a.log", Duration: 2 * time.Second},
			{DeviceID: "dev-2", DeviceName: "phone-b", ExitStatus: 1, LogPath: "/tmp/b.log", Duration: 3 * time.Second},
			{DeviceID: "dev-3", DeviceName: "tablet-c", ExitStatus: 1, Err: errors.New("boot timed out"), Duration: time.Second},
		},
	}

	require.NoError(t, f.FormatResults(result))
	// Empty runs still render a table with just the combined footer.
	require.NoError(t, f.FormatResults(&types.AggregateResult{RunID: "run-empty"}))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "✓ pass", outcomeString(types.ExecutionOutcome{ExitStatus: 0}))
	assert.Equal(t, "✗ fail", outcomeString(types.ExecutionOutcome{ExitStatus: 1}))
	assert.Equal(t, "✗ error", outcomeString(types.ExecutionOutcome{ExitStatus: 1, Err: errors.New("crash")}))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", formatDuration(1500*time.Millisecond))
	assert.Equal(t, "2.5m", formatDuration(150*time.Second))
}
