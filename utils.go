package harness

import (
	"fmt"
	"time"

	"github.com/fleetci/device-harness/types"
)

// outcomeString returns a short human-readable marker for one device's
// outcome.
func outcomeString(o types.ExecutionOutcome) string {
	if !o.Failed() {
		return "✓ pass"
	}
	if o.Err != nil {
		return "✗ error"
	}
	return "✗ fail"
}

// resultLabel is the metric label value for one device's outcome.
func resultLabel(o types.ExecutionOutcome) string {
	if o.Failed() {
		return "fail"
	}
	return "pass"
}

// formatDuration renders durations with a sensible unit for table output.
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.1fm", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
}
