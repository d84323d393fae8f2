package types

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// State is the lifecycle state of a device instance as reported by the
// device management platform.
type State string

const (
	StateCreated      State = "created"
	StateBooting      State = "booting"
	StateReady        State = "ready"
	StateRunning      State = "running"
	StateShuttingDown State = "shutting-down"
	StateDeleted      State = "deleted"
)

// DeviceSpec identifies one target configuration to run the suite against.
// Specs are immutable and come from the fleet configuration file.
type DeviceSpec struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Runtime string `yaml:"runtime"`
}

// Validate checks that the spec carries everything the platform needs to
// provision a device from it.
func (s DeviceSpec) Validate() error {
	if s.Name == "" {
		return errors.New("device spec requires a name")
	}
	if s.Type == "" {
		return errors.Errorf("device spec %q requires a type", s.Name)
	}
	if s.Runtime == "" {
		return errors.Errorf("device spec %q requires a runtime", s.Name)
	}
	return nil
}

func (s DeviceSpec) String() string {
	return fmt.Sprintf("%s (%s/%s)", s.Name, s.Type, s.Runtime)
}

// DeviceInstance is a concrete ephemeral device bound to a spec. An instance
// is exclusively owned by a single execution unit once dispatch begins, so
// State carries no locking.
type DeviceInstance struct {
	ID    string
	Spec  DeviceSpec
	State State
}

// ExecutionOutcome is produced exactly once per configured device.
type ExecutionOutcome struct {
	DeviceID   string
	DeviceName string
	ExitStatus int           // runner process exit status; non-zero on any failure
	LogPath    string        // plain-text runner log artifact
	ReportPath string        // structured report artifact
	Duration   time.Duration // boot-wait through runner exit, excluding teardown
	Err        error         // launch/boot/runner error, nil for a clean process exit
}

// Failed reports whether this device's run counts as a failure.
func (o ExecutionOutcome) Failed() bool {
	return o.ExitStatus != 0 || o.Err != nil
}

// AggregateResult is the combined result of one full run across the fleet.
type AggregateResult struct {
	RunID      string
	ExitStatus int           // OR of per-device runner exit statuses
	Duration   time.Duration // dispatch start to last unit completion
	Outcomes   []ExecutionOutcome
}

// Failed reports whether any device in the run failed.
func (r *AggregateResult) Failed() bool {
	return r.ExitStatus != 0
}

// FailedCount returns the number of devices whose outcome is a failure.
func (r *AggregateResult) FailedCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Failed() {
			n++
		}
	}
	return n
}

func (r *AggregateResult) String() string {
	status := "PASS"
	if r.Failed() {
		status = "FAIL"
	}
	return fmt.Sprintf("run %s: %s (%d devices, %d failed, %.1fs)",
		r.RunID, status, len(r.Outcomes), r.FailedCount(), r.Duration.Seconds())
}
