package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/fleetci/device-harness/devices"
	"github.com/fleetci/device-harness/metrics"
	"github.com/fleetci/device-harness/types"
)

// UnitState is the execution unit's own state machine, separate from the
// device lifecycle it drives.
type UnitState string

const (
	UnitPending   UnitState = "pending"
	UnitRunning   UnitState = "running"
	UnitCompleted UnitState = "completed"
	UnitFailed    UnitState = "failed"
)

// Unit runs one device's full test pass: boot-wait, runner invocation,
// outcome capture and unconditional teardown. A unit exclusively owns its
// device instance; nothing else touches it once dispatch begins.
type Unit struct {
	device          *types.DeviceInstance
	manager         *devices.Manager
	runner          Runner
	inv             Invocation
	bootTimeout     time.Duration
	teardownTimeout time.Duration
	state           UnitState
	log             log.Logger
	tracer          trace.Tracer
}

// NewUnit creates a pending unit for a launched device.
func NewUnit(device *types.DeviceInstance, manager *devices.Manager, runner Runner, inv Invocation,
	bootTimeout, teardownTimeout time.Duration, logger log.Logger) *Unit {
	return &Unit{
		device:          device,
		manager:         manager,
		runner:          runner,
		inv:             inv,
		bootTimeout:     bootTimeout,
		teardownTimeout: teardownTimeout,
		state:           UnitPending,
		log:             logger.New("device", device.Spec.Name),
		tracer:          otel.Tracer("device-harness"),
	}
}

// State returns the unit's current state. Only meaningful to the goroutine
// driving Execute, and to tests inspecting the terminal state afterwards.
func (u *Unit) State() UnitState {
	return u.state
}

// Execute drives the unit to a terminal state and returns its outcome
// exactly once. Teardown runs unconditionally after the outcome is decided,
// including when the unit itself panics; the outcome's duration never
// includes teardown. Execute never lets a fault escape to sibling units.
func (u *Unit) Execute(ctx context.Context) types.ExecutionOutcome {
	outcome := u.run(ctx)
	u.teardown(ctx)
	return outcome
}

func (u *Unit) run(ctx context.Context) (outcome types.ExecutionOutcome) {
	ctx, span := u.tracer.Start(ctx, fmt.Sprintf("device %s", u.device.Spec.Name))
	defer span.End()

	start := time.Now()
	outcome = types.ExecutionOutcome{
		DeviceID:   u.device.ID,
		DeviceName: u.device.Spec.Name,
		LogPath:    u.inv.LogPath,
		ReportPath: u.inv.ReportPath,
	}
	defer func() {
		if r := recover(); r != nil {
			u.log.Error("Execution unit panicked", "panic", r)
			u.state = UnitFailed
			outcome.Err = fmt.Errorf("execution unit panicked: %v", r)
			outcome.ExitStatus = 1
			outcome.Duration = time.Since(start)
		}
	}()

	u.log.Info("Waiting for device to become ready", "timeout", u.bootTimeout)
	err := u.manager.WaitForState(ctx, u.device,
		func(s types.State) bool { return s == types.StateReady }, u.bootTimeout)
	if err != nil {
		u.log.Error("Device never became ready", "err", err)
		metrics.RecordError("boot_timeout")
		u.state = UnitFailed
		outcome.Err = err
		outcome.ExitStatus = 1
		outcome.Duration = time.Since(start)
		return outcome
	}
	metrics.RecordBootDuration(u.device.Spec.Name, time.Since(start))

	u.state = UnitRunning
	u.device.State = types.StateRunning
	u.log.Info("Running tests", "scope", u.inv.Scope.String())

	status, err := u.runner.Run(ctx, u.inv)
	outcome.ExitStatus = status
	outcome.Duration = time.Since(start)
	if err != nil {
		// Could not start, or died without an exit status.
		u.log.Error("Test runner failed", "err", err)
		metrics.RecordError("runner_failure")
		u.state = UnitFailed
		outcome.Err = err
		if outcome.ExitStatus == 0 {
			outcome.ExitStatus = 1
		}
		return outcome
	}

	u.state = UnitCompleted
	u.log.Info("Test runner exited", "status", status, "duration", outcome.Duration)
	return outcome
}

// teardown shuts the device down, waits for the platform to confirm it, and
// deletes it. Failures are logged and swallowed; cleanup is best effort and
// never retried.
func (u *Unit) teardown(ctx context.Context) {
	u.log.Info("Tearing down device")
	if err := u.manager.Kill(ctx, u.device); err != nil {
		u.log.Warn("Device teardown failed", "op", "kill", "err", err)
		metrics.RecordTeardownFailure(u.device.Spec.Name)
		return
	}
	if u.device.State == types.StateDeleted {
		// Kill had to force-destroy; nothing left to delete.
		return
	}
	err := u.manager.WaitForState(ctx, u.device, func(s types.State) bool {
		return s == types.StateShuttingDown || s == types.StateDeleted
	}, u.teardownTimeout)
	if err != nil {
		u.log.Warn("Device teardown failed", "op", "wait-shutdown", "err", err)
		metrics.RecordTeardownFailure(u.device.Spec.Name)
		return
	}
	if err := u.manager.Delete(ctx, u.device); err != nil {
		u.log.Warn("Device teardown failed", "op", "delete", "err", err)
		metrics.RecordTeardownFailure(u.device.Spec.Name)
	}
}
