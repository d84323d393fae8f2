// Package harness orchestrates running one application test suite
// concurrently across a fixed fleet of ephemeral devices: it provisions and
// boots every device, triggers the single shared build, dispatches one
// execution unit per device, and folds the per-device outcomes into one run
// result.
package harness

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/fleetci/device-harness/devices"
	"github.com/fleetci/device-harness/exitcodes"
	"github.com/fleetci/device-harness/runner"
	"github.com/fleetci/device-harness/types"
)

// Harness wires the fleet, build, dispatch and reporting together and runs
// them once or on an interval.
type Harness struct {
	config    *Config
	version   string
	specs     []types.DeviceSpec
	executor  RunExecutor
	scheduler RunScheduler
	formatter ResultFormatter
	reporter  MetricsReporter
	result    *types.AggregateResult

	running atomic.Bool

	shutdownCallback func(error) // Callback to signal application shutdown
}

// New creates a Harness from config. A nil config.Platform selects the
// docker device backend.
func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*Harness, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating harness with config",
		"fleet", config.FleetConfig,
		"runnerBin", config.RunnerBin,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce,
		"scope", config.Scope.String())

	specs, err := devices.LoadFleet(config.FleetConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to load fleet config: %w", err)
	}

	platform := config.Platform
	if platform == nil {
		platform, err = devices.NewDockerPlatform(config.Log)
		if err != nil {
			return nil, fmt.Errorf("failed to create docker platform: %w", err)
		}
	}
	manager := devices.NewManager(platform, config.Log)
	processRunner := runner.NewProcessRunner(config.RunnerBin, config.RunnerArgs, config.Log)

	h := &Harness{
		config:    config,
		version:   version,
		specs:     specs,
		executor:  NewDefaultRunExecutor(config, specs, manager, processRunner, config.Log),
		scheduler: NewIntervalScheduler(config.RunInterval, config.RunOnce, config.Log),
		formatter: NewConsoleResultFormatter(),
		reporter:  NewDefaultMetricsReporter(),

		shutdownCallback: shutdownCallback,
	}
	config.Log.Info("harness.New: loaded fleet and created dispatch plumbing", "devices", len(specs))
	return h, nil
}

// Start runs the fleet immediately and, in interval mode, keeps running it
// on the configured interval until stopped.
func (h *Harness) Start(ctx context.Context) error {
	// Panic here means a programming error, not a test failure; exit with
	// the runtime error code.
	defer func() {
		if r := recover(); r != nil {
			h.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	h.running.Store(true)

	if h.config.RunOnce {
		h.config.Log.Info("Starting device-harness in run-once mode")
	} else {
		h.config.Log.Info("Starting device-harness in continuous mode", "interval", h.config.RunInterval)
	}

	h.scheduler.RegisterCallback(func() error {
		return h.runFleet(ctx)
	})
	if err := h.scheduler.Start(ctx); err != nil {
		return err
	}

	if h.config.RunOnce {
		h.config.Log.Info("Run completed, exiting (run-once mode)")

		if h.result != nil && h.result.Failed() {
			h.config.Log.Warn("Run-once fleet run completed with failures, returning exit code 1")
			return NewTestFailureError(h.result.String())
		}

		go func() {
			h.shutdownCallback(nil)
		}()
		return nil
	}

	h.config.Log.Debug("device-harness started successfully")
	return nil
}

// runFleet executes one full run and processes the results.
func (h *Harness) runFleet(ctx context.Context) error {
	h.config.Log.Info("Running test suite across fleet", "devices", len(h.specs))
	result, err := h.executor.Execute(ctx)
	if err != nil {
		// Build failures and broken plumbing are runtime errors, not test
		// failures.
		h.config.Log.Error("Runtime error running fleet", "error", err)
		return NewRuntimeError(err)
	}
	h.result = result

	if err := h.formatter.FormatResults(result); err != nil {
		h.config.Log.Warn("Failed to render results", "err", err)
	}
	h.reporter.ReportResults(result)

	h.config.Log.Info("Fleet run completed", "run_id", result.RunID,
		"combined_status", result.ExitStatus, "failed_devices", result.FailedCount())
	return nil
}

// Result returns the most recent run's aggregate result.
func (h *Harness) Result() *types.AggregateResult {
	return h.result
}

// Stop stops the harness service.
func (h *Harness) Stop(ctx context.Context) error {
	h.config.Log.Info("Stopping device-harness")

	if !h.running.Load() {
		h.config.Log.Debug("Service already stopped, nothing to do")
		return nil
	}
	h.running.Store(false)

	if err := h.scheduler.Stop(); err != nil {
		return err
	}
	if err := h.scheduler.WaitForShutdown(ctx); err != nil {
		return err
	}

	h.config.Log.Info("device-harness stopped successfully")
	return nil
}

// Stopped returns true if the harness service is stopped.
func (h *Harness) Stopped() bool {
	return !h.running.Load()
}
