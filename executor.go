package harness

import (
	"context"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/fleetci/device-harness/builder"
	"github.com/fleetci/device-harness/devices"
	"github.com/fleetci/device-harness/logging"
	"github.com/fleetci/device-harness/runner"
	"github.com/fleetci/device-harness/types"
)

// RunExecutor executes one full run across the fleet.
type RunExecutor interface {
	Execute(ctx context.Context) (*types.AggregateResult, error)
}

// DefaultRunExecutor implements the RunExecutor interface. Each Execute call
// assembles fresh per-run plumbing: run ID, artifact directory, builder and
// dispatcher.
type DefaultRunExecutor struct {
	config  *Config
	specs   []types.DeviceSpec
	manager *devices.Manager
	runner  runner.Runner
	logger  log.Logger
}

// NewDefaultRunExecutor creates a new DefaultRunExecutor.
func NewDefaultRunExecutor(config *Config, specs []types.DeviceSpec, manager *devices.Manager, r runner.Runner, logger log.Logger) *DefaultRunExecutor {
	return &DefaultRunExecutor{
		config:  config,
		specs:   specs,
		manager: manager,
		runner:  r,
		logger:  logger,
	}
}

// Execute runs one full dispatch and returns the aggregate result.
func (e *DefaultRunExecutor) Execute(ctx context.Context) (*types.AggregateResult, error) {
	runID := uuid.New().String()
	artifacts, err := logging.NewFileLogger(e.config.OutputDir, runID)
	if err != nil {
		return nil, err
	}

	b, err := builder.NewCommandBuilder(e.config.BuildCmd, e.config.WorkDir,
		filepath.Join(artifacts.RunDir(), "build"), e.logger)
	if err != nil {
		return nil, err
	}

	dispatcher, err := runner.NewDispatcher(runner.Config{
		Specs:           e.specs,
		Scope:           e.config.Scope,
		Manager:         e.manager,
		Builder:         b,
		Runner:          e.runner,
		Artifacts:       artifacts,
		BootTimeout:     e.config.BootTimeout,
		TeardownTimeout: e.config.TeardownTimeout,
		Log:             e.logger,
	})
	if err != nil {
		return nil, err
	}

	result, err := dispatcher.Dispatch(ctx)
	if err != nil {
		return nil, err
	}

	if err := artifacts.WriteSummary(result.String() + "\n"); err != nil {
		e.logger.Warn("Failed to write run summary", "err", err)
	}
	return result, nil
}
