package harness

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/fleetci/device-harness/devices"
	"github.com/fleetci/device-harness/flags"
	"github.com/fleetci/device-harness/types"
)

// Config holds the application configuration
type Config struct {
	FleetConfig     string           // Path to the fleet YAML declaring the device set
	RunnerBin       string           // Test-runner binary invoked once per device
	RunnerArgs      []string         // Extra runner arguments ahead of the per-device ones
	BuildCmd        []string         // Build command producing the shared artifacts
	WorkDir         string           // Directory the build command runs in
	OutputDir       string           // Root directory for per-run artifacts
	Scope           types.TestScope  // Test scope applied uniformly to every device
	BootTimeout     time.Duration    // Bound on waiting for a device to become ready
	TeardownTimeout time.Duration    // Bound on waiting for a device to confirm shutdown
	RunInterval     time.Duration    // Interval between runs
	RunOnce         bool             // Indicates if the service should exit after one run
	HealthzAddr     string           // Healthz listen address (interval mode)
	MetricsAddr     string           // Metrics listen address (interval mode)
	Platform        devices.Platform // Device platform; nil selects the docker backend
	Log             log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, logger log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	// Positional arguments are test selectors; none means all tests.
	scope, err := types.ParseScope(ctx.Args().Slice()...)
	if err != nil {
		return nil, err
	}

	buildCmd := strings.Fields(ctx.String(flags.BuildCmd.Name))
	if len(buildCmd) == 0 {
		return nil, errors.New("build command is required")
	}

	fleetConfig, err := filepath.Abs(ctx.String(flags.FleetConfig.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for fleet config: %w", err)
	}
	workDir, err := filepath.Abs(ctx.String(flags.WorkDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for work directory: %w", err)
	}
	outputDir, err := filepath.Abs(ctx.String(flags.OutputDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for output directory: %w", err)
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	runOnce := runInterval == 0

	return &Config{
		FleetConfig:     fleetConfig,
		RunnerBin:       ctx.String(flags.RunnerBin.Name),
		RunnerArgs:      strings.Fields(ctx.String(flags.RunnerArgs.Name)),
		BuildCmd:        buildCmd,
		WorkDir:         workDir,
		OutputDir:       outputDir,
		Scope:           scope,
		BootTimeout:     ctx.Duration(flags.BootTimeout.Name),
		TeardownTimeout: ctx.Duration(flags.TeardownTimeout.Name),
		RunInterval:     runInterval,
		RunOnce:         runOnce,
		HealthzAddr:     ctx.String(flags.HealthzAddr.Name),
		MetricsAddr:     ctx.String(flags.MetricsAddr.Name),
		Log:             logger,
	}, nil
}
