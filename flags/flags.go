package flags

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "DEVICE_HARNESS"

func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + strings.ReplaceAll(strings.ToUpper(name), "-", "_")}
}

var (
	FleetConfig = &cli.StringFlag{
		Name:     "fleet",
		Value:    "",
		Required: true,
		EnvVars:  prefixEnvVars("fleet"),
		Usage:    "Path to the fleet config file declaring the devices to run against (eg. 'fleet.yaml')",
	}
	RunnerBin = &cli.StringFlag{
		Name:     "runner-bin",
		Value:    "",
		Required: true,
		EnvVars:  prefixEnvVars("runner-bin"),
		Usage:    "Path to the test-runner binary invoked once per device",
	}
	RunnerArgs = &cli.StringFlag{
		Name:    "runner-args",
		Value:   "",
		EnvVars: prefixEnvVars("runner-args"),
		Usage:   "Extra arguments passed to the test runner ahead of the per-device ones",
	}
	BuildCmd = &cli.StringFlag{
		Name:     "build-cmd",
		Value:    "",
		Required: true,
		EnvVars:  prefixEnvVars("build-cmd"),
		Usage:    "Build command producing the shared test artifacts (eg. './gradlew assembleAndroidTest')",
	}
	WorkDir = &cli.StringFlag{
		Name:    "workdir",
		Value:   ".",
		EnvVars: prefixEnvVars("workdir"),
		Usage:   "Directory the build command runs in",
	}
	OutputDir = &cli.StringFlag{
		Name:    "output-dir",
		Value:   "out",
		EnvVars: prefixEnvVars("output-dir"),
		Usage:   "Directory for per-run artifacts (device logs, reports, build output)",
	}
	BootTimeout = &cli.DurationFlag{
		Name:    "boot-timeout",
		Value:   0,
		EnvVars: prefixEnvVars("boot-timeout"),
		Usage:   "How long to wait for a device to become ready (0 uses the default)",
	}
	TeardownTimeout = &cli.DurationFlag{
		Name:    "teardown-timeout",
		Value:   0,
		EnvVars: prefixEnvVars("teardown-timeout"),
		Usage:   "How long to wait for a device to confirm shutdown (0 uses the default)",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: prefixEnvVars("run-interval"),
		Usage:   "Interval between runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	HealthzAddr = &cli.StringFlag{
		Name:    "healthz-addr",
		Value:   "0.0.0.0:8080",
		EnvVars: prefixEnvVars("healthz-addr"),
		Usage:   "Listen address for the healthz server (interval mode only)",
	}
	MetricsAddr = &cli.StringFlag{
		Name:    "metrics-addr",
		Value:   "0.0.0.0:7300",
		EnvVars: prefixEnvVars("metrics-addr"),
		Usage:   "Listen address for the metrics server (interval mode only)",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: prefixEnvVars("log-level"),
		Usage:   "Log level: trace, debug, info, warn, error, crit",
	}
)

var requiredFlags = []cli.Flag{
	FleetConfig,
	RunnerBin,
	BuildCmd,
}

var optionalFlags = []cli.Flag{
	RunnerArgs,
	WorkDir,
	OutputDir,
	BootTimeout,
	TeardownTimeout,
	RunInterval,
	HealthzAddr,
	MetricsAddr,
	LogLevel,
}

var Flags []cli.Flag

func init() {
	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
