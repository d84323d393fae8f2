package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	harness "github.com/fleetci/device-harness"
	"github.com/fleetci/device-harness/flags"
	"github.com/fleetci/device-harness/service"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "device-harness"
	app.Usage = "Parallel device fleet test harness"
	app.Description = "device-harness runs one test suite concurrently across a fleet of ephemeral devices " +
		"and reports a combined result"
	app.ArgsUsage = "[selector ...]"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			// Check for typed runtime errors
			if harness.IsRuntimeError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), 2))
			} else if harness.IsTestFailureError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), 1))
			} else {
				// For other unspecified errors, default to exit code 1
				cli.HandleExitCoder(cli.Exit(err.Error(), 1))
			}
		}
	}

	if err := app.Run(os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(cliCtx *cli.Context) error {
	logLevel, err := log.LvlFromString(cliCtx.String(flags.LogLevel.Name))
	if err != nil {
		return harness.NewRuntimeError(fmt.Errorf("invalid log level: %w", err))
	}
	logger := log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, logLevel, true))
	log.SetDefault(logger)

	// Telemetry is best effort; a missing collector never blocks a run.
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(cliCtx.App.Name),
		otelconfig.WithServiceVersion(cliCtx.App.Version),
	)
	if err != nil {
		logger.Warn("Failed to configure OpenTelemetry", "err", err)
	} else {
		defer otelShutdown()
	}

	cfg, err := harness.NewConfig(cliCtx, logger)
	if err != nil {
		return harness.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	ctx, stop := signal.NotifyContext(cliCtx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	h, err := harness.New(runCtx, cfg, cliCtx.App.Version, func(error) { cancel() })
	if err != nil {
		return harness.NewRuntimeError(err)
	}

	if !cfg.RunOnce {
		svc := service.New(cfg.HealthzAddr, cfg.MetricsAddr)
		svc.Start(runCtx)
		defer svc.Shutdown()
	}

	if err := h.Start(runCtx); err != nil {
		return err
	}
	if cfg.RunOnce {
		return nil
	}

	<-runCtx.Done()
	return h.Stop(context.Background())
}
