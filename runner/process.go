// Package runner dispatches one execution unit per ready device, drives each
// device through its test pass and teardown, and aggregates the per-device
// outcomes into a single run result.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/ethereum/go-ethereum/log"

	"github.com/fleetci/device-harness/types"
)

// Invocation is everything one runner process launch needs.
type Invocation struct {
	DeviceID    string
	Scope       types.TestScope
	LogPath     string // plain-text log sink, written by the runner
	ReportPath  string // structured report sink, written by the runner
	ArtifactDir string // shared read-only build artifacts
}

// Runner invokes the external test-runner process for one device. The
// process exit status is the sole failure signal the harness observes; a
// non-zero status is a completed run with failing tests, not an error.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (int, error)
}

// LaunchError means the runner process could not be started at all.
type LaunchError struct {
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("test runner could not be started: %v", e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// IsLaunchError checks if the error is or wraps a LaunchError.
func IsLaunchError(err error) bool {
	var le *LaunchError
	return err != nil && errors.As(err, &le)
}

// CrashError means the runner process terminated abnormally, without an
// exit status (e.g. it was killed by a signal).
type CrashError struct {
	Err error
}

func (e *CrashError) Error() string {
	return fmt.Sprintf("test runner terminated abnormally: %v", e.Err)
}

func (e *CrashError) Unwrap() error {
	return e.Err
}

// IsCrashError checks if the error is or wraps a CrashError.
func IsCrashError(err error) bool {
	var ce *CrashError
	return err != nil && errors.As(err, &ce)
}

// processRunner shells out to the configured runner binary, handing it the
// device identifier, the scope expression and the two output sinks.
type processRunner struct {
	binary   string
	baseArgs []string
	log      log.Logger
}

// NewProcessRunner creates a Runner invoking binary with baseArgs ahead of
// the per-device arguments.
func NewProcessRunner(binary string, baseArgs []string, logger log.Logger) Runner {
	return &processRunner{
		binary:   binary,
		baseArgs: baseArgs,
		log:      logger.New("component", "process-runner"),
	}
}

func (r *processRunner) Run(ctx context.Context, inv Invocation) (int, error) {
	args := append([]string{}, r.baseArgs...)
	args = append(args,
		"-device", inv.DeviceID,
		"-log", inv.LogPath,
		"-report", inv.ReportPath,
	)
	if inv.ArtifactDir != "" {
		args = append(args, "-artifacts", inv.ArtifactDir)
	}
	if !inv.Scope.IsUnscoped() {
		args = append(args, "-scope", inv.Scope.Expression())
	}

	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	r.log.Debug("Invoking test runner", "device", inv.DeviceID, "command", cmd.String())

	if err := cmd.Start(); err != nil {
		return 0, &LaunchError{Err: err}
	}
	err := cmd.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code >= 0 {
			// Exited on its own; the status is the result, failing tests
			// included.
			return code, nil
		}
		return 0, &CrashError{Err: fmt.Errorf("%v: %s", err, stderr.String())}
	}
	return 0, &CrashError{Err: err}
}
