// Package builder is the boundary to the build toolchain. The harness only
// needs one thing from it: a single synchronous build per run producing a
// shared, read-only artifact directory every execution unit consumes.
package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

// Builder compiles the shared test artifacts for a run. Implementations are
// invoked exactly once per run, before any execution unit starts.
type Builder interface {
	// Build runs the build and returns the artifact directory. The
	// directory is read-only from the harness's point of view afterwards.
	Build(ctx context.Context) (string, error)
}

// BuildError is fatal to the dispatch phase: no execution unit starts after
// it, though launched devices are still torn down.
type BuildError struct {
	Output string // tail of the build tool's combined output
	Err    error
}

func (e *BuildError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("build failed: %v", e.Err)
	}
	return fmt.Sprintf("build failed: %v\n%s", e.Err, e.Output)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// IsBuildError checks if the error is or wraps a BuildError.
func IsBuildError(err error) bool {
	var be *BuildError
	return err != nil && errors.As(err, &be)
}

// outputTail limits how much build output a BuildError carries.
const outputTail = 4 * 1024

// CommandBuilder shells out to the configured build command, e.g. the
// project's gradle or make invocation.
type CommandBuilder struct {
	command     []string
	workDir     string
	artifactDir string
	log         log.Logger
}

// NewCommandBuilder creates a builder running command (binary plus args) in
// workDir, with artifacts expected under artifactDir once it succeeds.
func NewCommandBuilder(command []string, workDir, artifactDir string, logger log.Logger) (*CommandBuilder, error) {
	if len(command) == 0 {
		return nil, errors.New("build command is required")
	}
	if artifactDir == "" {
		return nil, errors.New("artifact directory is required")
	}
	return &CommandBuilder{
		command:     command,
		workDir:     workDir,
		artifactDir: artifactDir,
		log:         logger.New("component", "builder"),
	}, nil
}

func (b *CommandBuilder) Build(ctx context.Context) (string, error) {
	b.log.Info("Building test artifacts", "command", strings.Join(b.command, " "), "dir", b.workDir)

	cmd := exec.CommandContext(ctx, b.command[0], b.command[1:]...)
	cmd.Dir = b.workDir
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		tail := output.String()
		if len(tail) > outputTail {
			tail = tail[len(tail)-outputTail:]
		}
		return "", &BuildError{Output: tail, Err: err}
	}

	if err := os.MkdirAll(b.artifactDir, 0o755); err != nil {
		return "", &BuildError{Err: err}
	}
	b.log.Info("Build completed", "artifacts", b.artifactDir)
	return b.artifactDir, nil
}
