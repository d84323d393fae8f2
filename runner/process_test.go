package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetci/device-harness/types"
)

func testLogger() log.Logger {
	return log.NewLogger(log.DiscardHandler())
}

func TestProcessRunnerCleanExit(t *testing.T) {
	r := NewProcessRunner("sh", []string{"-c", "exit 0", "runner"}, testLogger())
	status, err := r.Run(context.Background(), Invocation{DeviceID: "dev-1"})
	require.NoError(t, err)
	assert.Equal(t, 0, status)
}

func TestProcessRunnerFailingTestsAreNotAnError(t *testing.T) {
	r := NewProcessRunner("sh", []string{"-c", "exit 3", "runner"}, testLogger())
	status, err := r.Run(context.Background(), Invocation{DeviceID: "dev-1"})
	require.NoError(t, err, "a non-zero exit status is a result, not an error")
	assert.Equal(t, 3, status)
}

func TestProcessRunnerPassesArgumentsVerbatim(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "args.txt")
	scope, err := types.ParseScope("TargetA:ClassB/methodC")
	require.NoError(t, err)

	r := NewProcessRunner("sh", []string{"-c", `echo "$@" > ` + outFile, "runner"}, testLogger())
	status, err := r.Run(context.Background(), Invocation{
		DeviceID:   "dev-1",
		Scope:      scope,
		LogPath:    "/tmp/dev-1.log",
		ReportPath: "/tmp/dev-1-report.xml",
	})
	require.NoError(t, err)
	require.Equal(t, 0, status)

	args, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(args), "-device dev-1")
	assert.Contains(t, string(args), "-scope TargetA:ClassB/methodC")
	assert.Contains(t, string(args), "-log /tmp/dev-1.log")
	assert.Contains(t, string(args), "-report /tmp/dev-1-report.xml")
}

func TestProcessRunnerOmitsScopeWhenUnscoped(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "args.txt")
	r := NewProcessRunner("sh", []string{"-c", `echo "$@" > ` + outFile, "runner"}, testLogger())
	_, err := r.Run(context.Background(), Invocation{DeviceID: "dev-1"})
	require.NoError(t, err)

	args, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.NotContains(t, string(args), "-scope")
}

func TestProcessRunnerLaunchError(t *testing.T) {
	r := NewProcessRunner(filepath.Join(t.TempDir(), "does-not-exist"), nil, testLogger())
	_, err := r.Run(context.Background(), Invocation{DeviceID: "dev-1"})
	require.Error(t, err)
	assert.True(t, IsLaunchError(err))
	assert.False(t, IsCrashError(err))
}

func TestProcessRunnerSignalTerminationIsACrash(t *testing.T) {
	r := NewProcessRunner("sh", []string{"-c", "kill -9 $$", "runner"}, testLogger())
	_, err := r.Run(context.Background(), Invocation{DeviceID: "dev-1"})
	require.Error(t, err)
	assert.True(t, IsCrashError(err))
	assert.False(t, IsLaunchError(err))
}
