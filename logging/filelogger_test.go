package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileLoggerCreatesRunDirectory(t *testing.T) {
	base := t.TempDir()
	l, err := NewFileLogger(base, "abc-123")
	require.NoError(t, err)

	assert.DirExists(t, l.RunDir())
	assert.Equal(t, filepath.Join(base, "testrun-abc-123"), l.RunDir())
	assert.Equal(t, "abc-123", l.RunID())
}

func TestDeviceArtifactPathsAreDeterministic(t *testing.T) {
	l, err := NewFileLogger(t.TempDir(), "run1")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(l.RunDir(), "phone-api34.log"), l.DeviceLogPath("phone-api34"))
	assert.Equal(t, filepath.Join(l.RunDir(), "phone-api34-report.xml"), l.DeviceReportPath("phone-api34"))

	// Same name in, same paths out.
	assert.Equal(t, l.DeviceLogPath("phone-api34"), l.DeviceLogPath("phone-api34"))
}

func TestDeviceArtifactPathsAreSanitized(t *testing.T) {
	l, err := NewFileLogger(t.TempDir(), "run1")
	require.NoError(t, err)

	path := l.DeviceLogPath("pixel 6 (api/34)")
	assert.Equal(t, filepath.Join(l.RunDir(), "pixel_6__api_34_.log"), path)
}

func TestWriteSummary(t *testing.T) {
	l, err := NewFileLogger(t.TempDir(), "run1")
	require.NoError(t, err)

	require.NoError(t, l.WriteSummary("run run1: PASS (2 devices, 0 failed, 12.0s)\n"))

	data, err := os.ReadFile(filepath.Join(l.RunDir(), SummaryFilename))
	require.NoError(t, err)
	assert.Contains(t, string(data), "PASS")
}

func TestLatestSymlinkTracksNewestRun(t *testing.T) {
	base := t.TempDir()
	_, err := NewFileLogger(base, "run1")
	require.NoError(t, err)
	l2, err := NewFileLogger(base, "run2")
	require.NoError(t, err)

	target, err := os.Readlink(filepath.Join(base, "latest"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(l2.RunDir()), target)
}
