// Package logging owns the on-disk layout of run artifacts. Each run gets
// its own directory; per-device log and report paths are derived
// deterministically from the device name so downstream collectors can find
// them without consulting the harness.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

const (
	// RunDirectoryPrefix is the standardized prefix for run directories.
	RunDirectoryPrefix = "testrun-"
	// SummaryFilename is the per-run summary file.
	SummaryFilename = "summary.txt"
	// latestDirLink points at the most recent run directory.
	latestDirLink = "latest"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// FileLogger handles the artifact directory for one run.
type FileLogger struct {
	baseDir string
	runID   string
	runDir  string
	mu      sync.Mutex
}

// NewFileLogger creates the run directory under baseDir and repoints the
// "latest" symlink at it.
func NewFileLogger(baseDir, runID string) (*FileLogger, error) {
	runDir := filepath.Join(baseDir, RunDirectoryPrefix+sanitizeFilename(runID))
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run directory %s: %w", runDir, err)
	}

	// Best effort: a stale or unsupported symlink never fails the run.
	link := filepath.Join(baseDir, latestDirLink)
	_ = os.Remove(link)
	_ = os.Symlink(filepath.Base(runDir), link)

	return &FileLogger{baseDir: baseDir, runID: runID, runDir: runDir}, nil
}

// RunID returns the run this logger belongs to.
func (l *FileLogger) RunID() string {
	return l.runID
}

// RunDir returns the run's artifact directory.
func (l *FileLogger) RunDir() string {
	return l.runDir
}

// DeviceLogPath is the plain-text runner log sink for the named device.
func (l *FileLogger) DeviceLogPath(deviceName string) string {
	return filepath.Join(l.runDir, sanitizeFilename(deviceName)+".log")
}

// DeviceReportPath is the structured report sink for the named device.
func (l *FileLogger) DeviceReportPath(deviceName string) string {
	return filepath.Join(l.runDir, sanitizeFilename(deviceName)+"-report.xml")
}

// WriteSummary writes (or overwrites) the run summary file.
func (l *FileLogger) WriteSummary(content string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	path := filepath.Join(l.runDir, SummaryFilename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write summary %s: %w", path, err)
	}
	return nil
}

// sanitizeFilename maps a device name onto a safe file name component.
func sanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}
