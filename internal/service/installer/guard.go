package installer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/cpugovernor/debrel/internal/logger"
)

const (
	// markerFilename marks that an install is running right now to avoid
	// two runs racing each other into apt.
	markerFilename = "debrel-run-marker.bin"

	// installerExecutable is the process name looked for during stale
	// marker recovery.
	installerExecutable = "debrel"

	// markerLifetime is the period after which a marker is considered
	// stale. Package installs can be slow, so this is generous.
	markerLifetime = 10 * time.Minute
)

// markerPath returns the location of the run marker.
func markerPath() string {
	return filepath.Join(os.TempDir(), markerFilename)
}

// IsInstallerRunningNow checks presence of the run marker and attempts
// recovery if it looks stale.
func IsInstallerRunningNow(ctx context.Context) bool {
	logger.Debug(ctx, "Checking for the presence of a run marker")

	fileInfo, err := os.Stat(markerPath())
	if err == nil {
		if time.Since(fileInfo.ModTime()) <= markerLifetime {
			return true
		}

		logger.Info(ctx, "The run marker is too old, attempting cleanup")

		if err = terminateProcessByName(installerExecutable); err != nil {
			return true
		}

		if err = os.Remove(markerPath()); err != nil {
			return true
		}

		return false
	}

	if errors.Is(err, os.ErrNotExist) {
		return false
	}

	logger.Infof(ctx, "Unable to read run marker: %v", err)

	return false
}

// createMarker writes the run marker.
func createMarker() error {
	marker, err := os.Create(markerPath())
	if err != nil {
		return err
	}

	return marker.Close()
}

// removeMarker deletes the run marker if present.
func removeMarker() {
	if _, err := os.Stat(markerPath()); err == nil {
		_ = os.Remove(markerPath())
	}
}

// terminateProcessByName tries to kill other processes with the provided
// executable name.
func terminateProcessByName(processName string) error {
	processList, err := ps.Processes()
	if err != nil {
		return err
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() != processName {
			continue
		}

		var runningProcess *os.Process

		runningProcess, err = os.FindProcess(process.Pid())
		if err != nil {
			return err
		}

		if err = runningProcess.Kill(); err != nil {
			return err
		}
	}

	return nil
}
