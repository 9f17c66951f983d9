package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cpugovernor/debrel/internal/apt"
	"github.com/cpugovernor/debrel/internal/deb"
	"github.com/cpugovernor/debrel/internal/logger"
	"github.com/cpugovernor/debrel/internal/release"
	"github.com/cpugovernor/debrel/internal/repository/state"
	"github.com/cpugovernor/debrel/internal/service/common"
	"github.com/cpugovernor/debrel/internal/systemd"
)

// runner holds the components and mutable state for a single install run.
// It is intentionally unexported; call Run(ctx, Options) from callers.
type runner struct {
	env             *environment
	tag             string
	force           bool
	packageOverride string
	serviceOverride string

	inspector *deb.Inspector
	packages  *apt.Manager
	units     *systemd.Manager
	records   state.Repository

	temporaryDirectory string
}

// Run executes the pipeline:
// 1) Resolve a release across candidate repositories.
// 2) Select the matching asset.
// 3) Download it.
// 4) Derive package and unit names from the archive.
// 5) Install via the package manager.
// 6) Enable and restart the unit, verifying it ends active.
func (r *runner) Run(ctx context.Context) error {
	if actor, err := common.DetectActor(); err == nil {
		logger.InfoKV(ctx, "Starting install", "host", actor.Hostname, "user", actor.Username)
	}

	logger.Info(ctx, "Resolving release")

	target, err := release.Resolve(ctx, r.env.client, r.env.candidates, r.env.channel, r.tag)
	if err != nil {
		return fmt.Errorf("resolve release: %w", err)
	}

	if r.alreadyInstalled(ctx, target) {
		logger.InfoKV(ctx, "Resolved tag already installed, nothing to do",
			"repository", target.Repository, "tag", target.Release.TagName)

		return nil
	}

	asset, ok := release.SelectAsset(target.Release, r.env.pattern)
	if !ok {
		return noAssetError(target, r.env.pattern)
	}

	logger.InfoKV(ctx, "Selected asset", "name", asset.Name)

	debPath, err := r.download(ctx, asset)
	if err != nil {
		return err
	}

	packageName, unitName, err := r.deriveMetadata(ctx, debPath)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Derived install metadata", "package", packageName, "unit", unitName)

	// Best-effort stop before the package manager replaces the unit's files.
	r.units.StopIfPresent(ctx, unitName)

	logger.Info(ctx, "Installing package")

	if err = r.packages.Install(ctx, debPath); err != nil {
		return fmt.Errorf("install package: %w", err)
	}

	logger.Info(ctx, "Activating service unit")

	activatedUnit, err := r.units.Activate(ctx, unitName)
	if err != nil {
		// The package is already installed at this point; make the partial
		// success explicit for the operator.
		return fmt.Errorf("package %s installed but unit activation failed: %w", packageName, err)
	}

	r.recordInstall(ctx, target, packageName, activatedUnit)

	logger.InfoKV(ctx, "Service is active",
		"unit", activatedUnit, "tag", target.Release.TagName, "repository", target.Repository)

	return nil
}

// alreadyInstalled consults the install record to skip a no-op run.
func (r *runner) alreadyInstalled(ctx context.Context, target *release.Target) bool {
	if r.force {
		return false
	}

	record, err := r.records.Load(ctx)
	if err != nil {
		if !errors.Is(err, state.ErrNotFound) {
			logger.WarnKV(ctx, "Unable to read install record", "error", err.Error())
		}

		return false
	}

	return record.Repository == target.Repository && record.Tag == target.Release.TagName
}

// download fetches the asset into a fresh temporary directory.
func (r *runner) download(ctx context.Context, asset release.Asset) (string, error) {
	temporaryDirectory, err := os.MkdirTemp("", "debrel-")
	if err != nil {
		return "", fmt.Errorf("create temporary directory: %w", err)
	}

	r.temporaryDirectory = temporaryDirectory
	debPath := filepath.Join(temporaryDirectory, asset.Name)

	logger.InfoKV(ctx, "Downloading asset", "url", asset.BrowserDownloadURL, "to", debPath)

	err = r.env.client.Download(ctx, asset.BrowserDownloadURL, debPath,
		r.env.cfg.DownloadRetries, r.env.cfg.DownloadRetryDelay)
	if err != nil {
		return "", err
	}

	return debPath, nil
}

// deriveMetadata determines the package name and unit name, applying
// overrides first and the archive's own contents second.
func (r *runner) deriveMetadata(ctx context.Context, debPath string) (packageName, unitName string, err error) {
	packageName = r.packageOverride
	if packageName == "" {
		packageName, err = r.inspector.PackageName(ctx, debPath)
		if err != nil {
			return "", "", err
		}
	}

	unitName = r.serviceOverride
	if unitName != "" {
		return packageName, unitName, nil
	}

	units, err := r.inspector.ServiceUnits(ctx, debPath)
	if err != nil {
		return "", "", err
	}

	unitName, ok := deb.ChooseUnit(units, packageName)
	if !ok {
		unitName = deb.FallbackUnit(packageName)
		logger.WarnKV(ctx, "No unit file embedded in package, using fixed default",
			"unit", unitName)
	}

	return packageName, unitName, nil
}

// recordInstall persists the install record; a write failure only warns,
// the install itself already succeeded.
func (r *runner) recordInstall(ctx context.Context, target *release.Target, packageName, unitName string) {
	record := &state.Record{
		Repository:  target.Repository,
		Tag:         target.Release.TagName,
		Package:     packageName,
		Unit:        unitName,
		InstalledAt: time.Now().UTC(),
	}

	if err := r.records.Save(ctx, record); err != nil {
		logger.WarnKV(ctx, "Unable to write install record", "error", err.Error())
	}
}

// cleanup removes temporary artifacts and the running marker.
func (r *runner) cleanup(ctx context.Context) {
	removeMarker()

	if r.temporaryDirectory != "" {
		if _, err := os.Stat(r.temporaryDirectory); err == nil {
			_ = os.RemoveAll(r.temporaryDirectory)
		}
	}

	logger.Info(ctx, "The installer has finished")
}
