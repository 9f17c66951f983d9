package deb

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/cpugovernor/debrel/internal/execx"
)

var (
	// ErrNoPackageName is returned when the control file carries no Package field.
	ErrNoPackageName = errors.New("package name not present in control metadata")
)

// Inspector reads metadata out of a .deb file by shelling out to dpkg-deb.
type Inspector struct {
	run execx.Runner
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithRunner substitutes the subprocess runner. Used by tests.
func WithRunner(run execx.Runner) Option {
	return func(i *Inspector) {
		i.run = run
	}
}

// NewInspector returns an Inspector that invokes the host's dpkg-deb.
func NewInspector(opts ...Option) *Inspector {
	i := &Inspector{run: execx.System}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// PackageName reads the Package field from the archive's control metadata.
func (i *Inspector) PackageName(ctx context.Context, debPath string) (string, error) {
	output, err := i.run(ctx, "dpkg-deb", "-f", debPath, "Package")
	if err != nil {
		return "", fmt.Errorf("read package name: %w", err)
	}

	name := strings.TrimSpace(string(output))
	if name == "" {
		return "", ErrNoPackageName
	}

	return name, nil
}

// ServiceUnits enumerates the systemd unit files shipped inside the archive,
// returned as base names in archive order.
func (i *Inspector) ServiceUnits(ctx context.Context, debPath string) ([]string, error) {
	output, err := i.run(ctx, "dpkg-deb", "-c", debPath)
	if err != nil {
		return nil, fmt.Errorf("list package contents: %w", err)
	}

	return parseServiceUnits(output), nil
}

// parseServiceUnits extracts *.service entries from `dpkg-deb -c` listing output.
// Each line ends with the member path, e.g.
//
//	-rw-r--r-- root/root  412 2024-05-01 12:00 ./lib/systemd/system/cpuGovernor.service
//
// Symlink entries carry a trailing "-> target" which is ignored.
func parseServiceUnits(listing []byte) []string {
	var units []string

	sc := bufio.NewScanner(bytes.NewReader(listing))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 6 {
			continue
		}

		memberPath := fields[5]
		if idx := indexOf(fields, "->"); idx > 5 {
			memberPath = fields[idx-1]
		}

		if !strings.HasSuffix(memberPath, ".service") {
			continue
		}

		if !strings.Contains(memberPath, "systemd/system/") {
			continue
		}

		units = append(units, path.Base(memberPath))
	}

	return units
}

// indexOf returns the position of value in fields, or -1.
func indexOf(fields []string, value string) int {
	for i, f := range fields {
		if f == value {
			return i
		}
	}

	return -1
}

// ChooseUnit applies the unit selection rules to the enumerated unit files:
// a single unit wins outright, several prefer the one whose name contains the
// package name (case-insensitive) and otherwise the first, and none reports
// false so the caller can fall back to the fixed default.
func ChooseUnit(units []string, packageName string) (string, bool) {
	switch len(units) {
	case 0:
		return "", false
	case 1:
		return units[0], true
	}

	marker := strings.ToLower(packageName)
	for _, unit := range units {
		if marker != "" && strings.Contains(strings.ToLower(unit), marker) {
			return unit, true
		}
	}

	return units[0], true
}

// FallbackUnit is the fixed default used when the archive embeds no unit file.
func FallbackUnit(packageName string) string {
	return packageName + ".service"
}
