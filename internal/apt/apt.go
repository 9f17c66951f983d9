package apt

import (
	"context"
	"fmt"
	"strings"

	"github.com/cpugovernor/debrel/internal/execx"
	"github.com/cpugovernor/debrel/internal/logger"
)

// Manager installs Debian packages through the host's apt-get.
type Manager struct {
	run execx.Runner
}

// Option configures a Manager.
type Option func(*Manager)

// WithRunner substitutes the subprocess runner. Used by tests.
func WithRunner(run execx.Runner) Option {
	return func(m *Manager) {
		m.run = run
	}
}

// NewManager returns a Manager that invokes the host's apt-get.
func NewManager(opts ...Option) *Manager {
	m := &Manager{run: execx.System}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Install installs the package file. On a failed first attempt it runs one
// dependency-repair pass and retries exactly once; a second failure is
// terminal. No rollback is attempted: dpkg's own transactional behavior owns
// partial installs.
func (m *Manager) Install(ctx context.Context, debPath string) error {
	output, err := m.installOnce(ctx, debPath)
	if err == nil {
		return nil
	}

	logger.WarnKV(ctx, "Install failed, running dependency repair pass",
		"package", debPath, "error", err.Error(), "output", tail(output))

	m.repair(ctx)

	output, err = m.installOnce(ctx, debPath)
	if err != nil {
		return fmt.Errorf("install %s after repair pass: %w (output: %s)", debPath, err, tail(output))
	}

	return nil
}

// installOnce performs a single install attempt.
func (m *Manager) installOnce(ctx context.Context, debPath string) ([]byte, error) {
	return m.run(ctx, "apt-get", "install", "-y", "--allow-downgrades", debPath)
}

// repair refreshes the package index and fixes broken dependencies.
// Failures here are logged and ignored: the retry decides the outcome.
func (m *Manager) repair(ctx context.Context) {
	if output, err := m.run(ctx, "apt-get", "update"); err != nil {
		logger.WarnKV(ctx, "Package index refresh failed",
			"error", err.Error(), "output", tail(output))
	}

	if output, err := m.run(ctx, "apt-get", "-f", "install", "-y"); err != nil {
		logger.WarnKV(ctx, "Dependency repair failed",
			"error", err.Error(), "output", tail(output))
	}
}

// tail keeps error output readable by returning only the last lines.
func tail(output []byte) string {
	const keepLines = 15

	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	if len(lines) > keepLines {
		lines = lines[len(lines)-keepLines:]
	}

	return strings.Join(lines, "\n")
}
