package systemd

import (
	"context"
	"fmt"
	"strings"

	"github.com/cpugovernor/debrel/internal/execx"
	"github.com/cpugovernor/debrel/internal/logger"
)

// journalLines is how much recent unit history is dumped on activation failure.
const journalLines = "50"

// Manager drives systemctl and journalctl for a single service unit.
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

// NewManager returns a Manager that invokes the host's systemctl.
func NewManager(opts ...Option) *Manager {
	m := &Manager{run: execx.System}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// UnitExists reports whether the unit is known to the service manager.
func (m *Manager) UnitExists(ctx context.Context, unit string) bool {
	_, err := m.run(ctx, "systemctl", "cat", unit)
	return err == nil
}

// StopIfPresent stops the unit before an install when it is currently
// defined. Every failure here is deliberately swallowed: a unit that is not
// running, masked, or missing must not block the install.
func (m *Manager) StopIfPresent(ctx context.Context, unit string) {
	if !m.UnitExists(ctx, unit) {
		logger.DebugKV(ctx, "Unit not defined, skipping pre-install stop", "unit", unit)
		return
	}

	if output, err := m.run(ctx, "systemctl", "stop", unit); err != nil {
		logger.WarnKV(ctx, "Pre-install stop failed (ignored)",
			"unit", unit, "error", err.Error(), "output", strings.TrimSpace(string(output)))
	}
}

// Activate performs the post-install sequence: reload unit definitions,
// enable the unit (best-effort), restart it and verify it reports active.
// When the exact-cased unit is unknown, the lower-cased name is tried; that
// mapping is a naming heuristic, not a documented guarantee, so its use is
// always logged at warn level. The unit name actually activated is returned.
func (m *Manager) Activate(ctx context.Context, unit string) (string, error) {
	if output, err := m.run(ctx, "systemctl", "daemon-reload"); err != nil {
		return unit, fmt.Errorf("daemon-reload: %w (output: %s)", err, strings.TrimSpace(string(output)))
	}

	if !m.UnitExists(ctx, unit) {
		lowered := strings.ToLower(unit)
		if lowered != unit && m.UnitExists(ctx, lowered) {
			logger.WarnKV(ctx, "Exact-cased unit not found, using lower-cased name (naming heuristic)",
				"unit", unit, "fallback", lowered)

			unit = lowered
		}
	}

	// Enable is best-effort: a static or aliased unit cannot be enabled,
	// yet restarting it is still the right thing to do.
	if output, err := m.run(ctx, "systemctl", "enable", unit); err != nil {
		logger.WarnKV(ctx, "Enable failed (ignored)",
			"unit", unit, "error", err.Error(), "output", strings.TrimSpace(string(output)))
	}

	if output, err := m.run(ctx, "systemctl", "restart", unit); err != nil {
		m.dumpRecentLogs(ctx, unit)
		return unit, fmt.Errorf("restart %s: %w (output: %s)", unit, err, strings.TrimSpace(string(output)))
	}

	if !m.isActive(ctx, unit) {
		m.dumpRecentLogs(ctx, unit)
		return unit, fmt.Errorf("unit %s is not active after restart", unit)
	}

	return unit, nil
}

// isActive reports whether the unit is in the active state.
func (m *Manager) isActive(ctx context.Context, unit string) bool {
	_, err := m.run(ctx, "systemctl", "is-active", "--quiet", unit)
	return err == nil
}

// dumpRecentLogs surfaces the unit's recent journal entries for diagnostics.
func (m *Manager) dumpRecentLogs(ctx context.Context, unit string) {
	output, err := m.run(ctx, "journalctl", "-u", unit, "-n", journalLines, "--no-pager")
	if err != nil {
		logger.WarnKV(ctx, "Unable to read unit logs", "unit", unit, "error", err.Error())
		return
	}

	logger.ErrorKV(ctx, "Recent unit logs", "unit", unit, "logs", strings.TrimSpace(string(output)))
}
