package systemd

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeSystemctl simulates a host where only the units in `known` exist and
// only those in `active` report active state.
type fakeSystemctl struct {
	known  map[string]bool
	active map[string]bool
	calls  []string
}

func (f *fakeSystemctl) run(_ context.Context, name string, args ...string) ([]byte, error) {
	line := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, line)

	if name == "journalctl" {
		return []byte("journal tail"), nil
	}

	switch args[0] {
	case "cat":
		if !f.known[args[1]] {
			return []byte("No files found for " + args[1]), errors.New("exit status 1")
		}
	case "is-active":
		if !f.active[args[2]] {
			return []byte("inactive"), errors.New("exit status 3")
		}
	case "stop", "restart", "enable", "daemon-reload":
		// Always succeed; restart does not change the fake's active set.
	}

	return nil, nil
}

// TestActivateExactUnit verifies the reload/enable/restart/verify sequence.
func TestActivateExactUnit(t *testing.T) {
	t.Parallel()

	fake := &fakeSystemctl{
		known:  map[string]bool{"cpuGovernor.service": true},
		active: map[string]bool{"cpuGovernor.service": true},
	}
	mgr := NewManager(WithRunner(fake.run))

	unit, err := mgr.Activate(context.Background(), "cpuGovernor.service")
	require.NoError(t, err)
	require.Equal(t, "cpuGovernor.service", unit)
	require.Contains(t, fake.calls, "systemctl daemon-reload")
	require.Contains(t, fake.calls, "systemctl enable cpuGovernor.service")
	require.Contains(t, fake.calls, "systemctl restart cpuGovernor.service")
}

// TestActivateLowercaseFallback falls back to the lower-cased unit name
// when the exact-cased one is unknown.
func TestActivateLowercaseFallback(t *testing.T) {
	t.Parallel()

	fake := &fakeSystemctl{
		known:  map[string]bool{"cpugovernor.service": true},
		active: map[string]bool{"cpugovernor.service": true},
	}
	mgr := NewManager(WithRunner(fake.run))

	unit, err := mgr.Activate(context.Background(), "cpuGovernor.service")
	require.NoError(t, err)
	require.Equal(t, "cpugovernor.service", unit)
}

// TestActivateInactiveFails reports an error with logs dumped when the unit
// does not reach active state.
func TestActivateInactiveFails(t *testing.T) {
	t.Parallel()

	fake := &fakeSystemctl{
		known:  map[string]bool{"cpuGovernor.service": true},
		active: map[string]bool{},
	}
	mgr := NewManager(WithRunner(fake.run))

	_, err := mgr.Activate(context.Background(), "cpuGovernor.service")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not active")
	require.Contains(t, fake.calls, "journalctl -u cpuGovernor.service -n 50 --no-pager")
}

// TestStopIfPresent skips undefined units and swallows stop failures.
func TestStopIfPresent(t *testing.T) {
	t.Parallel()

	fake := &fakeSystemctl{known: map[string]bool{}}
	mgr := NewManager(WithRunner(fake.run))

	mgr.StopIfPresent(context.Background(), "cpuGovernor.service")
	require.NotContains(t, fake.calls, "systemctl stop cpuGovernor.service")

	fake = &fakeSystemctl{known: map[string]bool{"cpuGovernor.service": true}}
	mgr = NewManager(WithRunner(fake.run))

	mgr.StopIfPresent(context.Background(), "cpuGovernor.service")
	require.Contains(t, fake.calls, "systemctl stop cpuGovernor.service")
}
