package apt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// scriptedRunner records invoked command lines and fails install attempts
// until the configured number of failures is spent.
type scriptedRunner struct {
	failInstalls int
	calls        []string
}

func (s *scriptedRunner) run(_ context.Context, name string, args ...string) ([]byte, error) {
	line := name + " " + strings.Join(args, " ")
	s.calls = append(s.calls, line)

	isInstall := len(args) > 0 && args[0] == "install"
	if isInstall && s.failInstalls > 0 {
		s.failInstalls--
		return []byte("E: Unmet dependencies"), errors.New("exit status 100")
	}

	return nil, nil
}

// installCalls counts the actual package install attempts among recorded calls.
func (s *scriptedRunner) installCalls() int {
	n := 0

	for _, call := range s.calls {
		if strings.HasPrefix(call, "apt-get install") {
			n++
		}
	}

	return n
}

// TestInstallFirstAttemptSucceeds performs no repair pass on success.
func TestInstallFirstAttemptSucceeds(t *testing.T) {
	t.Parallel()

	script := &scriptedRunner{}
	mgr := NewManager(WithRunner(script.run))

	require.NoError(t, mgr.Install(context.Background(), "/tmp/pkg.deb"))
	require.Equal(t, []string{"apt-get install -y --allow-downgrades /tmp/pkg.deb"}, script.calls)
}

// TestInstallRepairThenRetry runs exactly one repair pass and one retry after a failure.
func TestInstallRepairThenRetry(t *testing.T) {
	t.Parallel()

	script := &scriptedRunner{failInstalls: 1}
	mgr := NewManager(WithRunner(script.run))

	require.NoError(t, mgr.Install(context.Background(), "/tmp/pkg.deb"))
	require.Equal(t, []string{
		"apt-get install -y --allow-downgrades /tmp/pkg.deb",
		"apt-get update",
		"apt-get -f install -y",
		"apt-get install -y --allow-downgrades /tmp/pkg.deb",
	}, script.calls)
}

// TestInstallSecondFailureIsTerminal never retries a second time.
func TestInstallSecondFailureIsTerminal(t *testing.T) {
	t.Parallel()

	script := &scriptedRunner{failInstalls: 2}
	mgr := NewManager(WithRunner(script.run))

	err := mgr.Install(context.Background(), "/tmp/pkg.deb")
	require.Error(t, err)
	require.Contains(t, err.Error(), "after repair pass")
	require.Equal(t, 2, script.installCalls())
}
