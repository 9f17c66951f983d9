// Package execx provides the subprocess seam shared by the packages that
// drive dpkg-deb, apt-get, systemctl and journalctl. Production code uses
// System; tests substitute a Runner that fakes command output.
package execx

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// System runs the command on the host and returns its combined output.
// The failed command line is included in the error for operator diagnostics.
func System(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}

	return output, nil
}
