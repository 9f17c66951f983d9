package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDetectActor ensures host and user identity can be gathered on this platform.
func TestDetectActor(t *testing.T) {
	t.Parallel()

	actor, err := DetectActor()
	require.NoError(t, err)
	require.NotEmpty(t, actor.Hostname)
	require.NotEmpty(t, actor.Username)
}
