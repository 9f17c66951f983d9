package installer

import (
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cpugovernor/debrel/internal/config"
	"github.com/cpugovernor/debrel/internal/release"
)

// TestPrepareDefaults builds a working environment from built-in defaults.
func TestPrepareDefaults(t *testing.T) {
	t.Parallel()

	env, err := prepare(&Options{})
	require.NoError(t, err)
	require.Equal(t, config.DefaultRepositories(), env.candidates)
	require.Equal(t, release.ChannelStable, env.channel)
	require.Equal(t, config.DefaultAssetPattern, env.pattern.String())
}

// TestPrepareOverrides applies flag and repository overrides with validation.
func TestPrepareOverrides(t *testing.T) {
	t.Parallel()

	env, err := prepare(&Options{
		Channel:      "pre",
		Repositories: []string{"acme/cpuGovernor"},
		AssetPattern: `\.deb$`,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"acme/cpuGovernor"}, env.candidates)
	require.Equal(t, release.ChannelPre, env.channel)
	require.Equal(t, `\.deb$`, env.pattern.String())

	// Bad channel.
	_, err = prepare(&Options{Channel: "nightly"})
	require.Error(t, err)

	// Bad repository form.
	_, err = prepare(&Options{Repositories: []string{"nope"}})
	require.Error(t, err)

	// Bad pattern.
	_, err = prepare(&Options{AssetPattern: "(["})
	require.Error(t, err)
}

// TestPrepareEnvOverride checks the flag > environment > config precedence.
func TestPrepareEnvOverride(t *testing.T) { //nolint:paralleltest // Mutates process environment.
	t.Setenv(EnvAssetPattern, `^fromenv\.deb$`)

	env, err := prepare(&Options{})
	require.NoError(t, err)
	require.Equal(t, `^fromenv\.deb$`, env.pattern.String())

	// The flag still wins over the environment.
	env, err = prepare(&Options{AssetPattern: `^fromflag\.deb$`})
	require.NoError(t, err)
	require.Equal(t, `^fromflag\.deb$`, env.pattern.String())
}

// TestPrepareConfigFile reads candidates and channel from a settings file.
func TestPrepareConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	cfg := &config.Config{
		Repositories: []string{"acme/cpu-governor"},
		Channel:      "pre",
	}
	require.NoError(t, config.Save(path, cfg))

	env, err := prepare(&Options{ConfigPath: path})
	require.NoError(t, err)
	require.Equal(t, []string{"acme/cpu-governor"}, env.candidates)
	require.Equal(t, release.ChannelPre, env.channel)
}

// TestNoAssetError includes the pattern and a manual listing hint.
func TestNoAssetError(t *testing.T) {
	t.Parallel()

	target := &release.Target{
		Repository: "acme/cpuGovernor",
		Release:    &release.Release{TagName: "v0.1.2"},
	}

	err := noAssetError(target, regexp.MustCompile(`\.deb$`))
	require.Contains(t, err.Error(), `\.deb$`)
	require.Contains(t, err.Error(), "curl -s https://api.github.com/repos/acme/cpuGovernor/releases/tags/v0.1.2")
}
