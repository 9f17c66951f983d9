package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields and format validations for the settings.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Empty candidate list.
	cfg := new(Config)

	err := Validate(cfg)
	require.Error(t, err)

	// Bad repository form.
	cfg = &Config{
		Repositories: []string{"not-a-repo"},
	}

	err = Validate(cfg)
	require.Error(t, err)

	// Bad channel.
	cfg = &Config{
		Repositories: []string{"acme/cpuGovernor"},
		Channel:      "nightly",
	}

	err = Validate(cfg)
	require.Error(t, err)

	// Bad asset pattern.
	cfg = &Config{
		Repositories: []string{"acme/cpuGovernor"},
		AssetPattern: "([",
	}

	err = Validate(cfg)
	require.Error(t, err)

	// Okay, defaults filled in.
	cfg = &Config{
		Repositories: []string{"acme/cpuGovernor"},
	}

	err = Validate(cfg)
	require.NoError(t, err)
	require.Equal(t, DefaultChannel, cfg.Channel)
	require.Equal(t, DefaultAssetPattern, cfg.AssetPattern)
	require.Equal(t, DefaultTimeout, cfg.Timeout)
	require.Equal(t, DefaultStateFilename, cfg.StateFile)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := &Config{
		Repositories: []string{"acme/cpuGovernor", "acme/cpu-governor"},
		Channel:      "pre",
		AssetPattern: `^cpuGovernor_.*\.deb$`,
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Repositories, loaded.Repositories)
	require.Equal(t, "pre", loaded.Channel)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestLoadMissingDefault confirms the defaults apply when the default file is absent.
func TestLoadMissingDefault(t *testing.T) { //nolint:paralleltest // Changes working directory.
	oldWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(oldWD) })

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DefaultRepositories(), cfg.Repositories)

	// An explicitly named missing file is still an error.
	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

// TestDefault checks the built-in candidate order is preserved.
func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.Equal(t, DefaultRepositories(), cfg.Repositories)
	require.NoError(t, Validate(cfg))
}
