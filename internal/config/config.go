package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the release resolution and installation parameters.
type Config struct {
	// Repositories is the ordered list of owner/name candidates tried by the resolver.
	Repositories []string `yaml:"repositories"`
	// Channel selects the release maturity: "stable" or "pre".
	Channel string `yaml:"channel"`
	// AssetPattern is the regular expression a release asset name must match.
	AssetPattern string `yaml:"asset_pattern"`
	// ServiceName optionally pins the systemd unit instead of inspecting the package.
	ServiceName string `yaml:"service_name,omitempty"`
	// PackageName optionally pins the package name instead of reading the control file.
	PackageName string `yaml:"package_name,omitempty"`
	// Timeout is the duration for API requests.
	Timeout time.Duration `yaml:"timeout"`
	// DownloadRetries is the number of extra download attempts after the first failure.
	DownloadRetries int `yaml:"download_retries"`
	// DownloadRetryDelay is the fixed delay between download attempts.
	DownloadRetryDelay time.Duration `yaml:"download_retry_delay"`
	// StateFile is the path to the JSON file recording the last successful install.
	StateFile string `yaml:"state_file"`
}

const (
	// DefaultConfigFilename is the default filename for installer settings.
	DefaultConfigFilename = "debrel-settings.yaml"

	// DefaultStateFilename is the default filename for the install record JSON.
	DefaultStateFilename = "debrel-state.json"

	// DefaultChannel prefers published stable releases.
	DefaultChannel = "stable"

	// DefaultAssetPattern matches the cpuGovernor Debian packages for the
	// architectures the daemon is shipped for.
	DefaultAssetPattern = `^cpuGovernor_.*_(all|arm64|amd64)\.deb$`

	// DefaultTimeout is the default duration for API requests.
	DefaultTimeout = 30 * time.Second

	// DefaultDownloadRetries is the fixed retry budget for asset downloads.
	DefaultDownloadRetries = 3

	// DefaultDownloadRetryDelay is the fixed delay between download attempts.
	DefaultDownloadRetryDelay = 2 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// DefaultRepositories are the candidate repositories tried in priority order
// when no override is given. Historical renames of the upstream project are
// the reason more than one candidate exists.
func DefaultRepositories() []string {
	return []string{
		"cpugovernor/cpuGovernor",
		"cpugovernor/cpu-governor",
	}
}

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNoRepositories is returned when the candidate list is empty.
	errNoRepositories = errors.New("at least one repository candidate must be provided")
	// errBadChannel is returned for channels other than stable or pre.
	errBadChannel = errors.New(`channel must be "stable" or "pre"`)
)

// Default returns a configuration populated with the built-in defaults.
func Default() *Config {
	return &Config{
		Repositories:       DefaultRepositories(),
		Channel:            DefaultChannel,
		AssetPattern:       DefaultAssetPattern,
		Timeout:            DefaultTimeout,
		DownloadRetries:    DefaultDownloadRetries,
		DownloadRetryDelay: DefaultDownloadRetryDelay,
		StateFile:          DefaultStateFilename,
	}
}

// Load reads configuration from the provided path and validates essential fields.
// A missing file at the default location is not an error: the defaults apply.
func Load(path string) (*Config, error) {
	usingDefaultPath := path == ""
	if usingDefaultPath {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if usingDefaultPath && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting,
// filling in defaults for optional fields that were left empty.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if len(cfg.Repositories) == 0 {
		return errNoRepositories
	}

	for _, repo := range cfg.Repositories {
		if err := ValidateRepository(repo); err != nil {
			return err
		}
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}

	if cfg.Channel != "stable" && cfg.Channel != "pre" {
		return fmt.Errorf("%w, got %q", errBadChannel, cfg.Channel)
	}

	if cfg.AssetPattern == "" {
		cfg.AssetPattern = DefaultAssetPattern
	}

	if _, err := regexp.Compile(cfg.AssetPattern); err != nil {
		return fmt.Errorf("invalid asset pattern: %w", err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.DownloadRetries < 0 {
		cfg.DownloadRetries = DefaultDownloadRetries
	}

	if cfg.DownloadRetryDelay <= 0 {
		cfg.DownloadRetryDelay = DefaultDownloadRetryDelay
	}

	if cfg.StateFile == "" {
		cfg.StateFile = DefaultStateFilename
	}

	return nil
}

// ValidateRepository checks that a candidate has the owner/name form.
func ValidateRepository(repo string) error {
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return fmt.Errorf("repository %q must have the owner/name form", repo)
	}

	return nil
}
