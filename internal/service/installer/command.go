package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/cpugovernor/debrel/internal/apt"
	"github.com/cpugovernor/debrel/internal/config"
	"github.com/cpugovernor/debrel/internal/deb"
	"github.com/cpugovernor/debrel/internal/logger"
	"github.com/cpugovernor/debrel/internal/release"
	"github.com/cpugovernor/debrel/internal/repository/state"
	"github.com/cpugovernor/debrel/internal/systemd"
)

// Environment variables honored as overrides between flags and the config file.
const (
	// EnvToken carries the bearer token for the release API.
	EnvToken = "GITHUB_TOKEN"
	// EnvAssetPattern overrides the asset name pattern.
	EnvAssetPattern = "DEBREL_ASSET_PATTERN"
	// EnvServiceName overrides the systemd unit name.
	EnvServiceName = "DEBREL_SERVICE_NAME"
	// EnvPackageName overrides the Debian package name.
	EnvPackageName = "DEBREL_PACKAGE_NAME"
)

var errInstallerAlreadyRunning = errors.New("the installer is already running")

// Options are inputs accepted by the installer entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// Channel selects the release maturity ("stable" or "pre").
	Channel string
	// Tag pins an exact release tag, bypassing channel logic.
	Tag string
	// Repositories overrides the configured candidate list when non-empty.
	Repositories []string
	// AssetPattern overrides the asset name regular expression.
	AssetPattern string
	// ServiceName pins the systemd unit instead of inspecting the package.
	ServiceName string
	// PackageName pins the package name instead of reading the control file.
	PackageName string
	// Token is the release API bearer token.
	Token string
	// Force installs even when the resolved tag is already recorded as installed.
	Force bool
	// APIBaseURL points at a different API endpoint (GitHub Enterprise).
	APIBaseURL string
}

// Run executes the install pipeline and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "debrel")

	if IsInstallerRunningNow(ctx) {
		return errInstallerAlreadyRunning
	}

	if err := createMarker(); err != nil {
		return fmt.Errorf("create run marker: %w", err)
	}

	r, err := newRunner(ctx, opts)
	if err != nil {
		removeMarker()
		return err
	}

	defer r.cleanup(ctx)

	if err = r.Run(ctx); err != nil {
		logger.ErrorKV(ctx, "Install run failed", "error", err)
		return err
	}

	logger.Info(ctx, "Install completed")

	return nil
}

// ResolveOnly runs the resolution and selection steps without touching the
// host: it returns the chosen target and asset for diagnostic output.
func ResolveOnly(ctx context.Context, opts *Options) (*release.Target, release.Asset, error) {
	ctx = logger.WithName(ctx, "debrel")

	env, err := prepare(opts)
	if err != nil {
		return nil, release.Asset{}, err
	}

	target, err := release.Resolve(ctx, env.client, env.candidates, env.channel, opts.Tag)
	if err != nil {
		return nil, release.Asset{}, err
	}

	asset, ok := release.SelectAsset(target.Release, env.pattern)
	if !ok {
		return nil, release.Asset{}, noAssetError(target, env.pattern)
	}

	return target, asset, nil
}

// environment is the prepared, override-resolved input set for a run.
type environment struct {
	cfg        *config.Config
	client     *release.Client
	candidates []string
	channel    release.Channel
	pattern    *regexp.Regexp
}

// prepare loads the configuration and applies flag and environment overrides.
// Precedence: command line flag, then environment variable, then config file.
func prepare(opts *Options) (*environment, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	candidates := cfg.Repositories
	if len(opts.Repositories) > 0 {
		for _, repo := range opts.Repositories {
			if err = config.ValidateRepository(repo); err != nil {
				return nil, err
			}
		}

		candidates = opts.Repositories
	}

	channel := cfg.Channel
	if opts.Channel != "" {
		channel = opts.Channel
	}

	if channel != string(release.ChannelStable) && channel != string(release.ChannelPre) {
		return nil, fmt.Errorf(`channel must be "stable" or "pre", got %q`, channel)
	}

	patternText := resolveOverride(opts.AssetPattern, EnvAssetPattern, cfg.AssetPattern)

	pattern, err := regexp.Compile(patternText)
	if err != nil {
		return nil, fmt.Errorf("invalid asset pattern %q: %w", patternText, err)
	}

	token := opts.Token
	if token == "" {
		token = os.Getenv(EnvToken)
	}

	clientOptions := []release.Option{
		release.WithToken(token),
		release.WithTimeout(cfg.Timeout),
	}
	if opts.APIBaseURL != "" {
		clientOptions = append(clientOptions, release.WithBaseURL(opts.APIBaseURL))
	}

	return &environment{
		cfg:        cfg,
		client:     release.NewClient(clientOptions...),
		candidates: candidates,
		channel:    release.Channel(channel),
		pattern:    pattern,
	}, nil
}

// resolveOverride applies the flag > environment > config precedence.
func resolveOverride(flagValue, envKey, cfgValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	return cfgValue
}

// noAssetError builds the asset-error diagnostic with a manual listing hint.
func noAssetError(target *release.Target, pattern *regexp.Regexp) error {
	return fmt.Errorf(
		"no asset of release %s in %s matches pattern %q; "+
			"list the assets manually with: curl -s https://api.github.com/repos/%s/releases/tags/%s | jq '.assets[].name'",
		target.Release.TagName, target.Repository, pattern.String(), target.Repository, target.Release.TagName)
}

// newRunner assembles the pipeline components for a full install run.
func newRunner(_ context.Context, opts *Options) (*runner, error) {
	env, err := prepare(opts)
	if err != nil {
		return nil, err
	}

	return &runner{
		env:             env,
		tag:             opts.Tag,
		force:           opts.Force,
		packageOverride: resolveOverride(opts.PackageName, EnvPackageName, env.cfg.PackageName),
		serviceOverride: resolveOverride(opts.ServiceName, EnvServiceName, env.cfg.ServiceName),
		inspector:       deb.NewInspector(),
		packages:        apt.NewManager(),
		units:           systemd.NewManager(),
		records:         state.NewFileRepository(env.cfg.StateFile),
	}, nil
}
