package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cpugovernor/debrel/internal/logger"
	"github.com/cpugovernor/debrel/internal/service/installer"
	"github.com/cpugovernor/debrel/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// channel selects the release maturity, tag pins an exact release.
	channel string
	tag     string

	// repositories overrides the candidate list when provided.
	repositories []string

	// assetPattern, serviceName and packageName override archive inspection.
	assetPattern string
	serviceName  string
	packageName  string

	// token authenticates release API requests.
	token string

	// force reinstalls even when the resolved tag is already recorded.
	force bool

	// apiBaseURL points at a GitHub Enterprise endpoint.
	apiBaseURL string

	// logLevel sets the minimum diagnostic level.
	logLevel string

	// rootCmd represents the base command: resolve, download, install, activate.
	rootCmd = &cobra.Command{
		Use:   "debrel",
		Short: "Install or update a Debian package from its GitHub releases",
		Long: "debrel resolves a release across an ordered list of candidate repositories, " +
			"downloads the matching .deb asset, installs it via apt-get and restarts the " +
			"systemd unit shipped by the package, verifying it ends up active.",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if lvl, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(lvl)
			}
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return installer.Run(ctx, installOptions())
		},
	}
)

// installOptions collects the root command flags into installer inputs.
func installOptions() *installer.Options {
	return &installer.Options{
		ConfigPath:   configPath,
		Channel:      channel,
		Tag:          tag,
		Repositories: repositories,
		AssetPattern: assetPattern,
		ServiceName:  serviceName,
		PackageName:  packageName,
		Token:        token,
		Force:        force,
		APIBaseURL:   apiBaseURL,
	}
}

// Execute runs the debrel CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "path to configuration file")
	flags.StringVar(&channel, "channel", "", `release channel: "stable" or "pre"`)
	flags.StringVar(&tag, "tag", "", "install this exact release tag")
	flags.StringArrayVar(&repositories, "repo", nil, "candidate repository (owner/name, repeatable, tried in order)")
	flags.StringVar(&assetPattern, "asset-pattern", "", "regular expression a release asset name must match")
	flags.StringVar(&serviceName, "service-name", "", "systemd unit to activate instead of inspecting the package")
	flags.StringVar(&packageName, "package-name", "", "package name instead of reading the control file")
	flags.StringVar(&token, "token", "", "release API token (overrides "+installer.EnvToken+")")
	flags.StringVar(&apiBaseURL, "api-url", "", "release API base URL (GitHub Enterprise)")
	flags.StringVar(&logLevel, "log-level", "info", "minimum log level: debug, info, warn, error")

	rootCmd.Flags().BoolVar(&force, "force", false, "install even when the resolved tag is already installed")

	rootCmd.AddCommand(newResolveCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
