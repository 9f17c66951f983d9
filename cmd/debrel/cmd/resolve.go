package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cpugovernor/debrel/internal/service/installer"
)

// resolveTimeout bounds the diagnostic resolution run.
const resolveTimeout = 2 * time.Minute

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the release and asset without installing anything",
		Long: "Run the resolution and selection steps only and print the chosen repository, " +
			"tag and asset download URL. Useful for checking what an install run would do.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), resolveTimeout)
			defer cancel()

			target, asset, err := installer.ResolveOnly(ctx, installOptions())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, "repository:", target.Repository)
			_, _ = fmt.Fprintln(out, "tag:", target.Release.TagName)
			_, _ = fmt.Fprintln(out, "prerelease:", target.Release.Prerelease)
			_, _ = fmt.Fprintln(out, "asset:", asset.Name)
			_, _ = fmt.Fprintln(out, "url:", asset.BrowserDownloadURL)

			return nil
		},
	}
}
