package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cpugovernor/debrel/internal/service/selfupdate"
)

func newSelfUpdateCmd() *cobra.Command {
	var repository string

	cmd := &cobra.Command{
		Use:   "self-update",
		Short: "Update debrel itself to the newest stable release",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return selfupdate.Run(ctx, &selfupdate.Options{
				Repository: repository,
				Token:      token,
				APIBaseURL: apiBaseURL,
			})
		},
	}

	cmd.Flags().StringVar(&repository, "repository", "", "repository to update debrel from (owner/name)")

	return cmd
}
