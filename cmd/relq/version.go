package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/relq/internal/update"
	"github.com/pthm/relq/internal/version"
)

var versionCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, version.Info())
		if !versionCheck {
			return nil
		}

		info, err := update.CheckWithCache(cmd.Context())
		if err != nil {
			// Update checks are best effort
			logger.WithError(err).Debug("update check failed")
			return nil
		}
		if info.UpdateAvailable {
			fmt.Fprintf(out, "Update available: %s -> %s\n", info.CurrentVersion, info.LatestVersion)
			if info.ReleaseURL != "" {
				fmt.Fprintf(out, "  %s\n", info.ReleaseURL)
			}
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check GitHub for a newer release")
}
