package cmd

import (
	"github.com/spf13/cobra"
)

// Build metadata, set at link time via -ldflags.
var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		ui.Info("ytsync %s", buildVersion)
		ui.Info("  commit: %s", buildCommit)
		ui.Info("  built:  %s", buildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
