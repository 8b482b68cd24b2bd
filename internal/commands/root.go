package commands

import (
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Event gallery photo service",
	Long: `gallery serves time-bounded event galleries: hosts bulk upload photos,
guests browse and download them until the session expires.

Configuration is read from the environment (and .env when present).`,
	SilenceUsage: true,
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = v + " (" + c + ", " + d + ")"
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(purgeCmd)
}
