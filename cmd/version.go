package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Overridden with -ldflags "-X .../cmd.version=..." at release time.
var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("%s %s\n", app, version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
