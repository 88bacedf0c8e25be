package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the vaultgen version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vaultgen %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
	},
}
