// Package cli implements the vaultgen command-line interface.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "vaultgen",
	Short: "Tier-gated account distribution bot",
	Long: `vaultgen distributes accounts from a line-file stock to chat users,
gated by tier channels, per-user cooldowns, a ban ledger, and vouch
obligations. Run 'vaultgen setup' once, fill in the config, then
'vaultgen serve'.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c",
		defaultConfigPath(), "path to the TOML config file")
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".vaultgen", "config.toml")
}
