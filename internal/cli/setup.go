package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vaultgen/vaultgen/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create a starter config file",
	Long: `Write a config file with placeholder values to the config path.
Edit it to set your bot token and channel IDs before running 'serve'.`,
	RunE: runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists at %s (delete it first to start over)", configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	fmt.Printf("Wrote starter config to %s\n\n", configPath)
	fmt.Println("Next steps:")
	fmt.Println("  1. Set [bot].token to your bot token")
	fmt.Println("  2. Set the channel IDs under [channels]")
	fmt.Println("  3. Run: vaultgen serve")
	if !cfg.TokenConfigured() {
		fmt.Println("\nThe token is still the placeholder; 'serve' will refuse to start until it's set.")
	}
	return nil
}
