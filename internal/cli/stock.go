package cli

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vaultgen/vaultgen/internal/config"
	"github.com/vaultgen/vaultgen/internal/domain"
	"github.com/vaultgen/vaultgen/internal/infra/stock"
)

func init() {
	rootCmd.AddCommand(stockCmd)
	stockCmd.AddCommand(stockListCmd)
	stockCmd.AddCommand(stockAddCmd)
}

var stockCmd = &cobra.Command{
	Use:   "stock",
	Short: "Inspect and edit account stock from the shell",
}

var stockListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show per-service stock counts",
	RunE:  runStockList,
}

func runStockList(cmd *cobra.Command, args []string) error {
	st, err := openStock()
	if err != nil {
		return err
	}

	counts := st.Counts()
	for _, tier := range domain.Tiers() {
		fmt.Printf("%s:\n", tier.Title())
		services := counts[tier]
		if len(services) == 0 {
			fmt.Println("  (no services)")
			continue
		}
		names := make([]string, 0, len(services))
		for name := range services {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-20s %d\n", name, services[name])
		}
	}
	fmt.Printf("total: %d\n", st.Total())
	return nil
}

var stockAddCmd = &cobra.Command{
	Use:   "add TIER SERVICE CREDENTIAL...",
	Short: "Append credentials to a service",
	Args:  cobra.MinimumNArgs(3),
	RunE:  runStockAdd,
}

func runStockAdd(cmd *cobra.Command, args []string) error {
	tier, err := domain.ParseTier(args[0])
	if err != nil {
		return err
	}
	st, err := openStock()
	if err != nil {
		return err
	}
	service := args[1]
	if !st.Exists(tier, service) {
		if err := st.Create(tier, service); err != nil {
			return err
		}
	}
	total, err := st.Append(tier, service, args[2:])
	if err != nil {
		return err
	}
	fmt.Printf("%s/%s now holds %d accounts\n", tier, domain.NormalizeService(service), total)
	return nil
}

func openStock() (*stock.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return stock.New(filepath.Join(cfg.Bot.DataDir, "stock"), nil)
}
