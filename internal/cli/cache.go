package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/billmal071/narubooks/internal/config"
	"github.com/billmal071/narubooks/internal/db"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the live search cache",
	Long: `Manage the cache of narubooks search results.

Examples:
  narubooks cache stats    # Show cache statistics
  narubooks cache clear    # Clear all cached results
  narubooks cache clean    # Remove expired entries
  narubooks cache enable   # Enable caching
  narubooks cache disable  # Disable caching`,
}

var cacheStatsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show cache statistics",
	PreRunE: requireDBRun,
	RunE: func(cmd *cobra.Command, args []string) error {
		total, expired, err := db.GetCacheStats()
		if err != nil {
			return fmt.Errorf("failed to get cache stats: %w", err)
		}

		cfg := config.Get()

		fmt.Println("Search Cache Statistics")
		fmt.Println("─────────────────────────")
		fmt.Printf("Status: %s\n", enabledStatus(cfg.Cache.Enabled))
		fmt.Printf("Total cached results: %d\n", total)
		fmt.Printf("Expired entries: %d\n", expired)
		fmt.Printf("Valid entries: %d\n", total-expired)
		fmt.Printf("Cache TTL: %v\n", cfg.Cache.TTL)

		if expired > 0 {
			fmt.Println("\nTip: Run 'narubooks cache clean' to remove expired entries")
		}

		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:     "clear",
	Short:   "Clear all cached search results",
	PreRunE: requireDBRun,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.ClearSearchCache(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		Successf("Cache cleared")
		return nil
	},
}

var cacheCleanCmd = &cobra.Command{
	Use:     "clean",
	Short:   "Remove expired cache entries",
	PreRunE: requireDBRun,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := db.CleanExpiredCache()
		if err != nil {
			return fmt.Errorf("failed to clean cache: %w", err)
		}
		Successf("Removed %d expired entries", n)
		return nil
	},
}

var cacheEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable search result caching",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Set("cache.enabled", "true"); err != nil {
			return fmt.Errorf("failed to enable cache: %w", err)
		}
		Successf("Cache enabled")
		return nil
	},
}

var cacheDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable search result caching",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Set("cache.enabled", "false"); err != nil {
			return fmt.Errorf("failed to disable cache: %w", err)
		}
		Successf("Cache disabled")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheCleanCmd)
	cacheCmd.AddCommand(cacheEnableCmd)
	cacheCmd.AddCommand(cacheDisableCmd)
}

func enabledStatus(enabled bool) string {
	if enabled {
		return "enabled ✓"
	}
	return "disabled"
}
