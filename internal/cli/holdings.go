package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/billmal071/narubooks/internal/collector"
	"github.com/billmal071/narubooks/internal/config"
	"github.com/billmal071/narubooks/internal/naru"
	"github.com/billmal071/narubooks/internal/snapshot"
)

var holdingsCmd = &cobra.Command{
	Use:   "holdings <isbn>",
	Short: "List the region's libraries that hold a book",
	Long: `Ask 정보나루 (libSrchByBook) which libraries in the region hold a 13-digit
ISBN. Libraries in the marked group are listed first.

Examples:
  narubooks holdings 9788936434120
  narubooks holdings --region 서울특별시 978-89-364-3412-0`,
	Args: cobra.ExactArgs(1),
	RunE: runHoldings,
}

func init() {
	holdingsCmd.Flags().String("region", "", "region to search (overrides naru.region)")
}

func runHoldings(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if cmd.Flags().Changed("region") {
		cfg.Naru.Region = getString(cmd, "region")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	isbn := normalizeISBN(args[0])
	if len(isbn) != 13 {
		return fmt.Errorf("invalid ISBN %q: expected 13 digits", args[0])
	}

	client := naru.NewClientFromConfig(cfg)
	libs, err := findHoldings(cmd.Context(), client, isbn, cfg)
	if err != nil && len(libs) == 0 {
		return fmt.Errorf("holdings lookup failed: %w", err)
	}
	if err != nil {
		Errorf("result is incomplete: %v", err)
	}

	if len(libs) == 0 {
		fmt.Printf("No library in %s holds %s.\n", cfg.Naru.Region, isbn)
		return nil
	}

	g := collector.Partition(libs, cfg.Collect.Markers)
	fmt.Printf("%s is held by %d libraries in %s\n\n", isbn, len(libs), cfg.Naru.Region)
	printLibraryGroup(cfg.Collect.MarkedGroup, g.Marked)
	fmt.Println()
	printLibraryGroup("others", g.Others)
	return nil
}

// findHoldings walks libSrchByBook; records are deduplicated by code
func findHoldings(ctx context.Context, api naru.API, isbn string, cfg *config.Config) ([]snapshot.Library, error) {
	return collector.ListLibraries(ctx, &collector.HoldingSource{
		API:    api,
		ISBN:   isbn,
		Region: cfg.Naru.Region,
		Walk: collector.WalkOptions{
			PageSize: cfg.Collect.PageSize,
			MaxPages: cfg.Collect.MaxPages,
			Delay:    cfg.Network.PageDelay,
		},
	})
}

// normalizeISBN strips hyphens and spaces
func normalizeISBN(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
