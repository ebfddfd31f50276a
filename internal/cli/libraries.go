package cli

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/billmal071/narubooks/internal/collector"
	"github.com/billmal071/narubooks/internal/config"
	"github.com/billmal071/narubooks/internal/naru"
	"github.com/billmal071/narubooks/internal/snapshot"
	"github.com/billmal071/narubooks/internal/tui"
)

var librariesCmd = &cobra.Command{
	Use:     "libraries",
	Aliases: []string{"libs"},
	Short:   "List the region's libraries in their groups",
	Long: `Enumerate the libraries the collector would visit and show how they are
partitioned: the marked group (libraries whose name or address contains a
collect.markers entry) first, then the rest, each sorted by name.

Examples:
  narubooks libraries
  narubooks libraries --region 서울특별시 --json
  narubooks libraries --snapshot          Read the groups from the last snapshot`,
	Args: cobra.NoArgs,
	RunE: runLibraries,
}

func init() {
	librariesCmd.Flags().String("region", "", "region to list (overrides naru.region)")
	librariesCmd.Flags().Bool("json", false, "print the groups as JSON")
	librariesCmd.Flags().Bool("snapshot", false, "read libraries from the snapshot instead of the API")
}

func runLibraries(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if cmd.Flags().Changed("region") {
		cfg.Naru.Region = getString(cmd, "region")
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	var groups snapshot.LibraryGroups
	if fromSnapshot, _ := cmd.Flags().GetBool("snapshot"); fromSnapshot {
		snap, _, err := snapshot.LoadWithFallback(cfg.Output.Path, cfg.Output.FallbackPath)
		if err != nil {
			return err
		}
		groups = snap.Libraries
	} else {
		// A static list needs no key
		if len(cfg.Collect.Libraries) == 0 {
			if err := cfg.Validate(); err != nil {
				return err
			}
		}
		client := naru.NewClientFromConfig(cfg)
		libs, err := collector.ListLibraries(cmd.Context(), collector.SourceFromConfig(cfg, client))
		if err != nil {
			if len(libs) == 0 {
				return fmt.Errorf("failed to list libraries: %w", err)
			}
			Errorf("library list is incomplete: %v", err)
		}
		g := collector.Partition(libs, cfg.Collect.Markers)
		groups = snapshot.LibraryGroups{
			MarkedKey:  cfg.Collect.MarkedGroup,
			Marked:     g.Marked,
			Others:     g.Others,
			TotalCount: len(libs),
		}
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(groups)
	}

	printLibraryGroup(groups.MarkedKey, groups.Marked)
	fmt.Println()
	printLibraryGroup("others", groups.Others)
	fmt.Printf("\n%s libraries\n", tui.FormatCount(groups.TotalCount))
	return nil
}

func printLibraryGroup(name string, libs []snapshot.Library) {
	fmt.Println(tui.TitleStyle.Render(fmt.Sprintf("%s (%d)", name, len(libs))))
	if len(libs) == 0 {
		fmt.Println(tui.DimStyle.Render("  (none)"))
		return
	}
	for _, lib := range libs {
		fmt.Printf("  %s  %s\n", tui.AccentStyle.Render(fmt.Sprintf("%-8s", lib.Code)), lib.Name)
		if lib.Address != "" {
			fmt.Println(tui.DimStyle.Render("            " + lib.Address))
		}
	}
}
