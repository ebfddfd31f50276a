package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/billmal071/narubooks/internal/db"
	"github.com/billmal071/narubooks/internal/tui"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View collection runs and search history",
	Long: `View and manage recorded collection runs and live searches.

Examples:
  narubooks history              List recent collection runs
  narubooks history show 3f2a    Show one run by id prefix
  narubooks history searches     List recent searches
  narubooks history clear        Clear all search history
  narubooks history prune --days 90`,
	Args: cobra.NoArgs,
	PreRunE: requireDBRun,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return showRuns(limit)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one collection run",
	Args:  cobra.ExactArgs(1),
	PreRunE: requireDBRun,
	RunE: func(cmd *cobra.Command, args []string) error {
		run, err := db.GetRun(args[0])
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("run not found: %s", args[0])
		}
		printRun(run)
		return nil
	},
}

var historySearchesCmd = &cobra.Command{
	Use:   "searches",
	Short: "List recent searches",
	PreRunE: requireDBRun,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return showSearchHistoryWithLimit(limit)
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all search history",
	PreRunE: requireDBRun,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.ClearSearchHistory(); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		Successf("Search history cleared.")
		return nil
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete collection runs older than --days",
	PreRunE: requireDBRun,
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		if days <= 0 {
			return fmt.Errorf("--days must be positive")
		}
		n, err := db.DeleteRunsOlderThan(time.Duration(days) * 24 * time.Hour)
		if err != nil {
			return fmt.Errorf("failed to prune runs: %w", err)
		}
		Successf("Removed %d run(s) older than %d days", n, days)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "number of runs to show")
	historySearchesCmd.Flags().IntP("limit", "n", 20, "number of entries to show")
	historyPruneCmd.Flags().Int("days", 90, "keep runs started within this many days")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historySearchesCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyPruneCmd)
}

func showRuns(limit int) error {
	runs, err := db.ListRuns(limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No collection runs recorded.")
		fmt.Println("\nRuns are recorded automatically when you run narubooks collect.")
		return nil
	}

	fmt.Printf("Recent Runs (%d):\n\n", len(runs))
	for _, r := range runs {
		fmt.Printf("  %s  %s  %s  %s books from %d libraries",
			tui.AccentStyle.Render(r.ID[:8]),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			runStatusLabel(r.Status),
			tui.FormatCount(r.Unique),
			r.Libraries,
		)
		if r.LibrariesFailed > 0 {
			fmt.Printf(" (%d failed)", r.LibrariesFailed)
		}
		fmt.Println()
	}
	return nil
}

func printRun(r *db.Run) {
	fmt.Printf("Run:        %s\n", r.ID)
	fmt.Printf("Region:     %s\n", r.Region)
	fmt.Printf("Status:     %s\n", runStatusLabel(r.Status))
	fmt.Printf("Started:    %s\n", r.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if r.FinishedAt != nil {
		fmt.Printf("Duration:   %s\n", r.Duration().Round(time.Second))
	}
	fmt.Printf("Libraries:  %d (%d failed)\n", r.Libraries, r.LibrariesFailed)
	fmt.Printf("Books:      %s unique, %s collected, %s duplicates\n",
		tui.FormatCount(r.Unique), tui.FormatCount(r.Collected), tui.FormatCount(r.Duplicates))
	if r.OutputPath != "" {
		fmt.Printf("Output:     %s\n", r.OutputPath)
	}
	if r.ErrorMessage != "" {
		fmt.Printf("Error:      %s\n", tui.ErrorStyle.Render(r.ErrorMessage))
	}
}

func runStatusLabel(s db.RunStatus) string {
	switch s {
	case db.RunOK:
		return tui.SuccessStyle.Render(string(s))
	case db.RunPartial:
		return tui.WarningStyle.Render(string(s))
	case db.RunFailed:
		return tui.ErrorStyle.Render(string(s))
	default:
		return tui.DimStyle.Render(string(s))
	}
}

// showSearchHistoryWithLimit shows history with a custom limit
func showSearchHistoryWithLimit(limit int) error {
	history, err := db.GetUniqueSearchHistory(limit)
	if err != nil {
		return fmt.Errorf("failed to get search history: %w", err)
	}

	if len(history) == 0 {
		fmt.Println("No search history.")
		fmt.Println("\nSearches are saved automatically when you run narubooks search.")
		return nil
	}

	fmt.Printf("Recent Searches (%d):\n\n", len(history))

	for i, h := range history {
		fmt.Printf("  %d. \"%s\" (%s results)\n", i+1, h.Query, tui.FormatCount(h.ResultCount))
		fmt.Printf("     %s\n\n", h.CreatedAt.Local().Format("2006-01-02 15:04"))
	}

	return nil
}
