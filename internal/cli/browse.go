package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/billmal071/narubooks/internal/snapshot"
	"github.com/billmal071/narubooks/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse the snapshot interactively",
	Long: `Open the snapshot in an interactive list. Takes the same filters as
narubooks books; press m to load the next page and / to filter loaded books.

Examples:
  narubooks browse
  narubooks browse --library 다사도서관 --sort latest
  narubooks browse --new --kdc 8`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

func init() {
	addQueryFlags(browseCmd.Flags())
}

func runBrowse(cmd *cobra.Command, args []string) error {
	q, err := queryFromFlags(cmd.Flags())
	if err != nil {
		return err
	}
	snap, err := loadSnapshot()
	if err != nil {
		return err
	}

	result := snap.Query(q)
	if result.Total == 0 {
		fmt.Println("No books match.")
		return nil
	}

	loadMore := pagedLoader(snap, q, result)
	title := fmt.Sprintf("%s (%s books)", snap.Region, tui.FormatCount(result.Total))

	selected, err := tui.RunBrowser(result.Books, title, loadMore)
	if err != nil {
		return fmt.Errorf("browse failed: %w", err)
	}
	if selected == nil {
		return nil
	}

	fmt.Println()
	printBookDetail(selected)
	return nil
}

// pagedLoader returns the pages after first, one per call, then nothing
func pagedLoader(snap *snapshot.Snapshot, q snapshot.Query, first snapshot.Result) tui.LoadMoreFunc {
	last := first
	return func() ([]snapshot.Book, error) {
		if !last.HasMore() {
			return nil, nil
		}
		q.Page = last.Page + 1
		last = snap.Query(q)
		return last.Books, nil
	}
}
