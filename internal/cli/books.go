package cli

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/billmal071/narubooks/internal/config"
	"github.com/billmal071/narubooks/internal/snapshot"
	"github.com/billmal071/narubooks/internal/tui"
)

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "Query the books in the snapshot",
	Long: `Filter, sort and page the books of the last snapshot the way the site does.

Examples:
  narubooks books --search 한강
  narubooks books --library 다사도서관 --sort latest
  narubooks books --kdc 8 --new --page 2
  narubooks books --library 127058 --json`,
	Args: cobra.NoArgs,
	RunE: runBooks,
}

func init() {
	addQueryFlags(booksCmd.Flags())
	booksCmd.Flags().Bool("json", false, "print the page as JSON")
}

func addQueryFlags(fs *pflag.FlagSet) {
	fs.StringP("search", "s", "", "match title or author")
	fs.StringArrayP("library", "l", nil, "library code or name (repeatable)")
	fs.String("kdc", "", "KDC class number prefix, e.g. 8 or 813")
	fs.Bool("new", false, "only new arrivals")
	fs.String("sort", "", "sort order: latest, oldest or title")
	fs.Int("page", 1, "page number")
	fs.Int("page-size", snapshot.DefaultPageSize, "books per page")
}

// queryFromFlags builds a snapshot query from the query flags
func queryFromFlags(fs *pflag.FlagSet) (snapshot.Query, error) {
	q := snapshot.Query{}
	q.Search, _ = fs.GetString("search")
	q.Libraries, _ = fs.GetStringArray("library")
	q.Category, _ = fs.GetString("kdc")
	q.NewOnly, _ = fs.GetBool("new")
	q.Page, _ = fs.GetInt("page")
	q.PageSize, _ = fs.GetInt("page-size")

	sort, _ := fs.GetString("sort")
	switch order := snapshot.SortOrder(sort); order {
	case snapshot.SortNone, snapshot.SortLatest, snapshot.SortOldest, snapshot.SortTitle:
		q.Sort = order
	default:
		return q, fmt.Errorf("unknown sort order %q (use latest, oldest or title)", sort)
	}
	if q.Page < 1 {
		return q, fmt.Errorf("--page must be at least 1")
	}
	if q.PageSize < 1 {
		return q, fmt.Errorf("--page-size must be at least 1")
	}
	return q, nil
}

func loadSnapshot() (*snapshot.Snapshot, error) {
	cfg := config.Get()
	snap, path, err := snapshot.LoadWithFallback(cfg.Output.Path, cfg.Output.FallbackPath)
	if err != nil {
		return nil, err
	}
	Printf("Loaded %s (%d books, updated %s)\n", path, len(snap.Books), snap.UpdatedAt.Local().Format("2006-01-02 15:04"))
	return snap, nil
}

func runBooks(cmd *cobra.Command, args []string) error {
	q, err := queryFromFlags(cmd.Flags())
	if err != nil {
		return err
	}
	snap, err := loadSnapshot()
	if err != nil {
		return err
	}

	result := snap.Query(q)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if result.Total == 0 {
		fmt.Println("No books match.")
		return nil
	}

	printBooks(result.Books, (result.Page-1)*q.PageSize)
	fmt.Println(tui.DimStyle.Render(fmt.Sprintf("Page %d of %d (%s books)", result.Page, result.TotalPages, tui.FormatCount(result.Total))))
	if result.HasMore() {
		fmt.Println(tui.DimStyle.Render(fmt.Sprintf("Next: --page %d", result.Page+1)))
	}
	return nil
}
