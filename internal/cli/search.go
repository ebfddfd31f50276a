package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/billmal071/narubooks/internal/collector"
	"github.com/billmal071/narubooks/internal/config"
	"github.com/billmal071/narubooks/internal/db"
	"github.com/billmal071/narubooks/internal/logging"
	"github.com/billmal071/narubooks/internal/naru"
	"github.com/billmal071/narubooks/internal/snapshot"
	"github.com/billmal071/narubooks/internal/tui"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the national catalog",
	Long: `Search the 정보나루 catalog (srchBooks) by keyword.

Results are cached in the local database for cache.ttl. By default an
interactive browser is shown; press m to fetch the next page.

Examples:
  narubooks search 한강
  narubooks search -n 10 "소년이 온다"
  narubooks search --page 2 --no-interactive 토지
  narubooks search --history`,
	Args: func(cmd *cobra.Command, args []string) error {
		if fromHistory, _ := cmd.Flags().GetBool("history"); fromHistory {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntP("limit", "n", 20, "results per page")
	searchCmd.Flags().Int("page", 1, "page to start from")
	searchCmd.Flags().Bool("no-interactive", false, "disable interactive mode, just print results")
	searchCmd.Flags().Bool("no-cache", false, "bypass the search cache")
	searchCmd.Flags().Bool("history", false, "pick a previous search to run again")
}

// searchPage is what a cached search stores
type searchPage struct {
	Total int             `json:"total"`
	Books []snapshot.Book `json:"books"`
}

type searcher struct {
	api      naru.API
	limit    int
	useCache bool
	ttl      time.Duration
	now      func() time.Time
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if err := cfg.Validate(); err != nil {
		return err
	}

	query := strings.Join(args, " ")
	if fromHistory, _ := cmd.Flags().GetBool("history"); fromHistory {
		picked, err := pickFromHistory()
		if err != nil || picked == "" {
			return err
		}
		query = picked
	}

	limit, _ := cmd.Flags().GetInt("limit")
	page, _ := cmd.Flags().GetInt("page")
	noInteractive, _ := cmd.Flags().GetBool("no-interactive")
	noCache, _ := cmd.Flags().GetBool("no-cache")

	s := &searcher{
		api:      naru.NewClientFromConfig(cfg),
		limit:    limit,
		useCache: cfg.Cache.Enabled && !noCache && db.Ready(),
		ttl:      cfg.Cache.TTL,
		now:      time.Now,
	}

	Printf("Searching for: %s\n", query)

	result, err := s.search(cmd.Context(), query, page)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if db.Ready() {
		if err := db.AddSearchHistory(query, result.Total); err != nil {
			logging.Warn().Err(err).Msg("failed to save search history")
		}
	}

	if len(result.Books) == 0 {
		fmt.Println("No books found matching your query.")
		return nil
	}

	Printf("Found %d result(s)\n\n", result.Total)

	// Non-interactive mode: just print results
	if noInteractive {
		printBooks(result.Books, (page-1)*limit)
		return nil
	}

	currentPage := page
	loadMore := func() ([]snapshot.Book, error) {
		if currentPage*limit >= result.Total && result.Total > 0 {
			return nil, nil
		}
		currentPage++
		more, err := s.search(cmd.Context(), query, currentPage)
		if err != nil {
			return nil, err
		}
		return more.Books, nil
	}

	title := fmt.Sprintf("%s (%s results)", query, tui.FormatCount(result.Total))
	selected, err := tui.RunBrowser(result.Books, title, loadMore)
	if err != nil {
		return fmt.Errorf("selection failed: %w", err)
	}
	if selected == nil {
		return nil // User cancelled
	}

	fmt.Println()
	printBookDetail(selected)
	if selected.ISBN != "" {
		fmt.Printf("\nTo see which libraries hold it, run:\n")
		fmt.Printf("  narubooks holdings %s\n", selected.ISBN)
	}
	return nil
}

// search fetches one page, going through the cache when enabled
func (s *searcher) search(ctx context.Context, query string, page int) (*searchPage, error) {
	key := db.GenerateCacheKey(query, map[string]string{
		"page":  strconv.Itoa(page),
		"limit": strconv.Itoa(s.limit),
	})

	if s.useCache {
		entry, err := db.GetCachedSearch(key)
		if err != nil {
			logging.Debug().Err(err).Msg("cache lookup failed")
		} else if entry != nil {
			var cached searchPage
			if err := json.Unmarshal([]byte(entry.ResultsJSON), &cached); err == nil {
				Printf("(cached %s)\n", entry.CreatedAt.Local().Format("2006-01-02 15:04"))
				return &cached, nil
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	res, err := s.api.SearchBooks(ctx, query, page, s.limit)
	if err != nil {
		return nil, err
	}

	opts := collector.MapOptions{Now: s.now()}
	result := &searchPage{Total: res.Total, Books: make([]snapshot.Book, 0, len(res.Items))}
	for _, doc := range res.Items {
		result.Books = append(result.Books, collector.ToCanonicalBook(doc, snapshot.Library{}, opts))
	}
	if result.Total == 0 {
		result.Total = len(result.Books)
	}

	if s.useCache {
		data, err := json.Marshal(result)
		if err == nil {
			err = db.SaveCachedSearch(key, query, fmt.Sprintf("page=%d,limit=%d", page, s.limit), string(data), result.Total, s.ttl)
		}
		if err != nil {
			logging.Debug().Err(err).Msg("failed to cache search")
		}
	}

	return result, nil
}

func pickFromHistory() (string, error) {
	if err := requireDB(); err != nil {
		return "", err
	}
	history, err := db.GetUniqueSearchHistory(50)
	if err != nil {
		return "", fmt.Errorf("failed to get search history: %w", err)
	}
	if len(history) == 0 {
		fmt.Println("No search history.")
		return "", nil
	}
	picked, err := tui.RunHistorySelector(history)
	if err != nil {
		return "", err
	}
	if picked == nil {
		return "", nil
	}
	return picked.Query, nil
}

// printBooks prints books in a simple format, numbered from offset+1
func printBooks(books []snapshot.Book, offset int) {
	for i, book := range books {
		fmt.Printf("%d. %s\n", offset+i+1, book.Title)
		fmt.Printf("   Author: %s | Publisher: %s", book.Author, book.Publisher)
		if book.Year != "" {
			fmt.Printf(" | %s", book.Year)
		}
		fmt.Println()
		if book.Library != "" {
			fmt.Printf("   Library: %s", book.Library)
			if book.CallNumber != "" {
				fmt.Printf(" | %s", book.CallNumber)
			}
			fmt.Println()
		}
		if book.ISBN != "" {
			fmt.Printf("   ISBN: %s\n", book.ISBN)
		}
		fmt.Println()
	}
}

func printBookDetail(b *snapshot.Book) {
	fmt.Println(tui.TitleStyle.Render(b.Title))
	fmt.Printf("Author:    %s\n", b.Author)
	fmt.Printf("Publisher: %s\n", b.Publisher)
	if b.Year != "" {
		fmt.Printf("Year:      %s\n", b.Year)
	}
	fmt.Printf("Category:  %s\n", b.Category)
	if b.ISBN != "" {
		fmt.Printf("ISBN:      %s\n", b.ISBN)
	}
	if b.Library != "" {
		fmt.Printf("Library:   %s (%s)\n", b.Library, b.LibraryCode)
	}
	if b.CallNumber != "" {
		fmt.Printf("Call no.:  %s\n", b.CallNumber)
	}
	if b.RegDate != "" {
		fmt.Printf("Acquired:  %s\n", b.RegDate)
	}
	if b.Ranking > 0 {
		fmt.Printf("Ranking:   #%d (%d loans)\n", b.Ranking, b.LoanCount)
	}
}
