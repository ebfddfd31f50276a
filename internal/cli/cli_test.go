package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billmal071/narubooks/internal/collector"
	"github.com/billmal071/narubooks/internal/config"
	"github.com/billmal071/narubooks/internal/naru"
	"github.com/billmal071/narubooks/internal/snapshot"
)

// stubAPI serves canned pages; unset endpoints fail
type stubAPI struct {
	searchPages  map[int]*naru.Page[naru.Doc]
	holdingPages map[int]*naru.Page[naru.Library]
	searchCalls  int
	holdingErrAt int
}

func (s *stubAPI) Libraries(ctx context.Context, region string, page, size int) (*naru.Page[naru.Library], error) {
	return nil, errors.New("not stubbed")
}

func (s *stubAPI) Items(ctx context.Context, libCode string, page, size int) (*naru.Page[naru.Doc], error) {
	return nil, errors.New("not stubbed")
}

func (s *stubAPI) LoanRanking(ctx context.Context, libCode string, start, end time.Time, page, size int) (*naru.Page[naru.Doc], error) {
	return nil, errors.New("not stubbed")
}

func (s *stubAPI) SearchBooks(ctx context.Context, keyword string, page, size int) (*naru.Page[naru.Doc], error) {
	s.searchCalls++
	if p, ok := s.searchPages[page]; ok {
		return p, nil
	}
	return &naru.Page[naru.Doc]{}, nil
}

func (s *stubAPI) LibrariesByBook(ctx context.Context, isbn, region string, page, size int) (*naru.Page[naru.Library], error) {
	if page == s.holdingErrAt {
		return nil, &naru.HTTPError{Status: 500, URL: "libSrchByBook"}
	}
	if p, ok := s.holdingPages[page]; ok {
		return p, nil
	}
	return &naru.Page[naru.Library]{}, nil
}

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	addQueryFlags(cmd.Flags())
	return cmd
}

func TestQueryFromFlags(t *testing.T) {
	cmd := newQueryCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--search", "한강", "-l", "127058", "--library", "다사도서관",
		"--kdc", "81", "--new", "--sort", "latest", "--page", "3", "--page-size", "50",
	}))

	q, err := queryFromFlags(cmd.Flags())
	require.NoError(t, err)
	assert.Equal(t, "한강", q.Search)
	assert.Equal(t, []string{"127058", "다사도서관"}, q.Libraries)
	assert.Equal(t, "81", q.Category)
	assert.True(t, q.NewOnly)
	assert.Equal(t, snapshot.SortLatest, q.Sort)
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, 50, q.PageSize)
}

func TestQueryFromFlagsDefaults(t *testing.T) {
	q, err := queryFromFlags(newQueryCmd().Flags())
	require.NoError(t, err)
	assert.Equal(t, snapshot.SortNone, q.Sort)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, snapshot.DefaultPageSize, q.PageSize)
	assert.Empty(t, q.Libraries)
}

func TestQueryFromFlagsInvalid(t *testing.T) {
	tests := [][]string{
		{"--sort", "popular"},
		{"--page", "0"},
		{"--page-size", "-1"},
	}
	for _, args := range tests {
		cmd := newQueryCmd()
		require.NoError(t, cmd.ParseFlags(args))
		_, err := queryFromFlags(cmd.Flags())
		assert.Error(t, err, "args %v", args)
	}
}

func TestApplyCollectFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "collect"}
	addCollectFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"-o", "out/books.json", "--scope", "global", "--popular", "--no-notify"}))

	cfg := &config.Config{}
	cfg.Naru.Region = "대구광역시"
	cfg.Collect.LibraryMaxPages = 30
	cfg.Notify.Enabled = true

	applyCollectFlags(cmd, cfg)
	assert.Equal(t, "out/books.json", cfg.Output.Path)
	assert.Equal(t, "global", cfg.Collect.DedupeScope)
	assert.True(t, cfg.Collect.IncludePopular)
	assert.False(t, cfg.Notify.Enabled)
	assert.Equal(t, "대구광역시", cfg.Naru.Region, "unset flags keep config values")
	assert.Equal(t, 30, cfg.Collect.LibraryMaxPages)
}

func TestRankingPeriod(t *testing.T) {
	now := time.Date(2024, 6, 30, 15, 0, 0, 0, time.Local)

	start, end, err := rankingPeriod("", "", 30, now)
	require.NoError(t, err)
	assert.Equal(t, now, end)
	assert.Equal(t, "2024-05-31", start.Format(dateLayout))

	start, end, err = rankingPeriod("2024-01-01", "2024-03-31", 30, now)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", start.Format(dateLayout))
	assert.Equal(t, "2024-03-31", end.Format(dateLayout))

	_, _, err = rankingPeriod("2024-04-01", "2024-03-31", 30, now)
	assert.Error(t, err)

	_, _, err = rankingPeriod("01/01/2024", "", 30, now)
	assert.Error(t, err)
}

func TestNormalizeISBN(t *testing.T) {
	assert.Equal(t, "9788936434120", normalizeISBN(" 978-89-364-3412-0 "))
	assert.Equal(t, "9788936434120", normalizeISBN("978 89 364 3412 0"))
}

func TestFindHoldings(t *testing.T) {
	api := &stubAPI{holdingPages: map[int]*naru.Page[naru.Library]{
		1: {Total: 3, Items: []naru.Library{
			{Code: "127058", Name: "다사도서관", Address: "대구광역시 달성군 다사읍"},
			{Code: "127001", Name: "대구중앙도서관", Address: "대구광역시 중구"},
		}},
		2: {Total: 3, Items: []naru.Library{
			{Code: "127058", Name: "다사도서관"},
		}},
	}}
	cfg := &config.Config{}
	cfg.Naru.Region = "대구광역시"
	cfg.Collect.PageSize = 2

	libs, err := findHoldings(context.Background(), api, "9788936434120", cfg)
	require.NoError(t, err)
	require.Len(t, libs, 2, "duplicate codes are dropped")
	assert.Equal(t, "127058", libs[0].Code)
	assert.Equal(t, "대구광역시 달성군 다사읍", libs[0].Address, "first record wins")
}

func TestFindHoldingsPartial(t *testing.T) {
	api := &stubAPI{
		holdingPages: map[int]*naru.Page[naru.Library]{
			1: {Total: 5, Items: []naru.Library{{Code: "127058", Name: "다사도서관"}, {Code: "127001", Name: "대구중앙도서관"}}},
		},
		holdingErrAt: 2,
	}
	cfg := &config.Config{}
	cfg.Collect.PageSize = 2

	libs, err := findHoldings(context.Background(), api, "9788936434120", cfg)
	require.Error(t, err)
	var pageErr *collector.PageError
	require.ErrorAs(t, err, &pageErr)
	assert.Equal(t, 2, pageErr.Page)
	assert.Len(t, libs, 2)
}

func TestSearcherWithoutCache(t *testing.T) {
	api := &stubAPI{searchPages: map[int]*naru.Page[naru.Doc]{
		1: {Total: 0, Items: []naru.Doc{
			{Bookname: "소년이 온다", Authors: "한강", ISBN13: "9788936434120"},
			{Bookname: "", Authors: ""},
		}},
	}}
	s := &searcher{api: api, limit: 20, now: time.Now}

	result, err := s.search(context.Background(), "한강", 1)
	require.NoError(t, err)
	require.Len(t, result.Books, 2)
	assert.Equal(t, 2, result.Total, "missing total falls back to the page length")
	assert.Equal(t, "9788936434120", result.Books[0].ID)
	assert.Equal(t, collector.DefaultTitle, result.Books[1].Title)
	assert.Equal(t, 1, api.searchCalls)
}

func TestPagedLoader(t *testing.T) {
	snap := &snapshot.Snapshot{}
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		snap.Books = append(snap.Books, snapshot.Book{ID: id, Title: "책 " + id, LibraryCode: "L1"})
	}
	q := snapshot.Query{PageSize: 2, Page: 1}
	first := snap.Query(q)
	require.Len(t, first.Books, 2)

	load := pagedLoader(snap, q, first)

	books, err := load()
	require.NoError(t, err)
	assert.Equal(t, "3", books[0].ID)

	books, err = load()
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "5", books[0].ID)

	books, err = load()
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestPrintSummary(t *testing.T) {
	snap := &snapshot.Snapshot{
		Region:    "대구광역시",
		Libraries: snapshot.LibraryGroups{MarkedKey: "dalseong"},
		Failures: []snapshot.Failure{
			{LibraryCode: "127002", Library: "현풍도서관", Stage: "items", Error: "HTTP 500"},
		},
	}
	summary := &collector.Summary{
		Libraries: 3, Marked: 2, Others: 1, LibrariesFailed: 1,
		Collected: 1500, Unique: 1200, Duplicates: 300,
	}

	var buf bytes.Buffer
	printSummary(&buf, snap, summary, "public/books.json")
	out := buf.String()
	assert.Contains(t, out, "dalseong: 2 libraries")
	assert.Contains(t, out, "1,200 unique of 1,500 collected")
	assert.Contains(t, out, "1 of 3 libraries incomplete")
	assert.Contains(t, out, "현풍도서관 (127002) items: HTTP 500")
	assert.Contains(t, out, "public/books.json")
}

func TestPrintSummaryListsPopularFailures(t *testing.T) {
	snap := &snapshot.Snapshot{
		Region:    "대구광역시",
		Libraries: snapshot.LibraryGroups{MarkedKey: "dalseong"},
		Failures: []snapshot.Failure{
			{LibraryCode: "127058", Library: "다사도서관", Stage: "popular", Error: "HTTP 503"},
		},
	}
	summary := &collector.Summary{Libraries: 3, Marked: 2, Others: 1, Collected: 10, Unique: 10}

	var buf bytes.Buffer
	printSummary(&buf, snap, summary, "public/books.json")
	out := buf.String()
	assert.Contains(t, out, "1 failures:")
	assert.Contains(t, out, "다사도서관 (127058) popular: HTTP 503")
	assert.NotContains(t, out, "libraries incomplete")
}
