package tui

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billmal071/narubooks/internal/db"
	"github.com/billmal071/narubooks/internal/snapshot"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "토지", Truncate("토지", 10))
	assert.Equal(t, "채식주...", Truncate("채식주의자 한강 장편소설", 6))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "0", FormatCount(0))
	assert.Equal(t, "999", FormatCount(999))
	assert.Equal(t, "1,000", FormatCount(1000))
	assert.Equal(t, "12,345,678", FormatCount(12345678))
	assert.Equal(t, "-1,500", FormatCount(-1500))
	assert.Equal(t, strconv.Itoa(math.MinInt), strings.ReplaceAll(FormatCount(math.MinInt), ",", ""))
}

func TestBrowserLoadMore(t *testing.T) {
	first := []snapshot.Book{
		{ID: "1", Title: "토지", LibraryCode: "L1"},
		{ID: "2", Title: "코스모스", LibraryCode: "L1"},
	}
	calls := 0
	loadMore := func() ([]snapshot.Book, error) {
		calls++
		return []snapshot.Book{
			{ID: "2", Title: "코스모스", LibraryCode: "L1"},
			{ID: "2", Title: "코스모스", LibraryCode: "L2"},
		}, nil
	}

	m := NewBrowser(first, "Books", loadMore)
	assert.Equal(t, 2, m.Len())

	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("m")})
	require.NotNil(t, cmd)
	assert.True(t, model.(BrowserModel).loading)

	model, _ = model.Update(cmd())
	browser := model.(BrowserModel)
	assert.False(t, browser.loading)
	assert.Equal(t, 3, browser.Len(), "same id in another library is a different holding")
	assert.Equal(t, 1, calls)

	model, _ = browser.Update(loadMoreMsg{})
	assert.True(t, model.(BrowserModel).noMoreResults)
}

func TestBrowserLoadMoreError(t *testing.T) {
	m := NewBrowser([]snapshot.Book{{ID: "1", Title: "토지"}}, "Books", nil)
	model, _ := m.Update(loadMoreMsg{err: errors.New("snapshot gone")})
	browser := model.(BrowserModel)
	assert.True(t, browser.noMoreResults)
	assert.Contains(t, browser.View(), "snapshot gone")
}

func TestBrowserSelect(t *testing.T) {
	m := NewBrowser([]snapshot.Book{{ID: "1", Title: "토지", Library: "다사도서관"}}, "Books", nil)

	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	browser := model.(BrowserModel)
	require.NotNil(t, browser.Selected())
	assert.Equal(t, "토지", browser.Selected().Title)
	assert.Contains(t, browser.View(), "다사도서관")
}

func TestHistorySelectorSelect(t *testing.T) {
	history := []*db.SearchHistory{
		{ID: 2, Query: "코스모스", ResultCount: 1200, CreatedAt: time.Now()},
		{ID: 1, Query: "토지", ResultCount: 3, CreatedAt: time.Now()},
	}
	m := NewHistorySelector(history)
	assert.Contains(t, HistoryItem{History: history[0]}.Description(), "1,200 results")

	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, model.(HistorySelectorModel).Selected())
	assert.Equal(t, "코스모스", model.(HistorySelectorModel).Selected().Query)
}
