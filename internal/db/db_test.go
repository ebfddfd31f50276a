package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) {
	t.Helper()
	require.NoError(t, InitAt(filepath.Join(t.TempDir(), "state", "narubooks.db")))
	t.Cleanup(func() { Close() })
}

func TestRunLifecycle(t *testing.T) {
	setupDB(t)

	run, err := StartRun("대구광역시")
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)

	got, err := GetRun(run.ID[:8])
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, RunRunning, got.Status)
	assert.Nil(t, got.FinishedAt)

	run.Status = RunPartial
	run.Libraries = 3
	run.LibrariesFailed = 1
	run.Collected = 120
	run.Unique = 100
	run.Duplicates = 20
	run.OutputPath = "public/books.json"
	require.NoError(t, FinishRun(run))

	got, err = GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunPartial, got.Status)
	assert.Equal(t, 100, got.Unique)
	assert.Equal(t, "public/books.json", got.OutputPath)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, got.Duration() >= 0)

	last, err := LastSuccessfulRun()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, run.ID, last.ID)

	missing, err := GetRun("does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListRuns(t *testing.T) {
	setupDB(t)

	for i := 0; i < 3; i++ {
		_, err := StartRun("대구광역시")
		require.NoError(t, err)
	}

	runs, err := ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	none, err := LastSuccessfulRun()
	require.NoError(t, err)
	assert.Nil(t, none)

	removed, err := DeleteRunsOlderThan(-time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
}

func TestSearchCache(t *testing.T) {
	setupDB(t)

	key := GenerateCacheKey("토지", map[string]string{"page": "1", "size": "10"})
	assert.Equal(t, key, GenerateCacheKey("토지", map[string]string{"size": "10", "page": "1"}))
	assert.NotEqual(t, key, GenerateCacheKey("토지", map[string]string{"page": "2", "size": "10"}))

	entry, err := GetCachedSearch(key)
	require.NoError(t, err)
	assert.Nil(t, entry)

	require.NoError(t, SaveCachedSearch(key, "토지", `{"page":"1"}`, `[{"bookname":"토지"}]`, 1, time.Hour))
	entry, err = GetCachedSearch(key)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 1, entry.ResultCount)
	assert.Equal(t, `[{"bookname":"토지"}]`, entry.ResultsJSON)

	require.NoError(t, SaveCachedSearch("stale", "old", "", "[]", 0, -time.Minute))
	total, expired, err := GetCacheStats()
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, expired)

	stale, err := GetCachedSearch("stale")
	require.NoError(t, err)
	assert.Nil(t, stale)

	n, err := CleanExpiredCache()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, ClearSearchCache())
	total, _, err = GetCacheStats()
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSearchHistory(t *testing.T) {
	setupDB(t)

	require.NoError(t, AddSearchHistory("토지", 12))
	require.NoError(t, AddSearchHistory("코스모스", 3))
	require.NoError(t, AddSearchHistory("토지", 14))

	history, err := GetUniqueSearchHistory(10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "토지", history[0].Query)
	assert.Equal(t, 14, history[0].ResultCount)

	require.NoError(t, ClearSearchHistory())
	history, err = GetUniqueSearchHistory(10)
	require.NoError(t, err)
	assert.Empty(t, history)
}
