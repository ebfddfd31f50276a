package db

import (
	"crypto/sha256"
	"database/sql"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// SearchCacheEntry represents a cached upstream search result
type SearchCacheEntry struct {
	ID          int64
	CacheKey    string
	Query       string
	Filters     string
	ResultsJSON string
	ResultCount int
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// GenerateCacheKey generates a unique cache key from query and filters
func GenerateCacheKey(query string, filters map[string]string) string {
	data := query
	if filters != nil {
		filterJSON, _ := json.Marshal(filters) // map keys are sorted
		data += string(filterJSON)
	}
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash[:16]) // Use first 16 bytes for shorter key
}

// GetCachedSearch retrieves a cached search result if it hasn't expired
func GetCachedSearch(cacheKey string) (*SearchCacheEntry, error) {
	entry := &SearchCacheEntry{}
	var filters sql.NullString
	err := database.QueryRow(`
		SELECT id, cache_key, query, filters, results_json, result_count, created_at, expires_at
		FROM search_cache
		WHERE cache_key = ? AND expires_at > ?`, cacheKey, time.Now().UTC()).Scan(
		&entry.ID, &entry.CacheKey, &entry.Query, &filters,
		&entry.ResultsJSON, &entry.ResultCount, &entry.CreatedAt, &entry.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil // Cache miss
	}
	if err != nil {
		return nil, err
	}
	entry.Filters = filters.String
	return entry, nil
}

// SaveCachedSearch saves a search result to cache
func SaveCachedSearch(cacheKey, query, filters string, resultsJSON string, resultCount int, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := database.Exec(`
		INSERT OR REPLACE INTO search_cache (cache_key, query, filters, results_json, result_count, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		cacheKey, query, filters, resultsJSON, resultCount, now, now.Add(ttl))
	return err
}

// CleanExpiredCache removes expired cache entries
func CleanExpiredCache() (int64, error) {
	result, err := database.Exec(`DELETE FROM search_cache WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ClearSearchCache clears all cached search results
func ClearSearchCache() error {
	_, err := database.Exec(`DELETE FROM search_cache`)
	return err
}

// GetCacheStats returns cache statistics
func GetCacheStats() (total int, expired int, err error) {
	err = database.QueryRow(`SELECT COUNT(*) FROM search_cache`).Scan(&total)
	if err != nil {
		return 0, 0, err
	}

	err = database.QueryRow(`SELECT COUNT(*) FROM search_cache WHERE expires_at <= ?`, time.Now().UTC()).Scan(&expired)
	if err != nil {
		return total, 0, err
	}

	return total, expired, nil
}
