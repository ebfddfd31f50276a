package db

import (
	"time"
)

// SearchHistory represents a past live search
type SearchHistory struct {
	ID          int64
	Query       string
	ResultCount int
	CreatedAt   time.Time
}

// AddSearchHistory adds a search to history
func AddSearchHistory(query string, resultCount int) error {
	_, err := database.Exec(`
		INSERT INTO search_history (query, result_count, created_at)
		VALUES (?, ?, ?)`,
		query, resultCount, time.Now().UTC(),
	)
	return err
}

// GetUniqueSearchHistory retrieves unique recent searches (no duplicates)
func GetUniqueSearchHistory(limit int) ([]*SearchHistory, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := database.Query(`
		SELECT id, query, result_count, created_at
		FROM search_history
		WHERE id IN (
			SELECT MAX(id) FROM search_history GROUP BY query
		)
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []*SearchHistory
	for rows.Next() {
		h := &SearchHistory{}
		if err := rows.Scan(&h.ID, &h.Query, &h.ResultCount, &h.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// ClearSearchHistory removes all search history
func ClearSearchHistory() error {
	_, err := database.Exec(`DELETE FROM search_history`)
	return err
}
