package db

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/billmal071/narubooks/internal/config"
	_ "modernc.org/sqlite"
)

var database *sql.DB

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id               TEXT PRIMARY KEY,
    region           TEXT NOT NULL,
    status           TEXT DEFAULT 'running',
    libraries        INTEGER DEFAULT 0,
    libraries_failed INTEGER DEFAULT 0,
    collected        INTEGER DEFAULT 0,
    unique_books     INTEGER DEFAULT 0,
    duplicates       INTEGER DEFAULT 0,
    output_path      TEXT,
    error_message    TEXT,
    started_at       DATETIME NOT NULL,
    finished_at      DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

CREATE TABLE IF NOT EXISTS search_cache (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    cache_key       TEXT UNIQUE NOT NULL,
    query           TEXT NOT NULL,
    filters         TEXT,
    results_json    TEXT NOT NULL,
    result_count    INTEGER DEFAULT 0,
    created_at      DATETIME NOT NULL,
    expires_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_search_cache_expires ON search_cache(expires_at);

CREATE TABLE IF NOT EXISTS search_history (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    query           TEXT NOT NULL,
    result_count    INTEGER DEFAULT 0,
    created_at      DATETIME NOT NULL
);
`

// Init opens the database at the configured location
func Init() error {
	return InitAt(config.GetDBPath())
}

// InitAt opens (creating if needed) the database at dbPath and applies the schema
func InitAt(dbPath string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}

	// One writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return err
	}

	if database != nil {
		database.Close()
	}
	database = db
	return nil
}

// DB returns the database connection
func DB() *sql.DB {
	return database
}

// Ready reports whether Init succeeded
func Ready() bool {
	return database != nil
}

// Close closes the database connection
func Close() error {
	if database != nil {
		err := database.Close()
		database = nil
		return err
	}
	return nil
}
