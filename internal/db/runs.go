package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the outcome of a collection run
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunOK      RunStatus = "ok"
	RunPartial RunStatus = "partial" // some libraries failed
	RunFailed  RunStatus = "failed"
)

// Run is one recorded collection run
type Run struct {
	ID              string
	Region          string
	Status          RunStatus
	Libraries       int
	LibrariesFailed int
	Collected       int
	Unique          int
	Duplicates      int
	OutputPath      string
	ErrorMessage    string
	StartedAt       time.Time
	FinishedAt      *time.Time
}

// Duration returns how long the run took, or 0 while it is still running
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StartRun records a new running collection and returns it
func StartRun(region string) (*Run, error) {
	r := &Run{
		ID:        uuid.NewString(),
		Region:    region,
		Status:    RunRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := database.Exec(`
		INSERT INTO runs (id, region, status, started_at)
		VALUES (?, ?, ?, ?)`,
		r.ID, r.Region, r.Status, r.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	return r, nil
}

// FinishRun stores the final counters and status of r
func FinishRun(r *Run) error {
	now := time.Now().UTC()
	r.FinishedAt = &now
	_, err := database.Exec(`
		UPDATE runs SET
			status = ?, libraries = ?, libraries_failed = ?, collected = ?,
			unique_books = ?, duplicates = ?, output_path = ?, error_message = ?,
			finished_at = ?
		WHERE id = ?`,
		r.Status, r.Libraries, r.LibrariesFailed, r.Collected,
		r.Unique, r.Duplicates, r.OutputPath, r.ErrorMessage,
		now, r.ID,
	)
	return err
}

// GetRun retrieves a run by id or unique id prefix
func GetRun(id string) (*Run, error) {
	rows, err := database.Query(runSelect+` WHERE id LIKE ? ORDER BY started_at DESC LIMIT 2`, id+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	switch len(runs) {
	case 0:
		return nil, nil
	case 1:
		return runs[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
}

// ListRuns returns the most recent runs first
func ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := database.Query(runSelect+` ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

// LastSuccessfulRun returns the latest run that wrote a snapshot
func LastSuccessfulRun() (*Run, error) {
	rows, err := database.Query(runSelect+` WHERE status IN (?, ?) ORDER BY started_at DESC LIMIT 1`, RunOK, RunPartial)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs, err := scanRuns(rows)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return runs[0], nil
}

// DeleteRunsOlderThan removes runs started before now minus d
func DeleteRunsOlderThan(d time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-d)
	result, err := database.Exec(`DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const runSelect = `
	SELECT id, region, status, libraries, libraries_failed, collected,
	       unique_books, duplicates, output_path, error_message, started_at, finished_at
	FROM runs`

func scanRuns(rows *sql.Rows) ([]*Run, error) {
	var runs []*Run
	for rows.Next() {
		r := &Run{}
		var outputPath, errMsg sql.NullString
		var finished sql.NullTime
		err := rows.Scan(
			&r.ID, &r.Region, &r.Status, &r.Libraries, &r.LibrariesFailed, &r.Collected,
			&r.Unique, &r.Duplicates, &outputPath, &errMsg, &r.StartedAt, &finished,
		)
		if err != nil {
			return nil, err
		}
		r.OutputPath = outputPath.String
		r.ErrorMessage = errMsg.String
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
