package database

import (
	"database/sql"
	"fmt"
	"time"
)

// HasJobRunSince reports whether a job of the given type was recorded at or
// after the given instant. Used by the cron trigger to avoid redundant
// same-day runs; the sweep itself is idempotent either way.
func HasJobRunSince(db *sql.DB, jobType string, since time.Time) (bool, error) {
	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM cron_jobs WHERE type = ? AND created_at >= ?`,
		jobType, FormatTime(since),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query cron jobs: %w", err)
	}

	return count > 0, nil
}

// RecordJobRun inserts a sentinel row marking a job launch
func RecordJobRun(db *sql.DB, jobType string) error {
	if _, err := db.Exec(
		`INSERT INTO cron_jobs (type, created_at) VALUES (?, ?)`,
		jobType, FormatTime(time.Now()),
	); err != nil {
		return fmt.Errorf("failed to record cron job: %w", err)
	}

	return nil
}

// PruneJobsBefore removes sentinel rows older than the given instant
func PruneJobsBefore(db *sql.DB, t time.Time) error {
	if _, err := db.Exec(`DELETE FROM cron_jobs WHERE created_at < ?`, FormatTime(t)); err != nil {
		return fmt.Errorf("failed to prune cron jobs: %w", err)
	}

	return nil
}
