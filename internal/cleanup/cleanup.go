// Package cleanup removes expired files and abandoned staging
// directories. It runs both from a background ticker and on demand via
// the cron endpoint.
package cleanup

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mgoubin/screendrop/internal/database"
	"github.com/mgoubin/screendrop/internal/metrics"
	"github.com/mgoubin/screendrop/internal/storage"
)

// JobTypeExpirySweep is the cron_jobs row type recorded when a sweep
// is launched through the cron endpoint.
const JobTypeExpirySweep = "expiry_sweep"

// SweepExpiredFiles deletes every file whose expires_at is in the
// past. For each file the stored bytes are removed first, then the
// database row. A failure on one file does not stop the sweep.
// Returns the number of rows deleted.
func SweepExpiredFiles(ctx context.Context, db *sql.DB, backend storage.Backend) (int, error) {
	expired, err := database.GetExpiredFiles(db, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, f := range expired {
		if err := backend.Delete(ctx, f.StorageKey(), f.FilePath); err != nil {
			slog.Error("failed to delete expired file bytes",
				"file_id", f.ID,
				"key", f.StorageKey(),
				"error", err,
			)
			// The row stays so the next sweep retries the delete
			continue
		}

		if err := database.DeleteFileRow(db, f.ID); err != nil {
			slog.Error("failed to delete expired file row",
				"file_id", f.ID,
				"error", err,
			)
			continue
		}

		deleted++
		metrics.ExpiredFilesDeletedTotal.Inc()
	}

	return deleted, nil
}

// SweepStaleStaging removes staging directories whose contents have not
// been touched for longer than maxAge. Covers uploads that were
// abandoned before all chunks arrived.
func SweepStaleStaging(uploadDir string, maxAge time.Duration) (int, error) {
	userDirs, err := os.ReadDir(uploadDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, userDir := range userDirs {
		if !userDir.IsDir() {
			continue
		}

		userPath := filepath.Join(uploadDir, userDir.Name())
		entries, err := os.ReadDir(userPath)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			// Staging sessions are directories, finished files are not
			if !entry.IsDir() {
				continue
			}

			stagingPath := filepath.Join(userPath, entry.Name())
			if newestModTime(stagingPath).After(cutoff) {
				continue
			}

			if err := os.RemoveAll(stagingPath); err != nil {
				slog.Error("failed to remove stale staging directory",
					"path", stagingPath,
					"error", err,
				)
				continue
			}

			removed++
			metrics.StagingDirsReapedTotal.Inc()
		}
	}

	return removed, nil
}

// newestModTime returns the most recent modification time of the
// directory or any file directly inside it. A chunk written moments
// ago keeps the whole session alive.
func newestModTime(dir string) time.Time {
	newest := time.Time{}
	if info, err := os.Stat(dir); err == nil {
		newest = info.ModTime()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return newest
	}

	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}

	return newest
}

// StartCleanupWorker starts a background goroutine that periodically
// sweeps expired files, stale staging directories, and expired
// sessions.
func StartCleanupWorker(ctx context.Context, db *sql.DB, backend storage.Backend, uploadDir string, intervalMinutes, stagingMaxAgeHours int) {
	ticker := time.NewTicker(time.Duration(intervalMinutes) * time.Minute)
	defer ticker.Stop()

	slog.Info("cleanup worker started", "interval_minutes", intervalMinutes)

	stagingMaxAge := time.Duration(stagingMaxAgeHours) * time.Hour

	// Run once immediately on start
	runSweep(ctx, db, backend, uploadDir, stagingMaxAge)

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup worker shutting down")
			return
		case <-ticker.C:
			runSweep(ctx, db, backend, uploadDir, stagingMaxAge)
		}
	}
}

func runSweep(ctx context.Context, db *sql.DB, backend storage.Backend, uploadDir string, stagingMaxAge time.Duration) {
	start := time.Now()

	deleted, err := SweepExpiredFiles(ctx, db, backend)
	if err != nil {
		slog.Error("expiry sweep failed", "error", err)
	}

	reaped, err := SweepStaleStaging(uploadDir, stagingMaxAge)
	if err != nil {
		slog.Error("staging sweep failed", "error", err)
	}

	if err := database.DeleteExpiredSessions(db); err != nil {
		slog.Error("session cleanup failed", "error", err)
	}

	level := slog.LevelDebug
	if deleted > 0 || reaped > 0 {
		level = slog.LevelInfo
	}
	slog.Log(ctx, level, "cleanup completed",
		"deleted_files", deleted,
		"reaped_staging_dirs", reaped,
		"duration", time.Since(start),
	)
}
