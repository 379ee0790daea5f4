package handlers

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/mgoubin/screendrop/internal/cleanup"
	"github.com/mgoubin/screendrop/internal/config"
	"github.com/mgoubin/screendrop/internal/database"
	"github.com/mgoubin/screendrop/internal/models"
	"github.com/mgoubin/screendrop/internal/storage"
)

// jobHistoryRetention is how long cron_jobs sentinel rows are kept
const jobHistoryRetention = 30 * 24 * time.Hour

// CronHandler handles GET /api/cron - trigger the daily expiry sweep
// from an external scheduler. The sentinel row in cron_jobs makes the
// endpoint idempotent per day, so overlapping schedulers launch the
// sweep only once.
func CronHandler(db *sql.DB, cfg *config.Config, backend storage.Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			sendError(w, "Method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed)
			return
		}

		if cfg.CronSecret == "" || r.Header.Get("Authorization") != "Bearer "+cfg.CronSecret {
			slog.Warn("cron trigger rejected", "ip", getClientIP(r))
			sendError(w, "Unauthorized", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		now := time.Now().UTC()
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

		ran, err := database.HasJobRunSince(db, cleanup.JobTypeExpirySweep, midnight)
		if err != nil {
			slog.Error("failed to check job history", "error", err)
			sendError(w, "Internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
			return
		}

		resp := models.CronJobsResponse{
			Status:              "ok",
			JobsLaunched:        []string{},
			JobsAlreadyLaunched: []string{},
		}

		if ran {
			resp.JobsAlreadyLaunched = append(resp.JobsAlreadyLaunched, cleanup.JobTypeExpirySweep)
			sendJSON(w, http.StatusOK, resp)
			return
		}

		if err := database.RecordJobRun(db, cleanup.JobTypeExpirySweep); err != nil {
			slog.Error("failed to record job run", "error", err)
			sendError(w, "Internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
			return
		}

		// The sweep can take a while on large accounts, so it runs
		// detached from the request.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			deleted, err := cleanup.SweepExpiredFiles(ctx, db, backend)
			if err != nil {
				slog.Error("cron expiry sweep failed", "error", err)
				return
			}
			slog.Info("cron expiry sweep completed", "deleted_files", deleted)

			if err := database.PruneJobsBefore(db, time.Now().UTC().Add(-jobHistoryRetention)); err != nil {
				slog.Error("failed to prune job history", "error", err)
			}
		}()

		resp.JobsLaunched = append(resp.JobsLaunched, cleanup.JobTypeExpirySweep)
		sendJSON(w, http.StatusOK, resp)
	}
}
