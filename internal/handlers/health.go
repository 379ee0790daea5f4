package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/mgoubin/screendrop/internal/database"
	"github.com/mgoubin/screendrop/internal/models"
)

var startTime = time.Now()

// HealthHandler handles GET /api/health - basic liveness plus a few
// aggregate stats.
func HealthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			sendError(w, "Method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed)
			return
		}

		totalFiles, storageUsed, err := database.GetStats(db)
		if err != nil {
			slog.Error("failed to get stats", "error", err)
			sendError(w, "Database unavailable", "DB_UNAVAILABLE", http.StatusServiceUnavailable)
			return
		}

		sendJSON(w, http.StatusOK, models.HealthResponse{
			Status:           "ok",
			UptimeSeconds:    int64(time.Since(startTime).Seconds()),
			TotalFiles:       totalFiles,
			StorageUsedBytes: storageUsed,
		})
	}
}
