package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/mgoubin/screendrop/internal/middleware"
	"github.com/mgoubin/screendrop/internal/quota"
)

// StorageInfoHandler handles GET /api/storage - report the caller's
// storage usage against their limit.
func StorageInfoHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			sendError(w, "Method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed)
			return
		}

		user := middleware.UserFromContext(r.Context())
		if user == nil {
			sendError(w, "Unauthorized", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		info, err := quota.GetInfo(db, user)
		if err != nil {
			slog.Error("failed to get storage info", "error", err, "user_id", user.ID)
			sendError(w, "Internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
			return
		}

		sendJSON(w, http.StatusOK, info)
	}
}
