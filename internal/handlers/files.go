package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/mgoubin/screendrop/internal/config"
	"github.com/mgoubin/screendrop/internal/database"
	"github.com/mgoubin/screendrop/internal/middleware"
	"github.com/mgoubin/screendrop/internal/models"
	"github.com/mgoubin/screendrop/internal/storage"
)

// ListFilesHandler handles GET /api/files - list the caller's files,
// newest first. Without a limit param every file is returned.
func ListFilesHandler(db *sql.DB, cfg *config.Config) http.HandlerFunc {
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

		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				sendError(w, "Invalid limit", "INVALID_LIMIT", http.StatusBadRequest)
				return
			}
			limit = n
		}

		files, err := database.ListFilesByUser(db, user.ID, limit)
		if err != nil {
			slog.Error("failed to list files", "error", err, "user_id", user.ID)
			sendError(w, "Internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
			return
		}

		infos := make([]models.FileInfo, 0, len(files))
		for _, f := range files {
			infos = append(infos, models.FileInfo{
				ID:            f.ID,
				OriginalName:  f.OriginalName,
				MimeType:      f.MimeType,
				Size:          f.Size,
				CreatedAt:     f.CreatedAt,
				ExpiresAt:     f.ExpiresAt,
				DownloadToken: f.DownloadToken,
				DownloadURL:   buildDownloadURL(r, cfg, f.DownloadToken),
				ViewURL:       buildViewURL(r, cfg, f.DownloadToken),
			})
		}

		sendJSON(w, http.StatusOK, infos)
	}
}

// fileFromPath resolves the {id} path element to a file owned by the
// calling user. Writes the error response itself and returns nil when
// the caller should stop.
func fileFromPath(w http.ResponseWriter, r *http.Request, db *sql.DB, user *models.User) *models.File {
	id, err := strconv.ParseInt(path.Base(r.URL.Path), 10, 64)
	if err != nil {
		sendError(w, "Invalid file id", "INVALID_FILE_ID", http.StatusBadRequest)
		return nil
	}

	file, err := database.GetFileByID(db, id, user.ID)
	if err != nil {
		slog.Error("failed to get file", "error", err, "file_id", id)
		sendError(w, "Internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
		return nil
	}
	if file == nil {
		// Also hit for files owned by someone else
		sendError(w, "File not found", "FILE_NOT_FOUND", http.StatusNotFound)
		return nil
	}

	return file
}

// DeleteFileHandler handles DELETE /api/files/{id} - remove the stored
// bytes and the metadata row. Owner only.
func DeleteFileHandler(db *sql.DB, cfg *config.Config, backend storage.Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			sendError(w, "Method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed)
			return
		}

		user := middleware.UserFromContext(r.Context())
		if user == nil {
			sendError(w, "Unauthorized", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		file := fileFromPath(w, r, db, user)
		if file == nil {
			return
		}

		if err := backend.Delete(r.Context(), file.StorageKey(), file.FilePath); err != nil {
			slog.Error("failed to delete stored file",
				"error", err,
				"file_id", file.ID,
				"key", file.StorageKey(),
			)
			sendError(w, "Failed to delete file", "DELETE_FAILED", http.StatusInternalServerError)
			return
		}

		if err := database.DeleteFileRow(db, file.ID); err != nil {
			slog.Error("failed to delete file row", "error", err, "file_id", file.ID)
			sendError(w, "Internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
			return
		}

		slog.Info("file deleted", "file_id", file.ID, "user_id", user.ID)
		sendJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"message": "File deleted",
		})
	}
}

// ToggleExpirationHandler handles POST /api/files/{id}/toggle-expiration -
// flip a file between expiring and permanent. Enabling expiry restarts
// the clock from now.
func ToggleExpirationHandler(db *sql.DB, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			sendError(w, "Method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed)
			return
		}

		user := middleware.UserFromContext(r.Context())
		if user == nil {
			sendError(w, "Unauthorized", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		// Path format: .../files/{id}/toggle-expiration
		if path.Base(r.URL.Path) != "toggle-expiration" {
			sendError(w, "Not found", "NOT_FOUND", http.StatusNotFound)
			return
		}

		idPath := path.Base(path.Dir(r.URL.Path))
		id, err := strconv.ParseInt(idPath, 10, 64)
		if err != nil {
			sendError(w, "Invalid file id", "INVALID_FILE_ID", http.StatusBadRequest)
			return
		}

		file, err := database.GetFileByID(db, id, user.ID)
		if err != nil {
			slog.Error("failed to get file", "error", err, "file_id", id)
			sendError(w, "Internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
			return
		}
		if file == nil {
			sendError(w, "File not found", "FILE_NOT_FOUND", http.StatusNotFound)
			return
		}

		var expiresAt *time.Time
		if file.ExpiresAt == nil {
			days := cfg.ExpiryDays
			if days <= 0 {
				days = 30
			}
			t := time.Now().UTC().Add(time.Duration(days) * 24 * time.Hour)
			expiresAt = &t
		}

		if err := database.SetFileExpiry(db, file.ID, expiresAt); err != nil {
			slog.Error("failed to update file expiry", "error", err, "file_id", file.ID)
			sendError(w, "Internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
			return
		}

		sendJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"expiresAt": expiresAt,
		})
	}
}
