package handlers

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/mgoubin/screendrop/internal/config"
	"github.com/mgoubin/screendrop/internal/database"
	"github.com/mgoubin/screendrop/internal/metrics"
	"github.com/mgoubin/screendrop/internal/models"
	"github.com/mgoubin/screendrop/internal/storage"
)

// inlineViewable lists MIME types browsers can render directly. A view
// request for anything else is redirected to the download endpoint.
var inlineViewable = map[string]bool{
	"image/jpeg":             true,
	"image/png":              true,
	"image/gif":              true,
	"image/webp":             true,
	"image/svg+xml":          true,
	"image/avif":             true,
	"application/pdf":        true,
	"text/plain":             true,
	"text/html":              true,
	"text/css":               true,
	"text/javascript":        true,
	"application/json":       true,
	"video/mp4":              true,
	"video/webm":             true,
	"audio/mpeg":             true,
	"audio/wav":              true,
	"audio/webm":             true,
}

// lookupServableFile resolves a download token to a file that is still
// live. Expired files 404 even before the sweep removes them.
func lookupServableFile(db *sql.DB, token string) (*models.File, error) {
	file, err := database.GetFileByToken(db, token)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, nil
	}
	if file.ExpiresAt != nil && file.ExpiresAt.Before(time.Now().UTC()) {
		return nil, nil
	}
	return file, nil
}

// DownloadHandler handles GET /api/files/download/{token} - serve the
// file as an attachment. No authentication, the token is the secret.
func DownloadHandler(db *sql.DB, cfg *config.Config, backend storage.Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			sendError(w, "Method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed)
			return
		}

		token := path.Base(r.URL.Path)

		file, err := lookupServableFile(db, token)
		if err != nil {
			slog.Error("failed to look up file", "error", err)
			sendError(w, "Internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
			return
		}
		if file == nil {
			metrics.DownloadsTotal.WithLabelValues("not_found").Inc()
			sendError(w, "File not found", "FILE_NOT_FOUND", http.StatusNotFound)
			return
		}

		body, err := backend.Retrieve(r.Context(), file.StorageKey(), file.FilePath)
		if err != nil {
			// Row exists but the bytes are gone
			slog.Warn("stored file missing",
				"file_id", file.ID,
				"key", file.StorageKey(),
				"error", err,
			)
			metrics.DownloadsTotal.WithLabelValues("not_found").Inc()
			sendError(w, "File not found", "FILE_NOT_FOUND", http.StatusNotFound)
			return
		}
		defer body.Close()

		w.Header().Set("Content-Type", file.MimeType)
		w.Header().Set("Content-Length", fmt.Sprintf("%d", file.Size))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.OriginalName))

		if r.Method == http.MethodHead {
			metrics.DownloadsTotal.WithLabelValues("success").Inc()
			return
		}

		if _, err := io.Copy(w, body); err != nil {
			slog.Warn("download interrupted", "file_id", file.ID, "error", err)
			return
		}
		metrics.DownloadsTotal.WithLabelValues("success").Inc()
	}
}

// ViewHandler handles GET /api/files/view/{token} - serve the file
// inline when the browser can render it, otherwise redirect to the
// download endpoint.
func ViewHandler(db *sql.DB, cfg *config.Config, backend storage.Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			sendError(w, "Method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed)
			return
		}

		token := path.Base(r.URL.Path)

		file, err := lookupServableFile(db, token)
		if err != nil {
			slog.Error("failed to look up file", "error", err)
			sendError(w, "Internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
			return
		}
		if file == nil {
			metrics.ViewsTotal.WithLabelValues("not_found").Inc()
			sendError(w, "File not found", "FILE_NOT_FOUND", http.StatusNotFound)
			return
		}

		mediaType := file.MimeType
		if parsed, _, err := mime.ParseMediaType(file.MimeType); err == nil {
			mediaType = parsed
		}

		if !inlineViewable[mediaType] {
			metrics.ViewsTotal.WithLabelValues("redirect").Inc()
			http.Redirect(w, r, buildDownloadURL(r, cfg, file.DownloadToken), http.StatusFound)
			return
		}

		body, err := backend.Retrieve(r.Context(), file.StorageKey(), file.FilePath)
		if err != nil {
			slog.Warn("stored file missing",
				"file_id", file.ID,
				"key", file.StorageKey(),
				"error", err,
			)
			metrics.ViewsTotal.WithLabelValues("not_found").Inc()
			sendError(w, "File not found", "FILE_NOT_FOUND", http.StatusNotFound)
			return
		}
		defer body.Close()

		w.Header().Set("Content-Type", file.MimeType)
		w.Header().Set("Content-Length", fmt.Sprintf("%d", file.Size))
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", file.OriginalName))

		if _, err := io.Copy(w, body); err != nil {
			slog.Warn("view interrupted", "file_id", file.ID, "error", err)
			return
		}
		metrics.ViewsTotal.WithLabelValues("success").Inc()
	}
}
