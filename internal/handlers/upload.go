package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/singleflight"

	"github.com/mgoubin/screendrop/internal/config"
	"github.com/mgoubin/screendrop/internal/database"
	"github.com/mgoubin/screendrop/internal/imaging"
	"github.com/mgoubin/screendrop/internal/metrics"
	"github.com/mgoubin/screendrop/internal/middleware"
	"github.com/mgoubin/screendrop/internal/models"
	"github.com/mgoubin/screendrop/internal/quota"
	"github.com/mgoubin/screendrop/internal/storage"
	"github.com/mgoubin/screendrop/internal/utils"
)

const (
	// maxChunkBytes caps a single chunk request body (chunk + form overhead)
	maxChunkBytes = 20*1024*1024 + 1024

	// tokenRetries is how many times token generation is retried on a
	// download_token uniqueness collision
	tokenRetries = 5
)

// assemblyGroup ensures exactly one request assembles a given upload
// session even when the final chunks arrive concurrently.
var assemblyGroup singleflight.Group

// uploadError carries a client-facing message and stable code out of
// the assembly path.
type uploadError struct {
	message string
	code    string
	status  int
}

func (e *uploadError) Error() string { return e.message }

// UploadChunkHandler handles POST /api/upload - receive one chunk of a
// chunked upload. When the arriving chunk completes the declared set,
// the file is assembled, transcoded, stored, and registered in one
// step.
func UploadChunkHandler(db *sql.DB, cfg *config.Config, backend storage.Backend) http.HandlerFunc {
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

		r.Body = http.MaxBytesReader(w, r.Body, maxChunkBytes)
		if err := r.ParseMultipartForm(maxChunkBytes); err != nil {
			sendError(w, "Chunk too large or invalid form data", "CHUNK_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return
		}

		uploadID := r.FormValue("upload_id")
		if uploadID == "" {
			sendError(w, "upload_id is required", "MISSING_UPLOAD_ID", http.StatusBadRequest)
			return
		}
		if strings.Contains(uploadID, "..") || strings.ContainsAny(uploadID, "/\\") {
			sendError(w, "Invalid upload_id", "INVALID_UPLOAD_ID", http.StatusBadRequest)
			return
		}

		chunkIndex, err := strconv.Atoi(r.FormValue("chunk_index"))
		if err != nil || chunkIndex < 0 {
			sendError(w, "Invalid chunk_index", "INVALID_CHUNK_INDEX", http.StatusBadRequest)
			return
		}

		totalChunks, err := strconv.Atoi(r.FormValue("total_chunks"))
		if err != nil || totalChunks < 1 {
			sendError(w, "Invalid total_chunks", "INVALID_TOTAL_CHUNKS", http.StatusBadRequest)
			return
		}

		if chunkIndex >= totalChunks {
			sendError(w,
				fmt.Sprintf("Chunk index %d exceeds total chunks %d", chunkIndex, totalChunks),
				"CHUNK_INDEX_OUT_OF_RANGE",
				http.StatusBadRequest,
			)
			return
		}

		originalName := utils.SanitizeFilename(r.FormValue("original_name"))
		if originalName == "" {
			sendError(w, "original_name is required", "MISSING_ORIGINAL_NAME", http.StatusBadRequest)
			return
		}

		originalSize, err := strconv.ParseInt(r.FormValue("original_size"), 10, 64)
		if err != nil || originalSize < 0 {
			sendError(w, "Invalid original_size", "INVALID_ORIGINAL_SIZE", http.StatusBadRequest)
			return
		}

		chunkFile, _, err := r.FormFile("chunk")
		if err != nil {
			sendError(w, "No chunk file provided", "NO_CHUNK", http.StatusBadRequest)
			return
		}
		defer chunkFile.Close()

		if _, err := utils.SaveChunk(cfg.UploadDir, user.ID, uploadID, chunkIndex, chunkFile); err != nil {
			slog.Error("failed to save chunk",
				"error", err,
				"upload_id", uploadID,
				"chunk_index", chunkIndex,
				"user_id", user.ID,
			)
			sendError(w, "Failed to save chunk", "CHUNK_SAVE_FAILED", http.StatusInternalServerError)
			return
		}
		metrics.ChunksTotal.Inc()

		count, err := utils.CountChunks(cfg.UploadDir, user.ID, uploadID)
		if err != nil {
			slog.Error("failed to count chunks", "error", err, "upload_id", uploadID)
			sendError(w, "Internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
			return
		}

		if count < totalChunks {
			sendJSON(w, http.StatusOK, models.ChunkPartialResponse{
				Status:         "partial",
				Message:        "Chunk received",
				UploadID:       uploadID,
				UploadedChunks: count,
				TotalChunks:    totalChunks,
			})
			return
		}

		// All chunks present. The singleflight key makes concurrent
		// final chunks share one assembly; losers get the same result.
		key := fmt.Sprintf("%d/%s", user.ID, uploadID)
		result, err, _ := assemblyGroup.Do(key, func() (any, error) {
			return completeUpload(r, db, cfg, backend, user, uploadID, totalChunks, originalName, originalSize)
		})
		if err != nil {
			var ue *uploadError
			if errors.As(err, &ue) {
				sendError(w, ue.message, ue.code, ue.status)
				return
			}
			slog.Error("failed to complete upload",
				"error", err,
				"upload_id", uploadID,
				"user_id", user.ID,
			)
			metrics.UploadsTotal.WithLabelValues("failure").Inc()
			sendError(w, "Failed to complete upload", "UPLOAD_FAILED", http.StatusInternalServerError)
			return
		}

		sendJSON(w, http.StatusCreated, result)
	}
}

// completeUpload runs once per upload session: quota check, chunk
// assembly, image transcode, storage handoff, and metadata insert. On
// any failure other than quota the staging directory is left intact so
// the client can retry the final chunk.
func completeUpload(
	r *http.Request,
	db *sql.DB,
	cfg *config.Config,
	backend storage.Backend,
	user *models.User,
	uploadID string,
	totalChunks int,
	originalName string,
	originalSize int64,
) (*models.ChunkCompletedResponse, error) {
	enough, err := quota.HasEnoughStorage(db, user, originalSize)
	if err != nil {
		return nil, fmt.Errorf("failed to check storage quota: %w", err)
	}
	if !enough {
		available, err := quota.GetAvailable(db, user)
		if err != nil {
			return nil, fmt.Errorf("failed to get available storage: %w", err)
		}

		// A rejected upload frees its staging immediately rather than
		// waiting for the stale-staging sweep.
		if err := utils.DeleteStaging(cfg.UploadDir, user.ID, uploadID); err != nil {
			slog.Warn("failed to remove staging after quota rejection", "error", err, "upload_id", uploadID)
		}

		slog.Warn("upload rejected - storage limit exceeded",
			"user_id", user.ID,
			"available", available,
			"requested", originalSize,
		)
		metrics.UploadsTotal.WithLabelValues("quota_exceeded").Inc()

		return nil, &uploadError{
			message: fmt.Sprintf("You have %s of storage space left and you want to upload %s.",
				utils.FormatFileSize(available), utils.FormatFileSize(originalSize)),
			code:   "STORAGE_LIMIT_EXCEEDED",
			status: http.StatusBadRequest,
		}
	}

	destPath := utils.UniqueFilename(filepath.Join(utils.UserDir(cfg.UploadDir, user.ID), originalName))

	if _, err := utils.AssembleChunks(cfg.UploadDir, user.ID, uploadID, totalChunks, destPath); err != nil {
		return nil, fmt.Errorf("failed to assemble chunks: %w", err)
	}

	mtype, err := mimetype.DetectFile(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to detect file type: %w", err)
	}

	finalPath, err := imaging.Transcode(destPath, mtype.String())
	if err != nil {
		metrics.TranscodesTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("failed to transcode image: %w", err)
	}
	if finalPath != destPath {
		metrics.TranscodesTotal.WithLabelValues("converted").Inc()
	} else {
		metrics.TranscodesTotal.WithLabelValues("skipped").Inc()
	}

	info, err := os.Stat(finalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat assembled file: %w", err)
	}

	mimeType := "application/octet-stream"
	if mtype, err := mimetype.DetectFile(finalPath); err == nil {
		mimeType = mtype.String()
	}

	storageKey := fmt.Sprintf("%d/%s", user.ID, filepath.Base(finalPath))
	remoteKey, err := backend.SaveFile(r.Context(), finalPath, storageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	file := &models.File{
		UserID:       user.ID,
		OriginalName: filepath.Base(finalPath),
		FilePath:     finalPath,
		MimeType:     mimeType,
		Size:         info.Size(),
	}
	if cfg.ExpiryDays > 0 {
		expiresAt := time.Now().UTC().Add(time.Duration(cfg.ExpiryDays) * 24 * time.Hour)
		file.ExpiresAt = &expiresAt
	}
	if remoteKey != "" {
		file.RemoteKey = &remoteKey
	}

	if err := insertWithFreshToken(db, file); err != nil {
		return nil, err
	}

	// Give any straggler duplicate chunk requests a moment to finish
	// before the staging directory disappears under them.
	utils.ScheduleStagingCleanup(cfg.UploadDir, user.ID, uploadID)

	slog.Info("upload completed",
		"file_id", file.ID,
		"user_id", user.ID,
		"name", file.OriginalName,
		"size", file.Size,
		"mime_type", file.MimeType,
	)
	metrics.UploadsTotal.WithLabelValues("success").Inc()

	return &models.ChunkCompletedResponse{
		Status:        "completed",
		Message:       "File uploaded successfully",
		FileID:        file.ID,
		DownloadToken: file.DownloadToken,
		OriginalName:  file.OriginalName,
		ViewURL:       buildViewURL(r, cfg, file.DownloadToken),
	}, nil
}

// insertWithFreshToken creates the file row, regenerating the download
// token on the unlikely event of a uniqueness collision.
func insertWithFreshToken(db *sql.DB, file *models.File) error {
	var lastErr error
	for i := 0; i < tokenRetries; i++ {
		token, err := utils.GenerateDownloadToken()
		if err != nil {
			return fmt.Errorf("failed to generate download token: %w", err)
		}
		file.DownloadToken = token

		if err := database.CreateFile(db, file); err != nil {
			if strings.Contains(err.Error(), "UNIQUE") {
				lastErr = err
				continue
			}
			return fmt.Errorf("failed to create file record: %w", err)
		}
		return nil
	}
	return fmt.Errorf("failed to create file record after %d token retries: %w", tokenRetries, lastErr)
}
