package utils

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// chunkBufferSize is the buffer size for chunk assembly.
	// Large enough to keep syscall overhead low on multi-megabyte chunks.
	chunkBufferSize = 4 * 1024 * 1024

	// stagingCleanupDelay is how long to wait after a successful assembly
	// before removing the staging directory. Not a correctness requirement,
	// just a buffer for trailing reads from retried chunk requests.
	stagingCleanupDelay = time.Second
)

// UserDir returns the directory holding a user's finished artifacts
func UserDir(uploadDir string, userID int64) string {
	return filepath.Join(uploadDir, strconv.FormatInt(userID, 10))
}

// StagingDir returns the staging directory for one logical upload.
// Scoping by {userID}/{uploadID} keeps concurrent uploads isolated.
func StagingDir(uploadDir string, userID int64, uploadID string) string {
	return filepath.Join(UserDir(uploadDir, userID), uploadID)
}

// ChunkPath returns the file path for a specific chunk
func ChunkPath(uploadDir string, userID int64, uploadID string, index int) string {
	return filepath.Join(StagingDir(uploadDir, userID, uploadID), fmt.Sprintf("chunk_%d", index))
}

// SaveChunk writes one chunk to the staging directory, creating parent
// directories on the first write. Distinct indices write distinct files, so
// concurrent calls for the same upload need no coordination beyond the
// filesystem.
func SaveChunk(uploadDir string, userID int64, uploadID string, index int, data io.Reader) (int64, error) {
	dir := StagingDir(uploadDir, userID, uploadID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create staging directory: %w", err)
	}

	chunkPath := ChunkPath(uploadDir, userID, uploadID, index)
	file, err := os.OpenFile(chunkPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to create chunk file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, data)
	if err != nil {
		return 0, fmt.Errorf("failed to write chunk data: %w", err)
	}

	// No Sync here: chunks are retryable if the process dies before flush.

	slog.Debug("chunk saved",
		"upload_id", uploadID,
		"user_id", userID,
		"chunk_index", index,
		"size", written,
	)

	return written, nil
}

// CountChunks returns the number of chunk files present for an upload.
// The directory listing is the session state; nothing else tracks arrival.
func CountChunks(uploadDir string, userID int64, uploadID string) (int, error) {
	dir := StagingDir(uploadDir, userID, uploadID)

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read staging directory: %w", err)
	}

	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			count++
		}
	}

	return count, nil
}

// AssembleChunks concatenates chunks 0..totalChunks-1 in strict index order
// into destPath and returns the bytes written. Directory iteration order is
// never used for ordering. On failure the partial destination is removed and
// the staging directory is left intact for a retry.
func AssembleChunks(uploadDir string, userID int64, uploadID string, totalChunks int, destPath string) (int64, error) {
	start := time.Now()

	out, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	writer := bufio.NewWriterSize(out, chunkBufferSize)

	var written int64
	for i := 0; i < totalChunks; i++ {
		chunk, err := os.Open(ChunkPath(uploadDir, userID, uploadID, i))
		if err != nil {
			os.Remove(destPath)
			return 0, fmt.Errorf("failed to open chunk %d: %w", i, err)
		}

		n, err := io.Copy(writer, chunk)
		chunk.Close()
		if err != nil {
			os.Remove(destPath)
			return 0, fmt.Errorf("failed to copy chunk %d: %w", i, err)
		}

		written += n
	}

	if err := writer.Flush(); err != nil {
		os.Remove(destPath)
		return 0, fmt.Errorf("failed to flush output file: %w", err)
	}

	slog.Info("chunks assembled",
		"upload_id", uploadID,
		"user_id", userID,
		"total_chunks", totalChunks,
		"total_bytes", written,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return written, nil
}

// DeleteStaging removes the staging directory for an upload
func DeleteStaging(uploadDir string, userID int64, uploadID string) error {
	dir := StagingDir(uploadDir, userID, uploadID)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete staging directory: %w", err)
	}

	slog.Debug("staging directory deleted", "upload_id", uploadID, "user_id", userID)

	return nil
}

// ScheduleStagingCleanup removes the staging directory after a short delay,
// letting in-flight chunk reads finish first
func ScheduleStagingCleanup(uploadDir string, userID int64, uploadID string) {
	time.AfterFunc(stagingCleanupDelay, func() {
		if err := DeleteStaging(uploadDir, userID, uploadID); err != nil {
			slog.Error("failed to clean up staging directory",
				"upload_id", uploadID,
				"user_id", userID,
				"error", err,
			)
		}
	})
}
