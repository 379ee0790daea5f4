package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mgoubin/screendrop/internal/models"
)

const fileColumns = `id, user_id, original_name, file_path, remote_key, mime_type, size, download_token, expires_at, created_at`

// CreateFile inserts a new file record into the database
func CreateFile(db *sql.DB, file *models.File) error {
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now()
	}

	var expiresAt any
	if file.ExpiresAt != nil {
		expiresAt = FormatTime(*file.ExpiresAt)
	}

	query := `
		INSERT INTO files (
			user_id, original_name, file_path, remote_key,
			mime_type, size, download_token, expires_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := db.Exec(
		query,
		file.UserID,
		file.OriginalName,
		file.FilePath,
		file.RemoteKey,
		file.MimeType,
		file.Size,
		file.DownloadToken,
		expiresAt,
		FormatTime(file.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	file.ID = id
	return nil
}

// scanFile reads one file row from a *sql.Row or *sql.Rows scanner
func scanFile(scan func(dest ...any) error) (*models.File, error) {
	file := &models.File{}
	var remoteKey, expiresAt sql.NullString
	var createdAt string

	err := scan(
		&file.ID,
		&file.UserID,
		&file.OriginalName,
		&file.FilePath,
		&remoteKey,
		&file.MimeType,
		&file.Size,
		&file.DownloadToken,
		&expiresAt,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	file.CreatedAt, err = ParseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	if remoteKey.Valid && remoteKey.String != "" {
		key := remoteKey.String
		file.RemoteKey = &key
	}

	if expiresAt.Valid {
		t, err := ParseTime(expiresAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse expires_at: %w", err)
		}
		file.ExpiresAt = &t
	}

	return file, nil
}

// GetFileByToken retrieves a file record by its download token.
// Returns nil if no file carries the token.
func GetFileByToken(db *sql.DB, token string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE download_token = ?`

	file, err := scanFile(db.QueryRow(query, token).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query file by token: %w", err)
	}

	return file, nil
}

// GetFileByID retrieves a file record by id, scoped to its owner.
// Returns nil when the file does not exist or belongs to another user,
// so callers cannot distinguish the two cases.
func GetFileByID(db *sql.DB, id, userID int64) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = ? AND user_id = ?`

	file, err := scanFile(db.QueryRow(query, id, userID).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query file by id: %w", err)
	}

	return file, nil
}

// ListFilesByUser returns a user's files newest first.
// A limit <= 0 means no limit.
func ListFilesByUser(db *sql.DB, userID int64, limit int) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE user_id = ? ORDER BY created_at DESC, id DESC`
	args := []any{userID}

	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var files []*models.File
	for rows.Next() {
		file, err := scanFile(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file row: %w", err)
		}
		files = append(files, file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating file rows: %w", err)
	}

	return files, nil
}

// DeleteFileRow removes a file record from the database
func DeleteFileRow(db *sql.DB, id int64) error {
	result, err := db.Exec(`DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file row: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("no file found with id %d", id)
	}

	return nil
}

// SetFileExpiry updates a file's expiry instant; nil clears it (never expires)
func SetFileExpiry(db *sql.DB, id int64, expiresAt *time.Time) error {
	var value any
	if expiresAt != nil {
		value = FormatTime(*expiresAt)
	}

	if _, err := db.Exec(`UPDATE files SET expires_at = ? WHERE id = ?`, value, id); err != nil {
		return fmt.Errorf("failed to update file expiry: %w", err)
	}

	return nil
}

// GetUserStorageUsed returns the total bytes of all artifacts owned by a user.
// Computed fresh on every call; there is no cached counter to drift.
func GetUserStorageUsed(db *sql.DB, userID int64) (int64, error) {
	var used int64
	err := db.QueryRow(`SELECT COALESCE(SUM(size), 0) FROM files WHERE user_id = ?`, userID).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("failed to sum user storage: %w", err)
	}

	return used, nil
}

// GetExpiredFiles returns all files whose expiry instant has passed.
// Files with NULL expires_at never expire and are never returned.
func GetExpiredFiles(db *sql.DB, now time.Time) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE expires_at IS NOT NULL AND expires_at < ?`

	rows, err := db.Query(query, FormatTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to query expired files: %w", err)
	}
	defer rows.Close()

	var files []*models.File
	for rows.Next() {
		file, err := scanFile(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expired file: %w", err)
		}
		files = append(files, file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expired files: %w", err)
	}

	return files, nil
}

// GetStats returns the total file count and stored bytes across all users
func GetStats(db *sql.DB) (totalFiles int, storageUsed int64, err error) {
	err = db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(size), 0) FROM files`).Scan(&totalFiles, &storageUsed)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get stats: %w", err)
	}

	return totalFiles, storageUsed, nil
}
