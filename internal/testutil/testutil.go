// Package testutil provides shared fixtures for tests: an in-memory
// database, a config pointed at temp directories, and user/session
// factories.
package testutil

import (
	"bytes"
	"database/sql"
	"fmt"
	"io"
	"mime/multipart"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mgoubin/screendrop/internal/config"
	"github.com/mgoubin/screendrop/internal/database"
	"github.com/mgoubin/screendrop/internal/models"
)

// SetupTestDB creates an in-memory SQLite database for testing.
// The database is automatically closed when the test completes.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	// Each pooled connection would get its own separate :memory:
	// database, so force a single connection.
	db.SetMaxOpenConns(1)

	if err := database.CreateSchema(db); err != nil {
		db.Close()
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// SetupTestConfig creates a test configuration backed by a temp
// directory that is cleaned up after the test.
func SetupTestConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		Port:                   "8080",
		DBPath:                 ":memory:",
		UploadDir:              t.TempDir(),
		APIPrefix:              "/api",
		DefaultStorageLimit:    50 * 1024 * 1024,
		ExpiryDays:             30,
		CleanupIntervalMinutes: 60,
		StagingMaxAgeHours:     24,
		CronSecret:             "test-cron-secret",
	}
}

// CreateTestUser inserts a user and returns it. Each call gets a
// unique username and email.
func CreateTestUser(t *testing.T, db *sql.DB, storageLimit int64) *models.User {
	t.Helper()

	name := "user-" + uuid.NewString()[:8]
	user, err := database.CreateUser(db, name, name+"@example.com", "x", storageLimit)
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateTestSession creates a session for the user and returns the
// opaque token a client would present.
func CreateTestSession(t *testing.T, db *sql.DB, userID int64) string {
	t.Helper()

	token := uuid.NewString()
	if err := database.CreateSession(db, userID, token, time.Now().UTC().Add(24*time.Hour)); err != nil {
		t.Fatalf("failed to create test session: %v", err)
	}

	return token
}

// InsertTestFile inserts a file row with the given size for quota and
// listing tests. Returns the created record.
func InsertTestFile(t *testing.T, db *sql.DB, userID int64, name string, size int64, expiresAt *time.Time) *models.File {
	t.Helper()

	file := &models.File{
		UserID:        userID,
		OriginalName:  name,
		FilePath:      "/tmp/" + name,
		MimeType:      "application/octet-stream",
		Size:          size,
		DownloadToken: uuid.NewString()[:16],
		ExpiresAt:     expiresAt,
	}
	if err := database.CreateFile(db, file); err != nil {
		t.Fatalf("failed to insert test file: %v", err)
	}

	return file
}

// ChunkForm builds a multipart body carrying one upload chunk with the
// standard field set. Returns the body and the content type header.
func ChunkForm(t *testing.T, uploadID string, chunkIndex, totalChunks int, originalName string, originalSize int64, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := map[string]string{
		"upload_id":     uploadID,
		"chunk_index":   fmt.Sprintf("%d", chunkIndex),
		"total_chunks":  fmt.Sprintf("%d", totalChunks),
		"original_name": originalName,
		"original_size": fmt.Sprintf("%d", originalSize),
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("failed to write form field %s: %v", k, err)
		}
	}

	part, err := writer.CreateFormFile("chunk", "blob")
	if err != nil {
		t.Fatalf("failed to create chunk part: %v", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(data)); err != nil {
		t.Fatalf("failed to write chunk data: %v", err)
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	return body, writer.FormDataContentType()
}
