package database

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mgoubin/screendrop/internal/models"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	db.SetMaxOpenConns(1)

	if err := CreateSchema(db); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func insertUser(t *testing.T, db *sql.DB, name string) *models.User {
	t.Helper()

	user, err := CreateUser(db, name, name+"@example.com", "hash", 50*1024*1024)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func TestCreateAndGetFileByToken(t *testing.T) {
	db := setupDB(t)
	user := insertUser(t, db, "alice")

	expires := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	remoteKey := "1/shot.webp"
	file := &models.File{
		UserID:        user.ID,
		OriginalName:  "shot.webp",
		FilePath:      "/data/uploads/1/shot.webp",
		RemoteKey:     &remoteKey,
		MimeType:      "image/webp",
		Size:          12345,
		DownloadToken: "abcdef0123456789",
		ExpiresAt:     &expires,
	}

	if err := CreateFile(db, file); err != nil {
		t.Fatalf("CreateFile failed: %v", err)
	}
	if file.ID == 0 {
		t.Fatal("CreateFile did not set the id")
	}

	got, err := GetFileByToken(db, "abcdef0123456789")
	if err != nil {
		t.Fatalf("GetFileByToken failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetFileByToken returned nil for existing token")
	}

	if got.OriginalName != file.OriginalName {
		t.Errorf("OriginalName = %q, want %q", got.OriginalName, file.OriginalName)
	}
	if got.RemoteKey == nil || *got.RemoteKey != remoteKey {
		t.Errorf("RemoteKey = %v, want %q", got.RemoteKey, remoteKey)
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(expires) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, expires)
	}
	if got.StorageKey() != remoteKey {
		t.Errorf("StorageKey = %q, want remote key %q", got.StorageKey(), remoteKey)
	}
}

func TestGetFileByTokenUnknown(t *testing.T) {
	db := setupDB(t)

	got, err := GetFileByToken(db, "nope")
	if err != nil {
		t.Fatalf("GetFileByToken failed: %v", err)
	}
	if got != nil {
		t.Errorf("GetFileByToken = %+v, want nil", got)
	}
}

func TestGetFileByIDOwnerScoped(t *testing.T) {
	db := setupDB(t)
	alice := insertUser(t, db, "alice")
	bob := insertUser(t, db, "bob")

	file := &models.File{
		UserID:        alice.ID,
		OriginalName:  "private.pdf",
		FilePath:      "/data/1/private.pdf",
		MimeType:      "application/pdf",
		Size:          10,
		DownloadToken: "tok1",
	}
	if err := CreateFile(db, file); err != nil {
		t.Fatalf("CreateFile failed: %v", err)
	}

	got, err := GetFileByID(db, file.ID, alice.ID)
	if err != nil {
		t.Fatalf("GetFileByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("owner cannot see their own file")
	}

	// Another user's lookup is indistinguishable from a missing file
	got, err = GetFileByID(db, file.ID, bob.ID)
	if err != nil {
		t.Fatalf("GetFileByID failed: %v", err)
	}
	if got != nil {
		t.Error("file visible to a non-owner")
	}
}

func TestListFilesByUserOrder(t *testing.T) {
	db := setupDB(t)
	user := insertUser(t, db, "alice")

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		file := &models.File{
			UserID:        user.ID,
			OriginalName:  fmt.Sprintf("file-%d.txt", i),
			FilePath:      fmt.Sprintf("/data/file-%d.txt", i),
			MimeType:      "text/plain",
			Size:          1,
			DownloadToken: fmt.Sprintf("tok-%d", i),
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		if err := CreateFile(db, file); err != nil {
			t.Fatalf("CreateFile failed: %v", err)
		}
	}

	files, err := ListFilesByUser(db, user.ID, 0)
	if err != nil {
		t.Fatalf("ListFilesByUser failed: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("got %d files, want 3", len(files))
	}

	// Newest first
	for i, want := range []string{"file-2.txt", "file-1.txt", "file-0.txt"} {
		if files[i].OriginalName != want {
			t.Errorf("files[%d] = %q, want %q", i, files[i].OriginalName, want)
		}
	}

	limited, err := ListFilesByUser(db, user.ID, 2)
	if err != nil {
		t.Fatalf("ListFilesByUser with limit failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d files with limit 2, want 2", len(limited))
	}
}

func TestSetFileExpiry(t *testing.T) {
	db := setupDB(t)
	user := insertUser(t, db, "alice")

	file := &models.File{
		UserID:        user.ID,
		OriginalName:  "keep.bin",
		FilePath:      "/data/keep.bin",
		MimeType:      "application/octet-stream",
		Size:          1,
		DownloadToken: "tok",
	}
	if err := CreateFile(db, file); err != nil {
		t.Fatalf("CreateFile failed: %v", err)
	}

	expires := time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC)
	if err := SetFileExpiry(db, file.ID, &expires); err != nil {
		t.Fatalf("SetFileExpiry failed: %v", err)
	}

	got, err := GetFileByID(db, file.ID, user.ID)
	if err != nil {
		t.Fatalf("GetFileByID failed: %v", err)
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(expires) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, expires)
	}

	// nil clears it back to never-expires
	if err := SetFileExpiry(db, file.ID, nil); err != nil {
		t.Fatalf("SetFileExpiry(nil) failed: %v", err)
	}

	got, err = GetFileByID(db, file.ID, user.ID)
	if err != nil {
		t.Fatalf("GetFileByID failed: %v", err)
	}
	if got.ExpiresAt != nil {
		t.Errorf("ExpiresAt = %v after clearing, want nil", got.ExpiresAt)
	}
}

func TestGetExpiredFiles(t *testing.T) {
	db := setupDB(t)
	user := insertUser(t, db, "alice")

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name      string
		expiresAt *time.Time
	}{
		{"expired.bin", &past},
		{"live.bin", &future},
		{"forever.bin", nil},
	}

	for i, c := range cases {
		file := &models.File{
			UserID:        user.ID,
			OriginalName:  c.name,
			FilePath:      "/data/" + c.name,
			MimeType:      "application/octet-stream",
			Size:          1,
			DownloadToken: fmt.Sprintf("tok-%d", i),
			ExpiresAt:     c.expiresAt,
		}
		if err := CreateFile(db, file); err != nil {
			t.Fatalf("CreateFile failed: %v", err)
		}
	}

	expired, err := GetExpiredFiles(db, now)
	if err != nil {
		t.Fatalf("GetExpiredFiles failed: %v", err)
	}
	if len(expired) != 1 {
		t.Fatalf("got %d expired files, want 1", len(expired))
	}
	if expired[0].OriginalName != "expired.bin" {
		t.Errorf("expired file = %q, want expired.bin", expired[0].OriginalName)
	}
}

func TestDeleteFileRow(t *testing.T) {
	db := setupDB(t)
	user := insertUser(t, db, "alice")

	file := &models.File{
		UserID:        user.ID,
		OriginalName:  "gone.bin",
		FilePath:      "/data/gone.bin",
		MimeType:      "application/octet-stream",
		Size:          1,
		DownloadToken: "tok",
	}
	if err := CreateFile(db, file); err != nil {
		t.Fatalf("CreateFile failed: %v", err)
	}

	if err := DeleteFileRow(db, file.ID); err != nil {
		t.Fatalf("DeleteFileRow failed: %v", err)
	}

	if err := DeleteFileRow(db, file.ID); err == nil {
		t.Error("DeleteFileRow succeeded on already-deleted row")
	}
}

func TestDownloadTokenUnique(t *testing.T) {
	db := setupDB(t)
	user := insertUser(t, db, "alice")

	first := &models.File{
		UserID: user.ID, OriginalName: "a", FilePath: "/a",
		MimeType: "text/plain", Size: 1, DownloadToken: "same-token",
	}
	if err := CreateFile(db, first); err != nil {
		t.Fatalf("CreateFile failed: %v", err)
	}

	second := &models.File{
		UserID: user.ID, OriginalName: "b", FilePath: "/b",
		MimeType: "text/plain", Size: 1, DownloadToken: "same-token",
	}
	if err := CreateFile(db, second); err == nil {
		t.Error("CreateFile accepted a duplicate download token")
	}
}

func TestSessionLifecycle(t *testing.T) {
	db := setupDB(t)
	user := insertUser(t, db, "alice")

	token := "opaque-session-token"
	if err := CreateSession(db, user.ID, token, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := GetSessionUser(db, token)
	if err != nil {
		t.Fatalf("GetSessionUser failed: %v", err)
	}
	if got == nil || got.ID != user.ID {
		t.Fatalf("GetSessionUser = %+v, want user %d", got, user.ID)
	}

	// The raw token never hits the table
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE id = ?`, token).Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 0 {
		t.Error("session stored under the raw token instead of its hash")
	}

	if got, err := GetSessionUser(db, "wrong-token"); err != nil || got != nil {
		t.Errorf("GetSessionUser(wrong) = %v, %v, want nil, nil", got, err)
	}
}

func TestExpiredSessionRejected(t *testing.T) {
	db := setupDB(t)
	user := insertUser(t, db, "alice")

	token := "stale"
	if err := CreateSession(db, user.ID, token, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := GetSessionUser(db, token)
	if err != nil {
		t.Fatalf("GetSessionUser failed: %v", err)
	}
	if got != nil {
		t.Error("expired session accepted")
	}

	if err := DeleteExpiredSessions(db); err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 0 {
		t.Errorf("sessions remaining after cleanup = %d, want 0", count)
	}
}

func TestJobSentinels(t *testing.T) {
	db := setupDB(t)

	midnight := time.Now().UTC().Truncate(24 * time.Hour)

	ran, err := HasJobRunSince(db, "expiry_sweep", midnight)
	if err != nil {
		t.Fatalf("HasJobRunSince failed: %v", err)
	}
	if ran {
		t.Error("HasJobRunSince true on empty table")
	}

	if err := RecordJobRun(db, "expiry_sweep"); err != nil {
		t.Fatalf("RecordJobRun failed: %v", err)
	}

	ran, err = HasJobRunSince(db, "expiry_sweep", midnight)
	if err != nil {
		t.Fatalf("HasJobRunSince failed: %v", err)
	}
	if !ran {
		t.Error("HasJobRunSince false after RecordJobRun")
	}

	// A different job type is unaffected
	ran, err = HasJobRunSince(db, "other_job", midnight)
	if err != nil {
		t.Fatalf("HasJobRunSince failed: %v", err)
	}
	if ran {
		t.Error("HasJobRunSince leaked across job types")
	}

	if err := PruneJobsBefore(db, time.Now().UTC().Add(time.Hour)); err != nil {
		t.Fatalf("PruneJobsBefore failed: %v", err)
	}

	ran, err = HasJobRunSince(db, "expiry_sweep", midnight)
	if err != nil {
		t.Fatalf("HasJobRunSince failed: %v", err)
	}
	if ran {
		t.Error("sentinel row survived pruning")
	}
}
