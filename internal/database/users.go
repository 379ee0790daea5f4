package database

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/mgoubin/screendrop/internal/models"
)

// CreateUser creates a new user in the database
func CreateUser(db *sql.DB, username, email, passwordHash string, storageLimit int64) (*models.User, error) {
	now := time.Now()

	result, err := db.Exec(
		`INSERT INTO users (username, email, password_hash, storage_limit, created_at) VALUES (?, ?, ?, ?, ?)`,
		username, email, passwordHash, storageLimit, FormatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get user id: %w", err)
	}

	return &models.User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		StorageLimit: storageLimit,
		CreatedAt:    now,
	}, nil
}

// GetUserByID retrieves a user by id. Returns nil if not found.
func GetUserByID(db *sql.DB, id int64) (*models.User, error) {
	var user models.User
	var createdAt string

	err := db.QueryRow(
		`SELECT id, username, email, password_hash, storage_limit, created_at FROM users WHERE id = ?`,
		id,
	).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.StorageLimit, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.CreatedAt, err = ParseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return &user, nil
}

// sessionID derives the stored session row id from the opaque token.
// Only the hash ever touches the database.
func sessionID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CreateSession stores a session for a user under the hashed token
func CreateSession(db *sql.DB, userID int64, token string, expiresAt time.Time) error {
	_, err := db.Exec(
		`INSERT INTO sessions (id, user_id, expires_at) VALUES (?, ?, ?)`,
		sessionID(token), userID, FormatTime(expiresAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetSessionUser validates a session token and returns the owning user.
// Returns nil for unknown or expired sessions.
func GetSessionUser(db *sql.DB, token string) (*models.User, error) {
	var user models.User
	var expiresAt, createdAt string

	err := db.QueryRow(
		`SELECT u.id, u.username, u.email, u.password_hash, u.storage_limit, u.created_at, s.expires_at
		 FROM sessions s JOIN users u ON u.id = s.user_id
		 WHERE s.id = ?`,
		sessionID(token),
	).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.StorageLimit, &createdAt, &expiresAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	expiry, err := ParseTime(expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse session expiry: %w", err)
	}

	if time.Now().After(expiry) {
		return nil, nil
	}

	user.CreatedAt, err = ParseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return &user, nil
}

// DeleteExpiredSessions removes sessions past their expiry
func DeleteExpiredSessions(db *sql.DB) error {
	if _, err := db.Exec(`DELETE FROM sessions WHERE expires_at < ?`, FormatTime(time.Now())); err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	return nil
}
