package models

import "time"

// User represents a user record in the database
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	StorageLimit int64 // Per-user quota in bytes
	CreatedAt    time.Time
}

// Session represents an authenticated session.
// The row id is the SHA-256 hex of the opaque session token.
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
}
