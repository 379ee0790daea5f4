// Package storage abstracts where finished uploads live. The local
// backend keeps files under the upload directory, the s3 backend moves
// them to an S3-compatible bucket after assembly.
package storage

import (
	"context"
	"io"
)

// Backend defines the operations handlers need for finished files.
// Chunk staging always happens on the local disk; a backend only sees
// assembled files.
type Backend interface {
	// SaveFile persists the assembled file at localPath under the given
	// key. Returns the remote key when the file was moved off the local
	// disk, or "" when it stays at localPath.
	SaveFile(ctx context.Context, localPath, key string) (string, error)

	// Retrieve returns a reader for a stored file. localPath is the
	// on-disk location the file would have if it never left the local
	// disk, which backends may use as a fallback.
	Retrieve(ctx context.Context, key, localPath string) (io.ReadCloser, error)

	// Delete removes a stored file. Deleting a file that is already
	// gone is not an error.
	Delete(ctx context.Context, key, localPath string) error

	// Exists checks whether a stored file is still present.
	Exists(ctx context.Context, key, localPath string) (bool, error)
}

// Error wraps storage failures with the operation and key involved.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return e.Op + " " + e.Key + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given details.
func NewError(op, key string, err error) *Error {
	return &Error{Op: op, Key: key, Err: err}
}
