// Package local implements the storage Backend for plain local disk
// storage. Assembled files are already on disk when SaveFile runs, so
// the backend mostly just hands back paths.
package local

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/mgoubin/screendrop/internal/storage"
)

// LocalStorage keeps assembled files where the assembler wrote them,
// under the configured upload directory.
type LocalStorage struct{}

// NewLocalStorage creates a new LocalStorage.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{}
}

// SaveFile is a no-op for local storage. The assembled file already
// sits at localPath, so no remote key is returned.
func (l *LocalStorage) SaveFile(ctx context.Context, localPath, key string) (string, error) {
	return "", nil
}

// Retrieve opens the file at localPath.
func (l *LocalStorage) Retrieve(ctx context.Context, key, localPath string) (io.ReadCloser, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, storage.NewError("Retrieve", localPath, err)
	}
	return f, nil
}

// Delete removes the file at localPath. A missing file is not an error.
func (l *LocalStorage) Delete(ctx context.Context, key, localPath string) error {
	if err := os.Remove(localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return storage.NewError("Delete", localPath, err)
	}
	return nil
}

// Exists checks whether the file at localPath is still on disk.
func (l *LocalStorage) Exists(ctx context.Context, key, localPath string) (bool, error) {
	_, err := os.Stat(localPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, storage.NewError("Exists", localPath, err)
	}
	return true, nil
}
