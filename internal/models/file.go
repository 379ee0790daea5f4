package models

import "time"

// File represents a stored artifact record in the database.
// DownloadToken is the only identifier ever exposed publicly.
type File struct {
	ID            int64
	UserID        int64
	OriginalName  string
	FilePath      string  // Local path the artifact was assembled at
	RemoteKey     *string // Object key when stored remotely; nil means the local path is authoritative
	MimeType      string
	Size          int64
	DownloadToken string
	CreatedAt     time.Time
	ExpiresAt     *time.Time // nil means never expires
}

// StorageKey returns the key to fetch the artifact bytes with:
// the remote key when present, otherwise the local path.
func (f *File) StorageKey() string {
	if f.RemoteKey != nil && *f.RemoteKey != "" {
		return *f.RemoteKey
	}
	return f.FilePath
}

// FileInfo is the JSON shape returned by the file listing endpoint
type FileInfo struct {
	ID            int64      `json:"id"`
	OriginalName  string     `json:"originalName"`
	MimeType      string     `json:"mimeType"`
	Size          int64      `json:"size"`
	CreatedAt     time.Time  `json:"createdAt"`
	ExpiresAt     *time.Time `json:"expiresAt"`
	DownloadToken string     `json:"downloadToken"`
	DownloadURL   string     `json:"downloadUrl"`
	ViewURL       string     `json:"viewUrl"`
}

// StorageInfo is the JSON response for the storage-info endpoint
type StorageInfo struct {
	Used           int64 `json:"used"`
	Limit          int64 `json:"limit"`
	Available      int64 `json:"available"`
	UsedPercentage int   `json:"usedPercentage"`
}
