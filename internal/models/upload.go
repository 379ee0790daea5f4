package models

// ChunkPartialResponse is returned for a chunk that does not complete the upload
type ChunkPartialResponse struct {
	Status         string `json:"status"` // always "partial"
	Message        string `json:"message"`
	UploadID       string `json:"uploadId"`
	UploadedChunks int    `json:"uploadedChunks"`
	TotalChunks    int    `json:"totalChunks"`
}

// ChunkCompletedResponse is returned for the chunk that completes the upload
type ChunkCompletedResponse struct {
	Status        string `json:"status"` // always "completed"
	Message       string `json:"message"`
	FileID        int64  `json:"fileId"`
	DownloadToken string `json:"downloadToken"`
	OriginalName  string `json:"originalName"`
	ViewURL       string `json:"viewUrl"`
}

// ErrorResponse is the JSON error response
type ErrorResponse struct {
	Status  string `json:"status"` // always "error"
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// CronJobsResponse reports which scheduled jobs the cron trigger launched
type CronJobsResponse struct {
	Status              string   `json:"status"`
	JobsLaunched        []string `json:"jobsLaunched"`
	JobsAlreadyLaunched []string `json:"jobsAlreadyLaunched"`
}

// HealthResponse is the JSON response for the health check endpoint
type HealthResponse struct {
	Status           string `json:"status"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
	TotalFiles       int    `json:"total_files"`
	StorageUsedBytes int64  `json:"storage_used_bytes"`
}
