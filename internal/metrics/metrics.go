// Package metrics defines Prometheus metrics for the upload and
// serving pipeline. All metrics are registered on the default registry
// and exposed via /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UploadsTotal counts completed upload sessions by status
	// (success, quota_exceeded, failure)
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screendrop_uploads_total",
			Help: "Total number of completed upload sessions",
		},
		[]string{"status"},
	)

	// ChunksTotal counts individual chunks received
	ChunksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "screendrop_upload_chunks_total",
			Help: "Total number of file chunks received",
		},
	)

	// DownloadsTotal counts downloads by status (success, not_found)
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screendrop_downloads_total",
			Help: "Total number of file downloads",
		},
		[]string{"status"},
	)

	// ViewsTotal counts inline views by status (success, redirect, not_found)
	ViewsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screendrop_views_total",
			Help: "Total number of inline file views",
		},
		[]string{"status"},
	)

	// TranscodesTotal counts image transcodes by status (converted, skipped, failure)
	TranscodesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screendrop_transcodes_total",
			Help: "Total number of image transcode attempts",
		},
		[]string{"status"},
	)

	// ExpiredFilesDeletedTotal counts files removed by the expiry sweep
	ExpiredFilesDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "screendrop_expired_files_deleted_total",
			Help: "Total number of expired files deleted by cleanup",
		},
	)

	// StagingDirsReapedTotal counts abandoned staging directories removed
	StagingDirsReapedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "screendrop_staging_dirs_reaped_total",
			Help: "Total number of stale staging directories removed",
		},
	)
)
