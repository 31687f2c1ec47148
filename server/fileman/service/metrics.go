package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploadedFilesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fileshare_uploaded_files_total",
		Help: "Files stored by successful upload batches.",
	})
	uploadedBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fileshare_uploaded_bytes_total",
		Help: "Bytes stored by successful upload batches.",
	})
	uploadFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fileshare_upload_failures_total",
		Help: "Upload batches aborted by a store error.",
	})
	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fileshare_downloads_total",
		Help: "Completed downloads by kind (single, zip).",
	}, []string{"kind"})
	zipMissingBlobsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fileshare_zip_missing_blobs_total",
		Help: "Records skipped while bundling because their blob was absent.",
	})
)
