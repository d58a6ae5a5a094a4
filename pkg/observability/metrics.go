package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DocumentsTotal tracks ingested documents by final status
	// (succeeded, partial, failed, rejected).
	DocumentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "momo_ingest_documents_total",
			Help: "Total number of SMS documents ingested",
		},
		[]string{"status"},
	)

	// RowsWritten tracks transaction rows committed per store.
	RowsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "momo_ingest_rows_written_total",
			Help: "Total number of transaction rows written per store",
		},
		[]string{"store"},
	)

	// CategoryFailures tracks per-category failures by stage.
	CategoryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "momo_ingest_category_failures_total",
			Help: "Total number of category batches that failed",
		},
		[]string{"store", "reason"},
	)

	// IngestDuration tracks end-to-end document ingestion duration.
	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "momo_ingest_duration_seconds",
			Help:    "Document ingestion duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
