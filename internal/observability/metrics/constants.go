// Package metrics defines the Prometheus collectors for ingestion and HTTP.
package metrics

// Histogram bucket parameters shared by the collectors.
const (
	BucketStart1ms   = 0.001
	BucketStart100ms = 0.1
	BucketStart100B  = 100
	BucketFactor2    = 2
	BucketFactor10   = 10
	BucketCount6     = 6
	BucketCount12    = 12
	BucketCount14    = 14
)

// Run status label values.
const (
	StatusSuccess    = "success"
	StatusPartial    = "partial"
	StatusFailed     = "failed"
	StatusInProgress = "in_progress"
)

// Record and outcome label values for xai_ingest_records_total.
const (
	RecordFrame     = "frame"
	RecordMask      = "mask"
	OutcomeCreated  = "created"
	OutcomeExisting = "existing"
)
