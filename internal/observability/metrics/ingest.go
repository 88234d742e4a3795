package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// IngestMetrics contains Prometheus metrics for ingestion runs
type IngestMetrics struct {
	runsTotal      *prometheus.CounterVec
	runDuration    prometheus.Histogram
	recordsTotal   *prometheus.CounterVec
	skippedTotal   prometheus.Counter
	errorsTotal    *prometheus.CounterVec
	runsInProgress prometheus.Gauge
}

// NewIngestMetrics creates and registers ingestion metrics
func NewIngestMetrics(registry prometheus.Registerer) (*IngestMetrics, error) {
	m := &IngestMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *IngestMetrics) initMetrics() {
	m.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xai_ingest_runs_total",
			Help: "Total number of ingestion runs",
		},
		[]string{"status"}, // status: success, partial, failed, in_progress
	)

	m.runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "xai_ingest_run_duration_seconds",
			Help:    "Time taken by ingestion runs",
			Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount12), // 100ms to ~3.4min
		},
	)

	m.recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xai_ingest_records_total",
			Help: "Frames and masks seen by ingestion",
		},
		[]string{"record", "outcome"}, // record: frame, mask; outcome: created, existing
	)

	m.skippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "xai_ingest_skipped_files_total",
			Help: "Files skipped because their name was not recognized",
		},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xai_ingest_errors_total",
			Help: "Ingestion errors recorded in run reports",
		},
		[]string{"kind"},
	)

	m.runsInProgress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "xai_ingest_runs_in_progress",
			Help: "Ingestion runs currently executing in this process",
		},
	)
}

func (m *IngestMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.runsTotal,
		m.runDuration,
		m.recordsTotal,
		m.skippedTotal,
		m.errorsTotal,
		m.runsInProgress,
	}
}

// Describe implements the Collector interface
func (m *IngestMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *IngestMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// RecordRun records a finished run
func (m *IngestMetrics) RecordRun(status string, seconds float64) {
	m.runsTotal.WithLabelValues(status).Inc()
	if status != StatusInProgress {
		m.runDuration.Observe(seconds)
	}
}

// RecordRecords adds n frames or masks with the given outcome
func (m *IngestMetrics) RecordRecords(record, outcome string, n int) {
	if n > 0 {
		m.recordsTotal.WithLabelValues(record, outcome).Add(float64(n))
	}
}

// RecordSkipped adds n unrecognized files
func (m *IngestMetrics) RecordSkipped(n int) {
	if n > 0 {
		m.skippedTotal.Add(float64(n))
	}
}

// RecordError records one report error of the given kind
func (m *IngestMetrics) RecordError(kind string) {
	m.errorsTotal.WithLabelValues(kind).Inc()
}

// RunStarted marks a run as executing
func (m *IngestMetrics) RunStarted() {
	m.runsInProgress.Inc()
}

// RunFinished marks a run as done
func (m *IngestMetrics) RunFinished() {
	m.runsInProgress.Dec()
}

// RunsInProgress returns the current number of executing runs
func (m *IngestMetrics) RunsInProgress() float64 {
	metric := &dto.Metric{}
	if err := m.runsInProgress.Write(metric); err != nil {
		return 0
	}
	if metric.Gauge != nil && metric.Gauge.Value != nil {
		return *metric.Gauge.Value
	}
	return 0
}
