// Package metrics provides Prometheus metrics for the attendance engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Mark outcomes.
const (
	OutcomeCreated    = "created"
	OutcomeDuplicate  = "already_present"
	OutcomeUnresolved = "unresolved"
	OutcomeError      = "error"
)

// Operation status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// AttendanceMetrics contains Prometheus metrics for recognition and ledger operations.
// A nil *AttendanceMetrics is valid and records nothing.
type AttendanceMetrics struct {
	marksTotal        *prometheus.CounterVec
	matchDecisions    *prometheus.CounterVec
	matchDistance     prometheus.Histogram
	encodeDuration    *prometheus.HistogramVec
	facesPerSnapshot  prometheus.Histogram
	storageRetries    *prometheus.CounterVec
	exportsTotal      *prometheus.CounterVec
	gallerySizeGauge  prometheus.Gauge
	operationDuration *prometheus.HistogramVec

	// collectors is a slice of all collectors for easier iteration
	collectors []prometheus.Collector
}

// NewAttendanceMetrics creates and registers attendance metrics on registry.
func NewAttendanceMetrics(registry prometheus.Registerer) (*AttendanceMetrics, error) {
	m := &AttendanceMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *AttendanceMetrics) initMetrics() {
	m.marksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_marks_total",
			Help: "Total number of attendance mark attempts by outcome",
		},
		[]string{"source", "outcome"}, // source: name, id, snapshot
	)

	m.matchDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_match_decisions_total",
			Help: "Total number of matcher decisions",
		},
		[]string{"decision"},
	)

	m.matchDistance = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attendance_match_best_distance",
			Help:    "Distance from query to its nearest enrolled subject",
			Buckets: prometheus.LinearBuckets(0, 0.1, 15),
		},
	)

	m.encodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attendance_encode_duration_seconds",
			Help:    "Time taken to detect and encode faces in an image",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		[]string{"status"},
	)

	m.facesPerSnapshot = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attendance_faces_per_snapshot",
			Help:    "Number of faces detected per snapshot",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20, 40},
		},
	)

	m.storageRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_storage_retries_total",
			Help: "Total number of storage calls retried after a transient error",
		},
		[]string{"operation"},
	)

	m.exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_exports_total",
			Help: "Total number of CSV exports",
		},
		[]string{"status"},
	)

	m.gallerySizeGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "attendance_gallery_encodings",
			Help: "Number of enrolled encodings in the last gallery snapshot",
		},
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attendance_operation_duration_seconds",
			Help:    "Time taken for engine operations",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		[]string{"operation"},
	)

	m.collectors = []prometheus.Collector{
		m.marksTotal,
		m.matchDecisions,
		m.matchDistance,
		m.encodeDuration,
		m.facesPerSnapshot,
		m.storageRetries,
		m.exportsTotal,
		m.gallerySizeGauge,
		m.operationDuration,
	}
}

// Describe implements the Collector interface
func (m *AttendanceMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *AttendanceMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordMark records the outcome of one mark attempt.
func (m *AttendanceMetrics) RecordMark(source, outcome string) {
	if m == nil {
		return
	}
	m.marksTotal.WithLabelValues(source, outcome).Inc()
}

// RecordMatch records a matcher decision and, when a candidate existed, its distance.
func (m *AttendanceMetrics) RecordMatch(decision string, bestDistance float64, hasCandidate bool) {
	if m == nil {
		return
	}
	m.matchDecisions.WithLabelValues(decision).Inc()
	if hasCandidate {
		m.matchDistance.Observe(bestDistance)
	}
}

// RecordEncode records one encoder call.
func (m *AttendanceMetrics) RecordEncode(d time.Duration, faces int, err error) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.encodeDuration.WithLabelValues(status).Observe(d.Seconds())
	if err == nil {
		m.facesPerSnapshot.Observe(float64(faces))
	}
}

// RecordRetry records a storage call retried after a transient failure.
func (m *AttendanceMetrics) RecordRetry(operation string) {
	if m == nil {
		return
	}
	m.storageRetries.WithLabelValues(operation).Inc()
}

// RecordExport records a CSV export attempt.
func (m *AttendanceMetrics) RecordExport(err error) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.exportsTotal.WithLabelValues(status).Inc()
}

// SetGallerySize records the number of encodings in a gallery snapshot.
func (m *AttendanceMetrics) SetGallerySize(n int) {
	if m == nil {
		return
	}
	m.gallerySizeGauge.Set(float64(n))
}

// ObserveOperation records how long an engine operation took.
func (m *AttendanceMetrics) ObserveOperation(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
