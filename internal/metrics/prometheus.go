package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the narration engine
type Metrics struct {
	// Playback metrics
	PlaybackSessions   prometheus.Counter
	PlaybackStops      prometheus.Counter
	SequencesCompleted prometheus.Counter
	SequenceDuration   prometheus.Histogram
	SegmentsPlayed     prometheus.Counter
	FallbackSegments   prometheus.Counter
	DecodeErrors       prometheus.Counter

	// Export metrics
	ExportsStarted   prometheus.Counter
	ExportsCompleted prometheus.Counter
	ExportsFailed    prometheus.Counter
	ExportDuration   prometheus.Histogram
	ExportSize       prometheus.Histogram

	// Archive metrics
	ArchivesBuilt  prometheus.Counter
	ArchivesFailed prometheus.Counter
	ArchiveSize    prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Playback metrics
		PlaybackSessions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "narration_playback_sessions_total",
			Help: "Total number of playback sessions started",
		}),
		PlaybackStops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "narration_playback_stops_total",
			Help: "Total number of explicit playback stops",
		}),
		SequencesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "narration_sequences_completed_total",
			Help: "Total number of sequences that played to completion",
		}),
		SequenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "narration_sequence_duration_seconds",
			Help:    "Wall-clock duration of completed playback sequences",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17 minutes
		}),
		SegmentsPlayed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "narration_segments_played_total",
			Help: "Total number of segments played",
		}),
		FallbackSegments: promauto.NewCounter(prometheus.CounterOpts{
			Name: "narration_fallback_segments_total",
			Help: "Total number of segments paced by the fallback timer",
		}),
		DecodeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "narration_audio_decode_errors_total",
			Help: "Total number of segment audio payloads that failed to decode",
		}),

		// Export metrics
		ExportsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "narration_exports_started_total",
			Help: "Total number of media exports started",
		}),
		ExportsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "narration_exports_completed_total",
			Help: "Total number of media exports completed",
		}),
		ExportsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "narration_exports_failed_total",
			Help: "Total number of media exports that failed or were aborted",
		}),
		ExportDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "narration_export_duration_seconds",
			Help:    "Wall-clock duration of media exports",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17 minutes
		}),
		ExportSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "narration_export_size_bytes",
			Help:    "Size of exported media files in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KB to ~1GB
		}),

		// Archive metrics
		ArchivesBuilt: promauto.NewCounter(prometheus.CounterOpts{
			Name: "narration_archives_built_total",
			Help: "Total number of asset archives built",
		}),
		ArchivesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "narration_archives_failed_total",
			Help: "Total number of asset archive builds that failed",
		}),
		ArchiveSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "narration_archive_size_bytes",
			Help:    "Size of built asset archives in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KB to ~1GB
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "narration_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "narration_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "narration_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordPlaybackStarted increments the playback sessions counter
func (m *Metrics) RecordPlaybackStarted() {
	m.PlaybackSessions.Inc()
}

// RecordPlaybackStopped increments the explicit stops counter
func (m *Metrics) RecordPlaybackStopped() {
	m.PlaybackStops.Inc()
}

// RecordSequenceCompleted records a sequence that played to completion
func (m *Metrics) RecordSequenceCompleted(durationSeconds float64) {
	m.SequencesCompleted.Inc()
	m.SequenceDuration.Observe(durationSeconds)
}

// RecordSegmentPlayed records a played segment and whether the fallback
// timer paced it
func (m *Metrics) RecordSegmentPlayed(viaFallback bool) {
	m.SegmentsPlayed.Inc()
	if viaFallback {
		m.FallbackSegments.Inc()
	}
}

// RecordDecodeError increments the audio decode errors counter
func (m *Metrics) RecordDecodeError() {
	m.DecodeErrors.Inc()
}

// RecordExportStarted increments the exports started counter
func (m *Metrics) RecordExportStarted() {
	m.ExportsStarted.Inc()
}

// RecordExportCompleted records a completed export
func (m *Metrics) RecordExportCompleted(durationSeconds float64, sizeBytes int) {
	m.ExportsCompleted.Inc()
	m.ExportDuration.Observe(durationSeconds)
	m.ExportSize.Observe(float64(sizeBytes))
}

// RecordExportFailed increments the failed exports counter
func (m *Metrics) RecordExportFailed() {
	m.ExportsFailed.Inc()
}

// RecordArchiveBuilt records a successfully built archive
func (m *Metrics) RecordArchiveBuilt(sizeBytes int) {
	m.ArchivesBuilt.Inc()
	m.ArchiveSize.Observe(float64(sizeBytes))
}

// RecordArchiveFailed increments the failed archives counter
func (m *Metrics) RecordArchiveFailed() {
	m.ArchivesFailed.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
