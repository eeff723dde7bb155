// Package prometheus provides Prometheus metrics for VoiceDesk recording sessions.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "voicedesk"

var (
	// sessionsActive is a gauge of sessions that started and have not settled.
	sessionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of sessions currently recording or uploading",
		},
		[]string{"variant"},
	)

	// sessionsTotal counts settled sessions by outcome.
	sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of settled sessions",
		},
		[]string{"variant", "status"}, // status: succeeded, failed
	)

	// sessionFailuresTotal counts failed sessions by failure kind.
	sessionFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_failures_total",
			Help:      "Total number of failed sessions by failure kind",
		},
		[]string{"variant", "kind"},
	)

	// recordingDuration is a histogram of captured audio length.
	recordingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recording_duration_seconds",
			Help:      "Histogram of recording length in seconds",
			Buckets:   []float64{1, 2.5, 5, 10, 30, 60, 120, 300, 900, 1800, 3600},
		},
		[]string{"variant"},
	)

	// recordingBytes is a histogram of finalized payload sizes.
	recordingBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recording_bytes",
			Help:      "Histogram of finalized recording size in bytes",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10), // 1KiB .. 256MiB
		},
		[]string{"variant"},
	)

	// chunksTotal counts chunks appended to live recordings.
	chunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_total",
			Help:      "Total number of audio chunks captured",
		},
	)

	// uploadDuration is a histogram of time spent in the uploading state.
	uploadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Duration from upload start to session outcome in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"variant", "status"},
	)

	// meetingChunkUploadsTotal counts incremental meeting segment uploads.
	meetingChunkUploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meeting_chunk_uploads_total",
			Help:      "Total number of meeting segment uploads",
		},
		[]string{"status"}, // status: success, error
	)

	// meetingChunkUploadDuration is a histogram of segment upload latency.
	meetingChunkUploadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "meeting_chunk_upload_duration_seconds",
			Help:      "Duration of meeting segment uploads in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// toastsTotal counts user notifications by level.
	toastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "toasts_total",
			Help:      "Total number of notifications shown to the user",
		},
		[]string{"level"},
	)

	// signOutsTotal counts sign-outs by reason.
	signOutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sign_outs_total",
			Help:      "Total number of sign-outs",
		},
		[]string{"reason"},
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		sessionsActive,
		sessionsTotal,
		sessionFailuresTotal,
		recordingDuration,
		recordingBytes,
		chunksTotal,
		uploadDuration,
		meetingChunkUploadsTotal,
		meetingChunkUploadDuration,
		toastsTotal,
		signOutsTotal,
	}
)

// RecordSessionStart records a session entering the recording state.
func RecordSessionStart(variant string) {
	sessionsActive.WithLabelValues(variant).Inc()
}

// RecordSessionEnd records a settled session. active reports whether the
// session was counted by RecordSessionStart.
func RecordSessionEnd(variant, status string, active bool) {
	if active {
		sessionsActive.WithLabelValues(variant).Dec()
	}
	sessionsTotal.WithLabelValues(variant, status).Inc()
}

// RecordSessionFailure records the failure kind of a failed session.
func RecordSessionFailure(variant, kind string) {
	sessionFailuresTotal.WithLabelValues(variant, kind).Inc()
}

// RecordRecording records the length and size of a finalized recording.
func RecordRecording(variant string, durationSeconds float64, bytes int) {
	recordingDuration.WithLabelValues(variant).Observe(durationSeconds)
	recordingBytes.WithLabelValues(variant).Observe(float64(bytes))
}

// RecordChunk records one captured chunk.
func RecordChunk() {
	chunksTotal.Inc()
}

// RecordUpload records the time a session spent uploading.
func RecordUpload(variant, status string, durationSeconds float64) {
	uploadDuration.WithLabelValues(variant, status).Observe(durationSeconds)
}

// RecordMeetingChunkUpload records one meeting segment upload.
func RecordMeetingChunkUpload(status string, durationSeconds float64) {
	meetingChunkUploadsTotal.WithLabelValues(status).Inc()
	meetingChunkUploadDuration.Observe(durationSeconds)
}

// RecordToast records a notification.
func RecordToast(level string) {
	toastsTotal.WithLabelValues(level).Inc()
}

// RecordSignOut records a sign-out.
func RecordSignOut(reason string) {
	signOutsTotal.WithLabelValues(reason).Inc()
}
