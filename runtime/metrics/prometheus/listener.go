package prometheus

import (
	"sync"
	"time"

	"github.com/AltairaLabs/VoiceDesk/runtime/events"
)

// Status label values.
const (
	statusSuccess   = "success"
	statusError     = "error"
	statusSucceeded = "succeeded"
	statusFailed    = "failed"
)

// MetricsListener records session events as Prometheus metrics. Register
// Handle with EventBus.SubscribeAll. The bus delivers events in order, so
// a session's uploading event is seen before its outcome.
type MetricsListener struct {
	mu        sync.Mutex
	active    map[string]struct{}
	uploading map[string]time.Time
}

// NewMetricsListener creates a new MetricsListener.
func NewMetricsListener() *MetricsListener {
	return &MetricsListener{
		active:    make(map[string]struct{}),
		uploading: make(map[string]time.Time),
	}
}

// Handle processes an event and records the relevant metrics.
func (l *MetricsListener) Handle(event *events.Event) {
	//exhaustive:ignore
	switch event.Type {
	case events.EventSessionStarted:
		l.handleStarted(event)
	case events.EventSessionChunk:
		RecordChunk()
	case events.EventSessionStopped:
		l.handleStopped(event)
	case events.EventSessionUploading:
		l.handleUploading(event)
	case events.EventSessionSucceeded:
		l.handleSucceeded(event)
	case events.EventSessionFailed:
		l.handleFailed(event)
	case events.EventMeetingChunkUploaded:
		l.handleChunkUploaded(event)
	case events.EventToast:
		if data, ok := event.Data.(events.ToastData); ok {
			RecordToast(string(data.Level))
		}
	case events.EventSignedOut:
		if data, ok := event.Data.(events.SignedOutData); ok {
			RecordSignOut(data.Reason)
		}
	default:
	}
}

// Listener returns Handle as an events.Listener.
func (l *MetricsListener) Listener() events.Listener {
	return l.Handle
}

func (l *MetricsListener) handleStarted(event *events.Event) {
	data, ok := event.Data.(events.SessionStartedData)
	if !ok {
		return
	}
	l.mu.Lock()
	l.active[event.SessionID] = struct{}{}
	l.mu.Unlock()
	RecordSessionStart(data.Variant)
}

func (l *MetricsListener) handleStopped(event *events.Event) {
	if data, ok := event.Data.(events.SessionStoppedData); ok {
		RecordRecording(data.Variant, data.Duration.Seconds(), data.Bytes)
	}
}

func (l *MetricsListener) handleUploading(event *events.Event) {
	l.mu.Lock()
	l.uploading[event.SessionID] = event.Timestamp
	l.mu.Unlock()
}

func (l *MetricsListener) handleSucceeded(event *events.Event) {
	data, ok := event.Data.(events.SessionSucceededData)
	if !ok {
		return
	}
	active, _ := l.settle(event)
	RecordSessionEnd(data.Variant, statusSucceeded, active)
	RecordUpload(data.Variant, statusSucceeded, data.UploadDuration.Seconds())
}

func (l *MetricsListener) handleFailed(event *events.Event) {
	data, ok := event.Data.(events.SessionFailedData)
	if !ok {
		return
	}
	active, uploadStart := l.settle(event)
	RecordSessionEnd(data.Variant, statusFailed, active)
	RecordSessionFailure(data.Variant, data.Kind)
	if !uploadStart.IsZero() {
		RecordUpload(data.Variant, statusFailed, event.Timestamp.Sub(uploadStart).Seconds())
	}
}

// settle forgets a session and reports whether it was active and when its
// upload began.
func (l *MetricsListener) settle(event *events.Event) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, active := l.active[event.SessionID]
	uploadStart := l.uploading[event.SessionID]
	delete(l.active, event.SessionID)
	delete(l.uploading, event.SessionID)
	return active, uploadStart
}

func (l *MetricsListener) handleChunkUploaded(event *events.Event) {
	data, ok := event.Data.(events.ChunkUploadedData)
	if !ok {
		return
	}
	status := statusSuccess
	if data.Err != nil {
		status = statusError
	}
	RecordMeetingChunkUpload(status, data.Duration.Seconds())
}
