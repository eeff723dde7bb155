package events

import "time"

// EventType identifies the type of event emitted by the runtime.
type EventType string

const (
	// EventSessionStarted marks a session entering the recording state.
	EventSessionStarted EventType = "session.started"
	// EventSessionChunk marks a chunk appended to the recording session.
	EventSessionChunk EventType = "session.chunk"
	// EventSessionStopped marks capture finalization.
	EventSessionStopped EventType = "session.stopped"
	// EventSessionUploading marks the start of the upload phase.
	EventSessionUploading EventType = "session.uploading"
	// EventSessionSucceeded marks a session reaching the succeeded state.
	EventSessionSucceeded EventType = "session.succeeded"
	// EventSessionFailed marks a session reaching the failed state.
	EventSessionFailed EventType = "session.failed"

	// EventMeetingChunkUploaded marks one incremental meeting chunk delivered (or rejected).
	EventMeetingChunkUploaded EventType = "meeting.chunk_uploaded"

	// EventToast carries a user-visible, non-blocking notification.
	EventToast EventType = "ui.toast"

	// EventSignedOut marks an application-wide sign-out (token missing or rejected).
	EventSignedOut EventType = "auth.signed_out"
)

// EventData is a marker interface for event payloads.
type EventData interface {
	eventData()
}

// Event represents a runtime event delivered to listeners.
type Event struct {
	Type      EventType
	Timestamp time.Time
	SessionID string
	Data      EventData
}

// baseEventData provides the marker implementation for all event payloads.
type baseEventData struct{}

func (baseEventData) eventData() {}

// SessionStartedData is the payload of EventSessionStarted.
type SessionStartedData struct {
	baseEventData
	Variant string
}

// ChunkData is the payload of EventSessionChunk.
type ChunkData struct {
	baseEventData
	Index      int
	Bytes      int
	TotalBytes int
}

// SessionStoppedData is the payload of EventSessionStopped.
type SessionStoppedData struct {
	baseEventData
	Variant  string
	Duration time.Duration
	Chunks   int
	Bytes    int
	MIMEType string
}

// UploadingData is the payload of EventSessionUploading.
type UploadingData struct {
	baseEventData
	Variant string
	Bytes   int
}

// SessionSucceededData is the payload of EventSessionSucceeded.
type SessionSucceededData struct {
	baseEventData
	Variant        string
	UploadDuration time.Duration
	Response       string
	IsMeeting      bool
	FollowUp       string
}

// SessionFailedData is the payload of EventSessionFailed.
type SessionFailedData struct {
	baseEventData
	Variant    string
	Kind       string
	Reason     string
	StatusCode int
	Duration   time.Duration
}

// ChunkUploadedData is the payload of EventMeetingChunkUploaded.
type ChunkUploadedData struct {
	baseEventData
	ServerSessionID int64
	Index           int
	Bytes           int
	Duration        time.Duration
	Err             error
}

// ToastLevel classifies a toast for styling.
type ToastLevel string

// Toast levels.
const (
	ToastInfo    ToastLevel = "info"
	ToastSuccess ToastLevel = "success"
	ToastError   ToastLevel = "error"
)

// ToastData is the payload of EventToast.
type ToastData struct {
	baseEventData
	Level   ToastLevel
	Message string
}

// SignedOutData is the payload of EventSignedOut.
type SignedOutData struct {
	baseEventData
	Reason string
}
