package tui

import (
	"time"

	"github.com/AltairaLabs/VoiceDesk/runtime/events"
	"github.com/AltairaLabs/VoiceDesk/runtime/session"
)

// RecordingStartedMsg is sent when capture begins.
type RecordingStartedMsg struct {
	SessionID string
	Time      time.Time
}

// ChunkMsg is sent for every captured chunk.
type ChunkMsg struct {
	SessionID  string
	Index      int
	TotalBytes int
}

// RecordingStoppedMsg is sent once the recording is finalized.
type RecordingStoppedMsg struct {
	SessionID string
	Duration  time.Duration
	Bytes     int
}

// UploadingMsg is sent when the recording is handed to the backend.
type UploadingMsg struct {
	SessionID string
	Bytes     int
}

// SegmentUploadedMsg is sent for every meeting segment upload attempt.
type SegmentUploadedMsg struct {
	Index int
	Bytes int
	Err   error
}

// ToastMsg carries one user notification.
type ToastMsg events.ToastData

// SignedOutMsg is sent when the session token was cleared.
type SignedOutMsg struct {
	Reason string
}

// startResultMsg reports the outcome of Recorder.Start.
type startResultMsg struct {
	err error
}

// finishedMsg carries the terminal session after a stop.
type finishedMsg struct {
	session session.Session
	err     error
}

type closedMsg struct{}

type tickMsg time.Time
