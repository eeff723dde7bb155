package session

import (
	"errors"
	"fmt"

	"github.com/AltairaLabs/VoiceDesk/runtime/capture"
	"github.com/AltairaLabs/VoiceDesk/runtime/media"
	"github.com/AltairaLabs/VoiceDesk/runtime/transport"
)

// FailureKind classifies why a session failed.
type FailureKind string

// Failure kinds.
const (
	KindPermissionDenied  FailureKind = "permission_denied"
	KindDeviceUnavailable FailureKind = "device_unavailable"
	KindCaptureError      FailureKind = "capture_error"
	KindNetworkError      FailureKind = "network_error"
	KindTimeout           FailureKind = "timeout"
	KindServerError       FailureKind = "server_error"
	KindUnauthenticated   FailureKind = "unauthenticated"
	KindInvalidAudio      FailureKind = "invalid_audio"
)

// Errors returned by controller operations.
var (
	// ErrAlreadyRecording is returned by Start while another session is live.
	ErrAlreadyRecording = errors.New("a recording session is already in progress")

	// ErrNotRecording is returned by Stop when there is nothing to stop.
	ErrNotRecording = errors.New("no recording in progress")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session controller closed")
)

// Failure is the reason a session ended in StatusFailed.
type Failure struct {
	Kind       FailureKind
	Reason     string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.StatusCode > 0 {
		return fmt.Sprintf("%s (%d): %s", f.Kind, f.StatusCode, f.Reason)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Reason)
}

// Unwrap returns the underlying error.
func (f *Failure) Unwrap() error {
	return f.Err
}

// classify maps an error from the capture adapter, media loader or transport
// to a Failure. fallback applies when nothing more specific matches.
func classify(err error, fallback FailureKind) *Failure {
	f := &Failure{Kind: fallback, Reason: err.Error(), Err: err}

	var serverErr *transport.ServerError
	var captureErr *capture.CaptureError
	switch {
	case errors.Is(err, capture.ErrPermissionDenied):
		f.Kind = KindPermissionDenied
	case errors.Is(err, capture.ErrDeviceUnavailable):
		f.Kind = KindDeviceUnavailable
	case errors.As(err, &captureErr):
		f.Kind = KindCaptureError
	case errors.Is(err, media.ErrUnsupportedAudio), errors.Is(err, media.ErrEmptyAudio):
		f.Kind = KindInvalidAudio
	case errors.Is(err, transport.ErrUnauthenticated):
		f.Kind = KindUnauthenticated
	case errors.Is(err, transport.ErrTimeout):
		f.Kind = KindTimeout
	case errors.Is(err, transport.ErrNetwork):
		f.Kind = KindNetworkError
	case errors.As(err, &serverErr):
		f.Kind = KindServerError
		f.StatusCode = serverErr.StatusCode
		if serverErr.Message != "" {
			f.Reason = serverErr.Message
		}
	}
	return f
}
