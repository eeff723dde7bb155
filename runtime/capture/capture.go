// Package capture wraps the platform microphone primitive behind the two
// capability variants the session layer consumes: Recordable for whole-file
// capture and ChunkStreamable for the incremental meeting-recording path.
//
// An Adapter drives any Device (ffmpeg subprocess, PortAudio stream, or the
// in-memory device in capturetest) and owns the handle lifecycle: exclusive
// acquisition, ordered chunk delivery, flush on stop, and guaranteed release.
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the capture taxonomy.
var (
	// ErrPermissionDenied is returned when the user or OS refuses microphone access.
	ErrPermissionDenied = errors.New("microphone permission denied")

	// ErrDeviceUnavailable is returned when no input device (or capture tool) exists.
	ErrDeviceUnavailable = errors.New("no audio input device available")

	// ErrInvalidState is returned when a handle operation is not valid in its current state.
	ErrInvalidState = errors.New("invalid capture state")
)

// CaptureError reports a device-level I/O failure during capture.
type CaptureError struct {
	// Device is the name of the device that failed.
	Device string

	// Cause is the underlying I/O error.
	Cause error
}

// Error implements the error interface.
func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture error on %s: %v", e.Device, e.Cause)
}

// Unwrap returns the underlying error.
func (e *CaptureError) Unwrap() error {
	return e.Cause
}

// Audio is a finalized recording: the ordered chunks assembled into one
// encoded object with an explicit container type.
type Audio struct {
	Data      []byte
	MIMEType  string
	Extension string
	Chunks    int
	Duration  time.Duration

	// Name overrides the generated upload file name, e.g. for an existing file.
	Name string

	// Streamed marks a recording that left as segments during capture. Data
	// is empty and StreamedBytes holds the captured size.
	Streamed      bool
	StreamedBytes int
}

// Size returns the payload length in bytes, or the captured length of a
// streamed recording.
func (a *Audio) Size() int {
	if a == nil {
		return 0
	}
	if a.Streamed {
		return a.StreamedBytes
	}
	return len(a.Data)
}

// FileName returns the upload file name for a recording finalized at t,
// e.g. "recording_1718000000000.webm".
func (a *Audio) FileName(t time.Time) string {
	if a.Name != "" {
		return a.Name
	}
	ext := a.Extension
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("recording_%d.%s", t.UnixMilli(), ext)
}

// ChunkFunc receives one non-empty chunk. Calls happen in capture order on a
// single goroutine. The slice may be shared with the finalized recording and
// must not be modified.
type ChunkFunc func(chunk []byte)

// ErrorFunc receives the CaptureError that ended a capture. It is called at most once.
type ErrorFunc func(err error)

// Handle is an exclusive capture session on a device.
type Handle interface {
	// OnChunk registers the chunk callback. It must be called before Start.
	OnChunk(fn ChunkFunc)

	// OnError registers the capture-failure callback. It must be called before Start.
	OnError(fn ErrorFunc)

	// Start begins capture. It may be called once.
	Start(ctx context.Context) error

	// Stop ends capture, flushes buffered audio as a final chunk, releases the
	// device and returns the finalized payload. Repeated calls return the
	// same payload.
	Stop(ctx context.Context) (*Audio, error)

	// Release frees the device without finalizing. It is safe to call at any
	// time and more than once.
	Release() error
}

// Recordable is the whole-file capture capability.
type Recordable interface {
	// RequestAccess acquires the device. It fails with ErrPermissionDenied or
	// ErrDeviceUnavailable.
	RequestAccess(ctx context.Context) (Handle, error)
}

// Segment is a slice of the recording delivered during capture for
// incremental upload. Indexes start at 0 and increase by one.
type Segment struct {
	Index   int
	Data    []byte
	StartMs int64
	EndMs   int64
}

// SegmentFunc receives segments in index order on the capture goroutine.
type SegmentFunc func(seg Segment)

// StreamHandle is a Handle that also emits fixed-interval segments.
type StreamHandle interface {
	Handle

	// OnSegment registers the segment callback. It must be called before Start.
	OnSegment(fn SegmentFunc)
}

// ChunkStreamable is the incremental capture capability used by meeting recording.
type ChunkStreamable interface {
	Recordable

	// RequestStream acquires the device for a capture that emits a segment
	// every interval. The interval is fixed for the life of the handle. Once a
	// segment callback is registered, audio is held only until its segment is
	// emitted and Stop returns a Streamed recording.
	RequestStream(ctx context.Context, interval time.Duration) (StreamHandle, error)
}

// Device is the platform capture primitive an Adapter drives.
type Device interface {
	// Name identifies the device in logs and errors.
	Name() string

	// Format describes the container the device's bytes belong to.
	Format() Format

	// Probe checks permission and availability without starting capture.
	Probe(ctx context.Context) error

	// Open starts the device and returns its byte stream.
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open device producing encoded audio.
type Stream interface {
	// Read blocks until audio is available. After Finish it drains the
	// remaining bytes and then returns io.EOF.
	Read(p []byte) (int, error)

	// Finish asks the device to end capture and flush.
	Finish() error

	// Close releases the device immediately.
	Close() error
}
