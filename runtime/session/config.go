// Package session implements the recording session state machine: capture a
// recording, finalize it, upload it once and project the backend's answer.
//
// Controller drives the "send message" flow (one whole-file upload).
// MeetingRecorder drives live meetings, uploading fixed-interval segments
// while capture continues. Both publish lifecycle events, raise one toast per
// terminal state and optionally save a history record.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/AltairaLabs/VoiceDesk/runtime/appctx"
	"github.com/AltairaLabs/VoiceDesk/runtime/capture"
	"github.com/AltairaLabs/VoiceDesk/runtime/statestore"
	"github.com/AltairaLabs/VoiceDesk/runtime/telemetry"
	"github.com/AltairaLabs/VoiceDesk/runtime/timer"
	"github.com/AltairaLabs/VoiceDesk/runtime/transport"
)

// Uploader sends a finalized recording. *transport.Client implements it.
type Uploader interface {
	SendWhole(ctx context.Context, audio *capture.Audio) (*transport.AudioResponse, error)
}

// MeetingTransport is the incremental upload contract. *transport.Client
// implements it.
type MeetingTransport interface {
	StartSession(ctx context.Context) (*transport.SessionStarted, error)
	SendChunk(ctx context.Context, sessionID int64, index int, payload []byte, startMs, endMs int64) (*transport.ChunkAck, error)
	StopSession(ctx context.Context, sessionID int64) (*transport.SessionStopped, error)
}

// Config holds the collaborators shared by Controller and MeetingRecorder.
// Only the capture device and the transport are required.
type Config struct {
	// App provides the event bus and toasts. Default: a context without a bus.
	App *appctx.Context

	// Timer counts recording seconds. Default: a wall-clock timer.
	Timer *timer.Timer

	// History receives a record for every terminal session. Optional.
	History statestore.Store

	// Tracer wraps uploads in spans. Default: the global provider's tracer.
	Tracer trace.Tracer

	// Clock overrides time.Now.
	Clock func() time.Time

	// NewID generates session IDs. Default: uuid.NewString.
	NewID func() string
}

// historyTimeout bounds a history write so a slow store never holds up
// session completion.
const historyTimeout = 5 * time.Second

var errMissingDependency = errors.New("missing required dependency")

func (c Config) withDefaults() Config {
	if c.App == nil {
		c.App = appctx.New(nil, nil, nil)
	}
	if c.Timer == nil {
		c.Timer = timer.New()
	}
	if c.Tracer == nil {
		c.Tracer = telemetry.Tracer(nil)
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.NewID == nil {
		c.NewID = uuid.NewString
	}
	return c
}
