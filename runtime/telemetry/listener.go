package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AltairaLabs/VoiceDesk/runtime/events"
)

// spanEntry tracks an in-flight span and its context.
type spanEntry struct {
	span trace.Span
	ctx  context.Context //nolint:containedctx // needed to parent child spans
}

// OTelEventListener turns session lifecycle events into spans: one
// voicedesk.session root per session, a voicedesk.recording child covering
// capture, a voicedesk.waiting child covering the upload, and span events
// for chunks and meeting segment uploads. Spans use the event timestamps.
type OTelEventListener struct {
	tracer trace.Tracer
	parent context.Context //nolint:containedctx // parents every session root

	mu       sync.Mutex
	sessions map[string]*spanEntry // sessionID → root span
	inflight map[string]*spanEntry // "<phase>:<sessionID>" → child span
}

// NewOTelEventListener creates a listener whose session roots are parented
// under parentCtx. A nil parentCtx starts new traces.
func NewOTelEventListener(parentCtx context.Context, tracer trace.Tracer) *OTelEventListener {
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	return &OTelEventListener{
		tracer:   tracer,
		parent:   parentCtx,
		sessions: make(map[string]*spanEntry),
		inflight: make(map[string]*spanEntry),
	}
}

// OnEvent handles one event. It can be passed to EventBus.SubscribeAll.
func (l *OTelEventListener) OnEvent(evt *events.Event) {
	if evt.SessionID == "" {
		return
	}
	//nolint:exhaustive // only session events produce spans
	switch evt.Type {
	case events.EventSessionStarted:
		l.onStarted(evt)
	case events.EventSessionChunk:
		l.onChunk(evt)
	case events.EventSessionStopped:
		l.onStopped(evt)
	case events.EventSessionUploading:
		l.onUploading(evt)
	case events.EventMeetingChunkUploaded:
		l.onChunkUploaded(evt)
	case events.EventSessionSucceeded:
		l.onSucceeded(evt)
	case events.EventSessionFailed:
		l.onFailed(evt)
	}
}

// Open reports the number of sessions with an unfinished root span.
func (l *OTelEventListener) Open() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}

// root returns the session root, creating it when the first event of the
// session is not a start (a file submission or an access failure).
func (l *OTelEventListener) root(evt *events.Event, variant string) *spanEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.sessions[evt.SessionID]; ok {
		return e
	}
	ctx, span := l.tracer.Start(l.parent, "voicedesk.session",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(evt.Timestamp),
		trace.WithAttributes(
			attribute.String("session.id", evt.SessionID),
			attribute.String("session.variant", variant),
		),
	)
	e := &spanEntry{span: span, ctx: ctx}
	l.sessions[evt.SessionID] = e
	return e
}

func (l *OTelEventListener) startChild(evt *events.Event, variant, phase string, attrs ...attribute.KeyValue) {
	parent := l.root(evt, variant)
	ctx, span := l.tracer.Start(parent.ctx, "voicedesk."+phase,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(evt.Timestamp),
		trace.WithAttributes(attrs...),
	)
	l.mu.Lock()
	l.inflight[phase+":"+evt.SessionID] = &spanEntry{span: span, ctx: ctx}
	l.mu.Unlock()
}

// endChild ends a child span. A non-empty errMsg marks it failed.
func (l *OTelEventListener) endChild(evt *events.Event, phase, errMsg string, attrs ...attribute.KeyValue) {
	key := phase + ":" + evt.SessionID
	l.mu.Lock()
	entry, ok := l.inflight[key]
	delete(l.inflight, key)
	l.mu.Unlock()
	if !ok {
		return
	}
	entry.span.SetAttributes(attrs...)
	if errMsg != "" {
		entry.span.SetStatus(codes.Error, errMsg)
	} else {
		entry.span.SetStatus(codes.Ok, "")
	}
	entry.span.End(trace.WithTimestamp(evt.Timestamp))
}

// endRoot ends the session root and any child left open.
func (l *OTelEventListener) endRoot(evt *events.Event, errMsg string, attrs ...attribute.KeyValue) {
	l.endChild(evt, "recording", errMsg)
	l.endChild(evt, "waiting", errMsg)

	l.mu.Lock()
	entry, ok := l.sessions[evt.SessionID]
	delete(l.sessions, evt.SessionID)
	l.mu.Unlock()
	if !ok {
		return
	}
	entry.span.SetAttributes(attrs...)
	if errMsg != "" {
		entry.span.SetStatus(codes.Error, errMsg)
	} else {
		entry.span.SetStatus(codes.Ok, "")
	}
	entry.span.End(trace.WithTimestamp(evt.Timestamp))
}

func (l *OTelEventListener) onStarted(evt *events.Event) {
	data, ok := evt.Data.(events.SessionStartedData)
	if !ok {
		return
	}
	l.startChild(evt, data.Variant, "recording")
}

func (l *OTelEventListener) onChunk(evt *events.Event) {
	data, ok := evt.Data.(events.ChunkData)
	if !ok {
		return
	}
	l.mu.Lock()
	entry, ok := l.inflight["recording:"+evt.SessionID]
	l.mu.Unlock()
	if !ok {
		return
	}
	entry.span.AddEvent("chunk", trace.WithTimestamp(evt.Timestamp), trace.WithAttributes(
		attribute.Int("chunk.index", data.Index),
		attribute.Int("chunk.bytes", data.Bytes),
	))
}

func (l *OTelEventListener) onStopped(evt *events.Event) {
	data, ok := evt.Data.(events.SessionStoppedData)
	if !ok {
		return
	}
	l.endChild(evt, "recording", "",
		attribute.Int64("recording.duration_ms", data.Duration.Milliseconds()),
		attribute.Int("recording.chunks", data.Chunks),
		attribute.Int("recording.bytes", data.Bytes),
		attribute.String("audio.mime_type", data.MIMEType),
	)
}

func (l *OTelEventListener) onUploading(evt *events.Event) {
	data, ok := evt.Data.(events.UploadingData)
	if !ok {
		return
	}
	l.startChild(evt, data.Variant, "waiting", attribute.Int("audio.bytes", data.Bytes))
}

func (l *OTelEventListener) onChunkUploaded(evt *events.Event) {
	data, ok := evt.Data.(events.ChunkUploadedData)
	if !ok {
		return
	}
	l.mu.Lock()
	entry, ok := l.sessions[evt.SessionID]
	l.mu.Unlock()
	if !ok {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.Int64("meeting.session_id", data.ServerSessionID),
		attribute.Int("chunk.index", data.Index),
		attribute.Int("chunk.bytes", data.Bytes),
		attribute.Int64("chunk.duration_ms", data.Duration.Milliseconds()),
	}
	if data.Err != nil {
		attrs = append(attrs, attribute.String("error", data.Err.Error()))
	}
	entry.span.AddEvent("meeting.chunk_uploaded", trace.WithTimestamp(evt.Timestamp), trace.WithAttributes(attrs...))
}

func (l *OTelEventListener) onSucceeded(evt *events.Event) {
	data, ok := evt.Data.(events.SessionSucceededData)
	if !ok {
		return
	}
	l.root(evt, data.Variant)
	l.endRoot(evt, "",
		attribute.Bool("result.is_meeting", data.IsMeeting),
		attribute.Int64("upload.duration_ms", data.UploadDuration.Milliseconds()),
	)
}

func (l *OTelEventListener) onFailed(evt *events.Event) {
	data, ok := evt.Data.(events.SessionFailedData)
	if !ok {
		return
	}
	l.root(evt, data.Variant)
	attrs := []attribute.KeyValue{
		attribute.String("failure.kind", data.Kind),
		attribute.String("failure.reason", data.Reason),
	}
	if data.StatusCode != 0 {
		attrs = append(attrs, attribute.Int("http.response.status_code", data.StatusCode))
	}
	l.endRoot(evt, data.Kind, attrs...)
}
