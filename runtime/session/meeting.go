package session

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AltairaLabs/VoiceDesk/runtime/capture"
	"github.com/AltairaLabs/VoiceDesk/runtime/events"
	"github.com/AltairaLabs/VoiceDesk/runtime/logger"
	"github.com/AltairaLabs/VoiceDesk/runtime/notify"
	"github.com/AltairaLabs/VoiceDesk/runtime/projector"
)

// DefaultSegmentInterval is the meeting segment length.
const DefaultSegmentInterval = 30 * time.Second

// segmentQueueSize bounds segments waiting for upload. A full queue blocks
// the capture goroutine until the worker catches up.
const segmentQueueSize = 64

// MeetingRecorder records a meeting and uploads it incrementally: every
// segment is sent, in index order, while capture continues. Stop flushes the
// last segment, waits for the queue to drain and closes the server session.
type MeetingRecorder struct {
	core
	device    capture.ChunkStreamable
	transport MeetingTransport
	interval  time.Duration

	// Owned by the current live meeting; guarded by core.mu.
	run *meetingRun
}

// meetingRun is the upload pipeline of one meeting.
type meetingRun struct {
	queue  chan capture.Segment
	group  *errgroup.Group
	ctx    context.Context //nolint:containedctx // cancels the worker and blocked producers
	cancel context.CancelFunc
}

// NewMeetingRecorder creates a meeting recorder. A non-positive interval
// selects DefaultSegmentInterval.
func NewMeetingRecorder(
	cfg Config, device capture.ChunkStreamable, transport MeetingTransport, interval time.Duration,
) (*MeetingRecorder, error) {
	if device == nil || transport == nil {
		return nil, fmt.Errorf("%w: capture device and meeting transport are required", errMissingDependency)
	}
	if interval <= 0 {
		interval = DefaultSegmentInterval
	}
	return &MeetingRecorder{
		core:      core{cfg: cfg.withDefaults()},
		device:    device,
		transport: transport,
		interval:  interval,
	}, nil
}

// Interval returns the fixed segment length.
func (m *MeetingRecorder) Interval() time.Duration {
	return m.interval
}

// Start acquires the microphone, opens the server session and begins
// capture.
func (m *MeetingRecorder) Start(ctx context.Context) error {
	r, err := m.begin(VariantMeeting)
	if err != nil {
		return err
	}
	ctx = m.sessionContext(ctx, r)

	h, err := m.device.RequestStream(ctx, m.interval)
	if err != nil {
		return m.fail(ctx, r, classify(err, KindDeviceUnavailable))
	}

	started, err := m.transport.StartSession(ctx)
	if err != nil {
		_ = h.Release()
		return m.fail(ctx, r, classify(err, KindServerError))
	}

	m.mu.Lock()
	r.sess.ServerSessionID = started.SessionID
	r.sess.MeetingID = started.MeetingID
	m.mu.Unlock()
	ctx = logger.WithServerSessionID(ctx, started.SessionID)

	run := m.newRun(ctx, r, h, started.SessionID)
	h.OnChunk(func(chunk []byte) { m.appendChunk(r, chunk) })
	h.OnError(func(err error) {
		run.cancel()
		m.captureFailed(r, err)
	})
	h.OnSegment(func(seg capture.Segment) {
		select {
		case run.queue <- seg:
		case <-run.ctx.Done():
		}
	})

	m.mu.Lock()
	m.run = run
	m.mu.Unlock()

	if err := m.startCapture(ctx, r, h); err != nil {
		run.cancel()
		return err
	}

	logger.InfoContext(ctx, "🎙️ Meeting recording started", "interval", m.interval)
	m.publish(r.sess.ID, events.EventSessionStarted, events.SessionStartedData{Variant: string(VariantMeeting)})
	m.cfg.App.Toast(events.ToastInfo, notify.KeyMeetingStarted)
	return nil
}

func (m *MeetingRecorder) newRun(ctx context.Context, r *record, h capture.Handle, serverID int64) *meetingRun {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	group, groupCtx := errgroup.WithContext(runCtx)
	run := &meetingRun{
		queue:  make(chan capture.Segment, segmentQueueSize),
		group:  group,
		ctx:    groupCtx,
		cancel: cancel,
	}
	group.Go(func() error {
		return m.uploadSegments(groupCtx, r, h, run, serverID)
	})
	return run
}

// uploadSegments is the single ordered worker. The first failure ends the
// session; queued segments are dropped.
func (m *MeetingRecorder) uploadSegments(
	ctx context.Context, r *record, h capture.Handle, run *meetingRun, serverID int64,
) error {
	for {
		var seg capture.Segment
		var ok bool
		select {
		case seg, ok = <-run.queue:
			if !ok {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}

		if err := m.sendSegment(ctx, r, serverID, seg); err != nil {
			m.chunkFailed(r, h, err)
			return err
		}
	}
}

func (m *MeetingRecorder) sendSegment(ctx context.Context, r *record, serverID int64, seg capture.Segment) error {
	ctx = logger.WithChunkIndex(ctx, seg.Index)
	ctx, span := m.cfg.Tracer.Start(ctx, "meeting.chunk_upload",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int64("meeting.session_id", serverID),
			attribute.Int("chunk.index", seg.Index),
			attribute.Int("chunk.bytes", len(seg.Data)),
		),
	)
	defer span.End()

	start := m.cfg.Clock()
	_, err := m.transport.SendChunk(ctx, serverID, seg.Index, seg.Data, seg.StartMs, seg.EndMs)
	elapsed := m.cfg.Clock().Sub(start)

	m.publish(r.sess.ID, events.EventMeetingChunkUploaded, events.ChunkUploadedData{
		ServerSessionID: serverID,
		Index:           seg.Index,
		Bytes:           len(seg.Data),
		Duration:        elapsed,
		Err:             err,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chunk upload failed")
		return err
	}
	logger.DebugContext(ctx, "Meeting chunk uploaded", "bytes", len(seg.Data), "duration", elapsed)
	return nil
}

// chunkFailed ends the meeting on the first rejected segment and releases
// the device if capture is still running.
func (m *MeetingRecorder) chunkFailed(r *record, h capture.Handle, err error) {
	m.mu.Lock()
	recording := r.sess.Status == StatusRecording
	m.stopTimerLocked(r)
	settle := m.finishLocked(r, StatusFailed, nil, classify(err, KindServerError))
	m.mu.Unlock()

	if recording {
		_ = h.Release()
	}
	if settle {
		m.settle(context.Background(), r)
	}
}

// Stop flushes the final segment and begins closing the meeting: pending
// chunk uploads drain, then the server session is stopped. The returned
// audio is Streamed: its bytes already left as segments.
func (m *MeetingRecorder) Stop(ctx context.Context) (*capture.Audio, error) {
	r, first, err := m.beginStop()
	if err != nil {
		return nil, err
	}
	if !first {
		return m.waitStopped(ctx, r)
	}

	m.mu.Lock()
	run := m.run
	m.mu.Unlock()

	audio, stopErr := r.handle.Stop(ctx)
	if ok, err := m.finalize(ctx, r, audio, stopErr); !ok {
		run.cancel()
		return nil, err
	}

	// The read loop has ended, so no producer can send after this.
	close(run.queue)
	go m.finish(context.WithoutCancel(ctx), r, run)
	return audio, nil
}

func (m *MeetingRecorder) finish(ctx context.Context, r *record, run *meetingRun) {
	defer run.cancel()
	ctx = m.sessionContext(ctx, r)

	m.mu.Lock()
	serverID := r.sess.ServerSessionID
	meetingID := r.sess.MeetingID
	m.mu.Unlock()

	ctx, span := m.cfg.Tracer.Start(ctx, "session.upload",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("session.id", r.sess.ID),
			attribute.String("session.variant", string(VariantMeeting)),
			attribute.Int64("meeting.session_id", serverID),
		),
	)
	defer span.End()

	if err := run.group.Wait(); err != nil {
		// chunkFailed already ended the session.
		span.RecordError(err)
		span.SetStatus(codes.Error, "chunk upload failed")
		return
	}

	resp, err := m.transport.StopSession(ctx, serverID)
	if err != nil {
		f := classify(err, KindServerError)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(f.Kind))
		m.complete(ctx, r, nil, f)
		return
	}

	result := projector.ProjectMeetingStop(resp, meetingID)
	m.complete(ctx, r, &result, nil)
}

// Close discards a live meeting, releases the device and stops the upload
// worker. A meeting that is already closing runs to completion.
func (m *MeetingRecorder) Close() error {
	m.mu.Lock()
	run := m.run
	live := m.current != nil && m.current.sess.Status == StatusRecording
	m.mu.Unlock()

	err := m.core.Close()
	if live && run != nil {
		run.cancel()
	}
	return err
}
