package session

import (
	"context"
	"sync"
	"time"

	"github.com/AltairaLabs/VoiceDesk/runtime/capture"
	"github.com/AltairaLabs/VoiceDesk/runtime/events"
	"github.com/AltairaLabs/VoiceDesk/runtime/logger"
	"github.com/AltairaLabs/VoiceDesk/runtime/notify"
	"github.com/AltairaLabs/VoiceDesk/runtime/projector"
	"github.com/AltairaLabs/VoiceDesk/runtime/statestore"
)

// core is the bookkeeping shared by both variants: single-flight, chunk
// buffering, terminal transitions and their side effects.
type core struct {
	cfg Config

	mu      sync.Mutex
	current *record
	closed  bool
}

// begin reserves the controller for a new session. The record stays idle
// until the device is acquired, and a busy record blocks any other start.
func (c *core) begin(variant Variant) (*record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.current != nil && !c.current.sess.Status.Terminal() {
		return nil, ErrAlreadyRecording
	}

	r := newRecord(c.cfg.NewID(), variant)
	c.current = r
	return r, nil
}

func (c *core) sessionContext(ctx context.Context, r *record) context.Context {
	ctx = logger.WithSessionID(ctx, r.sess.ID)
	return logger.WithVariant(ctx, string(r.sess.Variant))
}

// startRecordingLocked moves an acquired record into recording.
func (c *core) startRecordingLocked(r *record, h capture.Handle) {
	r.handle = h
	r.sess.StartedAt = c.cfg.Clock()
	r.moveTo(StatusRecording)
	c.cfg.Timer.Start()
}

// stopTimerLocked freezes the elapsed seconds of a recording record.
func (c *core) stopTimerLocked(r *record) {
	if r.sess.Status != StatusRecording {
		return
	}
	r.sess.ElapsedSeconds = c.cfg.Timer.Elapsed()
	c.cfg.Timer.Stop()
}

// appendChunk records one chunk. Chunks arriving outside recording are late
// callbacks and are dropped.
func (c *core) appendChunk(r *record, chunk []byte) {
	c.mu.Lock()
	if c.current != r || r.sess.Status != StatusRecording {
		status := r.sess.Status
		c.mu.Unlock()
		logger.Debug("Ignoring chunk outside recording", "session_id", r.sess.ID, "status", status, "bytes", len(chunk))
		return
	}
	index, total := r.addChunk(chunk)
	c.mu.Unlock()

	c.publish(r.sess.ID, events.EventSessionChunk, events.ChunkData{Index: index, Bytes: len(chunk), TotalBytes: total})
}

// beginStop claims the right to finalize the current record. The first
// caller gets first=true and must call finalize; later callers wait with
// waitStopped.
func (c *core) beginStop() (r *record, first bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r = c.current
	if r == nil {
		return nil, false, ErrNotRecording
	}
	if r.stopped != nil {
		return r, false, nil
	}
	if r.sess.Status != StatusRecording {
		if r.sess.Failure != nil {
			return r, false, r.sess.Failure
		}
		return r, false, ErrNotRecording
	}
	r.stopped = make(chan struct{})
	return r, true, nil
}

// waitStopped returns the outcome of another caller's Stop.
func (c *core) waitStopped(ctx context.Context, r *record) (*capture.Audio, error) {
	select {
	case <-r.stopped:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if r.stopErr != nil {
		return nil, r.stopErr
	}
	return r.sess.Audio, nil
}

// finalize records the result of handle.Stop and, on success, moves the
// record through stopped into uploading. ok is false when the session ended
// instead; err is then the reason.
func (c *core) finalize(ctx context.Context, r *record, audio *capture.Audio, stopErr error) (ok bool, err error) {
	c.mu.Lock()

	if stopErr != nil || r.sess.Status != StatusRecording {
		settle := false
		if r.sess.Status == StatusRecording {
			r.discardChunks()
			c.stopTimerLocked(r)
			settle = c.finishLocked(r, StatusFailed, nil, classify(stopErr, KindCaptureError))
		}
		r.stopErr = r.sess.Failure
		if r.stopErr == nil {
			r.stopErr = stopErr
		}
		close(r.stopped)
		err = r.stopErr
		c.mu.Unlock()

		if settle {
			c.settle(ctx, r)
		}
		return false, err
	}

	now := c.cfg.Clock()
	c.stopTimerLocked(r)
	r.sess.Audio = audio
	r.sess.StoppedAt = now
	r.moveTo(StatusStopped)
	// Chunks are frozen from here on.
	r.moveTo(StatusUploading)
	r.uploadAt = now
	snap := r.snapshot()
	close(r.stopped)
	c.mu.Unlock()

	c.publishUploading(snap)
	return true, nil
}

func (c *core) publishUploading(snap Session) {
	c.publish(snap.ID, events.EventSessionStopped, events.SessionStoppedData{
		Variant:  string(snap.Variant),
		Duration: snap.Duration(),
		Chunks:   snap.ChunkCount,
		Bytes:    snap.Audio.Size(),
		MIMEType: snap.Audio.MIMEType,
	})
	c.publish(snap.ID, events.EventSessionUploading, events.UploadingData{
		Variant: string(snap.Variant),
		Bytes:   snap.Audio.Size(),
	})
}

// finishLocked moves r into a terminal status. It returns false if r was
// already terminal, in which case nothing changes.
func (c *core) finishLocked(r *record, status Status, result *projector.UploadResult, failure *Failure) bool {
	if r.sess.Status.Terminal() {
		return false
	}
	r.moveTo(status)
	r.sess.FinishedAt = c.cfg.Clock()
	r.sess.Result = result
	r.sess.Failure = failure
	return true
}

// complete ends an uploading session with its upload outcome.
func (c *core) complete(ctx context.Context, r *record, result *projector.UploadResult, failure *Failure) {
	status := StatusSucceeded
	if failure != nil {
		status = StatusFailed
	}

	c.mu.Lock()
	ok := c.finishLocked(r, status, result, failure)
	c.mu.Unlock()

	if ok {
		c.settle(ctx, r)
	}
}

// fail ends r from any non-terminal status.
func (c *core) fail(ctx context.Context, r *record, failure *Failure) error {
	c.mu.Lock()
	if r.sess.Status == StatusRecording {
		c.stopTimerLocked(r)
	}
	ok := c.finishLocked(r, StatusFailed, nil, failure)
	c.mu.Unlock()

	if ok {
		c.settle(ctx, r)
	}
	return failure
}

// settle runs the side effects of a terminal transition exactly once per
// session: event, toast, history record. Await returns after it.
func (c *core) settle(ctx context.Context, r *record) {
	c.mu.Lock()
	snap := r.snapshot()
	c.mu.Unlock()

	ctx = c.sessionContext(ctx, r)
	if snap.Status == StatusSucceeded {
		c.publish(snap.ID, events.EventSessionSucceeded, events.SessionSucceededData{
			Variant:        string(snap.Variant),
			UploadDuration: snap.FinishedAt.Sub(r.uploadAt),
			Response:       snap.Result.AssistantResponseText,
			IsMeeting:      snap.Result.IsMeetingDetected,
			FollowUp:       string(snap.Result.FollowUpActionKind),
		})
		logger.InfoContext(ctx, "✅ Session succeeded",
			"bytes", snap.Audio.Size(), "meeting", snap.Result.IsMeetingDetected)
	} else {
		f := snap.Failure
		var ran time.Duration
		if !snap.StartedAt.IsZero() {
			ran = snap.FinishedAt.Sub(snap.StartedAt)
		}
		c.publish(snap.ID, events.EventSessionFailed, events.SessionFailedData{
			Variant:    string(snap.Variant),
			Kind:       string(f.Kind),
			Reason:     f.Reason,
			StatusCode: f.StatusCode,
			Duration:   ran,
		})
		logger.WarnContext(ctx, "❌ Session failed", "kind", f.Kind, "reason", f.Reason, "status_code", f.StatusCode)
	}

	level, key, args := toastFor(snap)
	c.cfg.App.Toast(level, key, args...)

	c.saveHistory(ctx, snap)
	close(r.done)
}

func toastFor(s Session) (events.ToastLevel, notify.Key, []any) {
	if s.Status == StatusSucceeded {
		switch {
		case s.Result.IsMeetingDetected:
			return events.ToastSuccess, notify.KeyMeetingProcessed, nil
		case s.Result.HasFollowUp():
			return events.ToastSuccess, notify.KeyActionCreated, nil
		default:
			return events.ToastSuccess, notify.KeyResponseReceived, nil
		}
	}

	switch s.Failure.Kind {
	case KindPermissionDenied, KindDeviceUnavailable:
		return events.ToastError, notify.KeyMicrophoneError, nil
	case KindCaptureError:
		return events.ToastError, notify.KeyCaptureFailed, nil
	case KindNetworkError:
		return events.ToastError, notify.KeyNetworkError, nil
	case KindTimeout:
		return events.ToastError, notify.KeyTimeout, nil
	case KindUnauthenticated:
		return events.ToastError, notify.KeySessionExpired, nil
	case KindInvalidAudio:
		return events.ToastError, notify.KeyUnsupportedFormat, nil
	case KindServerError:
		if s.Failure.StatusCode > 0 {
			return events.ToastError, notify.KeyServerError, []any{s.Failure.StatusCode}
		}
	}
	return events.ToastError, notify.KeyAudioError, nil
}

func (c *core) saveHistory(ctx context.Context, s Session) {
	if c.cfg.History == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()

	if err := c.cfg.History.Save(ctx, historyRecord(s)); err != nil {
		logger.WarnContext(ctx, "Could not save session history", "error", err)
	}
}

func historyRecord(s Session) *statestore.Record {
	rec := &statestore.Record{
		ID:              s.ID,
		Variant:         string(s.Variant),
		Status:          string(s.Status),
		StartedAt:       s.StartedAt,
		StoppedAt:       s.StoppedAt,
		FinishedAt:      s.FinishedAt,
		DurationMs:      s.Duration().Milliseconds(),
		Bytes:           s.Bytes(),
		Chunks:          s.ChunkCount,
		ServerSessionID: s.ServerSessionID,
		MeetingID:       s.MeetingID,
	}
	if s.Audio != nil {
		rec.Bytes = s.Audio.Size()
		rec.MIMEType = s.Audio.MIMEType
	}
	if s.Result != nil {
		rec.ResponseText = s.Result.AssistantResponseText
		rec.Transcription = s.Result.TranscriptionText
		rec.IsMeeting = s.Result.IsMeetingDetected
		rec.FollowUp = string(s.Result.FollowUpActionKind)
	}
	if s.Failure != nil {
		rec.FailureKind = string(s.Failure.Kind)
		rec.FailureReason = s.Failure.Reason
		rec.StatusCode = s.Failure.StatusCode
	}
	return rec
}

func (c *core) publish(sessionID string, typ events.EventType, data events.EventData) {
	bus := c.cfg.App.Bus()
	if bus == nil {
		return
	}
	bus.Publish(&events.Event{
		Type:      typ,
		Timestamp: time.Now(),
		SessionID: sessionID,
		Data:      data,
	})
}

// Current returns a snapshot of the latest session, or an idle session if
// none was started yet.
func (c *core) Current() Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return Session{Status: StatusIdle}
	}
	s := c.current.snapshot()
	if s.Status == StatusRecording {
		s.ElapsedSeconds = c.cfg.Timer.Elapsed()
	}
	return s
}

// Await blocks until the latest session is terminal and returns it.
func (c *core) Await(ctx context.Context) (Session, error) {
	c.mu.Lock()
	r := c.current
	c.mu.Unlock()

	if r == nil {
		return Session{Status: StatusIdle}, ErrNotRecording
	}

	select {
	case <-r.done:
	case <-ctx.Done():
		return c.Current(), ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return r.snapshot(), nil
}

// Close is teardown: a live recording is discarded and its device
// released. An upload in flight runs to completion. Close is safe to call
// at any time and more than once.
func (c *core) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	r := c.current
	var h capture.Handle
	settle := false
	if r != nil && r.sess.Status == StatusRecording {
		h = r.handle
		r.discardChunks()
		c.stopTimerLocked(r)
		settle = c.finishLocked(r, StatusFailed, nil,
			&Failure{Kind: KindCaptureError, Reason: "recording discarded", Err: ErrClosed})
	}
	c.cfg.Timer.Stop()
	c.mu.Unlock()

	var err error
	if h != nil {
		err = h.Release()
	}
	if settle {
		c.settle(context.Background(), r)
	}
	return err
}
