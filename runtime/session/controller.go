package session

import (
	"context"
	"fmt"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AltairaLabs/VoiceDesk/runtime/capture"
	"github.com/AltairaLabs/VoiceDesk/runtime/events"
	"github.com/AltairaLabs/VoiceDesk/runtime/logger"
	"github.com/AltairaLabs/VoiceDesk/runtime/media"
	"github.com/AltairaLabs/VoiceDesk/runtime/notify"
	"github.com/AltairaLabs/VoiceDesk/runtime/projector"
)

// Controller runs the "send message" flow: record, stop, upload the whole
// recording once, project the answer. It holds at most one live session.
type Controller struct {
	core
	device   capture.Recordable
	uploader Uploader
}

// NewController creates a message controller.
func NewController(cfg Config, device capture.Recordable, uploader Uploader) (*Controller, error) {
	if device == nil || uploader == nil {
		return nil, fmt.Errorf("%w: capture device and uploader are required", errMissingDependency)
	}
	return &Controller{
		core:     core{cfg: cfg.withDefaults()},
		device:   device,
		uploader: uploader,
	}, nil
}

// Start acquires the microphone and begins recording. It returns
// ErrAlreadyRecording while another session is live. An access failure ends
// the new session as failed and is returned as a *Failure.
func (c *Controller) Start(ctx context.Context) error {
	r, err := c.begin(VariantMessage)
	if err != nil {
		return err
	}
	ctx = c.sessionContext(ctx, r)

	h, err := c.device.RequestAccess(ctx)
	if err != nil {
		return c.fail(ctx, r, classify(err, KindDeviceUnavailable))
	}
	h.OnChunk(func(chunk []byte) { c.appendChunk(r, chunk) })
	h.OnError(func(err error) { c.captureFailed(r, err) })

	if err := c.startCapture(ctx, r, h); err != nil {
		return err
	}

	logger.InfoContext(ctx, "🎙️ Recording started")
	c.publish(r.sess.ID, events.EventSessionStarted, events.SessionStartedData{Variant: string(VariantMessage)})
	c.cfg.App.Toast(events.ToastInfo, notify.KeyRecordingStarted)
	return nil
}

// startCapture moves r into recording and starts the handle. The lock is
// held across Start so no Stop can observe a recording whose device is not
// yet running.
func (c *core) startCapture(ctx context.Context, r *record, h capture.Handle) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = h.Release()
		return c.fail(ctx, r, &Failure{Kind: KindCaptureError, Reason: "controller closed", Err: ErrClosed})
	}
	c.startRecordingLocked(r, h)
	err := h.Start(ctx)
	c.mu.Unlock()

	if err != nil {
		_ = h.Release()
		return c.fail(ctx, r, classify(err, KindCaptureError))
	}
	return nil
}

// captureFailed handles a device I/O error: buffered chunks are discarded
// and the session fails. The adapter has already released the device.
func (c *core) captureFailed(r *record, err error) {
	c.mu.Lock()
	if r.sess.Status != StatusRecording {
		c.mu.Unlock()
		return
	}
	r.discardChunks()
	c.stopTimerLocked(r)
	settle := c.finishLocked(r, StatusFailed, nil, classify(err, KindCaptureError))
	c.mu.Unlock()

	if settle {
		c.settle(context.Background(), r)
	}
}

// Stop finalizes the recording and immediately begins the upload. It
// returns the finalized payload; repeated calls return the same payload and
// never upload twice. The upload outlives ctx; use Await for its outcome.
func (c *Controller) Stop(ctx context.Context) (*capture.Audio, error) {
	r, first, err := c.beginStop()
	if err != nil {
		return nil, err
	}
	if !first {
		return c.waitStopped(ctx, r)
	}

	audio, stopErr := r.handle.Stop(ctx)
	if ok, err := c.finalize(ctx, r, audio, stopErr); !ok {
		return nil, err
	}

	go c.upload(context.WithoutCancel(ctx), r, audio)
	return audio, nil
}

// Submit uploads an already finalized recording, skipping capture.
func (c *Controller) Submit(ctx context.Context, audio *capture.Audio) error {
	if audio == nil || audio.Size() == 0 {
		return fmt.Errorf("%w: nothing to submit", media.ErrEmptyAudio)
	}

	r, err := c.begin(VariantFile)
	if err != nil {
		return err
	}

	c.mu.Lock()
	now := c.cfg.Clock()
	r.sess.StartedAt = now
	r.sess.StoppedAt = now
	r.sess.Audio = audio
	r.addChunk(audio.Data)
	r.moveTo(StatusStopped)
	r.moveTo(StatusUploading)
	r.uploadAt = now
	r.stopped = make(chan struct{})
	close(r.stopped)
	snap := r.snapshot()
	c.mu.Unlock()

	c.publishUploading(snap)
	go c.upload(context.WithoutCancel(ctx), r, audio)
	return nil
}

// SubmitFile loads and validates an audio file, then submits it. A rejected
// file ends a session as failed with KindInvalidAudio.
func (c *Controller) SubmitFile(ctx context.Context, path string) (*capture.Audio, error) {
	audio, err := media.LoadAudioFile(path)
	if err != nil {
		r, berr := c.begin(VariantFile)
		if berr != nil {
			return nil, berr
		}
		return nil, c.fail(c.sessionContext(ctx, r), r, classify(err, KindInvalidAudio))
	}

	c.cfg.App.Toast(events.ToastInfo, notify.KeyFileSelected, filepath.Base(path))
	if err := c.Submit(ctx, audio); err != nil {
		return nil, err
	}
	return audio, nil
}

func (c *Controller) upload(ctx context.Context, r *record, audio *capture.Audio) {
	ctx = c.sessionContext(ctx, r)
	ctx, span := c.cfg.Tracer.Start(ctx, "session.upload",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("session.id", r.sess.ID),
			attribute.String("session.variant", string(r.sess.Variant)),
			attribute.String("audio.mime_type", audio.MIMEType),
			attribute.Int("audio.bytes", audio.Size()),
		),
	)
	defer span.End()

	logger.InfoContext(ctx, "📤 Uploading recording", "bytes", audio.Size(), "mime_type", audio.MIMEType)
	resp, err := c.uploader.SendWhole(ctx, audio)
	if err != nil {
		f := classify(err, KindServerError)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(f.Kind))
		c.complete(ctx, r, nil, f)
		return
	}

	result := projector.Project(resp)
	span.SetAttributes(attribute.Bool("result.is_meeting", result.IsMeetingDetected))
	c.complete(ctx, r, &result, nil)
}
