package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AltairaLabs/VoiceDesk/runtime/session"
	"github.com/AltairaLabs/VoiceDesk/tools/voicedesk/tui"
)

// liveInterval is how often line mode refreshes the recording line.
const liveInterval = time.Second

var (
	errNotSignedIn   = errors.New("not signed in: run 'voicedesk login' first")
	errSessionFailed = errors.New("session failed")
)

// recordOptions are the flags shared by record and meeting.
type recordOptions struct {
	noTUI       bool
	maxDuration time.Duration
	interval    time.Duration
}

// NewRecordCmd records one voice message and sends it when stopped.
func NewRecordCmd(opts *globalOptions) *cobra.Command {
	var ro recordOptions

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a voice message and send it to the assistant",
		Long: `Record from the microphone until you stop, then upload the recording once
and print the assistant's answer. Press space or enter to stop in the
interactive screen, or Enter / Ctrl+C in line mode.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRecording(cmd, opts, session.VariantMessage, ro)
		},
	}
	addRecordFlags(cmd, &ro)
	return cmd
}

// NewMeetingCmd records a meeting, uploading segments while recording.
func NewMeetingCmd(opts *globalOptions) *cobra.Command {
	var ro recordOptions

	cmd := &cobra.Command{
		Use:   "meeting",
		Short: "Record a meeting with live segment upload",
		Long: `Record a meeting. Audio is uploaded in fixed-length segments while you
record; when you stop, the backend transcribes and summarizes the meeting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRecording(cmd, opts, session.VariantMeeting, ro)
		},
	}
	addRecordFlags(cmd, &ro)
	cmd.Flags().DurationVar(&ro.interval, "interval", 0, "segment length (default: capture.segment_interval)")
	return cmd
}

func addRecordFlags(cmd *cobra.Command, ro *recordOptions) {
	cmd.Flags().BoolVar(&ro.noTUI, "no-tui", false, "use line output even on a terminal")
	cmd.Flags().DurationVar(&ro.maxDuration, "max-duration", 0, "stop automatically after this long (default: capture.max_duration)")
}

func runRecording(cmd *cobra.Command, opts *globalOptions, variant session.Variant, ro recordOptions) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(cmd.Context()))

	if !a.ctx.SignedIn() {
		return errNotSignedIn
	}
	if ro.maxDuration <= 0 {
		ro.maxDuration = a.cfg.Capture.MaxDuration
	}

	rec, title, err := a.newRecorder(variant, ro.interval)
	if err != nil {
		return err
	}
	defer rec.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var s session.Session
	if ok, reason := tui.Supported(); ok && !ro.noTUI && a.color {
		s, err = a.recordInteractive(ctx, rec, title, ro.maxDuration)
	} else {
		if !ro.noTUI && reason != "" {
			a.formatter.Info("Line mode: " + reason)
		}
		s, err = a.recordLines(ctx, cmd, rec, ro.maxDuration)
	}
	if err != nil {
		return err
	}
	return a.report(cmd, s)
}

// newRecorder builds the controller for variant.
func (a *app) newRecorder(variant session.Variant, interval time.Duration) (tui.Recorder, string, error) {
	if variant == session.VariantMeeting {
		if interval <= 0 {
			interval = a.cfg.Capture.SegmentInterval
		}
		rec, err := session.NewMeetingRecorder(a.sessionConfig(), a.device(), a.client, interval)
		return rec, "Meeting", err
	}
	rec, err := session.NewController(a.sessionConfig(), a.device(), a.client)
	return rec, "Message", err
}

func (a *app) recordInteractive(
	ctx context.Context, rec tui.Recorder, title string, maxDuration time.Duration,
) (session.Session, error) {
	model := tui.NewModel(ctx, rec, tui.Options{
		Title:       title,
		Markdown:    a.markdown,
		MaxDuration: maxDuration,
		AutoStart:   true,
	})
	if err := tui.Run(ctx, model, a.bus); err != nil && !errors.Is(err, context.Canceled) {
		return session.Session{}, err
	}
	return a.settle(ctx, rec)
}

// recordLines records until Enter, a signal or maxDuration, printing plain
// status lines.
func (a *app) recordLines(
	ctx context.Context, cmd *cobra.Command, rec tui.Recorder, maxDuration time.Duration,
) (session.Session, error) {
	a.listen()

	if err := rec.Start(ctx); err != nil {
		var f *session.Failure
		if errors.As(err, &f) {
			return rec.Current(), nil
		}
		return session.Session{}, err
	}
	a.formatter.Info("Recording. Press Enter to stop and send.")

	enter := make(chan struct{})
	go func() {
		if bufio.NewScanner(cmd.InOrStdin()).Scan() {
			close(enter)
		}
	}()

	var limit <-chan time.Time
	if maxDuration > 0 {
		t := time.NewTimer(maxDuration)
		defer t.Stop()
		limit = t.C
	}
	ticker := time.NewTicker(liveInterval)
	defer ticker.Stop()

wait:
	for {
		select {
		case <-enter:
			break wait
		case <-ctx.Done():
			break wait
		case <-limit:
			a.formatter.Info(fmt.Sprintf("Reached the %s limit.", maxDuration))
			break wait
		case <-ticker.C:
			s := rec.Current()
			if s.Status != session.StatusRecording {
				// Capture failed on its own.
				return a.settle(ctx, rec)
			}
			if a.color {
				a.formatter.Recording(s)
			}
		}
	}

	if _, err := rec.Stop(context.WithoutCancel(ctx)); err != nil {
		var f *session.Failure
		if !errors.As(err, &f) {
			return session.Session{}, err
		}
	}
	if s := rec.Current(); s.Status != session.StatusFailed {
		a.formatter.Stopped(s)
		a.formatter.Uploading()
	}
	return a.settle(ctx, rec)
}

// settle waits for the session outcome. A canceled ctx does not abandon an
// upload already in flight.
func (a *app) settle(ctx context.Context, rec tui.Recorder) (session.Session, error) {
	s := rec.Current()
	if s.Status == session.StatusIdle || s.Status.Terminal() {
		return s, nil
	}
	if s.Status == session.StatusRecording {
		return s, nil
	}
	return rec.Await(context.WithoutCancel(ctx))
}

// report prints the outcome and turns a failure into a non-zero exit.
func (a *app) report(cmd *cobra.Command, s session.Session) error {
	switch s.Status {
	case session.StatusSucceeded:
		if s.Result != nil {
			a.formatter.Result(*s.Result)
		}
		return nil
	case session.StatusFailed:
		cmd.SilenceErrors = true
		if s.Failure == nil {
			return errSessionFailed
		}
		a.formatter.Failure(s.Failure)
		return s.Failure
	default:
		return nil
	}
}
