// Package tui is the interactive recording screen: a live timer while the
// microphone is open, a spinner while the backend works, and the answer
// rendered as markdown.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/AltairaLabs/VoiceDesk/runtime/capture"
	"github.com/AltairaLabs/VoiceDesk/runtime/events"
	"github.com/AltairaLabs/VoiceDesk/runtime/projector"
	"github.com/AltairaLabs/VoiceDesk/runtime/session"
	"github.com/AltairaLabs/VoiceDesk/tools/voicedesk/render"
)

const (
	maxToasts           = 3
	defaultTickInterval = 250 * time.Millisecond
)

// Recorder is the session controller driven by the screen.
// *session.Controller and *session.MeetingRecorder implement it.
type Recorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (*capture.Audio, error)
	Current() session.Session
	Await(ctx context.Context) (session.Session, error)
	Close() error
}

// Options configures the screen.
type Options struct {
	// Title is shown in the header, e.g. "Message" or "Meeting".
	Title string

	// Markdown renders the answer. Nil prints it verbatim.
	Markdown *render.Markdown

	// MaxDuration stops the recording automatically. Zero means no limit.
	MaxDuration time.Duration

	// AutoStart begins recording as soon as the screen opens.
	AutoStart bool

	// TickInterval controls how often the elapsed time is refreshed.
	TickInterval time.Duration
}

// Model is the bubbletea model of the recording screen.
type Model struct {
	ctx  context.Context //nolint:containedctx // bounds Start and Stop calls
	rec  Recorder
	opts Options

	spinner spinner.Model
	width   int

	phase    session.Status
	busy     bool
	elapsed  int
	chunks   int
	bytes    int
	segments int
	lost     int

	toasts    []events.ToastData
	result    *projector.UploadResult
	answer    string
	failure   *session.Failure
	err       error
	signedOut bool
	quitting  bool
}

// NewModel creates the screen for rec.
func NewModel(ctx context.Context, rec Recorder, opts Options) *Model {
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	if opts.Title == "" {
		opts.Title = "VoiceDesk"
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = activeStyle

	return &Model{
		ctx:     ctx,
		rec:     rec,
		opts:    opts,
		spinner: s,
		phase:   session.StatusIdle,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.tick()}
	if m.opts.AutoStart {
		m.busy = true
		cmds = append(cmds, m.startCmd())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tickMsg:
		return m, tea.Batch(m.refresh(), m.tick())
	case startResultMsg:
		m.handleStartResult(msg)
	case finishedMsg:
		m.handleFinished(msg)
	case closedMsg:
		return m, tea.Quit
	case RecordingStartedMsg:
		m.phase = session.StatusRecording
	case ChunkMsg:
		m.chunks = msg.Index + 1
		m.bytes = msg.TotalBytes
	case RecordingStoppedMsg:
		m.phase = session.StatusStopped
		m.elapsed = int(msg.Duration.Seconds())
		m.bytes = msg.Bytes
	case UploadingMsg:
		m.phase = session.StatusUploading
	case SegmentUploadedMsg:
		if msg.Err != nil {
			m.lost++
		} else {
			m.segments++
		}
	case ToastMsg:
		m.toasts = append(m.toasts, events.ToastData(msg))
		if len(m.toasts) > maxToasts {
			m.toasts = m.toasts[len(m.toasts)-maxToasts:]
		}
	case SignedOutMsg:
		m.signedOut = true
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		if m.quitting {
			return nil
		}
		m.quitting = true
		rec := m.rec
		return func() tea.Msg {
			_ = rec.Close()
			return closedMsg{}
		}
	case " ", "enter":
		return m.toggle()
	}
	return nil
}

// toggle starts a new recording or stops the live one.
func (m *Model) toggle() tea.Cmd {
	if m.busy || m.quitting {
		return nil
	}
	switch m.phase {
	case session.StatusRecording:
		m.busy = true
		return m.stopCmd()
	case session.StatusStopped, session.StatusUploading:
		return nil
	default:
		m.reset()
		m.busy = true
		return m.startCmd()
	}
}

func (m *Model) reset() {
	m.elapsed, m.chunks, m.bytes, m.segments, m.lost = 0, 0, 0, 0, 0
	m.result, m.answer, m.failure, m.err = nil, "", nil, nil
}

func (m *Model) startCmd() tea.Cmd {
	ctx, rec := m.ctx, m.rec
	return func() tea.Msg {
		return startResultMsg{err: rec.Start(ctx)}
	}
}

// stopCmd stops capture and waits for the upload outcome.
func (m *Model) stopCmd() tea.Cmd {
	ctx, rec := m.ctx, m.rec
	return func() tea.Msg {
		_, stopErr := rec.Stop(ctx)
		s, err := rec.Await(ctx)
		if err != nil {
			return finishedMsg{session: s, err: err}
		}
		if stopErr != nil && s.Failure == nil && !errors.Is(stopErr, session.ErrNotRecording) {
			return finishedMsg{session: s, err: stopErr}
		}
		return finishedMsg{session: s}
	}
}

func (m *Model) handleStartResult(msg startResultMsg) {
	m.busy = false
	if msg.err == nil {
		m.phase = session.StatusRecording
		return
	}
	var f *session.Failure
	if errors.As(msg.err, &f) {
		m.failure = f
		m.phase = session.StatusFailed
		return
	}
	m.err = msg.err
	if status := m.rec.Current().Status; status != "" {
		m.phase = status
	}
}

func (m *Model) handleFinished(msg finishedMsg) {
	m.busy = false
	m.err = msg.err
	s := msg.session
	if s.Status != "" {
		m.phase = s.Status
	}
	if d := s.Duration(); d > 0 {
		m.elapsed = int(d.Seconds())
	}
	m.failure = s.Failure
	m.result = s.Result
	if s.Result != nil {
		m.answer = s.Result.AssistantResponseText
		if m.opts.Markdown != nil {
			m.answer = m.opts.Markdown.Render(m.answer)
		}
	}
}

// refresh polls the live elapsed time and enforces MaxDuration.
func (m *Model) refresh() tea.Cmd {
	if m.phase != session.StatusRecording {
		return nil
	}
	m.elapsed = m.rec.Current().ElapsedSeconds
	if m.opts.MaxDuration > 0 && !m.busy &&
		time.Duration(m.elapsed)*time.Second >= m.opts.MaxDuration {
		m.busy = true
		return m.stopCmd()
	}
	return nil
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.opts.TickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Phase returns the displayed session status.
func (m *Model) Phase() session.Status {
	return m.phase
}

// Result returns the last answer, if any.
func (m *Model) Result() *projector.UploadResult {
	return m.result
}

// Failure returns the last failure, if any.
func (m *Model) Failure() *session.Failure {
	return m.failure
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder

	b.WriteString(titleStyle.Render("🎙️  VoiceDesk · " + m.opts.Title))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")

	if m.result != nil {
		b.WriteString("\n")
		b.WriteString(m.renderResult())
		b.WriteString("\n")
	}
	if m.failure != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("⚠ " + m.failure.Error()))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("⚠ " + m.err.Error()))
		b.WriteString("\n")
	}
	if len(m.toasts) > 0 {
		b.WriteString("\n")
		for _, t := range m.toasts {
			b.WriteString(renderToast(t))
			b.WriteString("\n")
		}
	}
	if m.signedOut {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render("Signed out. Run 'voicedesk login' to continue."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help()))
	return b.String()
}

func (m *Model) renderStatus() string {
	switch m.phase {
	case session.StatusRecording:
		line := recordingStyle.Render("● REC") + "  " +
			activeStyle.Render(render.FormatElapsed(m.elapsed)) + "  " +
			statusStyle.Render(fmt.Sprintf("%s · %d chunks", render.FormatBytes(m.bytes), m.chunks))
		if m.segments > 0 || m.lost > 0 {
			line += statusStyle.Render(fmt.Sprintf(" · %d segments sent", m.segments))
		}
		return line
	case session.StatusStopped, session.StatusUploading:
		return m.spinner.View() + " " + activeStyle.Render("Sending to the assistant...") + "  " +
			statusStyle.Render(fmt.Sprintf("%s · %s", render.FormatElapsed(m.elapsed), render.FormatBytes(m.bytes)))
	case session.StatusSucceeded:
		return activeStyle.Render("✓ Done") + "  " + statusStyle.Render(render.FormatElapsed(m.elapsed))
	case session.StatusFailed:
		return errorStyle.Render("✗ Failed")
	default:
		if m.busy {
			return m.spinner.View() + " " + statusStyle.Render("Opening microphone...")
		}
		return statusStyle.Render("Ready")
	}
}

func (m *Model) renderResult() string {
	var b strings.Builder
	if m.result.TranscriptionText != "" {
		b.WriteString(transcriptStyle.Render("🗣️  " + m.result.TranscriptionText))
		b.WriteString("\n\n")
	}
	b.WriteString(m.answer)
	if m.result.HasFollowUp() && m.result.NextAction != "" {
		b.WriteString("\n\n📌 " + m.result.NextAction)
	}
	style := resultStyle
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}
	return style.Render(b.String())
}

func renderToast(t events.ToastData) string {
	switch t.Level {
	case events.ToastSuccess:
		return activeStyle.Render("✅ " + t.Message)
	case events.ToastError:
		return errorStyle.Render("❌ " + t.Message)
	default:
		return statusStyle.Render("ℹ️  " + t.Message)
	}
}

func (m *Model) help() string {
	switch m.phase {
	case session.StatusRecording:
		return "space/enter: stop and send • q: discard and quit"
	case session.StatusStopped, session.StatusUploading:
		return "q: quit (the upload still completes)"
	default:
		return "space/enter: start recording • q: quit"
	}
}
