package render

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/AltairaLabs/VoiceDesk/runtime/events"
	"github.com/AltairaLabs/VoiceDesk/runtime/projector"
	"github.com/AltairaLabs/VoiceDesk/runtime/session"
)

// Formatter writes line-oriented status output. It is safe for concurrent
// use, so it can listen on the event bus while the command prints.
type Formatter struct {
	mu sync.Mutex
	w  io.Writer
	md *Markdown
}

// NewFormatter creates a formatter. md may be nil, in which case answers
// are printed verbatim.
func NewFormatter(w io.Writer, md *Markdown) *Formatter {
	return &Formatter{w: w, md: md}
}

func (f *Formatter) printf(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fmt.Fprintf(f.w, format, args...)
}

// Listener prints toasts and sign-outs from the bus.
func (f *Formatter) Listener(event *events.Event) {
	//exhaustive:ignore
	switch event.Type {
	case events.EventToast:
		if data, ok := event.Data.(events.ToastData); ok {
			f.Toast(data)
		}
	case events.EventMeetingChunkUploaded:
		if data, ok := event.Data.(events.ChunkUploadedData); ok && data.Err == nil {
			f.printf("☁️  Segment %d uploaded (%s)\n", data.Index, FormatBytes(data.Bytes))
		}
	default:
	}
}

// Toast prints one notification.
func (f *Formatter) Toast(t events.ToastData) {
	f.printf("%s %s\n", toastIcon(t.Level), t.Message)
}

func toastIcon(level events.ToastLevel) string {
	switch level {
	case events.ToastSuccess:
		return "✅"
	case events.ToastError:
		return "❌"
	default:
		return "ℹ️ "
	}
}

// Recording prints the live recording line, overwriting the previous one.
func (f *Formatter) Recording(s session.Session) {
	f.printf("\r🎙️  %s  %s  %d chunks", FormatElapsed(s.ElapsedSeconds), FormatBytes(s.Bytes()), s.ChunkCount)
}

// Stopped prints the finalized recording.
func (f *Formatter) Stopped(s session.Session) {
	size := s.Bytes()
	if s.Audio != nil {
		size = s.Audio.Size()
	}
	f.printf("\n⏹️  Recording stopped (%s, %s)\n", FormatDuration(s.Duration()), FormatBytes(size))
}

// Uploading prints the waiting line.
func (f *Formatter) Uploading() {
	f.printf("📤 Sending to the assistant...\n")
}

// Result prints a projected answer.
func (f *Formatter) Result(r projector.UploadResult) {
	if r.TranscriptionText != "" {
		f.printf("\n🗣️  %s\n", r.TranscriptionText)
	}
	text := r.AssistantResponseText
	if f.md != nil {
		text = f.md.Render(text)
	}
	f.printf("\n%s\n", text)
	if r.FollowUpActionKind == projector.FollowUpEntityCreated {
		f.printf("\n📌 %s\n", r.NextAction)
	}
}

// Failure prints a failed session.
func (f *Formatter) Failure(failure *session.Failure) {
	if failure == nil {
		return
	}
	f.printf("❌ %s\n", failure.Error())
}

// Info prints a neutral line.
func (f *Formatter) Info(msg string) {
	f.printf("ℹ️  %s\n", msg)
}

// Success prints a success line.
func (f *Formatter) Success(msg string) {
	f.printf("✅ %s\n", msg)
}

// FormatElapsed renders whole seconds as mm:ss, or h:mm:ss past an hour.
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, (seconds/60)%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// FormatDuration renders d compactly: 45s, 3m05s, 1h02m00s.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatBytes renders a size in B, KB or MB.
func FormatBytes(n int) string {
	const unit = 1024
	switch {
	case n < unit:
		return fmt.Sprintf("%d B", n)
	case n < unit*unit:
		return fmt.Sprintf("%.1f KB", float64(n)/unit)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(unit*unit))
	}
}

func msDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
