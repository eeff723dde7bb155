package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/VoiceDesk/runtime/capture"
	"github.com/AltairaLabs/VoiceDesk/runtime/events"
	"github.com/AltairaLabs/VoiceDesk/runtime/projector"
	"github.com/AltairaLabs/VoiceDesk/runtime/session"
	"github.com/AltairaLabs/VoiceDesk/runtime/statestore"
)

func TestFormatElapsed(t *testing.T) {
	tests := map[int]string{
		-3:   "00:00",
		0:    "00:00",
		59:   "00:59",
		61:   "01:01",
		3600: "1:00:00",
		3725: "1:02:05",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatElapsed(in), "seconds=%d", in)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", FormatDuration(0))
	assert.Equal(t, "45s", FormatDuration(45*time.Second))
	assert.Equal(t, "3m05s", FormatDuration(3*time.Minute+5*time.Second))
	assert.Equal(t, "1h02m00s", FormatDuration(62*time.Minute))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "4.9 KB", FormatBytes(5000))
	assert.Equal(t, "2.0 MB", FormatBytes(2*1024*1024))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "reuni…", Truncate("reunião longa", 6))
	assert.Equal(t, "r", Truncate("reunião", 1))
}

func TestMarkdown_PlainRendering(t *testing.T) {
	md, err := NewMarkdown(60, false)
	require.NoError(t, err)

	out := md.Render(projector.MeetingMarker + "\n\nResumo pronto")
	assert.Contains(t, out, "Reunião processada!")
	assert.Contains(t, out, "Resumo pronto")
	assert.NotContains(t, out, "\x1b[", "plain style emits no ANSI sequences")
	assert.Empty(t, md.Render("   "))
}

func TestFormatter_Toasts(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, nil)

	f.Listener(&events.Event{Type: events.EventToast, Data: events.ToastData{Level: events.ToastSuccess, Message: "Response received"}})
	f.Listener(&events.Event{Type: events.EventToast, Data: events.ToastData{Level: events.ToastError, Message: "Server error (500)"}})
	f.Listener(&events.Event{Type: events.EventMeetingChunkUploaded, Data: events.ChunkUploadedData{Index: 2, Bytes: 2048}})
	f.Listener(&events.Event{Type: events.EventMeetingChunkUploaded, Data: events.ChunkUploadedData{Index: 3, Err: errors.New("x")}})
	f.Listener(&events.Event{Type: events.EventSessionChunk})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "✅ Response received", lines[0])
	assert.Equal(t, "❌ Server error (500)", lines[1])
	assert.Contains(t, lines[2], "Segment 2 uploaded (2.0 KB)")
}

func TestFormatter_SessionLines(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, nil)
	start := time.Unix(1_700_000_000, 0)

	s := session.Session{
		Status:         session.StatusRecording,
		StartedAt:      start,
		ElapsedSeconds: 65,
		ChunkCount:     2,
		ByteCount:      5000,
	}
	f.Recording(s)
	assert.Equal(t, "\r🎙️  01:05  4.9 KB  2 chunks", buf.String())

	buf.Reset()
	s.StoppedAt = start.Add(65 * time.Second)
	s.Audio = &capture.Audio{Data: make([]byte, 5044), MIMEType: capture.MIMETypeWAV}
	f.Stopped(s)
	assert.Contains(t, buf.String(), "Recording stopped (1m05s, 4.9 KB)")

	buf.Reset()
	f.Failure(&session.Failure{Kind: session.KindServerError, StatusCode: 500, Reason: "boom"})
	assert.Equal(t, "❌ server_error (500): boom\n", buf.String())
}

func TestFormatter_Result(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, nil)

	f.Result(projector.UploadResult{
		TranscriptionText:     "lembrar de pagar a conta",
		AssistantResponseText: "Lembrete criado.",
		FollowUpActionKind:    projector.FollowUpEntityCreated,
		NextAction:            "create_reminder",
	})

	out := buf.String()
	assert.Contains(t, out, "🗣️  lembrar de pagar a conta")
	assert.Contains(t, out, "Lembrete criado.")
	assert.Contains(t, out, "📌 create_reminder")
}

func TestHistory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, History(&buf, nil))
	assert.Equal(t, "No sessions recorded.\n", buf.String())

	buf.Reset()
	records := []*statestore.Record{
		{ID: "b", Variant: "meeting", Status: "succeeded", StartedAt: time.Unix(1_700_000_100, 0),
			DurationMs: 90_000, Bytes: 4096, ResponseText: "Resumo\npronto"},
		{ID: "a", Variant: "message", Status: "failed", StartedAt: time.Unix(1_700_000_000, 0),
			FailureKind: "network_error", FailureReason: "connection refused"},
	}
	require.NoError(t, History(&buf, records))

	out := buf.String()
	for _, want := range []string{"STARTED", "meeting", "1m30s", "4.0 KB", "Resumo pronto", "network_error: connection refused"} {
		assert.Contains(t, out, want)
	}
}
