package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/VoiceDesk/runtime/capture"
	"github.com/AltairaLabs/VoiceDesk/runtime/events"
	"github.com/AltairaLabs/VoiceDesk/runtime/projector"
	"github.com/AltairaLabs/VoiceDesk/runtime/session"
)

type fakeRecorder struct {
	mu       sync.Mutex
	startErr error
	current  session.Session
	final    session.Session
	starts   int
	stops    int
	closed   int
}

func (f *fakeRecorder) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	f.current = session.Session{ID: "s1", Status: session.StatusRecording}
	return nil
}

func (f *fakeRecorder) Stop(context.Context) (*capture.Audio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return &capture.Audio{Data: []byte("audio")}, nil
}

func (f *fakeRecorder) Current() session.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeRecorder) Await(context.Context) (session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.final, nil
}

func (f *fakeRecorder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func space() tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m *Model, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	require.NotNil(t, cmd)
	_, next := m.Update(cmd())
	return next
}

func TestModel_StartStopSucceeds(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	rec := &fakeRecorder{final: session.Session{
		ID:        "s1",
		Status:    session.StatusSucceeded,
		StartedAt: start,
		StoppedAt: start.Add(7 * time.Second),
		Result: &projector.UploadResult{
			TranscriptionText:     "marcar reunião amanhã",
			AssistantResponseText: "Reunião marcada para amanhã.",
			FollowUpActionKind:    projector.FollowUpEntityCreated,
			NextAction:            "create_event",
		},
	}}
	m := NewModel(context.Background(), rec, Options{Title: "Message"})
	assert.Contains(t, m.View(), "start recording")

	_, cmd := m.Update(space())
	assert.Nil(t, run(t, m, cmd))
	assert.Equal(t, session.StatusRecording, m.Phase())
	assert.Equal(t, 1, rec.starts)
	assert.Contains(t, m.View(), "REC")

	m.Update(ChunkMsg{SessionID: "s1", Index: 1, TotalBytes: 2048})
	assert.Contains(t, m.View(), "2.0 KB · 2 chunks")

	_, cmd = m.Update(space())
	m.Update(UploadingMsg{SessionID: "s1"})
	assert.Equal(t, session.StatusUploading, m.Phase())
	assert.Contains(t, m.View(), "Sending to the assistant")

	run(t, m, cmd)
	assert.Equal(t, 1, rec.stops)
	assert.Equal(t, session.StatusSucceeded, m.Phase())
	require.NotNil(t, m.Result())

	view := m.View()
	assert.Contains(t, view, "Reunião marcada para amanhã.")
	assert.Contains(t, view, "marcar reunião amanhã")
	assert.Contains(t, view, "📌 create_event")
	assert.Contains(t, view, "00:07")
}

func TestModel_StartFailure(t *testing.T) {
	rec := &fakeRecorder{startErr: &session.Failure{
		Kind:   session.KindPermissionDenied,
		Reason: "microphone access denied",
	}}
	m := NewModel(context.Background(), rec, Options{})

	_, cmd := m.Update(space())
	run(t, m, cmd)

	assert.Equal(t, session.StatusFailed, m.Phase())
	require.NotNil(t, m.Failure())
	assert.Contains(t, m.View(), "permission_denied: microphone access denied")

	// A failed session can be retried.
	rec.startErr = nil
	_, cmd = m.Update(space())
	run(t, m, cmd)
	assert.Equal(t, session.StatusRecording, m.Phase())
	assert.Nil(t, m.Failure())
}

func TestModel_PlainStartError(t *testing.T) {
	rec := &fakeRecorder{startErr: session.ErrAlreadyRecording}
	m := NewModel(context.Background(), rec, Options{})

	_, cmd := m.Update(space())
	run(t, m, cmd)

	assert.Contains(t, m.View(), session.ErrAlreadyRecording.Error())
}

func TestModel_IgnoresKeysWhileBusy(t *testing.T) {
	rec := &fakeRecorder{}
	m := NewModel(context.Background(), rec, Options{})

	_, first := m.Update(space())
	require.NotNil(t, first)
	_, second := m.Update(space())
	assert.Nil(t, second)
	assert.Contains(t, m.View(), "Opening microphone")
}

func TestModel_QuitClosesRecorder(t *testing.T) {
	rec := &fakeRecorder{}
	m := NewModel(context.Background(), rec, Options{})

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, 1, rec.closed)

	_, quit := m.Update(msg)
	require.NotNil(t, quit)
	assert.Equal(t, tea.QuitMsg{}, quit())
	assert.Empty(t, m.View())

	// Repeated quit keys do not close twice.
	_, again := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Nil(t, again)
}

func TestModel_MaxDurationStopsRecording(t *testing.T) {
	rec := &fakeRecorder{final: session.Session{Status: session.StatusSucceeded, Result: &projector.UploadResult{}}}
	m := NewModel(context.Background(), rec, Options{MaxDuration: 5 * time.Second})

	_, cmd := m.Update(space())
	run(t, m, cmd)

	rec.mu.Lock()
	rec.current.ElapsedSeconds = 5
	rec.mu.Unlock()

	cmd = m.refresh()
	require.NotNil(t, cmd, "reaching the limit triggers a stop")
	assert.Nil(t, m.refresh(), "only one stop is issued")
	run(t, m, cmd)
	assert.Equal(t, 1, rec.stops)
	assert.Equal(t, session.StatusSucceeded, m.Phase())
}

func TestEventAdapter_Headless(t *testing.T) {
	m := NewModel(context.Background(), &fakeRecorder{}, Options{Title: "Meeting"})
	adapter := NewEventAdapterWithModel(m)

	adapter.HandleEvent(&events.Event{Type: events.EventSessionStarted, SessionID: "s1",
		Data: events.SessionStartedData{Variant: "meeting"}})
	adapter.HandleEvent(&events.Event{Type: events.EventSessionChunk, SessionID: "s1",
		Data: events.ChunkData{Index: 0, Bytes: 100, TotalBytes: 100}})
	adapter.HandleEvent(&events.Event{Type: events.EventMeetingChunkUploaded,
		Data: events.ChunkUploadedData{Index: 0, Bytes: 100}})
	adapter.HandleEvent(&events.Event{Type: events.EventMeetingChunkUploaded,
		Data: events.ChunkUploadedData{Index: 1, Err: errors.New("503")}})
	for _, msg := range []string{"one", "two", "three", "four"} {
		adapter.HandleEvent(&events.Event{Type: events.EventToast,
			Data: events.ToastData{Level: events.ToastInfo, Message: msg}})
	}
	adapter.HandleEvent(&events.Event{Type: events.EventSignedOut,
		Data: events.SignedOutData{Reason: "unauthorized"}})

	assert.Equal(t, session.StatusRecording, m.Phase())
	assert.Equal(t, 1, m.segments)
	assert.Equal(t, 1, m.lost)
	require.Len(t, m.toasts, maxToasts)
	assert.Equal(t, "two", m.toasts[0].Message)

	view := m.View()
	assert.Contains(t, view, "VoiceDesk · Meeting")
	assert.Contains(t, view, "1 segments sent")
	assert.Contains(t, view, "Signed out")
	assert.NotContains(t, view, "ℹ️  one")
}

func TestEventAdapter_IgnoresOutcomeEvents(t *testing.T) {
	m := NewModel(context.Background(), &fakeRecorder{}, Options{})
	adapter := NewEventAdapterWithModel(m)

	adapter.HandleEvent(&events.Event{Type: events.EventSessionSucceeded,
		Data: events.SessionSucceededData{Variant: "message"}})
	assert.Equal(t, session.StatusIdle, m.Phase())

	unsubscribe := adapter.Subscribe(nil)
	unsubscribe()
}
