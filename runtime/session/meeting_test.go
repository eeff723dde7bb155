package session_test

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/VoiceDesk/runtime/capture"
	"github.com/AltairaLabs/VoiceDesk/runtime/capture/capturetest"
	"github.com/AltairaLabs/VoiceDesk/runtime/events"
	"github.com/AltairaLabs/VoiceDesk/runtime/projector"
	"github.com/AltairaLabs/VoiceDesk/runtime/session"
	"github.com/AltairaLabs/VoiceDesk/runtime/transport"
)

// meetingBackend emulates the meeting recording endpoints.
type meetingBackend struct {
	startStatus atomic.Int32
	chunkStatus int

	mu      sync.Mutex
	indexes []int
	data    []string
	offsets [][2]string
	stops   atomic.Int32
}

func (b *meetingBackend) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == transport.PathMeetingStart:
		if status := int(b.startStatus.Load()); status != 0 {
			writeJSON(w, status, map[string]string{"detail": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"session_id": 7, "meeting_id": 3, "status": "recording"})

	case r.URL.Path == "/meetings/recording/7/chunks":
		if b.chunkStatus != 0 {
			writeJSON(w, b.chunkStatus, map[string]string{"detail": "chunk rejected"})
			return
		}
		file, _, err := r.FormFile(transport.FieldChunk)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		index, _ := strconv.Atoi(r.FormValue(transport.FieldChunkIndex))

		b.mu.Lock()
		b.indexes = append(b.indexes, index)
		b.data = append(b.data, string(data))
		b.offsets = append(b.offsets, [2]string{r.FormValue(transport.FieldStartMs), r.FormValue(transport.FieldEndMs)})
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"chunk_id": 100 + index, "chunk_index": index, "received": true})

	case r.URL.Path == "/meetings/recording/7/stop":
		b.stops.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"session_id": 7, "status": "processing", "message": "Resumo pronto"})

	default:
		http.NotFound(w, r)
	}
}

type meetingFixture struct {
	h       *harness
	dev     *capturetest.Device
	clock   *capturetest.Clock
	backend *meetingBackend
	rec     *session.MeetingRecorder
}

func newMeetingFixture(t *testing.T, backend *meetingBackend) *meetingFixture {
	t.Helper()
	h := newHarness(t)
	srv, _ := newBackend(t, backend.handle)
	dev := capturetest.NewDevice()
	clock := capturetest.NewClock(time.Unix(1_700_000_000, 0))

	rec, err := session.NewMeetingRecorder(h.config(),
		capture.NewAdapter(dev, capture.WithClock(clock.Now)), newClient(srv, h.app), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Close() })

	return &meetingFixture{h: h, dev: dev, clock: clock, backend: backend, rec: rec}
}

func (f *meetingFixture) emit(t *testing.T, chunk string, want int) {
	t.Helper()
	require.NoError(t, f.dev.Emit([]byte(chunk)))
	waitChunks(t, f.rec.Current, want)
}

func TestMeetingRecorder_UploadsSegmentsInOrder(t *testing.T) {
	f := newMeetingFixture(t, &meetingBackend{})

	require.NoError(t, f.rec.Start(context.Background()))
	s := f.rec.Current()
	assert.Equal(t, session.StatusRecording, s.Status)
	assert.Equal(t, int64(7), s.ServerSessionID)
	require.NotNil(t, s.MeetingID)
	assert.Equal(t, int64(3), *s.MeetingID)

	f.emit(t, "a", 1)
	f.clock.Advance(time.Second)
	f.emit(t, "b", 2)
	f.clock.Advance(500 * time.Millisecond)
	f.emit(t, "c", 3)

	audio, err := f.rec.Stop(context.Background())
	require.NoError(t, err)
	assert.True(t, audio.Streamed)
	assert.Empty(t, audio.Data)
	assert.Equal(t, 3, audio.Size())
	assert.Equal(t, 3, audio.Chunks)

	done := await(t, f.rec)
	assert.Equal(t, session.StatusSucceeded, done.Status)
	require.NotNil(t, done.Result)
	assert.True(t, done.Result.IsMeetingDetected)
	assert.True(t, strings.HasPrefix(done.Result.AssistantResponseText, projector.MeetingMarker))
	assert.Contains(t, done.Result.AssistantResponseText, "Resumo pronto")
	require.NotNil(t, done.Result.MeetingID)
	assert.Equal(t, int64(3), *done.Result.MeetingID)

	f.backend.mu.Lock()
	assert.Equal(t, []int{0, 1}, f.backend.indexes)
	assert.Equal(t, []string{"ab", "c"}, f.backend.data)
	assert.Equal(t, [][2]string{{"0", "1000"}, {"1000", "1500"}}, f.backend.offsets)
	f.backend.mu.Unlock()
	assert.Equal(t, int32(1), f.backend.stops.Load())

	f.h.drain()
	var uploaded []int
	for _, e := range f.h.log.events {
		if d, ok := e.Data.(events.ChunkUploadedData); ok {
			assert.NoError(t, d.Err)
			assert.Equal(t, int64(7), d.ServerSessionID)
			uploaded = append(uploaded, d.Index)
		}
	}
	assert.Equal(t, []int{0, 1}, uploaded)
	toasts := f.h.log.toasts()
	assert.Equal(t, "Meeting recording started", toasts[0].Message)
	assert.Equal(t, "Meeting transcribed and summarized!", toasts[len(toasts)-1].Message)
}

func TestMeetingRecorder_ChunkFailureEndsSession(t *testing.T) {
	f := newMeetingFixture(t, &meetingBackend{chunkStatus: http.StatusServiceUnavailable})

	require.NoError(t, f.rec.Start(context.Background()))
	f.emit(t, "a", 1)
	f.clock.Advance(time.Second)
	require.NoError(t, f.dev.Emit([]byte("b")))

	s := await(t, f.rec)
	assert.Equal(t, session.StatusFailed, s.Status)
	require.NotNil(t, s.Failure)
	assert.Equal(t, session.KindServerError, s.Failure.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, s.Failure.StatusCode)
	assert.Equal(t, "chunk rejected", s.Failure.Reason)

	require.Eventually(t, func() bool { return !f.dev.Held() }, waitTimeout, 5*time.Millisecond)
	assert.Equal(t, int32(0), f.backend.stops.Load())

	_, err := f.rec.Stop(context.Background())
	var failure *session.Failure
	assert.ErrorAs(t, err, &failure)
}

func TestMeetingRecorder_DoesNotBufferUploadedAudio(t *testing.T) {
	f := newMeetingFixture(t, &meetingBackend{})
	require.NoError(t, f.rec.Start(context.Background()))

	const chunks, chunkSize = 50, 1024
	chunk := strings.Repeat("x", chunkSize)
	for i := range chunks {
		// Every chunk closes its own segment.
		f.clock.Advance(time.Second)
		f.emit(t, chunk, i+1)

		s := f.rec.Current()
		assert.Empty(t, s.Chunks)
		assert.Equal(t, (i+1)*chunkSize, s.Bytes())
	}

	audio, err := f.rec.Stop(context.Background())
	require.NoError(t, err)
	assert.True(t, audio.Streamed)
	assert.Empty(t, audio.Data)
	assert.Equal(t, chunks*chunkSize, audio.Size())

	done := await(t, f.rec)
	assert.Equal(t, session.StatusSucceeded, done.Status)
	assert.Equal(t, chunks, done.ChunkCount)

	f.backend.mu.Lock()
	defer f.backend.mu.Unlock()
	require.Len(t, f.backend.data, chunks)
	for i, data := range f.backend.data {
		assert.Len(t, data, chunkSize, "segment %d", i)
	}
}

func TestMeetingRecorder_StartSessionFailureReleasesDevice(t *testing.T) {
	backend := &meetingBackend{}
	backend.startStatus.Store(http.StatusServiceUnavailable)
	f := newMeetingFixture(t, backend)

	err := f.rec.Start(context.Background())
	var failure *session.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, session.KindServerError, failure.Kind)
	assert.Equal(t, 0, f.dev.Opens())
	assert.Equal(t, session.StatusFailed, f.rec.Current().Status)

	// The device slot is free for the next attempt.
	f.backend.startStatus.Store(0)
	require.NoError(t, f.rec.Start(context.Background()))
	assert.Equal(t, 1, f.dev.Opens())
}

func TestMeetingRecorder_SingleFlight(t *testing.T) {
	f := newMeetingFixture(t, &meetingBackend{})

	require.NoError(t, f.rec.Start(context.Background()))
	assert.ErrorIs(t, f.rec.Start(context.Background()), session.ErrAlreadyRecording)
	assert.Equal(t, 1, f.dev.Opens())
}

func TestMeetingRecorder_CloseDiscardsMeeting(t *testing.T) {
	f := newMeetingFixture(t, &meetingBackend{})

	require.NoError(t, f.rec.Start(context.Background()))
	f.emit(t, "a", 1)
	require.NoError(t, f.rec.Close())

	assert.False(t, f.dev.Held())
	s := f.rec.Current()
	assert.Equal(t, session.StatusFailed, s.Status)
	assert.Empty(t, s.Chunks)
	assert.Equal(t, int32(0), f.backend.stops.Load())
}

func TestMeetingRecorder_DefaultInterval(t *testing.T) {
	rec, err := session.NewMeetingRecorder(session.Config{},
		capture.NewAdapter(capturetest.NewDevice()), transport.New("http://localhost", transport.StaticToken("x")), 0)
	require.NoError(t, err)
	assert.Equal(t, session.DefaultSegmentInterval, rec.Interval())
}
