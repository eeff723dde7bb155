package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/VoiceDesk/runtime/appctx"
	"github.com/AltairaLabs/VoiceDesk/runtime/capture"
	"github.com/AltairaLabs/VoiceDesk/runtime/credentials"
	"github.com/AltairaLabs/VoiceDesk/runtime/events"
	"github.com/AltairaLabs/VoiceDesk/runtime/notify"
	"github.com/AltairaLabs/VoiceDesk/runtime/session"
	"github.com/AltairaLabs/VoiceDesk/runtime/transport"
)

const (
	testToken   = "test-token"
	waitTimeout = 2 * time.Second
)

// eventLog collects bus events; read it only after the bus is closed.
type eventLog struct {
	mu     sync.Mutex
	events []*events.Event
}

func (l *eventLog) listen(e *events.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) types() []events.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.EventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Type)
	}
	return out
}

func (l *eventLog) toasts() []events.ToastData {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []events.ToastData
	for _, e := range l.events {
		if t, ok := e.Data.(events.ToastData); ok {
			out = append(out, t)
		}
	}
	return out
}

type harness struct {
	app *appctx.Context
	bus *events.EventBus
	log *eventLog
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	bus := events.NewEventBus()
	log := &eventLog{}
	bus.SubscribeAll(log.listen)
	t.Cleanup(bus.Close)
	app := appctx.New(credentials.NewMemoryStore(testToken), bus, notify.New("en"))
	return &harness{app: app, bus: bus, log: log}
}

// drain delivers every queued event so the log can be inspected.
func (h *harness) drain() {
	h.bus.Close()
}

func (h *harness) config() session.Config {
	return session.Config{App: h.app}
}

// fakeUploader records calls and answers with a canned response.
type fakeUploader struct {
	calls atomic.Int32
	gate  chan struct{}
	resp  *transport.AudioResponse
	err   error

	mu       sync.Mutex
	received []*capture.Audio
}

func (f *fakeUploader) SendWhole(ctx context.Context, audio *capture.Audio) (*transport.AudioResponse, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.received = append(f.received, audio)
	f.mu.Unlock()
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.resp, f.err
}

// countingUploader counts calls into a real transport.
type countingUploader struct {
	next  session.Uploader
	calls atomic.Int32
}

func (c *countingUploader) SendWhole(ctx context.Context, audio *capture.Audio) (*transport.AudioResponse, error) {
	c.calls.Add(1)
	return c.next.SendWhole(ctx, audio)
}

func newBackend(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newClient(srv *httptest.Server, app *appctx.Context) *transport.Client {
	return transport.New(srv.URL, app,
		transport.WithHTTPClient(srv.Client()),
		transport.WithUnauthorizedHandler(app.HandleUnauthorized),
	)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func await(t *testing.T, waiter interface {
	Await(ctx context.Context) (session.Session, error)
}) session.Session {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	s, err := waiter.Await(ctx)
	require.NoError(t, err)
	return s
}

func waitChunks(t *testing.T, current func() session.Session, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return current().ChunkCount == n
	}, waitTimeout, 5*time.Millisecond)
}

// rogueDevice hands out a handle whose callbacks the test fires by hand, to
// simulate chunk callbacks that arrive after the session moved on.
type rogueDevice struct {
	handle *rogueHandle
}

func (d *rogueDevice) RequestAccess(context.Context) (capture.Handle, error) {
	return d.handle, nil
}

type rogueHandle struct {
	mu      sync.Mutex
	onChunk capture.ChunkFunc
	audio   *capture.Audio
	stops   int
}

func (h *rogueHandle) OnChunk(fn capture.ChunkFunc) { h.onChunk = fn }
func (h *rogueHandle) OnError(capture.ErrorFunc)    {}
func (h *rogueHandle) Start(context.Context) error  { return nil }
func (h *rogueHandle) Release() error               { return nil }

func (h *rogueHandle) Stop(context.Context) (*capture.Audio, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stops++
	return h.audio, nil
}

func (h *rogueHandle) emit(chunk []byte) {
	h.onChunk(chunk)
}
