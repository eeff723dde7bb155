package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/VoiceDesk/pkg/config"
	"github.com/AltairaLabs/VoiceDesk/runtime/capture"
	"github.com/AltairaLabs/VoiceDesk/runtime/capture/capturetest"
)

// isolate points every user directory at a temp dir and clears token
// overrides so tests never see the developer's configuration.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("VOICEDESK_TOKEN", "")
	t.Chdir(t.TempDir())
	return home
}

// useTestDevice swaps the microphone for an in-memory device.
func useTestDevice(t *testing.T) *capturetest.Device {
	t.Helper()
	dev := capturetest.NewDevice()
	prev := newDevice
	newDevice = func(config.CaptureConfig) capture.Device { return dev }
	t.Cleanup(func() { newDevice = prev })
	return dev
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func backend(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL + "/api/v1"
}

func TestVersionCommand(t *testing.T) {
	isolate(t)
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "voicedesk version")
}

func TestConfigCommands(t *testing.T) {
	isolate(t)

	out, err := execute(t, "", "config", "path")
	require.NoError(t, err)
	want, err := config.DefaultConfigFile()
	require.NoError(t, err)
	assert.Equal(t, want+"\n", out)

	out, err = execute(t, "", "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+want)
	assert.FileExists(t, want)

	_, err = execute(t, "", "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	_, err = execute(t, "", "config", "init", "--force")
	require.NoError(t, err)

	out, err = execute(t, "", "config", "show", "--base-url", "https://assistant.example.com/api/v1")
	require.NoError(t, err)
	assert.Contains(t, out, "https://assistant.example.com/api/v1")
	assert.Contains(t, out, "backend: ffmpeg")
}

func TestConfigSchema(t *testing.T) {
	isolate(t)

	out, err := execute(t, "", "config", "schema")
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "VoiceDesk configuration", doc["title"])
	assert.Contains(t, doc["properties"], "capture")
}

func TestConfigShowRedactsToken(t *testing.T) {
	isolate(t)
	t.Setenv("VOICEDESK_AUTH_TOKEN", "super-secret")

	out, err := execute(t, "", "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "super-secret")
	assert.Contains(t, out, "[REDACTED]")
}

func TestConfigRejectsInvalidFlag(t *testing.T) {
	isolate(t)
	_, err := execute(t, "", "config", "show", "--locale", "fr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ui.locale")
}

func TestLoginLogout(t *testing.T) {
	home := isolate(t)
	tokenFile := filepath.Join(home, ".config", "voicedesk", "token")

	out, err := execute(t, "", "login", "--token", "abc123", "--locale", "en")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in")

	data, err := os.ReadFile(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, "abc123", strings.TrimSpace(string(data)))

	out, err = execute(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")
	assert.NoFileExists(t, tokenFile)
}

func TestLoginReadsTokenFromStdin(t *testing.T) {
	home := isolate(t)

	_, err := execute(t, "piped-token\n", "login")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(home, ".config", "voicedesk", "token"))
	require.NoError(t, err)
	assert.Equal(t, "piped-token", strings.TrimSpace(string(data)))

	_, err = execute(t, "\n", "login")
	require.Error(t, err)
}

func TestMessageCommand(t *testing.T) {
	isolate(t)
	t.Setenv("VOICEDESK_TOKEN", "tok")
	url := backend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat/message", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "paguei 50 no mercado", body["message"])
		writeTestJSON(t, w, http.StatusOK, map[string]any{"response": "Despesa registrada"})
	})

	out, err := execute(t, "", "message", "--base-url", url, "paguei", "50", "no", "mercado")
	require.NoError(t, err)
	assert.Contains(t, out, "Despesa registrada")
}

func TestMessageCommandUnauthorizedSignsOut(t *testing.T) {
	home := isolate(t)
	_, err := execute(t, "", "login", "--token", "stale")
	require.NoError(t, err)

	url := backend(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	out, err := execute(t, "", "message", "--base-url", url, "--locale", "en", "oi")
	require.Error(t, err)
	assert.Contains(t, out, "Session expired")
	assert.NoFileExists(t, filepath.Join(home, ".config", "voicedesk", "token"))
}

func TestCommandsRequireLogin(t *testing.T) {
	isolate(t)
	for _, args := range [][]string{
		{"record", "--no-tui"},
		{"meeting", "--no-tui"},
		{"message", "oi"},
		{"send", "note.wav"},
	} {
		_, err := execute(t, "", args...)
		assert.ErrorIs(t, err, errNotSignedIn, "%v", args)
	}
}

func TestRecordCommandLineMode(t *testing.T) {
	isolate(t)
	t.Setenv("VOICEDESK_TOKEN", "tok")
	useTestDevice(t)

	var uploads atomic.Int32
	url := backend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat/audio", r.URL.Path)
		uploads.Add(1)
		writeTestJSON(t, w, http.StatusOK, map[string]any{"response": "ok", "is_meeting": false})
	})

	out, err := execute(t, "\n", "record", "--no-tui", "--base-url", url, "--locale", "en")
	require.NoError(t, err)
	assert.Equal(t, int32(1), uploads.Load())
	assert.Contains(t, out, "Recording stopped")
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "Response received")
}

func TestRecordCommandServerError(t *testing.T) {
	isolate(t)
	t.Setenv("VOICEDESK_TOKEN", "tok")
	useTestDevice(t)

	url := backend(t, func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(t, w, http.StatusInternalServerError, map[string]any{"detail": "transcription failed"})
	})

	out, err := execute(t, "\n", "record", "--no-tui", "--base-url", url, "--locale", "en")
	require.Error(t, err)
	assert.Contains(t, out, "server_error (500): transcription failed")
	assert.Contains(t, out, "Server error (500)")
}

func TestRecordCommandPermissionDenied(t *testing.T) {
	isolate(t)
	t.Setenv("VOICEDESK_TOKEN", "tok")
	dev := useTestDevice(t)
	dev.SetProbeError(capture.ErrPermissionDenied)

	var hits atomic.Int32
	url := backend(t, func(http.ResponseWriter, *http.Request) { hits.Add(1) })

	out, err := execute(t, "\n", "record", "--no-tui", "--base-url", url)
	require.Error(t, err)
	assert.Contains(t, out, "permission_denied")
	assert.Zero(t, hits.Load())
}

func TestMeetingCommandLineMode(t *testing.T) {
	isolate(t)
	t.Setenv("VOICEDESK_TOKEN", "tok")
	useTestDevice(t)

	url := backend(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/meetings/recording/start"):
			writeTestJSON(t, w, http.StatusOK, map[string]any{"session_id": 7, "meeting_id": 42, "status": "recording"})
		case strings.HasSuffix(r.URL.Path, "/chunks"):
			writeTestJSON(t, w, http.StatusOK, map[string]any{"chunk_id": 1, "chunk_index": 0, "received": true})
		case strings.HasSuffix(r.URL.Path, "/meetings/recording/7/stop"):
			writeTestJSON(t, w, http.StatusOK, map[string]any{"session_id": 7, "status": "processing", "message": "Resumo em andamento"})
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	out, err := execute(t, "\n", "meeting", "--no-tui", "--base-url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "Reunião processada")
	assert.Contains(t, out, "Resumo em andamento")
}

func TestSendCommand(t *testing.T) {
	isolate(t)
	t.Setenv("VOICEDESK_TOKEN", "tok")

	path := filepath.Join(t.TempDir(), "nota.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF\x24\x00\x00\x00WAVEfmt "), 0o600))

	url := backend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("audio")
		assert.NoError(t, err)
		writeTestJSON(t, w, http.StatusOK, map[string]any{"response": "arquivo recebido"})
	})

	out, err := execute(t, "", "send", "--base-url", url, "--locale", "en", path)
	require.NoError(t, err)
	assert.Contains(t, out, "File selected: nota.wav")
	assert.Contains(t, out, "arquivo recebido")
}

func TestSendCommandRejectsUnsupportedFile(t *testing.T) {
	isolate(t)
	t.Setenv("VOICEDESK_TOKEN", "tok")

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("just text"), 0o600))

	var hits atomic.Int32
	url := backend(t, func(http.ResponseWriter, *http.Request) { hits.Add(1) })

	out, err := execute(t, "", "send", "--base-url", url, path)
	require.Error(t, err)
	assert.Contains(t, out, "invalid_audio")
	assert.Zero(t, hits.Load())
}

func TestHistoryCommandEmpty(t *testing.T) {
	isolate(t)

	out, err := execute(t, "", "history")
	require.NoError(t, err)
	assert.Equal(t, "No sessions recorded.\n", out)

	out, err = execute(t, "", "history", "--json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)

	_, err = execute(t, "", "history", "show", "missing")
	require.Error(t, err)
}
