package version

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

// withVersionVars temporarily sets version variables and restores them after the test.
func withVersionVars(t *testing.T, v, commit, date string, fn func()) {
	t.Helper()
	origVersion, origCommit, origDate := version, gitCommit, buildDate
	defer func() {
		version, gitCommit, buildDate = origVersion, origCommit, origDate
	}()
	version, gitCommit, buildDate = v, commit, date
	fn()
}

func TestGetVersion(t *testing.T) {
	if v := GetVersion(); v == "" {
		t.Error("GetVersion() returned empty string")
	}
}

func TestGetVersion_Ldflags(t *testing.T) {
	withVersionVars(t, "1.0.0", "", "", func() {
		if v := GetVersion(); v != "1.0.0" {
			t.Errorf("Expected '1.0.0', got '%s'", v)
		}
		if ua := UserAgent(); ua != "VoiceDesk/1.0.0" {
			t.Errorf("Expected 'VoiceDesk/1.0.0', got '%s'", ua)
		}
	})
}

func TestGetVersionInfo(t *testing.T) {
	withVersionVars(t, "2.1.0", "abcdef1234567", "2026-10-01", func() {
		info := GetVersionInfo()
		for _, want := range []string{"voicedesk version 2.1.0", "commit: abcdef1", "built: 2026-10-01"} {
			if !strings.Contains(info, want) {
				t.Errorf("GetVersionInfo() missing %q: %s", want, info)
			}
		}
	})
}

func TestGetBuildInfo(t *testing.T) {
	withVersionVars(t, "2.1.0", "abc", "2026-10-01", func() {
		attrs := GetBuildInfo()
		want := []any{"version", "2.1.0", "commit", "abc", "built", "2026-10-01"}
		if len(attrs) != len(want) {
			t.Fatalf("Expected %d attrs, got %v", len(want), attrs)
		}
		for i := range want {
			if attrs[i] != want[i] {
				t.Errorf("attr %d: expected %v, got %v", i, want[i], attrs[i])
			}
		}
	})
}

func TestLogStartup(t *testing.T) {
	var buf bytes.Buffer
	orig := slog.Default()
	defer slog.SetDefault(orig)
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	LogStartup(context.Background())
	if !strings.Contains(buf.String(), "VoiceDesk starting") {
		t.Errorf("Expected startup line, got %q", buf.String())
	}
}
