// Package version reports the VoiceDesk build version. The variables can be
// set at build time:
//
//	go build -ldflags "-X github.com/AltairaLabs/VoiceDesk/runtime/version.version=1.2.0"
package version

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
)

const (
	devVersion     = "dev"
	shortCommitLen = 7
	vcsRevisionKey = "vcs.revision"
	vcsModifiedKey = "vcs.modified"
)

var (
	version   = devVersion
	gitCommit = ""
	buildDate = ""
)

// GetVersion returns the release version, the module version from build
// info, or "dev".
func GetVersion() string {
	if version != devVersion {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}
	return devVersion
}

// buildSetting returns a VCS setting recorded by the Go toolchain.
func buildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

// Commit returns the short commit hash, or "" when unknown.
func Commit() string {
	commit := gitCommit
	if commit == "" {
		commit = buildSetting(vcsRevisionKey)
	}
	return commit[:min(shortCommitLen, len(commit))]
}

// GetVersionInfo returns the multi-line text printed by "voicedesk version".
func GetVersionInfo() string {
	var b strings.Builder
	fmt.Fprintf(&b, "voicedesk version %s", GetVersion())
	if commit := Commit(); commit != "" {
		fmt.Fprintf(&b, "\ncommit: %s", commit)
	}
	if buildDate != "" {
		fmt.Fprintf(&b, "\nbuilt: %s", buildDate)
	}
	return b.String()
}

// UserAgent returns the User-Agent sent to the backend.
func UserAgent() string {
	return "VoiceDesk/" + GetVersion()
}

// GetBuildInfo returns version details as slog key/value pairs.
func GetBuildInfo() []any {
	attrs := []any{"version", GetVersion()}
	if commit := Commit(); commit != "" {
		attrs = append(attrs, "commit", commit)
	}
	if gitCommit == "" && buildSetting(vcsModifiedKey) == "true" {
		attrs = append(attrs, "dirty", true)
	}
	if buildDate != "" {
		attrs = append(attrs, "built", buildDate)
	}
	return attrs
}

// LogStartup logs the build at debug level.
func LogStartup(ctx context.Context) {
	slog.Log(ctx, slog.LevelDebug, "VoiceDesk starting", GetBuildInfo()...)
}
