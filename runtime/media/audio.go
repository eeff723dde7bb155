// Package media loads existing audio files for upload and validates their
// container type.
package media

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/AltairaLabs/VoiceDesk/runtime/capture"
)

// Audio MIME type constants.
const (
	MIMETypeAudioMP3  = "audio/mpeg"
	MIMETypeAudioWAV  = "audio/wav"
	MIMETypeAudioXWAV = "audio/x-wav"
	MIMETypeAudioOGG  = "audio/ogg"
	MIMETypeAudioWebM = "audio/webm"
	MIMETypeAudioM4A  = "audio/mp4"
	MIMETypeAudioXM4A = "audio/x-m4a"
)

// sniffLen is how many bytes content detection looks at.
const sniffLen = 512

var (
	// ErrUnsupportedAudio is returned for files that are neither a supported
	// extension nor a supported audio type.
	ErrUnsupportedAudio = errors.New("unsupported audio format")

	// ErrEmptyAudio is returned for zero-length files.
	ErrEmptyAudio = errors.New("audio file is empty")
)

// extensionMIME maps the accepted file extensions to their upload MIME type.
var extensionMIME = map[string]string{
	"mp3":  MIMETypeAudioMP3,
	"wav":  MIMETypeAudioWAV,
	"ogg":  MIMETypeAudioOGG,
	"opus": MIMETypeAudioOGG,
	"webm": MIMETypeAudioWebM,
	"m4a":  MIMETypeAudioM4A,
}

// mimeExtension maps accepted MIME types to the extension used for uploads.
var mimeExtension = map[string]string{
	MIMETypeAudioMP3:  "mp3",
	MIMETypeAudioWAV:  "wav",
	MIMETypeAudioXWAV: "wav",
	MIMETypeAudioOGG:  "ogg",
	MIMETypeAudioWebM: "webm",
	MIMETypeAudioM4A:  "m4a",
	MIMETypeAudioXM4A: "m4a",
}

// IsSupportedMIMEType reports whether mimeType is accepted for upload.
func IsSupportedMIMEType(mimeType string) bool {
	_, ok := mimeExtension[NormalizeMIMEType(mimeType)]
	return ok
}

// IsSupportedExtension reports whether ext (with or without the dot) is accepted.
func IsSupportedExtension(ext string) bool {
	_, ok := extensionMIME[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return ok
}

// NormalizeMIMEType strips parameters and folds the variants that content
// sniffing and browsers produce into the canonical upload type.
func NormalizeMIMEType(mimeType string) string {
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = mimeType[:idx]
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))

	switch mimeType {
	case "audio/wave", "audio/vnd.wave":
		return MIMETypeAudioWAV
	case "audio/mp3":
		return MIMETypeAudioMP3
	case "audio/m4a", "video/mp4":
		return MIMETypeAudioM4A
	case "video/webm":
		return MIMETypeAudioWebM
	case "application/ogg":
		return MIMETypeAudioOGG
	default:
		return mimeType
	}
}

// DetectAudio resolves the MIME type and extension of an audio file. The
// extension decides when it is supported; otherwise the content is sniffed.
func DetectAudio(name string, data []byte) (mimeType, ext string, err error) {
	ext = strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if m, ok := extensionMIME[ext]; ok {
		return m, ext, nil
	}

	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	sniffed := NormalizeMIMEType(http.DetectContentType(head))
	if e, ok := mimeExtension[sniffed]; ok {
		return sniffed, e, nil
	}
	return "", "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedAudio, filepath.Base(name), sniffed)
}

// LoadAudioFile reads path and returns it as a finalized recording ready for
// SendWhole. The upload keeps the file's own name.
func LoadAudioFile(path string) (*capture.Audio, error) {
	//nolint:gosec // G304: path is chosen by the user on the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyAudio, filepath.Base(path))
	}

	mimeType, ext, err := DetectAudio(path, data)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	if !IsSupportedExtension(filepath.Ext(name)) {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + "." + ext
	}

	return &capture.Audio{
		Data:      data,
		MIMEType:  mimeType,
		Extension: ext,
		Name:      name,
		Chunks:    1,
	}, nil
}
