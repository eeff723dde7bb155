package capture

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWAVFormat_Header(t *testing.T) {
	pcm := []byte{1, 2, 3, 4}
	out := FormatPCM16Mono16k.Assemble([][]byte{pcm[:2], pcm[2:]})

	require.Len(t, out, wavHeaderSize+len(pcm))
	assert.Equal(t, "RIFF", string(out[0:4]))
	assert.Equal(t, "WAVE", string(out[8:12]))
	assert.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(out[4:8]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(out[22:24]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(out[24:28]))
	assert.Equal(t, uint32(32000), binary.LittleEndian.Uint32(out[28:32]))
	assert.Equal(t, "data", string(out[36:40]))
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(out[40:44]))
	assert.Equal(t, pcm, out[44:])
}

func TestWAVFormat_SegmentIsStandalone(t *testing.T) {
	seg := FormatPCM16Mono16k.WrapSegment([]byte{9, 9})
	assert.Equal(t, "RIFF", string(seg[:4]))
	assert.Len(t, seg, wavHeaderSize+2)
}

func TestStreamFormat(t *testing.T) {
	assert.Equal(t, []byte("abc"), FormatWebM.Assemble([][]byte{[]byte("a"), []byte("bc")}))
	assert.Empty(t, FormatOgg.Assemble(nil))
	assert.Equal(t, []byte("raw"), FormatWebM.WrapSegment([]byte("raw")))
	assert.Equal(t, "ogg", FormatOgg.Extension())
}

func TestClassifyFFmpegError(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   error
	}{
		{"pulse refused", "Connection to PulseAudio failed\nPermission denied", ErrPermissionDenied},
		{"macOS privacy", "[avfoundation] Not authorized to capture audio", ErrPermissionDenied},
		{"alsa missing", "[alsa] cannot open audio device hw:1 (No such device)", ErrDeviceUnavailable},
		{"busy", "Device or resource busy", ErrDeviceUnavailable},
		{"unrelated", "Some other failure", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyFFmpegError(tt.stderr)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestFFmpegDevice_Defaults(t *testing.T) {
	d := NewFFmpegDevice("", "alsa", "hw:0", 0)
	assert.Equal(t, DefaultFFmpegPath, d.Path)
	assert.Equal(t, DefaultSampleRate, d.SampleRate)
	assert.Equal(t, "ffmpeg:alsa:hw:0", d.Name())
	assert.Equal(t, FormatWebM, d.Format())

	args := d.Args()
	assert.Contains(t, args, "libopus")
	assert.Equal(t, "pipe:1", args[len(args)-1])

	f, in := defaultFFmpegInput("darwin")
	assert.Equal(t, "avfoundation", f)
	assert.Equal(t, ":default", in)
}

func TestFFmpegDevice_ProbeMissingBinary(t *testing.T) {
	d := NewFFmpegDevice("voicedesk-no-such-ffmpeg", "", "", 0)
	assert.ErrorIs(t, d.Probe(t.Context()), ErrDeviceUnavailable)
}

func TestStderrTail_KeepsLastBytes(t *testing.T) {
	tail := newStderrTail("dev")
	big := make([]byte, stderrTailSize+10)
	for i := range big {
		big[i] = 'x'
	}
	big[len(big)-1] = 'y'
	_, _ = tail.Write(big)

	got := tail.String()
	assert.Len(t, got, stderrTailSize)
	assert.Equal(t, byte('y'), got[len(got)-1])
}
