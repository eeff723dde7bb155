package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/AltairaLabs/VoiceDesk/runtime/logger"
)

// FFmpeg defaults.
const (
	DefaultFFmpegPath = "ffmpeg"
	DefaultSampleRate = 16000

	// DefaultProbeTimeout allows for an OS permission prompt on first use.
	DefaultProbeTimeout = 15 * time.Second

	probeDuration  = "0.1"
	stderrTailSize = 2048
)

// FFmpegDevice captures the system microphone through an ffmpeg subprocess
// that encodes opus into a webm stream on stdout.
type FFmpegDevice struct {
	// Path is the ffmpeg binary. Default: "ffmpeg".
	Path string

	// InputFormat is the ffmpeg demuxer (pulse, alsa, avfoundation, dshow).
	// Default depends on the operating system.
	InputFormat string

	// Input is the device name passed to -i. Default depends on the operating system.
	Input string

	// SampleRate is the capture rate in Hz. Default: 16000.
	SampleRate int

	// ProbeTimeout bounds the test capture run by Probe. Default: 15s.
	ProbeTimeout time.Duration
}

// NewFFmpegDevice creates an ffmpeg device with platform defaults filled in.
func NewFFmpegDevice(path, inputFormat, input string, sampleRate int) *FFmpegDevice {
	d := &FFmpegDevice{Path: path, InputFormat: inputFormat, Input: input, SampleRate: sampleRate}
	if d.Path == "" {
		d.Path = DefaultFFmpegPath
	}
	if d.InputFormat == "" || d.Input == "" {
		f, in := defaultFFmpegInput(runtime.GOOS)
		if d.InputFormat == "" {
			d.InputFormat = f
		}
		if d.Input == "" {
			d.Input = in
		}
	}
	if d.SampleRate <= 0 {
		d.SampleRate = DefaultSampleRate
	}
	d.ProbeTimeout = DefaultProbeTimeout
	return d
}

func defaultFFmpegInput(goos string) (format, input string) {
	switch goos {
	case "darwin":
		return "avfoundation", ":default"
	case "windows":
		return "dshow", "audio=default"
	default:
		return "pulse", "default"
	}
}

// Name implements Device.
func (d *FFmpegDevice) Name() string {
	return "ffmpeg:" + d.InputFormat + ":" + d.Input
}

// Format implements Device.
func (d *FFmpegDevice) Format() Format {
	return FormatWebM
}

// Probe implements Device. It records a fraction of a second into the null
// muxer, so a refused or missing microphone fails here rather than after
// capture has started.
func (d *FFmpegDevice) Probe(ctx context.Context) error {
	if _, err := exec.LookPath(d.Path); err != nil {
		return fmt.Errorf("%w: %s not found in PATH", ErrDeviceUnavailable, d.Path)
	}

	timeout := d.ProbeTimeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:gosec // G204: Path is configurable but expected to be the ffmpeg binary
	cmd := exec.CommandContext(ctx, d.Path, d.ProbeArgs()...)
	cmd.WaitDelay = time.Second
	tail := newStderrTail(d.Name())
	cmd.Stderr = tail

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %s did not answer within %s: %v", ErrDeviceUnavailable, d.Name(), timeout, ctxErr)
	}
	if cause := classifyFFmpegError(tail.String()); cause != nil {
		return cause
	}
	if line := lastLine(tail.String()); line != "" {
		return fmt.Errorf("%w: %s", ErrDeviceUnavailable, line)
	}
	return fmt.Errorf("%w: ffmpeg probe failed: %v", ErrDeviceUnavailable, err)
}

// ProbeArgs returns the command line of the Probe test capture.
func (d *FFmpegDevice) ProbeArgs() []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", d.InputFormat,
		"-i", d.Input,
		"-t", probeDuration,
		"-f", "null",
		"-",
	}
}

// Args returns the ffmpeg command line, without the binary.
func (d *FFmpegDevice) Args() []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", d.InputFormat,
		"-i", d.Input,
		"-ac", "1",
		"-ar", strconv.Itoa(d.SampleRate),
		"-c:a", "libopus",
		"-f", "webm",
		"pipe:1",
	}
}

// Open implements Device. The subprocess is not bound to ctx; its lifetime
// is governed by Finish and Close.
func (d *FFmpegDevice) Open(ctx context.Context) (Stream, error) {
	//nolint:gosec // G204: Path is configurable but expected to be the ffmpeg binary
	cmd := exec.Command(d.Path, d.Args()...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	tail := newStderrTail(d.Name())
	cmd.Stderr = tail

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	logger.DebugContext(ctx, "ffmpeg started", "pid", cmd.Process.Pid, "args", strings.Join(d.Args(), " "))
	return &ffmpegStream{cmd: cmd, stdin: stdin, stdout: stdout, stderr: tail}, nil
}

type ffmpegStream struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr *stderrTail

	finished atomic.Bool
	waitOnce sync.Once
	waitErr  error
}

func (s *ffmpegStream) Read(p []byte) (int, error) {
	n, err := s.stdout.Read(p)
	if err == nil || s.finished.Load() || !errors.Is(err, io.EOF) {
		return n, err
	}

	// ffmpeg exited on its own: the reason is on stderr.
	werr := s.wait()
	if cause := classifyFFmpegError(s.stderr.String()); cause != nil {
		return n, cause
	}
	if werr != nil {
		return n, fmt.Errorf("ffmpeg exited: %w", werr)
	}
	return n, err
}

// Finish asks ffmpeg to quit, which flushes the webm trailer to stdout.
func (s *ffmpegStream) Finish() error {
	s.finished.Store(true)
	if _, err := io.WriteString(s.stdin, "q"); err == nil {
		return s.stdin.Close()
	}
	if s.cmd.Process == nil {
		return nil
	}
	return s.cmd.Process.Signal(os.Interrupt)
}

func (s *ffmpegStream) Close() error {
	s.finished.Store(true)
	_ = s.stdin.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.wait()
	return nil
}

func (s *ffmpegStream) wait() error {
	s.waitOnce.Do(func() {
		s.waitErr = s.cmd.Wait()
	})
	return s.waitErr
}

var (
	permissionMarkers = []string{"permission denied", "not authorized", "operation not permitted"}
	deviceMarkers     = []string{
		"no such device", "no such file or directory", "cannot open", "input/output error",
		"error opening input", "device or resource busy", "connection refused",
	}
)

// classifyFFmpegError maps ffmpeg's stderr to a capture sentinel.
func classifyFFmpegError(stderr string) error {
	lower := strings.ToLower(stderr)
	line := lastLine(stderr)
	for _, m := range permissionMarkers {
		if strings.Contains(lower, m) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, line)
		}
	}
	for _, m := range deviceMarkers {
		if strings.Contains(lower, m) {
			return fmt.Errorf("%w: %s", ErrDeviceUnavailable, line)
		}
	}
	return nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// stderrTail keeps the last bytes ffmpeg wrote to stderr and forwards them
// to the debug log, throttled so a noisy device cannot flood it.
type stderrTail struct {
	device string
	mu     sync.Mutex
	buf    []byte
	limit  rate.Sometimes
}

func newStderrTail(device string) *stderrTail {
	return &stderrTail{device: device, limit: rate.Sometimes{First: 5, Interval: time.Second}}
}

func (t *stderrTail) Write(p []byte) (int, error) {
	t.mu.Lock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - stderrTailSize; over > 0 {
		t.buf = t.buf[over:]
	}
	t.mu.Unlock()

	t.limit.Do(func() {
		logger.Debug("ffmpeg stderr", "device", t.device, "output", strings.TrimSpace(string(p)))
	})
	return len(p), nil
}

func (t *stderrTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
