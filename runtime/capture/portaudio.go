//go:build portaudio

package capture

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"
	"golang.org/x/time/rate"

	"github.com/AltairaLabs/VoiceDesk/runtime/logger"
)

const framesPerBuffer = 1600

// PortAudioDevice captures 16-bit mono PCM from the default input device and
// produces WAV recordings.
type PortAudioDevice struct {
	format WAVFormat
}

// NewPortAudioDevice creates a PortAudio device capturing at sampleRate Hz.
func NewPortAudioDevice(sampleRate int) *PortAudioDevice {
	f := FormatPCM16Mono16k
	if sampleRate > 0 {
		f.SampleRate = sampleRate
	}
	return &PortAudioDevice{format: f}
}

// Name implements Device.
func (d *PortAudioDevice) Name() string { return "portaudio:default" }

// Format implements Device.
func (d *PortAudioDevice) Format() Format { return d.format }

// Probe implements Device.
func (d *PortAudioDevice) Probe(_ context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	defer func() { _ = portaudio.Terminate() }()

	if _, err := portaudio.DefaultInputDevice(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	return nil
}

// Open implements Device.
func (d *PortAudioDevice) Open(_ context.Context) (Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	in := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(d.format.Channels, 0, float64(d.format.SampleRate), len(in), in)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: open input stream: %v", ErrDeviceUnavailable, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: start input stream: %v", ErrDeviceUnavailable, err)
	}

	return &portAudioStream{
		stream:   stream,
		in:       in,
		overflow: rate.Sometimes{First: 1, Interval: 5 * time.Second},
	}, nil
}

type portAudioStream struct {
	stream  *portaudio.Stream
	in      []int16
	pending []byte
	dropped int

	overflow  rate.Sometimes
	finished  atomic.Bool
	closeOnce sync.Once
}

func (s *portAudioStream) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		if s.finished.Load() {
			return 0, io.EOF
		}
		if err := s.stream.Read(); err != nil {
			if s.finished.Load() {
				return 0, io.EOF
			}
			if err != portaudio.InputOverflowed {
				return 0, err
			}
			// The buffer still holds valid samples; only earlier ones were lost.
			s.dropped++
			s.overflow.Do(func() {
				logger.Warn("⚠️ Microphone buffer overflowed, audio dropped", "device", "portaudio:default", "overflows", s.dropped)
			})
		}
		s.pending = pcmBytes(s.in)
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *portAudioStream) Finish() error {
	s.finished.Store(true)
	return nil
}

func (s *portAudioStream) Close() error {
	s.finished.Store(true)
	var err error
	s.closeOnce.Do(func() {
		_ = s.stream.Stop()
		err = s.stream.Close()
		_ = portaudio.Terminate()
	})
	return err
}

func pcmBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, v := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}
