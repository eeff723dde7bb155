//go:build !portaudio

package capture

import (
	"context"
	"fmt"
)

// PortAudioDevice is unavailable in builds without the portaudio tag.
type PortAudioDevice struct {
	format WAVFormat
}

// NewPortAudioDevice creates a device that always reports ErrDeviceUnavailable.
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
	return fmt.Errorf("%w: built without portaudio support (rebuild with -tags portaudio)", ErrDeviceUnavailable)
}

// Open implements Device.
func (d *PortAudioDevice) Open(ctx context.Context) (Stream, error) {
	return nil, d.Probe(ctx)
}
