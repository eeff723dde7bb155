// Package capturetest provides an in-memory capture device and a manual
// clock for exercising capture and session code without a microphone.
package capturetest

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/AltairaLabs/VoiceDesk/runtime/capture"
)

// ErrNotOpen is returned by Emit and Fail when no stream is open.
var ErrNotOpen = errors.New("capturetest: device not open")

// Device is a scriptable capture.Device. Tests push chunks with Emit and
// end the capture with Fail or by stopping the handle.
type Device struct {
	name   string
	format capture.Format

	mu       sync.Mutex
	probeErr error
	openErr  error
	opens    int
	closes   int
	stream   *stream
	opened   chan struct{}
}

// NewDevice creates a device producing webm bytes.
func NewDevice() *Device {
	return &Device{name: "test-mic", format: capture.FormatWebM, opened: make(chan struct{}, 1)}
}

// WithFormat sets the container format and returns the device.
func (d *Device) WithFormat(f capture.Format) *Device {
	d.format = f
	return d
}

// SetProbeError makes Probe fail with err.
func (d *Device) SetProbeError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.probeErr = err
}

// SetOpenError makes Open fail with err.
func (d *Device) SetOpenError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.openErr = err
}

// Name implements capture.Device.
func (d *Device) Name() string { return d.name }

// Format implements capture.Device.
func (d *Device) Format() capture.Format { return d.format }

// Probe implements capture.Device.
func (d *Device) Probe(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.probeErr
}

// Open implements capture.Device.
func (d *Device) Open(_ context.Context) (capture.Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.opens++
	s := &stream{device: d}
	s.cond = sync.NewCond(&s.mu)
	d.stream = s
	select {
	case d.opened <- struct{}{}:
	default:
	}
	return s, nil
}

// WaitOpen blocks until the device is opened or the timeout elapses.
func (d *Device) WaitOpen(timeout time.Duration) bool {
	select {
	case <-d.opened:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Emit queues a chunk on the open stream.
func (d *Device) Emit(chunk []byte) error {
	s := d.current()
	if s == nil {
		return ErrNotOpen
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, append([]byte(nil), chunk...))
	s.cond.Broadcast()
	return nil
}

// Fail makes the next read on the open stream return err once queued
// chunks are consumed.
func (d *Device) Fail(err error) error {
	s := d.current()
	if s == nil {
		return ErrNotOpen
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	s.cond.Broadcast()
	return nil
}

// Opens returns how many times the device was opened.
func (d *Device) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

// Closes returns how many streams were closed.
func (d *Device) Closes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

// Held reports whether a stream is open and not yet closed.
func (d *Device) Held() bool {
	s := d.current()
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (d *Device) current() *stream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stream
}

type stream struct {
	device *Device

	mu       sync.Mutex
	cond     *sync.Cond
	pending  [][]byte
	err      error
	finished bool
	closed   bool
}

func (s *stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.pending) == 0 && s.err == nil && !s.finished && !s.closed {
		s.cond.Wait()
	}
	switch {
	case s.closed:
		return 0, io.ErrClosedPipe
	case len(s.pending) > 0:
		n := copy(p, s.pending[0])
		if n < len(s.pending[0]) {
			s.pending[0] = s.pending[0][n:]
		} else {
			s.pending = s.pending[1:]
		}
		return n, nil
	case s.err != nil:
		return 0, s.err
	default:
		return 0, io.EOF
	}
}

func (s *stream) Finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = true
	s.cond.Broadcast()
	return nil
}

func (s *stream) Close() error {
	s.mu.Lock()
	already := s.closed
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()

	if !already {
		s.device.mu.Lock()
		s.device.closes++
		s.device.mu.Unlock()
	}
	return nil
}
