package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/AltairaLabs/VoiceDesk/runtime/logger"
)

const defaultReadSize = 4096

// Adapter turns a Device into the Recordable and ChunkStreamable
// capabilities. At most one handle per adapter holds the device at a time.
type Adapter struct {
	device   Device
	readSize int
	now      func() time.Time

	mu     sync.Mutex
	active *handle
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithReadSize sets the size of each device read, which bounds chunk size.
func WithReadSize(n int) AdapterOption {
	return func(a *Adapter) {
		if n > 0 {
			a.readSize = n
		}
	}
}

// WithClock overrides the time source used for durations and segment offsets.
func WithClock(now func() time.Time) AdapterOption {
	return func(a *Adapter) {
		a.now = now
	}
}

// NewAdapter creates an Adapter for the given device.
func NewAdapter(device Device, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		device:   device,
		readSize: defaultReadSize,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Device returns the underlying device.
func (a *Adapter) Device() Device {
	return a.device
}

// RequestAccess implements Recordable.
func (a *Adapter) RequestAccess(ctx context.Context) (Handle, error) {
	return a.acquire(ctx, 0)
}

// RequestStream implements ChunkStreamable.
func (a *Adapter) RequestStream(ctx context.Context, interval time.Duration) (StreamHandle, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("segment interval must be positive, got %s", interval)
	}
	return a.acquire(ctx, interval)
}

func (a *Adapter) acquire(ctx context.Context, interval time.Duration) (*handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.active != nil {
		return nil, fmt.Errorf("%w: %s is already in use", ErrInvalidState, a.device.Name())
	}

	if err := a.device.Probe(ctx); err != nil {
		logger.DeviceError(ctx, a.device.Name(), err, "step", "probe")
		return nil, err
	}

	h := &handle{
		adapter:  a,
		device:   a.device,
		format:   a.device.Format(),
		readSize: a.readSize,
		now:      a.now,
		interval: interval,
	}
	a.active = h
	logger.DeviceEvent(ctx, a.device.Name(), "acquire")
	return h, nil
}

func (a *Adapter) releaseSlot(h *handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active == h {
		a.active = nil
	}
}

type handleState int

const (
	stateAcquired handleState = iota
	stateCapturing
	stateFinalized
	stateFailed
	stateReleased
)

type handle struct {
	adapter  *Adapter
	device   Device
	format   Format
	readSize int
	now      func() time.Time
	interval time.Duration

	mu        sync.Mutex
	state     handleState
	stream    Stream
	onChunk   ChunkFunc
	onError   ErrorFunc
	onSegment SegmentFunc
	chunks    [][]byte
	streamed  bool
	count     int
	size      int
	startedAt time.Time
	finishing bool
	loopDone  chan struct{}
	audio     *Audio
	err       error

	// Owned by the read loop goroutine.
	segBuf   []byte
	segIndex int
	segStart time.Time
}

func (h *handle) OnChunk(fn ChunkFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChunk = fn
}

func (h *handle) OnError(fn ErrorFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onError = fn
}

func (h *handle) OnSegment(fn SegmentFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onSegment = fn
}

func (h *handle) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != stateAcquired {
		return fmt.Errorf("%w: start called twice", ErrInvalidState)
	}

	stream, err := h.device.Open(ctx)
	if err != nil {
		logger.DeviceError(ctx, h.device.Name(), err, "step", "open")
		return err
	}

	h.stream = stream
	h.state = stateCapturing
	h.streamed = h.interval > 0 && h.onSegment != nil
	h.startedAt = h.now()
	h.segStart = h.startedAt
	h.loopDone = make(chan struct{})

	go h.readLoop(stream, h.onChunk, h.onSegment)

	logger.DeviceEvent(ctx, h.device.Name(), "start", "format", h.format.MIMEType())
	return nil
}

func (h *handle) readLoop(stream Stream, onChunk ChunkFunc, onSegment SegmentFunc) {
	defer close(h.loopDone)

	buf := make([]byte, h.readSize)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			h.deliver(chunk, onChunk, onSegment)
		}
		if err == nil {
			continue
		}

		h.mu.Lock()
		ending := h.finishing
		h.mu.Unlock()

		if ending {
			// Finish or Release closed the device; whatever the read
			// returned is the end of the recording.
			h.emitSegment(onSegment)
			return
		}
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		h.fail(&CaptureError{Device: h.device.Name(), Cause: err})
		return
	}
}

func (h *handle) deliver(chunk []byte, onChunk ChunkFunc, onSegment SegmentFunc) {
	h.mu.Lock()
	if h.state != stateCapturing {
		h.mu.Unlock()
		return
	}
	if !h.streamed {
		h.chunks = append(h.chunks, chunk)
	}
	h.count++
	h.size += len(chunk)
	h.mu.Unlock()

	if onSegment != nil && h.interval > 0 {
		h.segBuf = append(h.segBuf, chunk...)
		if h.now().Sub(h.segStart) >= h.interval {
			h.emitSegment(onSegment)
		}
	}

	if onChunk != nil {
		onChunk(chunk)
	}
}

func (h *handle) emitSegment(onSegment SegmentFunc) {
	if onSegment == nil || len(h.segBuf) == 0 {
		return
	}

	h.mu.Lock()
	live := h.state == stateCapturing
	h.mu.Unlock()
	if !live {
		return
	}

	end := h.now()
	seg := Segment{
		Index:   h.segIndex,
		Data:    h.format.WrapSegment(h.segBuf),
		StartMs: h.segStart.Sub(h.startedAt).Milliseconds(),
		EndMs:   end.Sub(h.startedAt).Milliseconds(),
	}
	h.segIndex++
	h.segBuf = nil
	h.segStart = end

	onSegment(seg)
}

func (h *handle) fail(err error) {
	h.mu.Lock()
	if h.state != stateCapturing {
		h.mu.Unlock()
		return
	}
	h.state = stateFailed
	h.err = err
	h.chunks = nil
	stream := h.stream
	onError := h.onError
	h.mu.Unlock()

	_ = stream.Close()
	h.adapter.releaseSlot(h)
	logger.DeviceError(context.Background(), h.device.Name(), err)

	if onError != nil {
		onError(err)
	}
}

func (h *handle) Stop(ctx context.Context) (*Audio, error) {
	h.mu.Lock()
	switch h.state {
	case stateFinalized:
		audio := h.audio
		h.mu.Unlock()
		return audio, nil
	case stateFailed:
		err := h.err
		h.mu.Unlock()
		return nil, err
	case stateAcquired, stateReleased:
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: stop without an active capture", ErrInvalidState)
	}

	first := !h.finishing
	h.finishing = true
	stream := h.stream
	done := h.loopDone
	h.mu.Unlock()

	if first {
		if err := stream.Finish(); err != nil {
			logger.Warn("Capture device did not finish cleanly", "device", h.device.Name(), "error", err)
		}
	}

	select {
	case <-done:
	case <-ctx.Done():
		_ = stream.Close()
		<-done
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case stateFinalized:
		return h.audio, nil
	case stateFailed:
		return nil, h.err
	case stateReleased:
		return nil, fmt.Errorf("%w: released during stop", ErrInvalidState)
	}

	_ = stream.Close()
	h.audio = &Audio{
		MIMEType:  h.format.MIMEType(),
		Extension: h.format.Extension(),
		Chunks:    h.count,
		Duration:  h.now().Sub(h.startedAt),
	}
	if h.streamed {
		h.audio.Streamed = true
		h.audio.StreamedBytes = h.size
	} else {
		h.audio.Data = h.format.Assemble(h.chunks)
	}
	h.chunks = nil
	h.state = stateFinalized
	h.adapter.releaseSlot(h)

	logger.DeviceEvent(ctx, h.device.Name(), "stop",
		"chunks", h.audio.Chunks, "bytes", h.audio.Size(), "duration", h.audio.Duration)
	return h.audio, nil
}

func (h *handle) Release() error {
	h.mu.Lock()
	switch h.state {
	case stateFinalized, stateFailed, stateReleased:
		h.mu.Unlock()
		h.adapter.releaseSlot(h)
		return nil
	}
	h.state = stateReleased
	h.finishing = true
	h.chunks = nil
	stream := h.stream
	h.mu.Unlock()

	var err error
	if stream != nil {
		err = stream.Close()
	}
	h.adapter.releaseSlot(h)
	logger.DeviceEvent(context.Background(), h.device.Name(), "release")
	return err
}
