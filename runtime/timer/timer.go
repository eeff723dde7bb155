// Package timer implements the cosmetic recording timer shown while a
// session is recording.
package timer

import (
	"sync"
	"time"
)

// Ticker is the tick source a Timer counts.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a Ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

// NewStdTicker wraps time.NewTicker.
func NewStdTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

// Timer counts whole seconds between Start and Stop.
type Timer struct {
	newTicker TickerFunc
	ticks     chan int

	mu      sync.Mutex
	elapsed int
	running bool
	gen     uint64
	stop    chan struct{}
}

// Option configures a Timer.
type Option func(*Timer)

// WithTicker replaces the tick source.
func WithTicker(f TickerFunc) Option {
	return func(t *Timer) {
		t.newTicker = f
	}
}

// New creates a stopped timer.
func New(opts ...Option) *Timer {
	t := &Timer{
		newTicker: NewStdTicker,
		ticks:     make(chan int, 1),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start resets the count to zero and begins counting. Starting a running
// timer restarts it.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.halt()
	t.elapsed = 0
	t.running = true
	t.gen++
	t.stop = make(chan struct{})

	go t.run(t.newTicker(time.Second), t.gen, t.stop)
}

// Stop halts counting. Elapsed keeps its last value until the next Start.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.halt()
}

func (t *Timer) halt() {
	if !t.running {
		return
	}
	t.running = false
	t.gen++
	close(t.stop)
}

// Elapsed returns the number of seconds counted since the last Start.
func (t *Timer) Elapsed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsed
}

// Running reports whether the timer is counting.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Ticks delivers the new elapsed value after each second. Slow readers miss
// ticks; Elapsed is always current.
func (t *Timer) Ticks() <-chan int {
	return t.ticks
}

func (t *Timer) run(ticker Ticker, gen uint64, stop <-chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			t.mu.Lock()
			if t.gen != gen {
				t.mu.Unlock()
				return
			}
			t.elapsed++
			v := t.elapsed
			t.mu.Unlock()

			select {
			case t.ticks <- v:
			default:
			}
		}
	}
}
