// Package events provides the ordered pub/sub bus that carries session
// lifecycle, toast and sign-out notifications to the UI, metrics and logs.
package events

import (
	"sync"
	"time"
)

// Listener is a function that handles events.
type Listener func(*Event)

type subscription struct {
	id       uint64
	listener Listener
}

// EventBus manages event distribution to listeners.
//
// Events are delivered on a single dispatch goroutine in publish order, so a
// listener never observes "succeeded" before "uploading" for the same session.
// Publish never blocks on listeners.
type EventBus struct {
	mu              sync.Mutex
	cond            *sync.Cond
	listeners       map[EventType][]subscription
	globalListeners []subscription
	queue           []*Event
	nextID          uint64
	closed          bool
	done            chan struct{}
}

// NewEventBus creates a new event bus and starts its dispatcher.
func NewEventBus() *EventBus {
	eb := &EventBus{
		listeners: make(map[EventType][]subscription),
		done:      make(chan struct{}),
	}
	eb.cond = sync.NewCond(&eb.mu)
	go eb.dispatch()
	return eb
}

// Subscribe registers a listener for a specific event type and returns a
// function that removes it.
func (eb *EventBus) Subscribe(eventType EventType, listener Listener) func() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.nextID++
	id := eb.nextID
	eb.listeners[eventType] = append(eb.listeners[eventType], subscription{id: id, listener: listener})
	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		eb.listeners[eventType] = without(eb.listeners[eventType], id)
	}
}

// SubscribeAll registers a listener for all event types and returns a
// function that removes it.
func (eb *EventBus) SubscribeAll(listener Listener) func() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.nextID++
	id := eb.nextID
	eb.globalListeners = append(eb.globalListeners, subscription{id: id, listener: listener})
	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		eb.globalListeners = without(eb.globalListeners, id)
	}
}

// Publish queues an event for delivery. Events published after Close are dropped.
func (eb *EventBus) Publish(event *Event) {
	if event == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		return
	}
	eb.queue = append(eb.queue, event)
	eb.cond.Signal()
}

// Close delivers the events already queued, then stops the dispatcher.
// It is safe to call more than once.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	if eb.closed {
		eb.mu.Unlock()
		<-eb.done
		return
	}
	eb.closed = true
	eb.cond.Signal()
	eb.mu.Unlock()
	<-eb.done
}

// Clear removes all listeners (primarily for tests).
func (eb *EventBus) Clear() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.listeners = make(map[EventType][]subscription)
	eb.globalListeners = nil
}

func (eb *EventBus) dispatch() {
	defer close(eb.done)
	for {
		eb.mu.Lock()
		for len(eb.queue) == 0 && !eb.closed {
			eb.cond.Wait()
		}
		if len(eb.queue) == 0 && eb.closed {
			eb.mu.Unlock()
			return
		}
		event := eb.queue[0]
		eb.queue[0] = nil
		eb.queue = eb.queue[1:]

		specific := append([]subscription(nil), eb.listeners[event.Type]...)
		global := append([]subscription(nil), eb.globalListeners...)
		eb.mu.Unlock()

		for _, s := range specific {
			safeInvoke(s.listener, event)
		}
		for _, s := range global {
			safeInvoke(s.listener, event)
		}
	}
}

func without(subs []subscription, id uint64) []subscription {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

func safeInvoke(listener Listener, event *Event) {
	defer func() { _ = recover() }()
	listener(event)
}
