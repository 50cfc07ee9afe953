// Package events provides a lightweight pub/sub event bus for live session
// observability. Metrics and tracing subscribe to it; the session publishes.
package events

import (
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the number of events the bus queues before dropping.
const DefaultBufferSize = 1024

// Listener is a function that handles events.
type Listener func(*Event)

// EventBus delivers events to listeners on a single dispatch goroutine, in
// publish order. Publish never blocks: when the queue is full the event is
// dropped and counted.
type EventBus struct {
	mu              sync.RWMutex
	listeners       map[EventType][]Listener
	globalListeners []Listener

	queue     chan *Event
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	dropped   atomic.Uint64
}

// NewEventBus creates a new event bus with DefaultBufferSize.
func NewEventBus() *EventBus {
	return NewEventBusWithBuffer(DefaultBufferSize)
}

// NewEventBusWithBuffer creates a bus queueing up to size events.
func NewEventBusWithBuffer(size int) *EventBus {
	if size <= 0 {
		size = DefaultBufferSize
	}
	eb := &EventBus{
		listeners: make(map[EventType][]Listener),
		queue:     make(chan *Event, size),
		done:      make(chan struct{}),
	}
	go eb.dispatch()
	return eb
}

// Subscribe registers a listener for a specific event type.
func (eb *EventBus) Subscribe(eventType EventType, listener Listener) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.listeners[eventType] = append(eb.listeners[eventType], listener)
}

// SubscribeAll registers a listener for all event types.
func (eb *EventBus) SubscribeAll(listener Listener) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.globalListeners = append(eb.globalListeners, listener)
}

// Publish queues an event for delivery.
func (eb *EventBus) Publish(event *Event) {
	if eb == nil || event == nil || eb.closed.Load() {
		return
	}
	defer func() {
		// Close raced us and closed the queue.
		if recover() != nil {
			eb.dropped.Add(1)
		}
	}()
	select {
	case eb.queue <- event:
	default:
		eb.dropped.Add(1)
	}
}

// Dropped returns how many events were dropped on a full queue.
func (eb *EventBus) Dropped() uint64 {
	return eb.dropped.Load()
}

// Close stops accepting events, delivers those already queued and waits
// for the dispatcher to exit. Close is idempotent.
func (eb *EventBus) Close() {
	eb.closeOnce.Do(func() {
		eb.closed.Store(true)
		close(eb.queue)
	})
	<-eb.done
}

// Clear removes all listeners (primarily for tests).
func (eb *EventBus) Clear() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.listeners = make(map[EventType][]Listener)
	eb.globalListeners = nil
}

func (eb *EventBus) dispatch() {
	defer close(eb.done)
	for event := range eb.queue {
		eb.mu.RLock()
		specific := eb.listeners[event.Type]
		global := eb.globalListeners
		eb.mu.RUnlock()

		for _, listener := range specific {
			safeInvoke(listener, event)
		}
		for _, listener := range global {
			safeInvoke(listener, event)
		}
	}
}

func safeInvoke(listener Listener, event *Event) {
	defer func() { _ = recover() }()
	listener(event)
}
