package events

import (
	"sync"
)

// ChannelEvent fans a value out to registered channels.
// T is the type of the value sent to listeners.
type ChannelEvent[T any] struct {
	mu         sync.RWMutex
	channels   map[uint64]chan<- T
	nextID     uint64
	replayLast bool
	last       *T
	notified   bool
}

// NewChannelEvent creates a ChannelEvent.
// replayLast: if true, the most recent Notify value is delivered to a new
// listener immediately, so late subscribers start from current state.
func NewChannelEvent[T any](replayLast bool) *ChannelEvent[T] {
	return &ChannelEvent[T]{
		channels:   make(map[uint64]chan<- T),
		replayLast: replayLast,
	}
}

// Listen registers a channel to receive values on every Notify.
// Returns a deregistration function.
func (e *ChannelEvent[T]) Listen(ch chan<- T) func() {
	if ch == nil {
		panic("channel cannot be nil")
	}

	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.channels[id] = ch
	var replay *T
	if e.replayLast && e.notified && e.last != nil {
		replay = new(T)
		*replay = *e.last
	}
	e.mu.Unlock()

	// Replay outside the lock; drop the value if the channel is full.
	if replay != nil {
		select {
		case ch <- *replay:
		default:
		}
	}

	return func() {
		e.mu.Lock()
		delete(e.channels, id)
		e.mu.Unlock()
	}
}

// Notify sends value to every registered channel. Sends are non-blocking:
// a full channel misses the value rather than stalling the publisher.
func (e *ChannelEvent[T]) Notify(value T) {
	e.mu.Lock()
	if e.replayLast {
		if e.last == nil {
			e.last = new(T)
		}
		*e.last = value
		e.notified = true
	}
	targets := make([]chan<- T, 0, len(e.channels))
	for _, ch := range e.channels {
		targets = append(targets, ch)
	}
	e.mu.Unlock()

	for _, ch := range targets {
		select {
		case ch <- value:
		default:
		}
	}
}

// ListenerCount returns the number of registered listeners.
func (e *ChannelEvent[T]) ListenerCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.channels)
}
