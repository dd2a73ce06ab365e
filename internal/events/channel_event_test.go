package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelEvent_ListenNotify(t *testing.T) {
	event := NewChannelEvent[string](false)

	ch := make(chan string, 10)
	unregister := event.Listen(ch)
	assert.Equal(t, 1, event.ListenerCount())

	event.Notify("first")
	event.Notify("second")

	received := make([]string, 0)
	for len(received) < 2 {
		select {
		case val := <-ch:
			received = append(received, val)
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for events")
		}
	}
	assert.Contains(t, received, "first")
	assert.Contains(t, received, "second")

	unregister()
	assert.Equal(t, 0, event.ListenerCount())

	event.Notify("third")
	select {
	case val := <-ch:
		t.Errorf("unexpected value after unregister: %s", val)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestChannelEvent_ReplayLast(t *testing.T) {
	event := NewChannelEvent[int](true)

	// Nothing notified yet, a new listener gets nothing.
	ch1 := make(chan int, 10)
	unregister1 := event.Listen(ch1)
	select {
	case val := <-ch1:
		t.Errorf("unexpected replay before any Notify: %d", val)
	case <-time.After(20 * time.Millisecond):
	}

	event.Notify(7)
	select {
	case val := <-ch1:
		assert.Equal(t, 7, val)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for notify")
	}

	// Late listener receives the last value immediately.
	ch2 := make(chan int, 10)
	unregister2 := event.Listen(ch2)
	select {
	case val := <-ch2:
		assert.Equal(t, 7, val)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for replay")
	}

	unregister1()
	unregister2()
}

func TestChannelEvent_NoReplayWhenDisabled(t *testing.T) {
	event := NewChannelEvent[string](false)
	event.Notify("early")

	ch := make(chan string, 10)
	unregister := event.Listen(ch)
	defer unregister()

	select {
	case val := <-ch:
		t.Errorf("unexpected replay: %s", val)
	case <-time.After(20 * time.Millisecond):
	}

	event.Notify("late")
	select {
	case val := <-ch:
		assert.Equal(t, "late", val)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for notify")
	}
}

func TestChannelEvent_FullChannelSkipped(t *testing.T) {
	event := NewChannelEvent[string](false)

	ch := make(chan string, 1)
	unregister := event.Listen(ch)
	defer unregister()

	ch <- "blocking"
	event.Notify("dropped")
	assert.Equal(t, 1, len(ch))

	<-ch
	event.Notify("kept")
	select {
	case val := <-ch:
		assert.Equal(t, "kept", val)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for kept value")
	}
}

func TestChannelEvent_NilChannelPanics(t *testing.T) {
	event := NewChannelEvent[string](false)
	require.Panics(t, func() {
		event.Listen(nil)
	})
}

func TestChannelEvent_ConcurrentNotify(t *testing.T) {
	event := NewChannelEvent[int](false)

	channels := make([]chan int, 8)
	unregisters := make([]func(), 8)
	for i := range channels {
		ch := make(chan int, 100)
		channels[i] = ch
		unregisters[i] = event.Listen(ch)
	}
	assert.Equal(t, 8, event.ListenerCount())

	var wg sync.WaitGroup
	wg.Add(5)
	for i := 0; i < 5; i++ {
		go func(value int) {
			defer wg.Done()
			event.Notify(value)
		}(i)
	}
	wg.Wait()

	for i, ch := range channels {
		received := make([]int, 0)
		for len(received) < 5 {
			select {
			case val := <-ch:
				received = append(received, val)
			case <-time.After(200 * time.Millisecond):
				t.Fatalf("channel %d received %d of 5 values", i, len(received))
			}
		}
	}

	for _, unregister := range unregisters {
		unregister()
	}
}
