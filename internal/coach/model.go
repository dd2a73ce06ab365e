// Package coach ties the detection engine to the terminal UI: a shared
// session model, the frame processing loop, the controller the view calls
// into, and the session loggers.
package coach

import (
	"context"
	"log"
	"sync"

	"github.com/lowaak/form-coach/internal/engine"
	"github.com/lowaak/form-coach/internal/events"
	"github.com/lowaak/form-coach/internal/safego"
)

// SessionSnapshot is what the view renders: the latest engine snapshot plus
// the measured frame rate of the pose source.
type SessionSnapshot struct {
	Status engine.FrameStatus
	FPS    float64
}

const maxLogLines = 1000

// SessionModel holds the shared UI state and fans out changes to listeners.
type SessionModel struct {
	snapshotEvent    *events.ChannelEvent[SessionSnapshot]
	snapshot         SessionSnapshot
	repEvent         *events.CallbackEvent[engine.RepEvent]
	sessionTotals    map[string]int
	closeApplication *events.ChannelEvent[struct{}]
	logEvent         *events.ChannelEvent[string]
	logLines         []string
	logMu            sync.RWMutex
	mu               sync.RWMutex
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup
	logger           *log.Logger
}

// NewSessionModel creates the model and starts reading uiLogChan into the
// log tail buffer.
func NewSessionModel(logger *log.Logger, uiLogChan <-chan string) *SessionModel {
	if logger == nil {
		panic("SessionModel: logger cannot be nil")
	}
	if uiLogChan == nil {
		panic("SessionModel: uiLogChan cannot be nil")
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &SessionModel{
		snapshotEvent:    events.NewChannelEvent[SessionSnapshot](true),
		repEvent:         events.NewCallbackEvent[engine.RepEvent](false),
		sessionTotals:    make(map[string]int),
		closeApplication: events.NewChannelEvent[struct{}](true),
		logEvent:         events.NewChannelEvent[string](false),
		logLines:         make([]string, 0, maxLogLines),
		ctx:              ctx,
		cancel:           cancel,
		logger:           logger,
	}

	m.wg.Add(1)
	safego.Go(m.logger, func() { m.readFromLogChannel(ctx, uiLogChan) })

	return m
}

// Shutdown stops all goroutines and waits for them to finish
func (m *SessionModel) Shutdown() {
	m.logger.Println("SessionModel: Shutting down")
	m.cancel()
	m.wg.Wait()
	m.logger.Println("SessionModel: Shutdown complete")
}

// ListenToSnapshot registers a channel to receive session snapshots.
// Returns a deregistration function that can be called to remove the listener
func (m *SessionModel) ListenToSnapshot(ch chan<- SessionSnapshot) func() {
	return m.snapshotEvent.Listen(ch)
}

// GetSnapshot returns the most recent session snapshot
func (m *SessionModel) GetSnapshot() SessionSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// SetSnapshot stores the latest snapshot and notifies listeners
func (m *SessionModel) SetSnapshot(snap SessionSnapshot) {
	m.mu.Lock()
	m.snapshot = snap
	m.mu.Unlock()

	m.snapshotEvent.Notify(snap)
}

// ListenToRep registers a callback fired once per counted repetition.
// Returns a deregistration function that can be called to remove the listener
func (m *SessionModel) ListenToRep(callback func(engine.RepEvent)) func() {
	return m.repEvent.Listen(callback)
}

// EmitRep records a completed repetition in the session totals and notifies
// listeners
func (m *SessionModel) EmitRep(ev engine.RepEvent) {
	m.mu.Lock()
	m.sessionTotals[ev.Exercise]++
	m.mu.Unlock()

	m.repEvent.Notify(ev)
}

// GetSessionTotals returns a copy of this session's per-exercise rep totals
func (m *SessionModel) GetSessionTotals() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]int, len(m.sessionTotals))
	for k, v := range m.sessionTotals {
		result[k] = v
	}
	return result
}

// ListenToCloseApplication registers a channel to receive close application signals
// Returns a deregistration function that can be called to remove the listener
func (m *SessionModel) ListenToCloseApplication(ch chan<- struct{}) func() {
	return m.closeApplication.Listen(ch)
}

// RequestCloseApplication signals that the application should close
func (m *SessionModel) RequestCloseApplication() {
	m.closeApplication.Notify(struct{}{})
}

// ListenToLog registers a channel to receive log messages
// Returns a deregistration function that can be called to remove the listener
func (m *SessionModel) ListenToLog(ch chan<- string) func() {
	return m.logEvent.Listen(ch)
}

// readFromLogChannel reads log lines from the channel and populates logLines
func (m *SessionModel) readFromLogChannel(ctx context.Context, logChan <-chan string) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-logChan:
			if !ok {
				return
			}

			m.logMu.Lock()
			m.logLines = append(m.logLines, line)
			if len(m.logLines) > maxLogLines {
				m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
			}
			m.logMu.Unlock()

			m.logEvent.Notify(line)
		}
	}
}

// GetLogTail returns the last n lines of logs
func (m *SessionModel) GetLogTail(n int) []string {
	m.logMu.RLock()
	defer m.logMu.RUnlock()

	if n <= 0 {
		return []string{}
	}

	if n >= len(m.logLines) {
		result := make([]string, len(m.logLines))
		copy(result, m.logLines)
		return result
	}

	result := make([]string, n)
	copy(result, m.logLines[len(m.logLines)-n:])
	return result
}
