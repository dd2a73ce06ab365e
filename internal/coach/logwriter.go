package coach

import (
	"bytes"
	"sync"
)

// LogChannelWriter is an io.Writer that splits writes into lines and sends
// them to a channel, letting the application log tee into the UI log pane.
// Sends are non-blocking: if the channel is full the line is dropped rather
// than stalling the logger.
type LogChannelWriter struct {
	ch  chan<- string
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewLogChannelWriter creates a writer feeding ch.
func NewLogChannelWriter(ch chan<- string) *LogChannelWriter {
	if ch == nil {
		panic("LogChannelWriter: ch cannot be nil")
	}
	return &LogChannelWriter{ch: ch}
}

func (w *LogChannelWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Partial line: keep it buffered for the next write.
			w.buf.WriteString(line)
			break
		}
		select {
		case w.ch <- line[:len(line)-1]:
		default:
		}
	}
	return len(p), nil
}
