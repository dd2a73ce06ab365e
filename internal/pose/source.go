package pose

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lowaak/form-coach/internal/safego"
)

// Source is a stream of landmark frames from some estimator transport.
// Start begins delivery, Stop ends it and closes the Frames channel.
type Source interface {
	Start() error
	Stop() error
	Frames() <-chan Frame
}

// frameChanSize bounds how far a slow consumer can fall behind before
// frames are dropped. Dropping is correct here: stale pose frames are
// worthless for live coaching.
const frameChanSize = 4

// UDPSource receives one JSON-encoded frame per datagram from the
// out-of-process pose estimator.
type UDPSource struct {
	addr   string
	logger *log.Logger

	frames chan Frame
	conn   *net.UDPConn
	wg     sync.WaitGroup

	received atomic.Int64
	dropped  atomic.Int64

	stopOnce sync.Once
}

// NewUDPSource creates a UDPSource listening on addr (e.g. ":7878").
func NewUDPSource(addr string, logger *log.Logger) *UDPSource {
	if logger == nil {
		panic("UDPSource: logger cannot be nil")
	}
	return &UDPSource{
		addr:   addr,
		logger: logger,
		frames: make(chan Frame, frameChanSize),
	}
}

// Start opens the socket and begins the receive loop.
func (s *UDPSource) Start() error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", s.addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.conn = conn
	s.logger.Printf("UDPSource: listening on %s", s.addr)

	s.wg.Add(1)
	safego.Go(s.logger, func() { s.receiveLoop() })
	return nil
}

// Stop closes the socket and the Frames channel. Safe to call more than once.
func (s *UDPSource) Stop() error {
	s.stopOnce.Do(func() {
		if s.conn != nil {
			s.conn.Close()
		}
		s.wg.Wait()
		close(s.frames)
		received, dropped := s.Stats()
		s.logger.Printf("UDPSource: stopped (received=%d dropped=%d)",
			received, dropped)
	})
	return nil
}

// Frames returns the frame delivery channel.
func (s *UDPSource) Frames() <-chan Frame {
	return s.frames
}

// Stats returns the received and dropped frame counts so far.
func (s *UDPSource) Stats() (received, dropped int64) {
	return s.received.Load(), s.dropped.Load()
}

func (s *UDPSource) receiveLoop() {
	defer s.wg.Done()

	buf := make([]byte, 65536)
	for {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			// Closed socket means Stop was called.
			return
		}

		frame, err := DecodeFrame(buf[:n])
		if err != nil {
			s.logger.Printf("UDPSource: bad frame: %v", err)
			continue
		}
		s.received.Add(1)

		select {
		case s.frames <- frame:
		default:
			s.dropped.Add(1)
		}
	}
}

// DecodeFrame parses one JSON frame as produced by the estimator. A frame
// without a timestamp gets the local receive time. Landmarks outside the
// AllLandmarks vocabulary are discarded: the estimator model reports more
// points than the engine uses.
func DecodeFrame(data []byte) (Frame, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return Frame{}, fmt.Errorf("decoding frame: %w", err)
	}
	for id := range frame.Landmarks {
		if _, ok := knownLandmarks[id]; !ok {
			delete(frame.Landmarks, id)
		}
	}
	if frame.TsMillis > 0 {
		frame.Timestamp = time.UnixMilli(frame.TsMillis)
	} else {
		frame.Timestamp = time.Now()
	}
	return frame, nil
}
