package pose

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/lowaak/form-coach/internal/safego"
)

// ReplaySource plays back a recorded session from a JSONL file, one frame
// per line, paced at a fixed frame rate. The Frames channel is closed when
// the file is exhausted or Stop is called.
type ReplaySource struct {
	path     string
	interval time.Duration
	logger   *log.Logger

	frames   chan Frame
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewReplaySource creates a ReplaySource for path playing at fps frames
// per second.
func NewReplaySource(path string, fps int, logger *log.Logger) *ReplaySource {
	if logger == nil {
		panic("ReplaySource: logger cannot be nil")
	}
	if fps <= 0 {
		fps = 30
	}
	return &ReplaySource{
		path:     path,
		interval: time.Second / time.Duration(fps),
		logger:   logger,
		frames:   make(chan Frame, frameChanSize),
		done:     make(chan struct{}),
	}
}

// Start opens the file and begins playback.
func (s *ReplaySource) Start() error {
	file, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("opening replay file: %w", err)
	}
	s.logger.Printf("ReplaySource: playing %s at %v/frame", s.path, s.interval)

	s.wg.Add(1)
	safego.Go(s.logger, func() { s.playLoop(file) })
	return nil
}

// Stop ends playback. Safe to call more than once.
func (s *ReplaySource) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
	return nil
}

// Frames returns the frame delivery channel.
func (s *ReplaySource) Frames() <-chan Frame {
	return s.frames
}

func (s *ReplaySource) playLoop(file *os.File) {
	defer s.wg.Done()
	defer close(s.frames)
	defer file.Close()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count := 0

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		frame, err := DecodeFrame(line)
		if err != nil {
			s.logger.Printf("ReplaySource: skipping line %d: %v", count+1, err)
			continue
		}
		count++

		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		select {
		case <-s.done:
			return
		case s.frames <- frame:
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Printf("ReplaySource: read error: %v", err)
	}
	s.logger.Printf("ReplaySource: playback complete (%d frames)", count)
}
