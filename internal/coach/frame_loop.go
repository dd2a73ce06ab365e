package coach

import (
	"log"
	"sync"
	"time"

	"github.com/lowaak/form-coach/internal/engine"
	"github.com/lowaak/form-coach/internal/history"
	"github.com/lowaak/form-coach/internal/pose"
	"github.com/lowaak/form-coach/internal/safego"
)

// loopCommand represents commands sent to the frame loop goroutine
type loopCommand struct {
	kind loopCommandKind
	mode engine.Mode
}

type loopCommandKind int

const (
	cmdSetMode loopCommandKind = iota
	cmdReset
)

// fpsSmoothing is the EWMA weight of the previous estimate. High so the
// displayed rate doesn't jitter with per-frame timing noise.
const fpsSmoothing = 0.9

// FrameLoop owns the detector. It drains the pose source, runs every frame
// through the engine, publishes snapshots to the model and fans completed
// reps out to the CSV log and the history store. Mode switches and resets
// arrive as commands and are applied between frames, so the detector is
// only ever touched from the loop goroutine.
type FrameLoop struct {
	model    *SessionModel
	detector *engine.Detector
	source   pose.Source
	csvLog   *CSVLogger
	store    *history.Store
	logger   *log.Logger

	cmdChan      chan loopCommand
	doneChan     chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// NewFrameLoop creates the loop and starts its goroutine. The source must
// already be started.
func NewFrameLoop(model *SessionModel, detector *engine.Detector, source pose.Source,
	csvLog *CSVLogger, store *history.Store, logger *log.Logger) *FrameLoop {
	if model == nil {
		panic("FrameLoop: model cannot be nil")
	}
	if detector == nil {
		panic("FrameLoop: detector cannot be nil")
	}
	if source == nil {
		panic("FrameLoop: source cannot be nil")
	}
	if csvLog == nil {
		panic("FrameLoop: csvLog cannot be nil")
	}
	if store == nil {
		panic("FrameLoop: store cannot be nil")
	}
	if logger == nil {
		panic("FrameLoop: logger cannot be nil")
	}

	fl := &FrameLoop{
		model:    model,
		detector: detector,
		source:   source,
		csvLog:   csvLog,
		store:    store,
		logger:   logger,
		cmdChan:  make(chan loopCommand, 1),
		doneChan: make(chan struct{}),
	}

	fl.wg.Add(1)
	safego.Go(logger, func() { fl.run() })

	return fl
}

// SetMode requests a switch to the given exercise.
func (fl *FrameLoop) SetMode(mode engine.Mode) {
	fl.cmdChan <- loopCommand{kind: cmdSetMode, mode: mode}
}

// ResetActive requests a counter reset for the active exercise.
func (fl *FrameLoop) ResetActive() {
	fl.cmdChan <- loopCommand{kind: cmdReset}
}

// Shutdown stops the loop goroutine and waits for it to finish.
// Safe to call multiple times - only the first call has effect
func (fl *FrameLoop) Shutdown() {
	fl.shutdownOnce.Do(func() {
		fl.logger.Printf("FrameLoop: Shutting down")
		close(fl.doneChan)
		fl.wg.Wait()
		fl.logger.Printf("FrameLoop: Shutdown complete")
	})
}

// run is the main goroutine that drives the detector.
func (fl *FrameLoop) run() {
	defer fl.wg.Done()

	frames := fl.source.Frames()
	var fps float64
	var lastFrame time.Time

	for {
		select {
		case <-fl.doneChan:
			fl.logger.Printf("FrameLoop: Goroutine exiting")
			return

		case cmd := <-fl.cmdChan:
			switch cmd.kind {
			case cmdSetMode:
				if err := fl.detector.SetMode(cmd.mode); err != nil {
					fl.logger.Printf("FrameLoop: mode switch rejected: %v", err)
					continue
				}
				fl.publish(fl.detector.ProcessFrame(pose.Frame{}), fps)
			case cmdReset:
				fl.detector.Reset()
				fl.publish(fl.detector.ProcessFrame(pose.Frame{}), fps)
			}

		case frame, ok := <-frames:
			if !ok {
				fl.logger.Printf("FrameLoop: pose source closed")
				// Keep serving commands so the UI stays responsive, but
				// stop selecting on the closed channel.
				frames = nil
				continue
			}

			now := time.Now()
			if !lastFrame.IsZero() {
				if dt := now.Sub(lastFrame).Seconds(); dt > 0 {
					fps = fpsSmoothing*fps + (1-fpsSmoothing)*(1/dt)
				}
			}
			lastFrame = now

			status := fl.detector.ProcessFrame(frame)
			fl.publish(status, fps)

			if status.RepCompleted {
				fl.recordRep(engine.RepEvent{
					Timestamp: status.Timestamp,
					Mode:      status.Mode,
					Exercise:  status.Exercise,
					Count:     status.RepCount,
				})
			}
		}
	}
}

func (fl *FrameLoop) publish(status engine.FrameStatus, fps float64) {
	fl.model.SetSnapshot(SessionSnapshot{Status: status, FPS: fps})
}

func (fl *FrameLoop) recordRep(ev engine.RepEvent) {
	fl.model.EmitRep(ev)

	if err := fl.csvLog.LogRep(ev); err != nil {
		fl.logger.Printf("FrameLoop: csv log failed: %v", err)
	}
	if err := fl.store.RecordRep(ev.Exercise, ev.Count, ev.Timestamp); err != nil {
		fl.logger.Printf("FrameLoop: history write failed: %v", err)
	}
}
