package pose

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/lowaak/form-coach/internal/safego"
)

// ScriptedSource synthesizes a moving body without any estimator attached,
// for demos and end-to-end testing. The knee and elbow angles sweep a
// triangle wave between MinAngleDeg and MaxAngleDeg, so squats, push-ups
// and lunges all produce countable repetitions.
type ScriptedSource struct {
	config ScriptedConfig
	logger *log.Logger

	frames   chan Frame
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// ScriptedConfig holds the motion parameters for a ScriptedSource.
type ScriptedConfig struct {
	FPS         int           // frames per second (default 30)
	Period      time.Duration // time for one full down-up cycle (default 4s)
	MinAngleDeg float64       // joint angle at the bottom of the movement
	MaxAngleDeg float64       // joint angle at the top of the movement
}

// NewScriptedSource creates a ScriptedSource with the given motion profile.
func NewScriptedSource(config ScriptedConfig, logger *log.Logger) *ScriptedSource {
	if logger == nil {
		panic("ScriptedSource: logger cannot be nil")
	}
	if config.FPS <= 0 {
		config.FPS = 30
	}
	if config.Period <= 0 {
		config.Period = 4 * time.Second
	}
	if config.MinAngleDeg == 0 && config.MaxAngleDeg == 0 {
		config.MinAngleDeg = 60
		config.MaxAngleDeg = 170
	}
	return &ScriptedSource{
		config: config,
		logger: logger,
		frames: make(chan Frame, frameChanSize),
		done:   make(chan struct{}),
	}
}

// Start begins frame synthesis.
func (s *ScriptedSource) Start() error {
	s.logger.Printf("ScriptedSource: generating %d fps, %.0f-%.0f deg over %v",
		s.config.FPS, s.config.MinAngleDeg, s.config.MaxAngleDeg, s.config.Period)
	s.wg.Add(1)
	safego.Go(s.logger, func() { s.generateLoop() })
	return nil
}

// Stop ends synthesis and closes the Frames channel. Safe to call more
// than once.
func (s *ScriptedSource) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
	return nil
}

// Frames returns the frame delivery channel.
func (s *ScriptedSource) Frames() <-chan Frame {
	return s.frames
}

func (s *ScriptedSource) generateLoop() {
	defer s.wg.Done()
	defer close(s.frames)

	ticker := time.NewTicker(time.Second / time.Duration(s.config.FPS))
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			angle := s.angleAt(now.Sub(start))
			frame := SyntheticFrame(angle, 0.95)
			frame.Timestamp = now
			frame.TsMillis = now.UnixMilli()
			select {
			case s.frames <- frame:
			case <-s.done:
				return
			}
		}
	}
}

// angleAt evaluates the triangle wave at elapsed time t: top of the
// movement at t=0, bottom at t=Period/2.
func (s *ScriptedSource) angleAt(t time.Duration) float64 {
	phase := math.Mod(t.Seconds()/s.config.Period.Seconds(), 1.0)
	span := s.config.MaxAngleDeg - s.config.MinAngleDeg
	if phase < 0.5 {
		return s.config.MaxAngleDeg - span*(phase*2)
	}
	return s.config.MinAngleDeg + span*((phase-0.5)*2)
}

// SyntheticFrame builds a full-body frame in which every knee and elbow
// joint measures jointAngleDeg and all landmarks carry the given visibility.
// The torso stays upright so no form-feedback rules trigger. Used by the
// ScriptedSource and by engine tests that need geometrically consistent
// input.
func SyntheticFrame(jointAngleDeg, visibility float64) Frame {
	theta := jointAngleDeg * math.Pi / 180

	// Rotating the straight-segment direction (0,-1) by theta.
	bend := func(origin Landmark, length float64) Landmark {
		return Landmark{
			X:          origin.X + length*math.Sin(theta),
			Y:          origin.Y - length*math.Cos(theta),
			Visibility: visibility,
		}
	}
	at := func(x, y float64) Landmark {
		return Landmark{X: x, Y: y, Visibility: visibility}
	}

	leftHip := at(0.45, 0.50)
	rightHip := at(0.55, 0.50)
	leftKnee := at(0.45, 0.68)
	rightKnee := at(0.55, 0.68)
	leftShoulder := at(0.45, 0.30)
	rightShoulder := at(0.55, 0.30)
	leftElbow := at(0.45, 0.45)
	rightElbow := at(0.55, 0.45)

	leftAnkle := bend(leftKnee, 0.18)
	rightAnkle := bend(rightKnee, 0.18)
	leftWrist := bend(leftElbow, 0.15)
	rightWrist := bend(rightElbow, 0.15)

	return Frame{
		Landmarks: map[LandmarkID]Landmark{
			Nose:           at(0.50, 0.20),
			LeftShoulder:   leftShoulder,
			RightShoulder:  rightShoulder,
			LeftElbow:      leftElbow,
			RightElbow:     rightElbow,
			LeftWrist:      leftWrist,
			RightWrist:     rightWrist,
			LeftHip:        leftHip,
			RightHip:       rightHip,
			LeftKnee:       leftKnee,
			RightKnee:      rightKnee,
			LeftAnkle:      leftAnkle,
			RightAnkle:     rightAnkle,
			LeftFootIndex:  at(leftAnkle.X+0.04, leftAnkle.Y+0.02),
			RightFootIndex: at(rightAnkle.X+0.04, rightAnkle.Y+0.02),
		},
	}
}
