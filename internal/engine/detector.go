package engine

import (
	"fmt"
	"log"
	"time"

	"github.com/lowaak/form-coach/internal/pose"
)

// FrameStatus is the immutable per-frame snapshot the rest of the
// application consumes: the UI renders it and the loggers react to
// RepCompleted. Valid is false when the primary joint could not be
// evaluated that frame; the counters are guaranteed unchanged then.
type FrameStatus struct {
	Timestamp    time.Time
	Mode         Mode
	Exercise     string // display name
	RepCount     int
	Phase        Phase
	PhaseLabel   string
	PrimaryAngle float64 // smoothed over the recent valid readings
	AngleOK      bool
	Feedback     []FeedbackMessage
	PoseDetected bool
	Valid        bool
	RepCompleted bool

	// MissingLandmarks lists the active exercise's required landmarks that
	// were unseen this frame. Empty when the pose was not detected at all.
	MissingLandmarks []pose.LandmarkID
}

// RepEvent is fired exactly once per counted repetition.
type RepEvent struct {
	Timestamp time.Time
	Mode      Mode
	Exercise  string
	Count     int // the new total for this exercise
}

// Detector composes the angle calculator, the per-exercise state machines
// and the feedback rules behind a single per-frame contract. It owns all
// cross-frame state and is not safe for concurrent use: one goroutine
// drives ProcessFrame, and mode switches happen between frames.
type Detector struct {
	logger *log.Logger
	calc   *Calculator

	machines map[Mode]*StateMachine
	mode     Mode
}

// NewDetector creates a Detector with one state machine per exercise.
// Squat starts active.
func NewDetector(calc *Calculator, thresholds map[Mode]Thresholds, logger *log.Logger) (*Detector, error) {
	if calc == nil {
		panic("Detector: calc cannot be nil")
	}
	if logger == nil {
		panic("Detector: logger cannot be nil")
	}

	machines := make(map[Mode]*StateMachine, len(AllExercises))
	for _, info := range AllExercises {
		t, ok := thresholds[info.Mode]
		if !ok {
			return nil, fmt.Errorf("no thresholds for %s", info.DisplayName)
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("%s thresholds: %w", info.DisplayName, err)
		}
		machines[info.Mode] = NewStateMachine(t)
	}

	return &Detector{
		logger:   logger,
		calc:     calc,
		machines: machines,
		mode:     ModeSquat,
	}, nil
}

// Mode returns the active exercise.
func (d *Detector) Mode() Mode {
	return d.mode
}

// SetMode switches the active exercise. The target machine is reset so no
// stale phase or count leaks across a switch; an unknown mode is rejected
// and the prior mode stays active.
func (d *Detector) SetMode(mode Mode) error {
	machine, ok := d.machines[mode]
	if !ok {
		return fmt.Errorf("unsupported exercise mode %d", mode)
	}
	if mode == d.mode {
		return nil
	}
	machine.Reset()
	d.mode = mode
	d.logger.Printf("Detector: switched to %s", mode)
	return nil
}

// Reset zeroes the active exercise's counter and phase.
func (d *Detector) Reset() {
	d.machines[d.mode].Reset()
	d.logger.Printf("Detector: %s counter reset", d.mode)
}

// ProcessFrame runs one frame through the engine: angles, the active state
// machine, then feedback. It always returns a well-formed snapshot; missing
// or low-confidence landmarks degrade to Valid=false and leave the machine
// untouched beyond clearing its debounce run.
func (d *Detector) ProcessFrame(frame pose.Frame) FrameStatus {
	info, _ := GetExerciseInfo(d.mode)
	machine := d.machines[d.mode]

	angles := d.calc.Compute(frame)
	primary := angles.Get(info.PrimaryJoint)

	repCompleted := machine.Observe(primary.Deg, primary.OK)
	if repCompleted {
		d.logger.Printf("Detector: %s rep %d", info.DisplayName, machine.Reps())
	}

	var feedback []FeedbackMessage
	var missing []pose.LandmarkID
	if !frame.Empty() {
		feedback = d.calc.Feedback(d.mode, angles, frame)
		for _, id := range info.RequiredLandmarks {
			if !d.calc.Sees(frame, id) {
				missing = append(missing, id)
			}
		}
	}

	smoothed, smoothedOK := machine.Smoothed()

	ts := frame.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return FrameStatus{
		Timestamp:    ts,
		Mode:         d.mode,
		Exercise:     info.DisplayName,
		RepCount:     machine.Reps(),
		Phase:        machine.Phase(),
		PhaseLabel:   info.PhaseLabel(machine.Phase()),
		PrimaryAngle: smoothed,
		AngleOK:      smoothedOK,
		Feedback:     feedback,
		PoseDetected: !frame.Empty(),
		Valid:        primary.OK,
		RepCompleted: repCompleted,

		MissingLandmarks: missing,
	}
}
