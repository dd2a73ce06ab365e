package engine

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Thresholds configures one exercise's rep state machine. The hysteresis gap
// between DownEnterDeg and UpEnterDeg is what prevents double counting when
// the joint hovers near a single boundary, so UpEnterDeg must exceed
// DownEnterDeg.
type Thresholds struct {
	DownEnterDeg   float64 // at or below: candidate for the Down phase
	UpEnterDeg     float64 // at or above: candidate for the Up phase
	DebounceFrames int     // consecutive qualifying frames before a transition
}

// Validate checks the hysteresis and debounce invariants.
func (t Thresholds) Validate() error {
	if t.UpEnterDeg <= t.DownEnterDeg {
		return fmt.Errorf("up threshold %.1f must exceed down threshold %.1f", t.UpEnterDeg, t.DownEnterDeg)
	}
	if t.DebounceFrames < 1 {
		return fmt.Errorf("debounce frames must be at least 1, got %d", t.DebounceFrames)
	}
	return nil
}

// DefaultThresholds returns the stock threshold table. The numbers are
// tunable heuristics, overridable per exercise in the config file.
func DefaultThresholds() map[Mode]Thresholds {
	return map[Mode]Thresholds{
		ModeSquat:  {DownEnterDeg: 70, UpEnterDeg: 160, DebounceFrames: 3},
		ModePushUp: {DownEnterDeg: 70, UpEnterDeg: 160, DebounceFrames: 3},
		ModeLunge:  {DownEnterDeg: 80, UpEnterDeg: 160, DebounceFrames: 3},
	}
}

// StateMachine tracks one exercise's phase and repetition count across
// frames. It is the only cross-frame state in the engine. Not safe for
// concurrent use; the detector owns it exclusively.
type StateMachine struct {
	thresholds Thresholds

	phase Phase
	reps  int

	// Consecutive qualifying readings toward the pending transition. Any
	// invalid or dead-zone frame clears it, so noise never accumulates
	// into a false rep.
	run []float64

	// Recent valid readings, capped at DebounceFrames, for display
	// smoothing only. Never consulted by the transition logic.
	recent []float64
}

// NewStateMachine creates a machine in the Up phase with a zero counter.
// Panics if thresholds are invalid; callers validate config at load time.
func NewStateMachine(thresholds Thresholds) *StateMachine {
	if err := thresholds.Validate(); err != nil {
		panic("StateMachine: " + err.Error())
	}
	return &StateMachine{
		thresholds: thresholds,
		phase:      PhaseUp,
		run:        make([]float64, 0, thresholds.DebounceFrames),
		recent:     make([]float64, 0, thresholds.DebounceFrames),
	}
}

// Observe feeds one frame's primary-joint reading into the machine and
// reports whether that frame completed a repetition. ok=false marks an
// indeterminate reading: it clears the debounce run and changes nothing
// else.
func (sm *StateMachine) Observe(deg float64, ok bool) (repCompleted bool) {
	if !ok {
		sm.run = sm.run[:0]
		return false
	}

	sm.pushRecent(deg)

	switch sm.phase {
	case PhaseUp:
		if deg <= sm.thresholds.DownEnterDeg {
			sm.run = append(sm.run, deg)
			if len(sm.run) >= sm.thresholds.DebounceFrames {
				sm.phase = PhaseDown
				sm.run = sm.run[:0]
			}
		} else {
			sm.run = sm.run[:0]
		}

	case PhaseDown:
		if deg >= sm.thresholds.UpEnterDeg {
			sm.run = append(sm.run, deg)
			if len(sm.run) >= sm.thresholds.DebounceFrames {
				sm.phase = PhaseUp
				sm.reps++
				sm.run = sm.run[:0]
				return true
			}
		} else {
			sm.run = sm.run[:0]
		}
	}
	return false
}

// Phase returns the current phase.
func (sm *StateMachine) Phase() Phase {
	return sm.phase
}

// Reps returns the repetition count. It never decreases except through Reset.
func (sm *StateMachine) Reps() int {
	return sm.reps
}

// Smoothed returns the mean of the recent valid readings, OK=false when no
// valid reading has arrived yet.
func (sm *StateMachine) Smoothed() (float64, bool) {
	if len(sm.recent) == 0 {
		return 0, false
	}
	return floats.Sum(sm.recent) / float64(len(sm.recent)), true
}

// Reset returns the machine to its initial state: Up phase, zero reps,
// empty buffers.
func (sm *StateMachine) Reset() {
	sm.phase = PhaseUp
	sm.reps = 0
	sm.run = sm.run[:0]
	sm.recent = sm.recent[:0]
}

func (sm *StateMachine) pushRecent(deg float64) {
	if len(sm.recent) == cap(sm.recent) && len(sm.recent) > 0 {
		copy(sm.recent, sm.recent[1:])
		sm.recent = sm.recent[:len(sm.recent)-1]
	}
	sm.recent = append(sm.recent, deg)
}
