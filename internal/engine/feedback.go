package engine

import (
	"github.com/lowaak/form-coach/internal/pose"
)

// Severity grades a form correction.
type Severity int

const (
	SeverityInfo Severity = iota // coaching hint
	SeverityWarn                 // form fault worth fixing now
)

// FeedbackCode identifies a correction rule.
type FeedbackCode string

const (
	FeedbackBackStraight FeedbackCode = "back_straight"
	FeedbackGoLower      FeedbackCode = "go_lower"
	FeedbackLowerBody    FeedbackCode = "lower_body"
	FeedbackBodyLine     FeedbackCode = "body_line"
	FeedbackKneeOverToe  FeedbackCode = "knee_over_toe"
)

// FeedbackMessage is one correction for the current frame. Messages are
// ephemeral: recomputed every frame, never accumulated.
type FeedbackMessage struct {
	Code     FeedbackCode
	Severity Severity
	Text     string
}

// Form-rule thresholds, in degrees except where noted. Like the rep
// thresholds these are heuristics, but they rarely need tuning so they are
// not exposed in the config file.
const (
	squatBackMinDeg      = 150 // torso-lean bound during a squat
	squatDepthKneeDeg    = 90  // knee angle a full-depth squat should reach
	squatDescendKneeDeg  = 120 // below this the athlete is clearly descending
	pushupTopElbowDeg    = 160 // elbow angle at the top of a push-up
	pushupBodyLineMinDeg = 155 // shoulder-hip-ankle straightness bound
)

// Feedback evaluates the form rules for one exercise against the current
// frame. Pure: identical inputs always produce the identical message list.
// An empty result means no rule fired (good form). Rules whose angles are
// indeterminate this frame are skipped rather than guessed at.
func (calc *Calculator) Feedback(mode Mode, angles AngleSet, frame pose.Frame) []FeedbackMessage {
	var messages []FeedbackMessage

	switch mode {
	case ModeSquat:
		if back := angles.Get(JointBack); back.OK && back.Deg < squatBackMinDeg {
			messages = append(messages, FeedbackMessage{
				Code:     FeedbackBackStraight,
				Severity: SeverityWarn,
				Text:     "Keep your back straight",
			})
		}
		if knee := angles.Get(JointKnee); knee.OK &&
			knee.Deg > squatDepthKneeDeg && knee.Deg < squatDescendKneeDeg {
			messages = append(messages, FeedbackMessage{
				Code:     FeedbackGoLower,
				Severity: SeverityInfo,
				Text:     "Go lower",
			})
		}

	case ModePushUp:
		if elbow := angles.Get(JointElbow); elbow.OK && elbow.Deg > pushupTopElbowDeg {
			messages = append(messages, FeedbackMessage{
				Code:     FeedbackLowerBody,
				Severity: SeverityInfo,
				Text:     "Lower your body",
			})
		}
		if body := angles.Get(JointBodyLine); body.OK && body.Deg < pushupBodyLineMinDeg {
			messages = append(messages, FeedbackMessage{
				Code:     FeedbackBodyLine,
				Severity: SeverityWarn,
				Text:     "Keep body straight",
			})
		}

	case ModeLunge:
		// Knee traveling past the toes, approximated by the horizontal
		// offset between the front knee and foot-index landmarks.
		if knee, toe, ok := calc.FrontLeg(frame); ok && knee.X > toe.X {
			messages = append(messages, FeedbackMessage{
				Code:     FeedbackKneeOverToe,
				Severity: SeverityWarn,
				Text:     "Don't push knee forward",
			})
		}
	}

	return messages
}
