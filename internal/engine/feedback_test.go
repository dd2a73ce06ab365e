package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/form-coach/internal/pose"
)

func feedbackCodes(messages []FeedbackMessage) []FeedbackCode {
	codes := make([]FeedbackCode, 0, len(messages))
	for _, m := range messages {
		codes = append(codes, m.Code)
	}
	return codes
}

func TestFeedback_SquatBackStraight(t *testing.T) {
	calc := NewCalculator(0.5)

	angles := AngleSet{
		JointBack: {Deg: 130, OK: true},
		JointKnee: {Deg: 160, OK: true},
	}
	messages := calc.Feedback(ModeSquat, angles, pose.SyntheticFrame(160, 0.9))
	assert.Contains(t, feedbackCodes(messages), FeedbackBackStraight)

	angles[JointBack] = AngleReading{Deg: 170, OK: true}
	messages = calc.Feedback(ModeSquat, angles, pose.SyntheticFrame(160, 0.9))
	assert.NotContains(t, feedbackCodes(messages), FeedbackBackStraight)
}

func TestFeedback_SquatGoLower(t *testing.T) {
	calc := NewCalculator(0.5)
	frame := pose.SyntheticFrame(100, 0.9)

	// Descending but shy of depth: knee between 90 and 120.
	angles := AngleSet{
		JointBack: {Deg: 175, OK: true},
		JointKnee: {Deg: 100, OK: true},
	}
	messages := calc.Feedback(ModeSquat, angles, frame)
	assert.Equal(t, []FeedbackCode{FeedbackGoLower}, feedbackCodes(messages))

	// Deep enough: no hint.
	angles[JointKnee] = AngleReading{Deg: 80, OK: true}
	assert.Empty(t, calc.Feedback(ModeSquat, angles, frame))

	// Standing tall: no hint either.
	angles[JointKnee] = AngleReading{Deg: 170, OK: true}
	assert.Empty(t, calc.Feedback(ModeSquat, angles, frame))
}

func TestFeedback_PushUpRules(t *testing.T) {
	calc := NewCalculator(0.5)
	frame := pose.SyntheticFrame(170, 0.9)

	angles := AngleSet{
		JointElbow:    {Deg: 175, OK: true},
		JointBodyLine: {Deg: 140, OK: true},
	}
	messages := calc.Feedback(ModePushUp, angles, frame)
	codes := feedbackCodes(messages)
	assert.Contains(t, codes, FeedbackLowerBody)
	assert.Contains(t, codes, FeedbackBodyLine)

	angles[JointElbow] = AngleReading{Deg: 90, OK: true}
	angles[JointBodyLine] = AngleReading{Deg: 178, OK: true}
	assert.Empty(t, calc.Feedback(ModePushUp, angles, frame))
}

func TestFeedback_LungeKneeOverToe(t *testing.T) {
	calc := NewCalculator(0.5)

	frame := pose.SyntheticFrame(120, 0.9)
	// Push the right knee (the front leg: both knees level, right wins)
	// horizontally past its toe.
	knee := frame.Landmarks[pose.RightKnee]
	toe := frame.Landmarks[pose.RightFootIndex]
	knee.X = toe.X + 0.05
	frame.Landmarks[pose.RightKnee] = knee

	messages := calc.Feedback(ModeLunge, AngleSet{}, frame)
	require.Len(t, messages, 1)
	assert.Equal(t, FeedbackKneeOverToe, messages[0].Code)
	assert.Equal(t, SeverityWarn, messages[0].Severity)

	// Knee behind the toe: good form.
	knee.X = toe.X - 0.05
	frame.Landmarks[pose.RightKnee] = knee
	assert.Empty(t, calc.Feedback(ModeLunge, AngleSet{}, frame))
}

func TestFeedback_SkipsIndeterminateAngles(t *testing.T) {
	calc := NewCalculator(0.5)

	// Readings exist but are not trustworthy: no rule may fire on them.
	angles := AngleSet{
		JointBack:     {Deg: 100, OK: false},
		JointKnee:     {Deg: 100, OK: false},
		JointElbow:    {Deg: 175, OK: false},
		JointBodyLine: {Deg: 100, OK: false},
	}
	assert.Empty(t, calc.Feedback(ModeSquat, angles, pose.SyntheticFrame(100, 0.9)))
	assert.Empty(t, calc.Feedback(ModePushUp, angles, pose.SyntheticFrame(100, 0.9)))
}

func TestFeedback_IsPure(t *testing.T) {
	calc := NewCalculator(0.5)

	angles := AngleSet{
		JointBack: {Deg: 130, OK: true},
		JointKnee: {Deg: 100, OK: true},
	}
	frame := pose.SyntheticFrame(100, 0.9)

	first := calc.Feedback(ModeSquat, angles, frame)
	second := calc.Feedback(ModeSquat, angles, frame)
	assert.Equal(t, first, second)
	require.NotEmpty(t, first)
}
