package engine

import (
	"github.com/lowaak/form-coach/internal/pose"
)

// Mode identifies a supported exercise.
type Mode int

const (
	ModeSquat Mode = iota
	ModePushUp
	ModeLunge
)

// String returns the display name for the mode.
func (m Mode) String() string {
	if info, ok := GetExerciseInfo(m); ok {
		return info.DisplayName
	}
	return "Unknown"
}

// Phase is the position in an exercise's movement cycle. Every exercise is
// a two-phase cycle; lunges relabel the phases Standing/Lunging for display.
type Phase int

const (
	PhaseUp Phase = iota // initial phase
	PhaseDown
)

// Joint names a computed angle in an AngleSet.
type Joint string

const (
	JointElbow     Joint = "elbow"
	JointKnee      Joint = "knee"
	JointHip       Joint = "hip"
	JointShoulder  Joint = "shoulder"
	JointBack      Joint = "back"
	JointBodyLine  Joint = "body_line"
	JointFrontKnee Joint = "front_knee"
)

// AngleReading is one computed joint angle. OK is false when the angle could
// not be trusted that frame (low landmark confidence or degenerate geometry).
type AngleReading struct {
	Deg float64
	OK  bool
}

// AngleSet holds all joint angles computed for a single frame. Recomputed
// every frame, never persisted.
type AngleSet map[Joint]AngleReading

// Get returns the reading for a joint, OK=false if it was never computed.
func (s AngleSet) Get(joint Joint) AngleReading {
	return s[joint]
}

// ExerciseInfo describes one exercise variant: which joint drives the rep
// state machine, which landmarks must be visible, and how phases are shown.
type ExerciseInfo struct {
	Mode              Mode
	DisplayName       string
	ConfigKey         string // key under exercises: in the config file
	KeyBinding        rune   // number key that selects this exercise
	PrimaryJoint      Joint
	UpLabel           string
	DownLabel         string
	RequiredLandmarks []pose.LandmarkID
}

// PhaseLabel returns the display label for a phase of this exercise.
func (e ExerciseInfo) PhaseLabel(p Phase) string {
	if p == PhaseDown {
		return e.DownLabel
	}
	return e.UpLabel
}

// AllExercises defines the supported exercises in key order.
var AllExercises = []ExerciseInfo{
	{
		Mode:         ModeSquat,
		DisplayName:  "Squat",
		ConfigKey:    "squat",
		KeyBinding:   '1',
		PrimaryJoint: JointKnee,
		UpLabel:      "Up",
		DownLabel:    "Down",
		RequiredLandmarks: []pose.LandmarkID{
			pose.LeftHip, pose.RightHip,
			pose.LeftKnee, pose.RightKnee,
			pose.LeftAnkle, pose.RightAnkle,
		},
	},
	{
		Mode:         ModePushUp,
		DisplayName:  "Push-up",
		ConfigKey:    "pushup",
		KeyBinding:   '2',
		PrimaryJoint: JointElbow,
		UpLabel:      "Up",
		DownLabel:    "Down",
		RequiredLandmarks: []pose.LandmarkID{
			pose.LeftShoulder, pose.RightShoulder,
			pose.LeftElbow, pose.RightElbow,
			pose.LeftWrist, pose.RightWrist,
		},
	},
	{
		Mode:         ModeLunge,
		DisplayName:  "Lunge",
		ConfigKey:    "lunge",
		KeyBinding:   '3',
		PrimaryJoint: JointFrontKnee,
		UpLabel:      "Standing",
		DownLabel:    "Lunging",
		RequiredLandmarks: []pose.LandmarkID{
			pose.LeftHip, pose.RightHip,
			pose.LeftKnee, pose.RightKnee,
			pose.LeftAnkle, pose.RightAnkle,
		},
	},
}

// GetExerciseInfo returns the info for a mode.
func GetExerciseInfo(mode Mode) (ExerciseInfo, bool) {
	for _, info := range AllExercises {
		if info.Mode == mode {
			return info, true
		}
	}
	return ExerciseInfo{}, false
}

// GetExerciseByKey returns the mode bound to a number key.
func GetExerciseByKey(key rune) (Mode, bool) {
	for _, info := range AllExercises {
		if info.KeyBinding == key {
			return info.Mode, true
		}
	}
	return 0, false
}

// GetExerciseByConfigKey returns the mode for a config file key.
func GetExerciseByConfigKey(key string) (Mode, bool) {
	for _, info := range AllExercises {
		if info.ConfigKey == key {
			return info.Mode, true
		}
	}
	return 0, false
}
