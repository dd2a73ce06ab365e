package pose

import "time"

// LandmarkID names an anatomical point in the estimator's vocabulary.
// The names follow the MediaPipe BlazePose convention used by the
// out-of-process estimator.
type LandmarkID string

const (
	Nose           LandmarkID = "nose"
	LeftShoulder   LandmarkID = "left_shoulder"
	RightShoulder  LandmarkID = "right_shoulder"
	LeftElbow      LandmarkID = "left_elbow"
	RightElbow     LandmarkID = "right_elbow"
	LeftWrist      LandmarkID = "left_wrist"
	RightWrist     LandmarkID = "right_wrist"
	LeftHip        LandmarkID = "left_hip"
	RightHip       LandmarkID = "right_hip"
	LeftKnee       LandmarkID = "left_knee"
	RightKnee      LandmarkID = "right_knee"
	LeftAnkle      LandmarkID = "left_ankle"
	RightAnkle     LandmarkID = "right_ankle"
	LeftFootIndex  LandmarkID = "left_foot_index"
	RightFootIndex LandmarkID = "right_foot_index"
)

// AllLandmarks lists every landmark the estimator is expected to report.
var AllLandmarks = []LandmarkID{
	Nose,
	LeftShoulder, RightShoulder,
	LeftElbow, RightElbow,
	LeftWrist, RightWrist,
	LeftHip, RightHip,
	LeftKnee, RightKnee,
	LeftAnkle, RightAnkle,
	LeftFootIndex, RightFootIndex,
}

var knownLandmarks = func() map[LandmarkID]struct{} {
	known := make(map[LandmarkID]struct{}, len(AllLandmarks))
	for _, id := range AllLandmarks {
		known[id] = struct{}{}
	}
	return known
}()

// Landmark is one detected body point in normalized frame coordinates.
// X grows rightward, Y grows downward, both in [0,1] for points inside the
// frame. Z is the estimator's depth estimate and may be zero. Visibility is
// the estimator's confidence in [0,1].
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"v"`
}

// Frame is one video frame's worth of landmarks. Frames are read-only input:
// the engine never mutates them.
type Frame struct {
	Timestamp time.Time               `json:"-"`
	TsMillis  int64                   `json:"ts_ms"`
	Landmarks map[LandmarkID]Landmark `json:"landmarks"`
}

// Lookup returns the named landmark and whether it was reported at all.
func (f Frame) Lookup(id LandmarkID) (Landmark, bool) {
	lm, ok := f.Landmarks[id]
	return lm, ok
}

// Empty reports whether the frame carries no landmarks (pose not detected).
func (f Frame) Empty() bool {
	return len(f.Landmarks) == 0
}
