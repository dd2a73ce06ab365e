package engine

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/lowaak/form-coach/internal/pose"
)

// DefaultVisibilityThreshold is the confidence below which a landmark is
// treated as unseen.
const DefaultVisibilityThreshold = 0.5

// Calculator computes joint angles from landmark positions. It carries no
// per-frame state; the only field is the confidence cutoff.
type Calculator struct {
	visibilityThreshold float64
}

// NewCalculator creates a Calculator. A non-positive threshold falls back to
// the default.
func NewCalculator(visibilityThreshold float64) *Calculator {
	if visibilityThreshold <= 0 {
		visibilityThreshold = DefaultVisibilityThreshold
	}
	return &Calculator{visibilityThreshold: visibilityThreshold}
}

// Angle returns the unsigned angle in degrees at vertex b between the rays
// b->a and b->c, in [0,180]. OK is false when any landmark is below the
// visibility threshold or the geometry is degenerate (coincident points).
// Depth is ignored: the estimator's z is far noisier than x/y.
func (calc *Calculator) Angle(a, b, c pose.Landmark) (float64, bool) {
	if a.Visibility < calc.visibilityThreshold ||
		b.Visibility < calc.visibilityThreshold ||
		c.Visibility < calc.visibilityThreshold {
		return 0, false
	}

	ba := r2.Vec{X: a.X - b.X, Y: a.Y - b.Y}
	bc := r2.Vec{X: c.X - b.X, Y: c.Y - b.Y}
	if r2.Norm(ba) == 0 || r2.Norm(bc) == 0 {
		return 0, false
	}

	cos := r2.Cos(ba, bc)
	// Guard against rounding drift outside acos' domain.
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi, true
}

// Sees reports whether the frame carries the landmark at or above the
// visibility threshold.
func (calc *Calculator) Sees(frame pose.Frame, id pose.LandmarkID) bool {
	lm, ok := frame.Lookup(id)
	return ok && lm.Visibility >= calc.visibilityThreshold
}

// Compute builds the full angle set for a frame: bilateral averages for
// elbow/knee/hip/shoulder, midpoint-based back and body-line angles, and the
// front-knee angle for lunges.
func (calc *Calculator) Compute(frame pose.Frame) AngleSet {
	angles := make(AngleSet, 7)

	angles[JointElbow] = calc.bilateral(frame,
		pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist,
		pose.RightShoulder, pose.RightElbow, pose.RightWrist)
	angles[JointKnee] = calc.bilateral(frame,
		pose.LeftHip, pose.LeftKnee, pose.LeftAnkle,
		pose.RightHip, pose.RightKnee, pose.RightAnkle)
	angles[JointHip] = calc.bilateral(frame,
		pose.LeftShoulder, pose.LeftHip, pose.LeftKnee,
		pose.RightShoulder, pose.RightHip, pose.RightKnee)
	angles[JointShoulder] = calc.bilateral(frame,
		pose.LeftElbow, pose.LeftShoulder, pose.LeftHip,
		pose.RightElbow, pose.RightShoulder, pose.RightHip)

	shoulderMid, shoulderOK := calc.midpoint(frame, pose.LeftShoulder, pose.RightShoulder)
	hipMid, hipOK := calc.midpoint(frame, pose.LeftHip, pose.RightHip)
	kneeMid, kneeOK := calc.midpoint(frame, pose.LeftKnee, pose.RightKnee)
	ankleMid, ankleOK := calc.midpoint(frame, pose.LeftAnkle, pose.RightAnkle)

	if shoulderOK && hipOK && kneeOK {
		deg, ok := calc.Angle(shoulderMid, hipMid, kneeMid)
		angles[JointBack] = AngleReading{Deg: deg, OK: ok}
	}
	if shoulderOK && hipOK && ankleOK {
		deg, ok := calc.Angle(shoulderMid, hipMid, ankleMid)
		angles[JointBodyLine] = AngleReading{Deg: deg, OK: ok}
	}

	if hip, knee, ankle, ok := calc.frontLegJoints(frame); ok {
		deg, ok := calc.Angle(hip, knee, ankle)
		angles[JointFrontKnee] = AngleReading{Deg: deg, OK: ok}
	}

	return angles
}

// FrontLeg picks the leg closer to the camera's lower edge (larger
// normalized y at the knee) and returns its knee and foot-index landmarks.
// OK is false when either side's knee is below the visibility threshold.
func (calc *Calculator) FrontLeg(frame pose.Frame) (knee, toe pose.Landmark, ok bool) {
	leftKnee, lOK := frame.Lookup(pose.LeftKnee)
	rightKnee, rOK := frame.Lookup(pose.RightKnee)
	if !lOK || !rOK ||
		leftKnee.Visibility < calc.visibilityThreshold ||
		rightKnee.Visibility < calc.visibilityThreshold {
		return pose.Landmark{}, pose.Landmark{}, false
	}

	kneeID, toeID := pose.RightKnee, pose.RightFootIndex
	if leftKnee.Y > rightKnee.Y {
		kneeID, toeID = pose.LeftKnee, pose.LeftFootIndex
	}
	knee, _ = frame.Lookup(kneeID)
	toe, tOK := frame.Lookup(toeID)
	if !tOK || toe.Visibility < calc.visibilityThreshold {
		return pose.Landmark{}, pose.Landmark{}, false
	}
	return knee, toe, true
}

// bilateral averages the left and right readings of a joint. One visible
// side is enough; the average only applies when both sides resolved.
func (calc *Calculator) bilateral(frame pose.Frame, la, lb, lc, ra, rb, rc pose.LandmarkID) AngleReading {
	left, leftOK := calc.jointAngle(frame, la, lb, lc)
	right, rightOK := calc.jointAngle(frame, ra, rb, rc)

	switch {
	case leftOK && rightOK:
		return AngleReading{Deg: (left + right) / 2, OK: true}
	case leftOK:
		return AngleReading{Deg: left, OK: true}
	case rightOK:
		return AngleReading{Deg: right, OK: true}
	default:
		return AngleReading{}
	}
}

func (calc *Calculator) jointAngle(frame pose.Frame, aID, bID, cID pose.LandmarkID) (float64, bool) {
	a, aOK := frame.Lookup(aID)
	b, bOK := frame.Lookup(bID)
	c, cOK := frame.Lookup(cID)
	if !aOK || !bOK || !cOK {
		return 0, false
	}
	return calc.Angle(a, b, c)
}

// midpoint returns the synthetic landmark halfway between two points,
// carrying the weaker of the two confidences.
func (calc *Calculator) midpoint(frame pose.Frame, aID, bID pose.LandmarkID) (pose.Landmark, bool) {
	a, aOK := frame.Lookup(aID)
	b, bOK := frame.Lookup(bID)
	if !aOK || !bOK {
		return pose.Landmark{}, false
	}
	return pose.Landmark{
		X:          (a.X + b.X) / 2,
		Y:          (a.Y + b.Y) / 2,
		Z:          (a.Z + b.Z) / 2,
		Visibility: math.Min(a.Visibility, b.Visibility),
	}, true
}

func (calc *Calculator) frontLegJoints(frame pose.Frame) (hip, knee, ankle pose.Landmark, ok bool) {
	leftKnee, lOK := frame.Lookup(pose.LeftKnee)
	rightKnee, rOK := frame.Lookup(pose.RightKnee)
	if !lOK || !rOK {
		return
	}

	hipID, kneeID, ankleID := pose.RightHip, pose.RightKnee, pose.RightAnkle
	if leftKnee.Y > rightKnee.Y {
		hipID, kneeID, ankleID = pose.LeftHip, pose.LeftKnee, pose.LeftAnkle
	}

	var hOK, kOK, aOK bool
	hip, hOK = frame.Lookup(hipID)
	knee, kOK = frame.Lookup(kneeID)
	ankle, aOK = frame.Lookup(ankleID)
	ok = hOK && kOK && aOK
	return
}
