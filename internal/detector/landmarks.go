// Package detector provides body pose detection interfaces and landmark types.
package detector

import (
	"errors"
	"fmt"
	"math"
)

// Pose landmark indices following the MediaPipe pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

// ErrMissingLandmark is returned by Validate when a hip or shoulder landmark is absent.
var ErrMissingLandmark = errors.New("missing landmark")

// Point3D represents a landmark position. X and Y are normalized to the image
// frame; Z is relative depth as reported by the pose estimator.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Pose is one detected body. Points are indexed by the constants above;
// an index at or past len(Points) is treated as missing.
type Pose struct {
	Points []Point3D `json:"points"`
	Score  float64   `json:"score"`
}

// NormalizedPose is a pose re-expressed with the hip midpoint at the origin
// and the hip-to-shoulder distance scaled to 1.
type NormalizedPose struct {
	Points []Point3D `json:"points"`
	Scale  float64   `json:"scale"`
}

// At returns the landmark at index i and whether it is present.
func (p *Pose) At(i int) (Point3D, bool) {
	if p == nil || i < 0 || i >= len(p.Points) {
		return Point3D{}, false
	}
	return p.Points[i], true
}

// Empty reports whether the pose carries no landmarks.
func (p *Pose) Empty() bool {
	return p == nil || len(p.Points) == 0
}

// Validate reports the first required torso landmark that is missing.
func (p *Pose) Validate() error {
	for _, i := range []int{LeftHip, RightHip, LeftShoulder, RightShoulder} {
		if _, ok := p.At(i); !ok {
			return fmt.Errorf("%w: index %d", ErrMissingLandmark, i)
		}
	}
	return nil
}

// Clone returns a deep copy of the pose.
func (p *Pose) Clone() *Pose {
	if p == nil {
		return nil
	}
	points := make([]Point3D, len(p.Points))
	copy(points, p.Points)
	return &Pose{Points: points, Score: p.Score}
}

// midpoint averages whichever of the two landmarks are present.
// With neither present it returns the origin and false.
func (p *Pose) midpoint(a, b int) (Point3D, bool) {
	pa, okA := p.At(a)
	pb, okB := p.At(b)
	switch {
	case okA && okB:
		return Point3D{X: (pa.X + pb.X) / 2, Y: (pa.Y + pb.Y) / 2, Z: (pa.Z + pb.Z) / 2}, true
	case okA:
		return pa, true
	case okB:
		return pb, true
	default:
		return Point3D{}, false
	}
}

// TorsoLength returns the planar distance between the hip and shoulder midpoints.
func (p *Pose) TorsoLength() float64 {
	hip, _ := p.midpoint(LeftHip, RightHip)
	shoulder, ok := p.midpoint(LeftShoulder, RightShoulder)
	if !ok {
		return 0
	}
	return math.Hypot(shoulder.X-hip.X, shoulder.Y-hip.Y)
}

// Normalize translates the pose so the hip midpoint is at the origin and
// scales it so the torso length is 1. A degenerate torso leaves the scale at 1.
// Z is scaled but not translated. Returns nil for a nil or empty pose.
func (p *Pose) Normalize() *NormalizedPose {
	if p.Empty() {
		return nil
	}

	center, _ := p.midpoint(LeftHip, RightHip)

	scale := p.TorsoLength()
	if scale < 1e-10 {
		scale = 1
	}

	normalized := &NormalizedPose{
		Points: make([]Point3D, len(p.Points)),
		Scale:  scale,
	}
	for i, pt := range p.Points {
		normalized.Points[i] = Point3D{
			X: (pt.X - center.X) / scale,
			Y: (pt.Y - center.Y) / scale,
			Z: pt.Z / scale,
		}
	}

	return normalized
}

// At returns the normalized landmark at index i and whether it is present.
func (n *NormalizedPose) At(i int) (Point3D, bool) {
	if n == nil || i < 0 || i >= len(n.Points) {
		return Point3D{}, false
	}
	return n.Points[i], true
}
