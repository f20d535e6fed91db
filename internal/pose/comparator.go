// Package pose compares live body poses against reference poses.
package pose

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/asana/internal/detector"
)

// DefaultToleranceDegrees is the average angle difference at which similarity reaches 0.
const DefaultToleranceDegrees = 45.0

// JointTriplet names the angle measured at B between rays B→A and B→C.
type JointTriplet struct {
	A, B, C int
	Name    string
}

// DefaultTriplets covers shoulders, elbows, hips and knees on both sides.
var DefaultTriplets = []JointTriplet{
	{A: detector.LeftShoulder, B: detector.LeftElbow, C: detector.LeftWrist, Name: "left_elbow"},
	{A: detector.RightShoulder, B: detector.RightElbow, C: detector.RightWrist, Name: "right_elbow"},
	{A: detector.LeftElbow, B: detector.LeftShoulder, C: detector.LeftHip, Name: "left_shoulder"},
	{A: detector.RightElbow, B: detector.RightShoulder, C: detector.RightHip, Name: "right_shoulder"},
	{A: detector.LeftHip, B: detector.LeftKnee, C: detector.LeftAnkle, Name: "left_knee"},
	{A: detector.RightHip, B: detector.RightKnee, C: detector.RightAnkle, Name: "right_knee"},
	{A: detector.LeftKnee, B: detector.LeftHip, C: detector.LeftShoulder, Name: "left_hip"},
	{A: detector.RightKnee, B: detector.RightHip, C: detector.RightShoulder, Name: "right_hip"},
}

// AngleDiff is the per-joint breakdown of a comparison.
type AngleDiff struct {
	Joint     string  `json:"joint"`
	Live      float64 `json:"live"`
	Reference float64 `json:"reference"`
	Diff      float64 `json:"diff"`
}

// Comparison is the full result of comparing two poses.
type Comparison struct {
	Similarity float64     `json:"similarity"`
	AvgDiff    float64     `json:"avg_diff"`
	Angles     []AngleDiff `json:"angles,omitempty"`
}

// Comparator scores two poses by how closely their joint angles agree.
// The zero value uses DefaultTriplets and DefaultToleranceDegrees.
type Comparator struct {
	Triplets         []JointTriplet
	ToleranceDegrees float64
}

// NewComparator returns a Comparator with the default triplets and tolerance.
func NewComparator() Comparator {
	return Comparator{
		Triplets:         DefaultTriplets,
		ToleranceDegrees: DefaultToleranceDegrees,
	}
}

func (c Comparator) triplets() []JointTriplet {
	if len(c.Triplets) == 0 {
		return DefaultTriplets
	}
	return c.Triplets
}

func (c Comparator) tolerance() float64 {
	if c.ToleranceDegrees <= 0 {
		return DefaultToleranceDegrees
	}
	return c.ToleranceDegrees
}

// Compare returns a similarity in [0,1]: 1 when every joint angle agrees,
// 0 when the average deviation reaches the tolerance or either pose is absent.
func (c Comparator) Compare(live, reference *detector.Pose) float64 {
	return c.Detail(live, reference).Similarity
}

// Detail is Compare with the per-joint breakdown.
func (c Comparator) Detail(live, reference *detector.Pose) Comparison {
	a := live.Normalize()
	b := reference.Normalize()
	if a == nil || b == nil {
		return Comparison{}
	}

	triplets := c.triplets()
	diffs := make([]float64, len(triplets))
	angles := make([]AngleDiff, len(triplets))

	for i, t := range triplets {
		la := angleAt(a, t)
		ra := angleAt(b, t)
		diffs[i] = math.Abs(la - ra)
		angles[i] = AngleDiff{Joint: t.Name, Live: la, Reference: ra, Diff: diffs[i]}
	}

	avg := stat.Mean(diffs, nil)
	return Comparison{
		Similarity: math.Max(0, 1-avg/c.tolerance()),
		AvgDiff:    avg,
		Angles:     angles,
	}
}

// Angles returns the normalized pose's angle for each configured triplet.
func (c Comparator) Angles(p *detector.Pose) []float64 {
	n := p.Normalize()
	if n == nil {
		return nil
	}
	triplets := c.triplets()
	out := make([]float64, len(triplets))
	for i, t := range triplets {
		out[i] = angleAt(n, t)
	}
	return out
}

// angleAt measures a triplet on a normalized pose; missing landmarks yield 0.
func angleAt(n *detector.NormalizedPose, t JointTriplet) float64 {
	a, okA := n.At(t.A)
	b, okB := n.At(t.B)
	c, okC := n.At(t.C)
	if !okA || !okB || !okC {
		return 0
	}
	return JointAngle(a, b, c)
}

// JointAngle returns the planar angle at b, in degrees, between b→a and b→c.
// Only X and Y are used. A zero-length ray yields 0.
func JointAngle(a, b, c detector.Point3D) float64 {
	ba := r3.Vec{X: a.X - b.X, Y: a.Y - b.Y}
	bc := r3.Vec{X: c.X - b.X, Y: c.Y - b.Y}

	magBA := r3.Norm(ba)
	magBC := r3.Norm(bc)
	if magBA == 0 || magBC == 0 {
		return 0
	}

	cos := r3.Dot(ba, bc) / (magBA * magBC)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}
