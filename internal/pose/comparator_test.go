package pose

import (
	"math"
	"testing"

	"github.com/ayusman/asana/internal/detector"
)

const epsilon = 1e-9

func TestJointAngle(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c detector.Point3D
		want    float64
	}{
		{"right angle", detector.Point3D{X: 1}, detector.Point3D{}, detector.Point3D{Y: 1}, 90},
		{"straight line", detector.Point3D{X: -1}, detector.Point3D{}, detector.Point3D{X: 2}, 180},
		{"folded", detector.Point3D{X: 1}, detector.Point3D{}, detector.Point3D{X: 3}, 0},
		{"z is ignored", detector.Point3D{X: 1, Z: 5}, detector.Point3D{}, detector.Point3D{Y: 1, Z: -3}, 90},
		{"zero length first ray", detector.Point3D{X: 1, Y: 1}, detector.Point3D{X: 1, Y: 1}, detector.Point3D{Y: 1}, 0},
		{"zero length second ray", detector.Point3D{X: 1}, detector.Point3D{}, detector.Point3D{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JointAngle(tt.a, tt.b, tt.c)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("JointAngle() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestComparator_SelfSimilarity(t *testing.T) {
	c := NewComparator()

	for name, p := range map[string]detector.Pose{
		"standing":   detector.StandingLandmarks(),
		"tree":       detector.TreePoseLandmarks(),
		"warrior II": detector.WarriorIILandmarks(),
	} {
		t.Run(name, func(t *testing.T) {
			if got := c.Compare(&p, &p); got != 1.0 {
				t.Errorf("Compare(p, p) = %f, want 1.0", got)
			}
		})
	}
}

func TestComparator_ScaledAndShiftedCopyMatches(t *testing.T) {
	c := NewComparator()
	ref := detector.TreePoseLandmarks()
	live := ref.Clone()
	for i, p := range live.Points {
		live.Points[i] = detector.Point3D{X: p.X*0.6 + 0.2, Y: p.Y*0.6 + 0.1, Z: p.Z}
	}

	if got := c.Compare(live, &ref); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("expected similarity 1.0 for a moved copy, got %f", got)
	}
}

func TestComparator_Symmetry(t *testing.T) {
	c := NewComparator()
	standing := detector.StandingLandmarks()
	tree := detector.TreePoseLandmarks()
	warrior := detector.WarriorIILandmarks()

	pairs := [][2]*detector.Pose{
		{&standing, &tree},
		{&standing, &warrior},
		{&tree, &warrior},
	}
	for _, pair := range pairs {
		ab := c.Compare(pair[0], pair[1])
		ba := c.Compare(pair[1], pair[0])
		if ab != ba {
			t.Errorf("Compare not symmetric: %f vs %f", ab, ba)
		}
	}
}

func TestComparator_DifferentPoses(t *testing.T) {
	c := NewComparator()
	standing := detector.StandingLandmarks()
	tree := detector.TreePoseLandmarks()
	warrior := detector.WarriorIILandmarks()

	t.Run("tree against standing is zero", func(t *testing.T) {
		if got := c.Compare(&tree, &standing); got != 0 {
			t.Errorf("expected similarity 0, got %f", got)
		}
	})

	t.Run("warrior II against standing is low", func(t *testing.T) {
		got := c.Compare(&warrior, &standing)
		if math.Abs(got-0.1096) > 1e-3 {
			t.Errorf("expected similarity ~0.1096, got %f", got)
		}
		if IsMatch(got, DefaultMatchThreshold) {
			t.Error("warrior II should not match standing")
		}
	})

	t.Run("wider tolerance raises similarity", func(t *testing.T) {
		wide := Comparator{ToleranceDegrees: 90}
		got := wide.Compare(&warrior, &standing)
		if math.Abs(got-0.5548) > 1e-3 {
			t.Errorf("expected similarity ~0.5548, got %f", got)
		}
	})

	t.Run("small deviation still matches", func(t *testing.T) {
		live := detector.TreePoseLandmarks()
		live.Points[detector.RightKnee] = detector.Point3D{X: 0.35, Y: 0.66}

		got := c.Compare(&live, &tree)
		if math.Abs(got-0.9671) > 1e-3 {
			t.Errorf("expected similarity ~0.9671, got %f", got)
		}
		if !IsMatch(got, DefaultMatchThreshold) {
			t.Error("slightly shifted knee should still match")
		}
	})
}

func TestComparator_Monotonicity(t *testing.T) {
	c := NewComparator()
	ref := detector.TreePoseLandmarks()

	shoulder := ref.Points[detector.RightShoulder]
	elbow := ref.Points[detector.RightElbow]
	wrist := ref.Points[detector.RightWrist]
	start := JointAngle(shoulder, elbow, wrist)

	// Rotate the forearm in whichever direction opens the elbow angle.
	dir := 1.0
	if JointAngle(shoulder, elbow, rotate(wrist, elbow, 5)) < start {
		dir = -1.0
	}

	prev := 1.0
	for deg := 0.0; deg <= 50; deg += 5 {
		live := ref.Clone()
		live.Points[detector.RightWrist] = rotate(wrist, elbow, dir*deg)

		got := c.Compare(live, &ref)
		if got > prev+1e-12 {
			t.Fatalf("similarity increased at %v degrees: %f > %f", deg, got, prev)
		}
		prev = got
	}

	if prev >= 1.0 {
		t.Errorf("expected similarity below 1 after 50 degrees, got %f", prev)
	}
}

func TestComparator_AbsentPoses(t *testing.T) {
	c := NewComparator()
	tree := detector.TreePoseLandmarks()

	if got := c.Compare(nil, &tree); got != 0 {
		t.Errorf("Compare(nil, ref) = %f, want 0", got)
	}
	if got := c.Compare(&tree, nil); got != 0 {
		t.Errorf("Compare(live, nil) = %f, want 0", got)
	}
	if got := c.Compare(&detector.Pose{}, &tree); got != 0 {
		t.Errorf("Compare(empty, ref) = %f, want 0", got)
	}
}

func TestComparator_PartialPose(t *testing.T) {
	c := NewComparator()
	tree := detector.TreePoseLandmarks()
	partial := tree.Clone()
	partial.Points = partial.Points[:detector.LeftHip]

	got := c.Compare(partial, &tree)
	if got < 0 || got > 1 {
		t.Errorf("similarity out of range: %f", got)
	}
}

func TestComparator_CustomTriplets(t *testing.T) {
	standing := detector.StandingLandmarks()
	tree := detector.TreePoseLandmarks()

	// Both poses keep the left leg straight.
	c := Comparator{Triplets: []JointTriplet{DefaultTriplets[4]}}
	if got := c.Compare(&tree, &standing); got != 1.0 {
		t.Errorf("expected 1.0 when only the left knee is compared, got %f", got)
	}
}

func TestComparator_Detail(t *testing.T) {
	c := NewComparator()
	standing := detector.StandingLandmarks()
	warrior := detector.WarriorIILandmarks()

	detail := c.Detail(&warrior, &standing)

	if len(detail.Angles) != len(DefaultTriplets) {
		t.Fatalf("expected %d angles, got %d", len(DefaultTriplets), len(detail.Angles))
	}
	if detail.Angles[0].Joint != "left_elbow" {
		t.Errorf("expected first joint left_elbow, got %s", detail.Angles[0].Joint)
	}
	if math.Abs(detail.AvgDiff-40.069) > 1e-2 {
		t.Errorf("expected average difference ~40.07, got %f", detail.AvgDiff)
	}
	for _, a := range detail.Angles {
		if math.Abs(a.Diff-math.Abs(a.Live-a.Reference)) > epsilon {
			t.Errorf("%s: diff %f does not match |%f - %f|", a.Joint, a.Diff, a.Live, a.Reference)
		}
	}
}

func TestComparator_Angles(t *testing.T) {
	c := NewComparator()

	if c.Angles(nil) != nil {
		t.Error("expected nil angles for nil pose")
	}

	standing := detector.StandingLandmarks()
	angles := c.Angles(&standing)
	if len(angles) != len(DefaultTriplets) {
		t.Fatalf("expected %d angles, got %d", len(DefaultTriplets), len(angles))
	}
	// Knees are straight when standing.
	if math.Abs(angles[4]-180) > 1e-6 || math.Abs(angles[5]-180) > 1e-6 {
		t.Errorf("expected straight knees, got %f and %f", angles[4], angles[5])
	}
}

// rotate turns p around center by deg degrees in the image plane.
func rotate(p, center detector.Point3D, deg float64) detector.Point3D {
	rad := deg * math.Pi / 180
	dx, dy := p.X-center.X, p.Y-center.Y
	return detector.Point3D{
		X: center.X + dx*math.Cos(rad) - dy*math.Sin(rad),
		Y: center.Y + dx*math.Sin(rad) + dy*math.Cos(rad),
		Z: p.Z,
	}
}
