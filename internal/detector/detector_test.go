package detector

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-9

func TestPose_Normalize(t *testing.T) {
	t.Run("hip midpoint at origin after normalization", func(t *testing.T) {
		pose := StandingLandmarks()

		normalized := pose.Normalize()

		lh := normalized.Points[LeftHip]
		rh := normalized.Points[RightHip]
		midX := (lh.X + rh.X) / 2
		midY := (lh.Y + rh.Y) / 2
		if math.Abs(midX) > epsilon || math.Abs(midY) > epsilon {
			t.Errorf("expected hip midpoint at origin, got (%f, %f)", midX, midY)
		}
	})

	t.Run("torso length is 1.0", func(t *testing.T) {
		pose := WarriorIILandmarks()

		normalized := pose.Normalize()

		ls := normalized.Points[LeftShoulder]
		rs := normalized.Points[RightShoulder]
		lh := normalized.Points[LeftHip]
		rh := normalized.Points[RightHip]
		torso := math.Hypot((ls.X+rs.X)/2-(lh.X+rh.X)/2, (ls.Y+rs.Y)/2-(lh.Y+rh.Y)/2)

		if math.Abs(torso-1.0) > epsilon {
			t.Errorf("expected torso length 1.0, got %f", torso)
		}
	})

	t.Run("z is scaled but not translated", func(t *testing.T) {
		pose := StandingLandmarks()
		pose.Points[Nose].Z = -0.25
		scale := pose.TorsoLength()

		normalized := pose.Normalize()

		if want := -0.25 / scale; math.Abs(normalized.Points[Nose].Z-want) > epsilon {
			t.Errorf("expected nose Z %f, got %f", want, normalized.Points[Nose].Z)
		}
	})

	t.Run("nil pose returns nil", func(t *testing.T) {
		var pose *Pose
		if pose.Normalize() != nil {
			t.Error("expected nil result for nil input")
		}
	})

	t.Run("empty pose returns nil", func(t *testing.T) {
		pose := &Pose{}
		if pose.Normalize() != nil {
			t.Error("expected nil result for empty input")
		}
	})

	t.Run("degenerate torso falls back to scale 1", func(t *testing.T) {
		pose := StandingLandmarks()
		pose.Points[LeftShoulder] = pose.Points[LeftHip]
		pose.Points[RightShoulder] = pose.Points[RightHip]

		normalized := pose.Normalize()

		if normalized.Scale != 1 {
			t.Errorf("expected scale 1, got %f", normalized.Scale)
		}
		nose := normalized.Points[Nose]
		if math.Abs(nose.X-0.0) > epsilon || math.Abs(nose.Y-(0.15-0.55)) > epsilon {
			t.Errorf("expected translated-only nose (0, -0.4), got (%f, %f)", nose.X, nose.Y)
		}
	})

	t.Run("missing hips use origin as center", func(t *testing.T) {
		pose := StandingLandmarks()
		pose.Points = pose.Points[:LeftHip]

		normalized := pose.Normalize()
		if normalized == nil {
			t.Fatal("expected partial pose to normalize")
		}

		// Shoulder midpoint (0.5, 0.3) is the only torso reference.
		wantScale := math.Hypot(0.5, 0.3)
		if math.Abs(normalized.Scale-wantScale) > epsilon {
			t.Errorf("expected scale %f, got %f", wantScale, normalized.Scale)
		}
		if len(normalized.Points) != LeftHip {
			t.Errorf("expected %d points, got %d", LeftHip, len(normalized.Points))
		}
	})

	t.Run("one hip present is used as center", func(t *testing.T) {
		pose := StandingLandmarks()
		pose.Points = pose.Points[:RightHip]

		normalized := pose.Normalize()

		lh := normalized.Points[LeftHip]
		if math.Abs(lh.X) > epsilon || math.Abs(lh.Y) > epsilon {
			t.Errorf("expected left hip at origin, got (%f, %f)", lh.X, lh.Y)
		}
	})
}

func TestPose_Normalize_Invariance(t *testing.T) {
	base := TreePoseLandmarks()
	want := base.Normalize()

	transforms := []struct {
		name   string
		dx, dy float64
		s      float64
	}{
		{"translate only", 0.2, -0.1, 1},
		{"scale only", 0, 0, 0.5},
		{"translate and scale", -0.3, 0.25, 2.5},
	}

	for _, tt := range transforms {
		t.Run(tt.name, func(t *testing.T) {
			moved := base.Clone()
			for i, p := range moved.Points {
				moved.Points[i] = Point3D{
					X: (p.X + tt.dx) * tt.s,
					Y: (p.Y + tt.dy) * tt.s,
					Z: p.Z * tt.s,
				}
			}

			got := moved.Normalize()

			for i := range want.Points {
				if math.Abs(got.Points[i].X-want.Points[i].X) > 1e-9 ||
					math.Abs(got.Points[i].Y-want.Points[i].Y) > 1e-9 ||
					math.Abs(got.Points[i].Z-want.Points[i].Z) > 1e-9 {
					t.Fatalf("landmark %d: got %+v, want %+v", i, got.Points[i], want.Points[i])
				}
			}
		})
	}
}

func TestPose_Validate(t *testing.T) {
	t.Run("complete pose is valid", func(t *testing.T) {
		pose := StandingLandmarks()
		if err := pose.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("truncated pose reports missing landmark", func(t *testing.T) {
		pose := StandingLandmarks()
		pose.Points = pose.Points[:20]

		err := pose.Validate()
		if !errors.Is(err, ErrMissingLandmark) {
			t.Errorf("expected ErrMissingLandmark, got %v", err)
		}
	})

	t.Run("nil pose reports missing landmark", func(t *testing.T) {
		var pose *Pose
		if !errors.Is(pose.Validate(), ErrMissingLandmark) {
			t.Error("expected ErrMissingLandmark for nil pose")
		}
	})
}

func TestPose_Clone(t *testing.T) {
	pose := StandingLandmarks()
	clone := pose.Clone()
	clone.Points[Nose].X = 99

	if pose.Points[Nose].X == 99 {
		t.Error("clone shares points with the original")
	}

	var nilPose *Pose
	if nilPose.Clone() != nil {
		t.Error("expected nil clone of nil pose")
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty poses by default", func(t *testing.T) {
		mock := NewMockDetector()

		poses, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if poses != nil {
			t.Errorf("expected nil poses, got %v", poses)
		}
	})

	t.Run("returns configured poses", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetPoses([]Pose{TreePoseLandmarks()})

		poses, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(poses) != 1 {
			t.Errorf("expected 1 pose, got %d", len(poses))
		}
		if mock.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()
		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		poses, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if poses != nil {
			t.Errorf("expected nil poses when error is set, got %v", poses)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestPresetLandmarks(t *testing.T) {
	presets := map[string]Pose{
		"standing":   StandingLandmarks(),
		"tree":       TreePoseLandmarks(),
		"warrior II": WarriorIILandmarks(),
	}

	for name, pose := range presets {
		t.Run(name+" has a full body", func(t *testing.T) {
			if len(pose.Points) != NumLandmarks {
				t.Errorf("expected %d landmarks, got %d", NumLandmarks, len(pose.Points))
			}
			if err := pose.Validate(); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}

	t.Run("tree pose wrists are above the head", func(t *testing.T) {
		tree := TreePoseLandmarks()
		if tree.Points[LeftWrist].Y >= tree.Points[Nose].Y || tree.Points[RightWrist].Y >= tree.Points[Nose].Y {
			t.Error("wrists should be above the nose (lower Y value)")
		}
	})

	t.Run("warrior II arms are level with the shoulders", func(t *testing.T) {
		w := WarriorIILandmarks()
		if math.Abs(w.Points[LeftWrist].Y-w.Points[LeftShoulder].Y) > 0.02 {
			t.Error("left wrist should be level with the left shoulder")
		}
		if math.Abs(w.Points[RightWrist].Y-w.Points[RightShoulder].Y) > 0.02 {
			t.Error("right wrist should be level with the right shoulder")
		}
	})
}

func TestDecodeResponse(t *testing.T) {
	t.Run("parses poses", func(t *testing.T) {
		line := []byte(`{"poses":[{"points":[{"x":0.1,"y":0.2,"z":-0.1},{"x":0.3,"y":0.4}],"score":0.9}]}` + "\n")

		poses, err := decodeResponse(line)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(poses) != 1 || len(poses[0].Points) != 2 {
			t.Fatalf("expected 1 pose with 2 points, got %+v", poses)
		}
		if poses[0].Points[1].Z != 0 {
			t.Errorf("expected absent z to default to 0, got %f", poses[0].Points[1].Z)
		}
		if poses[0].Score != 0.9 {
			t.Errorf("expected score 0.9, got %f", poses[0].Score)
		}
	})

	t.Run("empty detection", func(t *testing.T) {
		poses, err := decodeResponse([]byte(`{"poses":[]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(poses) != 0 {
			t.Errorf("expected no poses, got %d", len(poses))
		}
	})

	t.Run("truncates extra landmarks", func(t *testing.T) {
		points := make([]Point3D, NumLandmarks+5)
		pose := Pose{Points: points}
		data := []byte(`{"poses":[` + mustJSON(t, pose) + `]}`)

		poses, err := decodeResponse(data)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(poses[0].Points) != NumLandmarks {
			t.Errorf("expected %d points, got %d", NumLandmarks, len(poses[0].Points))
		}
	})

	t.Run("service error", func(t *testing.T) {
		if _, err := decodeResponse([]byte(`{"error":"model not loaded"}`)); err == nil {
			t.Error("expected error from service error field")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		if _, err := decodeResponse([]byte(`not json`)); err == nil {
			t.Error("expected parse error")
		}
	})
}
