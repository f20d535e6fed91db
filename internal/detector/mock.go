package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	poses []Pose
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetPoses sets the poses that will be returned by Detect.
func (m *MockDetector) SetPoses(poses []Pose) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poses = poses
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured poses or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]Pose, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.poses, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// buildPose fills a full 33-point body from the main joints.
// Face points cluster around the nose, hand points around the wrists and
// foot points around the ankles, which is enough for the angle comparator.
func buildPose(joints map[int]Point3D) Pose {
	pose := Pose{Points: make([]Point3D, NumLandmarks), Score: 0.95}
	for i, pt := range joints {
		pose.Points[i] = pt
	}

	nose := joints[Nose]
	for i, off := range map[int][2]float64{
		LeftEyeInner: {0.01, -0.015}, LeftEye: {0.02, -0.015}, LeftEyeOuter: {0.03, -0.015},
		RightEyeInner: {-0.01, -0.015}, RightEye: {-0.02, -0.015}, RightEyeOuter: {-0.03, -0.015},
		LeftEar: {0.045, 0}, RightEar: {-0.045, 0},
		MouthLeft: {0.015, 0.02}, MouthRight: {-0.015, 0.02},
	} {
		pose.Points[i] = Point3D{X: nose.X + off[0], Y: nose.Y + off[1], Z: nose.Z}
	}

	for wrist, fingers := range map[int][3]int{
		LeftWrist:  {LeftPinky, LeftIndex, LeftThumb},
		RightWrist: {RightPinky, RightIndex, RightThumb},
	} {
		w := joints[wrist]
		pose.Points[fingers[0]] = Point3D{X: w.X - 0.01, Y: w.Y + 0.02, Z: w.Z}
		pose.Points[fingers[1]] = Point3D{X: w.X, Y: w.Y + 0.025, Z: w.Z}
		pose.Points[fingers[2]] = Point3D{X: w.X + 0.01, Y: w.Y + 0.015, Z: w.Z}
	}

	for ankle, foot := range map[int][2]int{
		LeftAnkle:  {LeftHeel, LeftFootIndex},
		RightAnkle: {RightHeel, RightFootIndex},
	} {
		a := joints[ankle]
		pose.Points[foot[0]] = Point3D{X: a.X, Y: a.Y + 0.02, Z: a.Z}
		pose.Points[foot[1]] = Point3D{X: a.X, Y: a.Y + 0.03, Z: a.Z - 0.04}
	}

	return pose
}

// StandingLandmarks returns a preset upright pose with arms relaxed at the sides.
func StandingLandmarks() Pose {
	return buildPose(map[int]Point3D{
		Nose:          {X: 0.50, Y: 0.15},
		LeftShoulder:  {X: 0.58, Y: 0.30},
		RightShoulder: {X: 0.42, Y: 0.30},
		LeftElbow:     {X: 0.60, Y: 0.42},
		RightElbow:    {X: 0.40, Y: 0.42},
		LeftWrist:     {X: 0.61, Y: 0.54},
		RightWrist:    {X: 0.39, Y: 0.54},
		LeftHip:       {X: 0.55, Y: 0.55},
		RightHip:      {X: 0.45, Y: 0.55},
		LeftKnee:      {X: 0.55, Y: 0.72},
		RightKnee:     {X: 0.45, Y: 0.72},
		LeftAnkle:     {X: 0.55, Y: 0.90},
		RightAnkle:    {X: 0.45, Y: 0.90},
	})
}

// TreePoseLandmarks returns a preset tree pose: arms overhead with palms
// together, standing on the left leg with the right foot on the inner thigh.
func TreePoseLandmarks() Pose {
	return buildPose(map[int]Point3D{
		Nose:          {X: 0.50, Y: 0.15},
		LeftShoulder:  {X: 0.58, Y: 0.30},
		RightShoulder: {X: 0.42, Y: 0.30},
		LeftElbow:     {X: 0.62, Y: 0.20},
		RightElbow:    {X: 0.38, Y: 0.20},
		LeftWrist:     {X: 0.51, Y: 0.08},
		RightWrist:    {X: 0.49, Y: 0.08},
		LeftHip:       {X: 0.55, Y: 0.55},
		RightHip:      {X: 0.45, Y: 0.55},
		LeftKnee:      {X: 0.55, Y: 0.72},
		RightKnee:     {X: 0.33, Y: 0.65},
		LeftAnkle:     {X: 0.55, Y: 0.90},
		RightAnkle:    {X: 0.53, Y: 0.62},
	})
}

// WarriorIILandmarks returns a preset warrior II pose: arms stretched
// horizontally, wide stance with the left knee bent.
func WarriorIILandmarks() Pose {
	return buildPose(map[int]Point3D{
		Nose:          {X: 0.52, Y: 0.15},
		LeftShoulder:  {X: 0.56, Y: 0.30},
		RightShoulder: {X: 0.44, Y: 0.30},
		LeftElbow:     {X: 0.70, Y: 0.30},
		RightElbow:    {X: 0.30, Y: 0.30},
		LeftWrist:     {X: 0.84, Y: 0.30},
		RightWrist:    {X: 0.16, Y: 0.30},
		LeftHip:       {X: 0.55, Y: 0.55},
		RightHip:      {X: 0.45, Y: 0.55},
		LeftKnee:      {X: 0.70, Y: 0.62},
		RightKnee:     {X: 0.35, Y: 0.70},
		LeftAnkle:     {X: 0.70, Y: 0.85},
		RightAnkle:    {X: 0.25, Y: 0.88},
	})
}
