package pose

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayusman/asana/internal/detector"
)

// ErrNoSamples is returned when a reference is requested from zero samples.
var ErrNoSamples = errors.New("no samples provided")

// Sample is one recorded reference capture as uploaded by a client.
type Sample struct {
	Landmarks []detector.Point3D `json:"landmarks"`
	Timestamp int64              `json:"timestamp"`
}

// AverageReference builds a reference pose from several captures of the same
// pose. Each sample is normalized first so captures taken at different
// distances or positions average cleanly.
func AverageReference(samples []json.RawMessage) (*detector.Pose, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	var all [][]detector.Point3D
	for i, raw := range samples {
		var sample Sample
		if err := json.Unmarshal(raw, &sample); err != nil {
			return nil, fmt.Errorf("parse sample %d: %w", i, err)
		}
		if len(sample.Landmarks) == 0 {
			return nil, fmt.Errorf("sample %d has no landmarks", i)
		}

		p := &detector.Pose{Points: sample.Landmarks}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		all = append(all, p.Normalize().Points)
	}

	numPoints := len(all[0])
	for i, points := range all {
		if len(points) != numPoints {
			return nil, fmt.Errorf("sample %d has %d landmarks, expected %d", i, len(points), numPoints)
		}
	}

	averaged := make([]detector.Point3D, numPoints)
	n := float64(len(all))

	for i := 0; i < numPoints; i++ {
		var sumX, sumY, sumZ float64
		for _, points := range all {
			sumX += points[i].X
			sumY += points[i].Y
			sumZ += points[i].Z
		}
		averaged[i] = detector.Point3D{X: sumX / n, Y: sumY / n, Z: sumZ / n}
	}

	return &detector.Pose{Points: averaged, Score: 1}, nil
}
