package challenge

import (
	"math"
	"time"

	"github.com/ayusman/asana/internal/detector"
)

// PoseEntry is one pose in the challenge sequence.
type PoseEntry struct {
	ID                   string
	Name                 string
	ImagePath            string
	Points               int
	DifficultyMultiplier float64
	Completed            bool
	Reference            *detector.Pose
}

// Progress is the running score and position in the sequence.
type Progress struct {
	Level            int
	Score            int
	CurrentPoseIndex int
	Sequence         []PoseEntry
}

// DefaultSequence returns the stock four-pose sequence without references.
func DefaultSequence() []PoseEntry {
	return []PoseEntry{
		{ID: "tree-pose", Name: "Tree Pose", ImagePath: "/tree-pose.jpg", Points: 100, DifficultyMultiplier: 1.0},
		{ID: "warrior-ii", Name: "Warrior Pose II", ImagePath: "/warrior-ii.jpg", Points: 150, DifficultyMultiplier: 1.2},
		{ID: "downward-dog", Name: "Downward Dog", ImagePath: "/downward-dog.jpg", Points: 200, DifficultyMultiplier: 1.5},
		{ID: "upward-dog", Name: "Upward Dog", ImagePath: "/upward-dog.jpg", Points: 250, DifficultyMultiplier: 1.8},
	}
}

// PointsFor is the score earned for holding entry for target.
// Holding for the baseline duration earns points × multiplier; longer holds scale linearly.
func PointsFor(entry PoseEntry, target, baseline time.Duration) int {
	if baseline <= 0 {
		baseline = DefaultBaselineHold
	}
	ratio := target.Seconds() / baseline.Seconds()
	return int(math.Round(float64(entry.Points) * entry.DifficultyMultiplier * ratio))
}

func cloneSequence(seq []PoseEntry) []PoseEntry {
	if seq == nil {
		return nil
	}
	out := make([]PoseEntry, len(seq))
	copy(out, seq)
	return out
}

// Current returns the entry at CurrentPoseIndex.
func (p Progress) Current() (PoseEntry, bool) {
	if p.CurrentPoseIndex < 0 || p.CurrentPoseIndex >= len(p.Sequence) {
		return PoseEntry{}, false
	}
	return p.Sequence[p.CurrentPoseIndex], true
}

// Completed counts the completed entries.
func (p Progress) Completed() int {
	n := 0
	for _, e := range p.Sequence {
		if e.Completed {
			n++
		}
	}
	return n
}
