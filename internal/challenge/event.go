package challenge

import (
	"fmt"
	"time"
)

// EventKind names a challenge milestone.
type EventKind string

const (
	EventPoseComplete  EventKind = "pose_complete"
	EventLevelComplete EventKind = "level_complete"
)

// Event is emitted when a pose hold completes or the sequence rolls over.
type Event struct {
	Kind      EventKind `json:"kind"`
	PoseIndex int       `json:"pose_index"`
	PoseID    string    `json:"pose_id,omitempty"`
	PoseName  string    `json:"pose_name,omitempty"`
	Points    int       `json:"points"`
	Level     int       `json:"level"`
	Score     int       `json:"score"`
	At        time.Time `json:"at"`
}

// Notification is a transient message shown to the user.
type Notification struct {
	Kind      EventKind
	Message   string
	ExpiresAt time.Time
}

// Visible reports whether the notification should still be shown at now.
func (n *Notification) Visible(now time.Time) bool {
	return n != nil && now.Before(n.ExpiresAt)
}

func poseCompleteMessage(points int) string {
	return fmt.Sprintf("Pose Complete! +%d points", points)
}

func levelCompleteMessage(completed int) string {
	return fmt.Sprintf("Level %d Complete! All poses mastered!", completed)
}
