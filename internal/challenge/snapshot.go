package challenge

import "time"

// EntrySnapshot is the read-only view of a PoseEntry.
type EntrySnapshot struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	ImagePath            string  `json:"image_path"`
	Points               int     `json:"points"`
	DifficultyMultiplier float64 `json:"difficulty_multiplier"`
	Completed            bool    `json:"completed"`
	HasReference         bool    `json:"has_reference"`
}

// NotificationSnapshot is a visible notification.
type NotificationSnapshot struct {
	Kind      EventKind `json:"kind"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Snapshot is what clients render. Durations are in seconds.
type Snapshot struct {
	Level             int                   `json:"level"`
	Score             int                   `json:"score"`
	CurrentPoseIndex  int                   `json:"current_pose_index"`
	Sequence          []EntrySnapshot       `json:"sequence"`
	HoldTime          float64               `json:"hold_time"`
	TargetTime        float64               `json:"target_time"`
	TimerState        string                `json:"timer_state"`
	TimerActive       bool                  `json:"timer_active"`
	ChallengeComplete bool                  `json:"challenge_complete"`
	IsPoseMatched     bool                  `json:"is_pose_matched"`
	Similarity        float64               `json:"similarity"`
	Notification      *NotificationSnapshot `json:"notification,omitempty"`
}

// Snapshot renders s as seen at now.
func (s State) Snapshot(now time.Time) Snapshot {
	seq := make([]EntrySnapshot, len(s.Progress.Sequence))
	for i, e := range s.Progress.Sequence {
		seq[i] = EntrySnapshot{
			ID:                   e.ID,
			Name:                 e.Name,
			ImagePath:            e.ImagePath,
			Points:               e.Points,
			DifficultyMultiplier: e.DifficultyMultiplier,
			Completed:            e.Completed,
			HasReference:         !e.Reference.Empty(),
		}
	}

	snap := Snapshot{
		Level:             s.Progress.Level,
		Score:             s.Progress.Score,
		CurrentPoseIndex:  s.Progress.CurrentPoseIndex,
		Sequence:          seq,
		HoldTime:          s.Timer.HoldTime.Seconds(),
		TargetTime:        s.TargetTime.Seconds(),
		TimerState:        s.Timer.State.String(),
		TimerActive:       s.Timer.Active(),
		ChallengeComplete: s.Timer.Completed(),
		IsPoseMatched:     s.Match.Matched(),
		Similarity:        s.Similarity,
	}
	if s.Notification.Visible(now) {
		snap.Notification = &NotificationSnapshot{
			Kind:      s.Notification.Kind,
			Message:   s.Notification.Message,
			ExpiresAt: s.Notification.ExpiresAt,
		}
	}
	return snap
}

// Current returns the entry being attempted.
func (s Snapshot) Current() (EntrySnapshot, bool) {
	if s.CurrentPoseIndex < 0 || s.CurrentPoseIndex >= len(s.Sequence) {
		return EntrySnapshot{}, false
	}
	return s.Sequence[s.CurrentPoseIndex], true
}

// HoldFraction is hold time over target, clamped to [0,1], for progress bars.
func (s Snapshot) HoldFraction() float64 {
	if s.TargetTime <= 0 {
		return 0
	}
	return min(max(s.HoldTime/s.TargetTime, 0), 1)
}
