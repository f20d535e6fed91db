package challenge

import (
	"math"
	"time"

	"github.com/ayusman/asana/internal/detector"
	"github.com/ayusman/asana/internal/pose"
)

// State is the full challenge state. Every transition is a value method
// returning the next State plus any events it produced; the receiver is
// never mutated, so a State can be shared between readers safely.
type State struct {
	Settings     Settings
	Progress     Progress
	Timer        HoldTimer
	TargetTime   time.Duration
	Match        pose.Debouncer
	Similarity   float64
	Notification *Notification
}

// NewState returns level 1, score 0, positioned on the first entry.
func NewState(settings Settings, sequence []PoseEntry) State {
	settings = settings.withDefaults()
	return State{
		Settings: settings,
		Progress: Progress{
			Level:    1,
			Sequence: cloneSequence(sequence),
		},
		Timer:      NewHoldTimer(0),
		TargetTime: settings.TargetTime,
		Match:      pose.NewDebouncer(settings.MatchThreshold, settings.Debounce),
	}
}

// resetChallenge clears the hold for the current pose. clearMatch also
// forgets the debounced match, which is needed whenever the target pose changes.
func (s State) resetChallenge(clearMatch bool) State {
	s.Timer = s.Timer.Reset(s.Progress.CurrentPoseIndex)
	if clearMatch {
		s.Match = s.Match.Reset()
		s.Similarity = 0
	}
	return s
}

func (s State) expire(now time.Time) State {
	if s.Notification != nil && !s.Notification.Visible(now) {
		s.Notification = nil
	}
	return s
}

// Matched reports the debounced match signal.
func (s State) Matched() bool {
	return s.Match.Matched()
}

// Tick advances the hold timer by one tick interval.
func (s State) Tick(now time.Time) (State, []Event) {
	s = s.expire(now)
	if s.Timer.PoseIndex != s.Progress.CurrentPoseIndex {
		s.Timer = s.Timer.Reset(s.Progress.CurrentPoseIndex)
	}

	var done bool
	s.Timer, done = s.Timer.Tick(s.Match.Matched(), s.Settings.TickInterval, s.TargetTime)
	if !done {
		return s, nil
	}
	return s.complete(s.Timer.PoseIndex, now)
}

// complete credits the pose at index. Index comes from the timer, not the
// current position, so a stale completion can never score a different pose.
func (s State) complete(index int, now time.Time) (State, []Event) {
	if index < 0 || index >= len(s.Progress.Sequence) {
		return s, nil
	}

	seq := cloneSequence(s.Progress.Sequence)
	entry := seq[index]
	earned := PointsFor(entry, s.TargetTime, s.Settings.BaselineHold)
	entry.Completed = true
	seq[index] = entry

	s.Progress.Sequence = seq
	s.Progress.Score += earned
	s.Notification = &Notification{
		Kind:      EventPoseComplete,
		Message:   poseCompleteMessage(earned),
		ExpiresAt: now.Add(s.Settings.NotificationTTL),
	}

	return s, []Event{{
		Kind:      EventPoseComplete,
		PoseIndex: index,
		PoseID:    entry.ID,
		PoseName:  entry.Name,
		Points:    earned,
		Level:     s.Progress.Level,
		Score:     s.Progress.Score,
		At:        now,
	}}
}

// Advance moves to the next pose, or past the last pose to the next level:
// the level increments, completion flags clear and every multiplier grows.
func (s State) Advance(now time.Time) (State, []Event) {
	s = s.expire(now)
	n := len(s.Progress.Sequence)
	if n == 0 {
		return s, nil
	}

	if s.Progress.CurrentPoseIndex < n-1 {
		s.Progress.CurrentPoseIndex++
		return s.resetChallenge(true), nil
	}

	finished := s.Progress.Level
	seq := cloneSequence(s.Progress.Sequence)
	for i := range seq {
		seq[i].Completed = false
		seq[i].DifficultyMultiplier *= s.Settings.LevelGrowth
	}
	s.Progress.Sequence = seq
	s.Progress.Level++
	s.Progress.CurrentPoseIndex = 0
	s = s.resetChallenge(true)
	s.Notification = &Notification{
		Kind:      EventLevelComplete,
		Message:   levelCompleteMessage(finished),
		ExpiresAt: now.Add(s.Settings.NotificationTTL),
	}

	return s, []Event{{
		Kind:      EventLevelComplete,
		PoseIndex: 0,
		Level:     s.Progress.Level,
		Score:     s.Progress.Score,
		At:        now,
	}}
}

// GoTo jumps to index. Out-of-range indices leave the state untouched.
func (s State) GoTo(index int) State {
	if index < 0 || index >= len(s.Progress.Sequence) {
		return s
	}
	s.Progress.CurrentPoseIndex = index
	return s.resetChallenge(true)
}

// Reset zeroes the score and completion flags. Level and position are kept.
func (s State) Reset() State {
	seq := cloneSequence(s.Progress.Sequence)
	for i := range seq {
		seq[i].Completed = false
	}
	s.Progress.Sequence = seq
	s.Progress.Score = 0
	s.Notification = nil
	return s.resetChallenge(true)
}

// Retry clears the hold on the current pose so it can be attempted again.
func (s State) Retry() State {
	return s.resetChallenge(false)
}

// SetTargetTime changes the hold target and clears the current hold.
// Callers validate d against Settings.AllowedTargets.
func (s State) SetTargetTime(d time.Duration) State {
	s.TargetTime = d
	return s.resetChallenge(false)
}

// ObservePose feeds one detection into the match pipeline.
// A nil or empty pose is not an observation and changes nothing.
func (s State) ObservePose(live *detector.Pose) State {
	if live.Empty() {
		return s
	}
	var ref *detector.Pose
	if entry, ok := s.Progress.Current(); ok {
		ref = entry.Reference
	}
	s.Similarity = s.Settings.Comparator.Compare(live, ref)
	s.Match = s.Match.Observe(s.Similarity)
	return s
}

// SetReference installs the reference landmarks for the entry at index.
func (s State) SetReference(index int, ref *detector.Pose) State {
	if index < 0 || index >= len(s.Progress.Sequence) {
		return s
	}
	seq := cloneSequence(s.Progress.Sequence)
	seq[index].Reference = ref
	s.Progress.Sequence = seq
	if index == s.Progress.CurrentPoseIndex {
		s = s.resetChallenge(true)
	}
	return s
}

// SetSequence replaces the sequence with base (level 1) entries, keeping
// score and level. Multipliers are grown to the current level and entries
// already completed on this level stay completed, matched by ID.
// The position is kept when still in range, otherwise it returns to the first pose.
func (s State) SetSequence(seq []PoseEntry) State {
	completed := make(map[string]bool, len(s.Progress.Sequence))
	for _, e := range s.Progress.Sequence {
		if e.Completed {
			completed[e.ID] = true
		}
	}

	growth := math.Pow(s.Settings.LevelGrowth, float64(s.Progress.Level-1))
	next := cloneSequence(seq)
	for i := range next {
		next[i].DifficultyMultiplier *= growth
		next[i].Completed = completed[next[i].ID]
	}

	s.Progress.Sequence = next
	if s.Progress.CurrentPoseIndex >= len(seq) {
		s.Progress.CurrentPoseIndex = 0
	}
	return s.resetChallenge(true)
}

// Quiesce stops any hold in progress and forgets the match, leaving the
// state as if no person had been seen.
func (s State) Quiesce() State {
	return s.resetChallenge(true)
}
