// Package challenge implements the hold-the-pose challenge: the hold timer,
// scoring and progression through a sequence of poses.
package challenge

import "time"

// TimerState is the phase of a HoldTimer.
type TimerState int

const (
	// Idle means the pose is not currently held.
	Idle TimerState = iota
	// Holding means the pose is matched and time is accumulating.
	Holding
	// Complete means the target was reached; ticks are ignored until reset.
	Complete
)

// String returns the lower-case name of the state.
func (s TimerState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Holding:
		return "holding"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// HoldTimer accumulates time while the match signal stays true.
// It is armed for a single pose index; a completion is credited only to that pose.
type HoldTimer struct {
	State     TimerState
	HoldTime  time.Duration
	PoseIndex int
}

// NewHoldTimer returns an idle timer armed for poseIndex.
func NewHoldTimer(poseIndex int) HoldTimer {
	return HoldTimer{State: Idle, PoseIndex: poseIndex}
}

// Tick advances the timer by delta and reports whether it completed on this tick.
//
// Idle moves to Holding on the first matched tick, restarting from zero and
// counting that tick. Holding drops back to Idle with zero hold time as soon
// as the match is lost. Reaching target moves to Complete exactly once.
func (t HoldTimer) Tick(matched bool, delta, target time.Duration) (HoldTimer, bool) {
	switch t.State {
	case Complete:
		return t, false
	case Idle:
		if !matched {
			return t, false
		}
		t.State = Holding
		t.HoldTime = 0
	case Holding:
		if !matched {
			return NewHoldTimer(t.PoseIndex), false
		}
	}

	if t.HoldTime+delta >= target {
		t.HoldTime += delta
		t.State = Complete
		return t, true
	}

	t.HoldTime += delta
	return t, false
}

// Reset re-arms the timer as Idle for poseIndex.
func (t HoldTimer) Reset(poseIndex int) HoldTimer {
	return NewHoldTimer(poseIndex)
}

// Active reports whether the timer is accumulating.
func (t HoldTimer) Active() bool {
	return t.State == Holding
}

// Completed reports whether the target has been reached.
func (t HoldTimer) Completed() bool {
	return t.State == Complete
}
