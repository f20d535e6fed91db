package challenge

import (
	"time"

	"github.com/ayusman/asana/internal/pose"
)

// Defaults for the challenge loop.
const (
	DefaultTickInterval    = 100 * time.Millisecond
	DefaultTargetTime      = 5 * time.Second
	DefaultBaselineHold    = 5 * time.Second
	DefaultNotificationTTL = 3 * time.Second
	DefaultLevelGrowth     = 1.2
	DefaultDebounce        = 3
)

// DefaultAllowedTargets are the hold durations a user may pick.
var DefaultAllowedTargets = []time.Duration{
	3 * time.Second,
	5 * time.Second,
	10 * time.Second,
	15 * time.Second,
	30 * time.Second,
}

// Settings holds the tunable constants of a challenge.
type Settings struct {
	Comparator      pose.Comparator
	MatchThreshold  float64
	Debounce        int
	TickInterval    time.Duration
	TargetTime      time.Duration
	AllowedTargets  []time.Duration
	BaselineHold    time.Duration
	LevelGrowth     float64
	NotificationTTL time.Duration
}

// DefaultSettings returns the stock challenge configuration.
func DefaultSettings() Settings {
	return Settings{
		Comparator:      pose.NewComparator(),
		MatchThreshold:  pose.DefaultMatchThreshold,
		Debounce:        DefaultDebounce,
		TickInterval:    DefaultTickInterval,
		TargetTime:      DefaultTargetTime,
		AllowedTargets:  DefaultAllowedTargets,
		BaselineHold:    DefaultBaselineHold,
		LevelGrowth:     DefaultLevelGrowth,
		NotificationTTL: DefaultNotificationTTL,
	}
}

// withDefaults fills zero fields from DefaultSettings.
func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.MatchThreshold <= 0 {
		s.MatchThreshold = d.MatchThreshold
	}
	if s.Debounce < 1 {
		s.Debounce = d.Debounce
	}
	if s.TickInterval <= 0 {
		s.TickInterval = d.TickInterval
	}
	if s.TargetTime <= 0 {
		s.TargetTime = d.TargetTime
	}
	if len(s.AllowedTargets) == 0 {
		s.AllowedTargets = d.AllowedTargets
	}
	if s.BaselineHold <= 0 {
		s.BaselineHold = d.BaselineHold
	}
	if s.LevelGrowth <= 0 {
		s.LevelGrowth = d.LevelGrowth
	}
	if s.NotificationTTL <= 0 {
		s.NotificationTTL = d.NotificationTTL
	}
	return s
}

// TargetAllowed reports whether d is one of the selectable hold durations.
func (s Settings) TargetAllowed(d time.Duration) bool {
	for _, a := range s.AllowedTargets {
		if a == d {
			return true
		}
	}
	return false
}
