package capture

import "time"

// Pacer defaults.
const (
	DefaultIdleFPS     = 5
	DefaultActiveFPS   = 15
	DefaultIdleTimeout = 2 * time.Second
)

// Pacer picks the capture rate from motion: ActiveFPS while the user is
// moving into a pose, IdleFPS once the frame has been still for
// IdleTimeout. Pacer is not safe for concurrent use.
type Pacer struct {
	IdleFPS     int
	ActiveFPS   int
	IdleTimeout time.Duration

	active     bool
	lastMotion time.Time
}

// NewPacer returns a Pacer starting at the idle rate.
func NewPacer(idleFPS, activeFPS int, idleTimeout time.Duration) *Pacer {
	if idleFPS <= 0 {
		idleFPS = DefaultIdleFPS
	}
	if activeFPS < idleFPS {
		activeFPS = idleFPS
	}
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Pacer{IdleFPS: idleFPS, ActiveFPS: activeFPS, IdleTimeout: idleTimeout}
}

// Observe records whether motion was seen at now and returns the rate to
// use and whether it changed.
func (p *Pacer) Observe(motion bool, now time.Time) (fps int, changed bool) {
	was := p.active

	if motion {
		p.lastMotion = now
		p.active = true
	} else if p.active && now.Sub(p.lastMotion) >= p.IdleTimeout {
		p.active = false
	}

	return p.FPS(), was != p.active
}

// FPS returns the current rate.
func (p *Pacer) FPS() int {
	if p.active {
		return p.ActiveFPS
	}
	return p.IdleFPS
}

// Interval returns the delay between frames at the current rate.
func (p *Pacer) Interval() time.Duration {
	return time.Second / time.Duration(p.FPS())
}

// Active reports whether the pacer is at the active rate.
func (p *Pacer) Active() bool {
	return p.active
}

// Reset drops back to the idle rate.
func (p *Pacer) Reset() {
	p.active = false
	p.lastMotion = time.Time{}
}
