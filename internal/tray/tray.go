// Package tray provides the macOS menu bar interface for the asana pose challenge.
package tray

import (
	"context"
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/asana/internal/challenge"
)

// Controls are the challenge commands reachable from the menu.
type Controls interface {
	ResetChallenge() error
	RetryPose() error
	AdvancePose() error
}

// Tray represents the menu bar application.
type Tray struct {
	onToggle func(enabled bool)
	onOpen   func()
	onQuit   func()
	controls Controls
	enabled  bool
	mu       sync.RWMutex

	menuToggle *systray.MenuItem
	menuStatus *systray.MenuItem
}

// New creates a Tray with detection enabled.
func New(controls Controls) *Tray {
	return &Tray{
		controls: controls,
		enabled:  true,
	}
}

// OnToggle sets the callback run when detection is switched on or off.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpen sets the callback run when "Open Challenge..." is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback run when "Quit" is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the menu bar loop. It blocks until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit ends Run from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Asana")
	systray.SetTooltip("Asana pose challenge")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem("● Detecting", "Pause or resume pose detection")
	systray.AddSeparator()
	t.menuStatus = systray.AddMenuItem("Level 1 · 0 pts", "Current challenge")
	t.menuStatus.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuRetry := systray.AddMenuItem("Retry Pose", "Restart the hold for this pose")
	menuNext := systray.AddMenuItem("Next Pose", "Skip to the next pose")
	menuReset := systray.AddMenuItem("Reset Hold", "Clear the current hold")
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Challenge...", "Open the challenge in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Asana")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuRetry.ClickedCh:
				t.command("retry", Controls.RetryPose)
			case <-menuNext.ClickedCh:
				t.command("next", Controls.AdvancePose)
			case <-menuReset.ClickedCh:
				t.command("reset", Controls.ResetChallenge)
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) command(name string, fn func(Controls) error) {
	if t.controls == nil {
		return
	}
	if err := fn(t.controls); err != nil {
		systray.SetTooltip(fmt.Sprintf("%s failed: %v", name, err))
	}
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if enabled {
		t.menuToggle.SetTitle("● Detecting")
	} else {
		t.menuToggle.SetTitle("○ Paused")
	}

	callback := t.onToggle
	t.mu.Unlock()

	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// Follow updates the status line from snapshots until ctx ends.
func (t *Tray) Follow(ctx context.Context, snapshots <-chan challenge.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-snapshots:
			t.SetStatus(StatusLine(snap))
		}
	}
}

// SetStatus replaces the status line in the menu.
func (t *Tray) SetStatus(line string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuStatus != nil {
		t.menuStatus.SetTitle(line)
	}
}

// StatusLine summarizes a snapshot for the menu.
func StatusLine(snap challenge.Snapshot) string {
	line := fmt.Sprintf("Level %d · %d pts", snap.Level, snap.Score)
	if snap.CurrentPoseIndex < 0 || snap.CurrentPoseIndex >= len(snap.Sequence) {
		return line
	}

	name := snap.Sequence[snap.CurrentPoseIndex].Name
	switch {
	case snap.ChallengeComplete:
		return fmt.Sprintf("%s · %s done", line, name)
	case snap.TimerActive:
		return fmt.Sprintf("%s · %s %.1f/%.0fs", line, name, snap.HoldTime, snap.TargetTime)
	default:
		return fmt.Sprintf("%s · %s", line, name)
	}
}

// IsEnabled returns whether detection is on.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
