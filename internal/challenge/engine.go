package challenge

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/asana/internal/detector"
	"github.com/ayusman/asana/internal/log"
)

// subscriberBuffer is the per-subscriber queue depth. Slow subscribers only
// ever see the latest snapshot.
const subscriberBuffer = 1

// command is a state transition queued for the run loop.
type command struct {
	name  string
	apply func(s State, now time.Time) (State, []Event)
	reply chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithManualTick disables the internal ticker; the hold timer only advances
// when Tick is called.
func WithManualTick() Option {
	return func(e *Engine) { e.manualTick = true }
}

// WithEventHandler registers fn to receive challenge events. fn runs on the
// engine goroutine and must not block or call back into the engine.
func WithEventHandler(fn func(Event)) Option {
	return func(e *Engine) { e.onEvent = fn }
}

// Engine owns the challenge State. A single goroutine started by Run applies
// ticks, pose observations and user commands in arrival order, so no two
// transitions ever interleave.
type Engine struct {
	now        func() time.Time
	manualTick bool
	onEvent    func(Event)
	settings   Settings

	cmds     chan command
	ready    chan struct{}
	done     chan struct{}
	snapshot atomic.Pointer[Snapshot]

	mu      sync.Mutex
	state   State
	started bool
	subs    map[int]chan Snapshot
	nextSub int
}

// NewEngine returns an Engine positioned on the first entry of sequence.
func NewEngine(settings Settings, sequence []PoseEntry, opts ...Option) *Engine {
	e := &Engine{
		now:   time.Now,
		cmds:  make(chan command),
		ready: make(chan struct{}),
		done:  make(chan struct{}),
		subs:  make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.state = NewState(settings, sequence)
	e.settings = e.state.Settings
	snap := e.state.Snapshot(e.now())
	e.snapshot.Store(&snap)
	return e
}

// Run applies commands until ctx is cancelled and then returns nil. On exit
// the hold timer is returned to Idle and the match is cleared; every later
// command fails with ErrStopped.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	e.started = true
	state := e.state
	e.mu.Unlock()
	close(e.ready)

	var tickC <-chan time.Time
	if !e.manualTick {
		ticker := time.NewTicker(e.settings.TickInterval)
		defer ticker.Stop()
		tickC = ticker.C
	}

	log.Info("challenge engine started",
		"poses", len(state.Progress.Sequence),
		"target", state.TargetTime,
		"tick", e.settings.TickInterval,
	)

	for {
		select {
		case <-ctx.Done():
			state = state.Quiesce()
			e.commit(state, e.now())
			close(e.done)
			log.Info("challenge engine stopped", "score", state.Progress.Score, "level", state.Progress.Level)
			return nil

		case <-tickC:
			now := e.now()
			var events []Event
			state, events = state.Tick(now)
			e.commit(state, now)
			e.emit(events)

		case cmd := <-e.cmds:
			log.Debug("challenge command", "name", cmd.name)
			now := e.now()
			var events []Event
			state, events = cmd.apply(state, now)
			e.commit(state, now)
			e.emit(events)
			close(cmd.reply)
		}
	}
}

// commit stores the state and publishes a snapshot if anything visible changed.
func (e *Engine) commit(state State, now time.Time) {
	snap := state.Snapshot(now)
	prev := e.snapshot.Load()

	e.mu.Lock()
	e.state = state
	e.mu.Unlock()

	if prev != nil && reflect.DeepEqual(*prev, snap) {
		return
	}
	e.snapshot.Store(&snap)
	e.publish(snap)
}

func (e *Engine) emit(events []Event) {
	for _, ev := range events {
		log.Info("challenge event",
			"kind", ev.Kind,
			"pose", ev.PoseName,
			"points", ev.Points,
			"level", ev.Level,
			"score", ev.Score,
		)
		if e.onEvent != nil {
			e.onEvent(ev)
		}
	}
}

// publish hands snap to every subscriber, replacing any snapshot still queued.
func (e *Engine) publish(snap Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, ch := range e.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// submit queues a transition and waits until it has been applied.
func (e *Engine) submit(name string, apply func(State, time.Time) (State, []Event)) error {
	select {
	case <-e.done:
		return ErrStopped
	default:
	}

	e.mu.Lock()
	started := e.started
	e.mu.Unlock()
	if !started {
		return ErrNotRunning
	}

	cmd := command{name: name, apply: apply, reply: make(chan struct{})}
	select {
	case e.cmds <- cmd:
	case <-e.done:
		return ErrStopped
	}

	// A received command is always applied before the loop looks at ctx again.
	<-cmd.reply
	return nil
}

func stateOnly(fn func(State) State) func(State, time.Time) (State, []Event) {
	return func(s State, _ time.Time) (State, []Event) {
		return fn(s), nil
	}
}

// Tick advances the hold timer by one interval. Used with WithManualTick.
func (e *Engine) Tick() error {
	return e.submit("tick", State.Tick)
}

// ObservePose feeds a detection result. A nil pose is ignored.
func (e *Engine) ObservePose(p *detector.Pose) error {
	if p.Empty() {
		return nil
	}
	return e.submit("observe", stateOnly(func(s State) State {
		return s.ObservePose(p)
	}))
}

// SelectTargetTime sets the hold target. Only AllowedTargets are accepted.
func (e *Engine) SelectTargetTime(d time.Duration) error {
	if !e.settings.TargetAllowed(d) {
		return ErrInvalidTargetTime
	}
	return e.submit("target", stateOnly(func(s State) State {
		return s.SetTargetTime(d)
	}))
}

// ResetChallenge zeroes score and completion flags.
func (e *Engine) ResetChallenge() error {
	return e.submit("reset", stateOnly(State.Reset))
}

// RetryPose restarts the hold on the current pose.
func (e *Engine) RetryPose() error {
	return e.submit("retry", stateOnly(State.Retry))
}

// AdvancePose moves to the next pose or the next level.
func (e *Engine) AdvancePose() error {
	return e.submit("advance", State.Advance)
}

// GoToPose jumps to index; an out-of-range index is a no-op.
func (e *Engine) GoToPose(index int) error {
	return e.submit("goto", stateOnly(func(s State) State {
		return s.GoTo(index)
	}))
}

// SetReference installs reference landmarks for the entry at index.
func (e *Engine) SetReference(index int, ref *detector.Pose) error {
	return e.submit("reference", stateOnly(func(s State) State {
		return s.SetReference(index, ref)
	}))
}

// SetSequence replaces the pose sequence.
func (e *Engine) SetSequence(seq []PoseEntry) error {
	seq = cloneSequence(seq)
	return e.submit("sequence", stateOnly(func(s State) State {
		return s.SetSequence(seq)
	}))
}

// Quiesce stops any hold in progress, as when the camera is paused.
func (e *Engine) Quiesce() error {
	return e.submit("quiesce", stateOnly(State.Quiesce))
}

// Snapshot returns the most recently published snapshot.
func (e *Engine) Snapshot() Snapshot {
	return *e.snapshot.Load()
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Settings returns the effective settings.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Subscribe returns a channel that receives every published snapshot,
// starting with the current one, and a function that unsubscribes.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, subscriberBuffer)

	e.mu.Lock()
	ch <- e.Snapshot()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	e.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
		})
	}
}

// Ready is closed once Run has started accepting commands.
func (e *Engine) Ready() <-chan struct{} {
	return e.ready
}

// Done is closed once Run has returned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}
