// Package app wires the camera, pose detector, challenge engine, store and
// plugins into the running asana application.
package app

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/asana/internal/capture"
	"github.com/ayusman/asana/internal/challenge"
	"github.com/ayusman/asana/internal/detector"
	"github.com/ayusman/asana/internal/log"
	"github.com/ayusman/asana/internal/plugin"
	"github.com/ayusman/asana/internal/store"
)

// ErrStopped is returned by Start after Stop.
var ErrStopped = errors.New("app stopped")

// eventTimeout bounds one plugin dispatch.
const eventTimeout = 10 * time.Second

// Config holds configuration options for the application.
type Config struct {
	Store        *store.Store
	PluginDir    string
	ImageDir     string
	Camera       capture.Config
	MotionThresh float64
	Challenge    challenge.Settings
}

// Option customizes an App.
type Option func(*App)

// WithCamera replaces the device camera.
func WithCamera(c capture.Camera) Option {
	return func(a *App) { a.camera = c }
}

// WithDetector replaces the MediaPipe detector.
func WithDetector(d detector.Detector) Option {
	return func(a *App) { a.detector = d }
}

// WithEngineOptions passes options through to the challenge engine.
func WithEngineOptions(opts ...challenge.Option) Option {
	return func(a *App) { a.engineOpts = append(a.engineOpts, opts...) }
}

// App captures frames, feeds detected poses to the challenge engine and
// runs plugins on challenge events.
type App struct {
	config     Config
	camera     capture.Camera
	motion     *capture.MotionDetector
	pacer      *capture.Pacer
	frames     *capture.FrameBuffer
	detector   detector.Detector
	engine     *challenge.Engine
	engineOpts []challenge.Option
	pluginMgr  *plugin.Manager
	dispatcher *plugin.Dispatcher

	enabled   bool
	mu        sync.RWMutex
	stopCh    chan struct{}
	pipeDone  chan struct{}
	cancel    context.CancelFunc
	stopped   bool
	startedAt time.Time

	events         sync.WaitGroup
	posesCompleted atomic.Int64
}

// New creates an App, loads the pose library and prepares the engine.
// Nothing runs until Start.
func New(config Config, opts ...Option) (*App, error) {
	motionThreshold := config.MotionThresh
	if motionThreshold <= 0 {
		motionThreshold = 1.0
	}

	a := &App{
		config:    config,
		motion:    capture.NewMotionDetector(motionThreshold),
		pacer:     capture.NewPacer(capture.DefaultIdleFPS, capture.DefaultActiveFPS, capture.DefaultIdleTimeout),
		frames:    capture.NewFrameBuffer(capture.DefaultJPEGQuality),
		pluginMgr: plugin.NewManager(config.PluginDir),
		enabled:   true,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(config.Camera)
	}
	if a.detector == nil {
		if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
			a.detector = mp
			log.Info("using MediaPipe pose detection")
		} else {
			log.Warn("MediaPipe not available, using mock detector", "error", err)
			a.detector = detector.NewMockDetector()
		}
	}

	var hooks plugin.HookSource
	if config.Store != nil {
		hooks = config.Store.Hooks()
	}
	a.dispatcher = plugin.NewDispatcher(a.pluginMgr, plugin.NewExecutor(plugin.DefaultTimeout), hooks)

	seq, err := a.LoadSequence()
	if err != nil {
		return nil, err
	}

	settings := a.challengeSettings()
	engineOpts := append([]challenge.Option{challenge.WithEventHandler(a.handleEvent)}, a.engineOpts...)
	a.engine = challenge.NewEngine(settings, seq, engineOpts...)

	return a, nil
}

// challengeSettings applies the persisted target time, if any.
func (a *App) challengeSettings() challenge.Settings {
	settings := a.config.Challenge
	if a.config.Store == nil {
		return settings
	}

	seconds := a.config.Store.Settings().GetInt(store.SettingTargetSeconds, 0)
	if seconds <= 0 {
		return settings
	}
	target := time.Duration(seconds) * time.Second
	allowed := settings.AllowedTargets
	if len(allowed) == 0 {
		allowed = challenge.DefaultAllowedTargets
	}
	if slices.Contains(allowed, target) {
		settings.TargetTime = target
	} else {
		log.Warn("ignoring stored target time", "seconds", seconds)
	}
	return settings
}

// DiscoverPlugins scans the plugin directory.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// Start runs the challenge engine and the capture pipeline. Starting a
// running app is a no-op.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return ErrStopped
	}
	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(a.pacer.FPS())

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	go func() {
		if err := a.engine.Run(ctx); err != nil {
			log.Error("challenge engine exited", "error", err)
		}
	}()
	<-a.engine.Ready()

	a.startedAt = time.Now()
	a.stopCh = make(chan struct{})
	a.pipeDone = make(chan struct{})
	go a.runPipeline(a.stopCh, a.pipeDone)

	log.Info("capture pipeline started", "fps", a.pacer.FPS())
	return nil
}

// Stop halts the pipeline and the engine, records the session and releases
// the camera and detector. It is safe to call more than once.
func (a *App) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	stopCh, pipeDone, cancel := a.stopCh, a.pipeDone, a.cancel
	a.stopCh = nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-pipeDone
	}
	if cancel != nil {
		cancel()
		<-a.engine.Done()
		a.recordSession()
	}

	a.events.Wait()

	if err := a.camera.Close(); err != nil {
		log.Warn("close camera failed", "error", err)
	}
	a.motion.Close()
	if err := a.detector.Close(); err != nil {
		log.Warn("close detector failed", "error", err)
	}

	log.Info("app stopped")
}

// SetEnabled pauses or resumes pose detection. Pausing drops the current
// hold and match so a paused user is never credited.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	changed := a.enabled != enabled
	a.enabled = enabled
	a.mu.Unlock()

	if !changed {
		return
	}
	log.Info("detection toggled", "enabled", enabled)
	if enabled {
		return
	}
	if err := a.engine.Quiesce(); err != nil && !errors.Is(err, challenge.ErrNotRunning) {
		log.Warn("quiesce failed", "error", err)
	}
}

// IsEnabled returns whether pose detection is on.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// handleEvent runs on the engine goroutine and must not block.
func (a *App) handleEvent(ev challenge.Event) {
	if ev.Kind == challenge.EventPoseComplete {
		a.posesCompleted.Add(1)
	}

	a.events.Add(1)
	go func() {
		defer a.events.Done()
		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		defer cancel()
		if err := a.dispatcher.Dispatch(ctx, ev); err != nil {
			log.Warn("plugin dispatch failed", "event", ev.Kind, "error", err)
		}
	}()
}

// Engine returns the challenge engine.
func (a *App) Engine() *challenge.Engine {
	return a.engine
}

// Frames returns the buffer holding the latest camera frame.
func (a *App) Frames() *capture.FrameBuffer {
	return a.frames
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// MotionDetector returns the motion detector instance.
func (a *App) MotionDetector() *capture.MotionDetector {
	return a.motion
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Detector returns the pose detector.
func (a *App) Detector() detector.Detector {
	return a.detector
}
