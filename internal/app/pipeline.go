package app

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/asana/internal/log"
)

// runPipeline reads frames until stop is closed.
//
// Every frame is published for the stream and checked for motion, which
// only sets the capture rate: ActiveFPS while the user moves into a pose,
// IdleFPS once the frame has been still for the idle timeout. A held pose
// is still, so detection runs on every frame regardless of motion.
func (a *App) runPipeline(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.pacer.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			frame, err := a.camera.ReadFrame()
			if err != nil {
				log.Debug("read frame failed", "error", err)
				continue
			}

			if a.processFrame(frame, time.Now()) {
				ticker.Reset(a.pacer.Interval())
			}
			frame.Close()
		}
	}
}

// processFrame handles one frame and reports whether the capture rate
// changed.
func (a *App) processFrame(frame *gocv.Mat, now time.Time) bool {
	if err := a.frames.Publish(frame); err != nil {
		log.Debug("publish frame failed", "error", err)
	}

	moved, _ := a.motion.Detect(frame)
	fps, changed := a.pacer.Observe(moved, now)
	if changed {
		a.camera.SetFPS(fps)
		log.Debug("capture rate changed", "fps", fps, "change", a.motion.LastChange())
	}

	if !a.IsEnabled() {
		return changed
	}

	poses, err := a.detector.Detect(frame)
	if err != nil {
		log.Warn("pose detection failed", "error", err)
		return changed
	}
	// Detection can outlast a pause; a paused engine gets no observation.
	if len(poses) == 0 || !a.IsEnabled() {
		return changed
	}

	if err := a.engine.ObservePose(&poses[0]); err != nil {
		log.Debug("observe pose failed", "error", err)
	}
	return changed
}
