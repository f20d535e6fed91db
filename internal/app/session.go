package app

import (
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/asana/internal/log"
	"github.com/ayusman/asana/internal/store"
)

// recordSession stores the finished run. Runs in which nothing was
// completed are not recorded.
func (a *App) recordSession() {
	if a.config.Store == nil {
		return
	}

	snap := a.engine.Snapshot()
	completed := int(a.posesCompleted.Load())
	if completed == 0 && snap.Score == 0 {
		log.Debug("skipping empty session")
		return
	}

	session := &store.Session{
		ID:             uuid.New().String(),
		StartedAt:      a.startedAt,
		EndedAt:        time.Now(),
		Level:          snap.Level,
		Score:          snap.Score,
		PosesCompleted: completed,
		TargetSeconds:  snap.TargetTime,
	}
	if err := a.config.Store.Sessions().Create(session); err != nil {
		log.Error("record session failed", "error", err)
		return
	}
	log.Info("session recorded", "score", session.Score, "level", session.Level, "poses", completed)
}
