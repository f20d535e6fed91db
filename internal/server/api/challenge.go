package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/asana/internal/challenge"
	"github.com/ayusman/asana/internal/detector"
	"github.com/ayusman/asana/internal/log"
	"github.com/ayusman/asana/internal/pose"
	"github.com/ayusman/asana/internal/store"
)

// ChallengeHandler exposes the challenge engine's commands over HTTP.
type ChallengeHandler struct {
	engine     *challenge.Engine
	settings   *store.SettingsRepository
	comparator pose.Comparator
}

// NewChallengeHandler creates a ChallengeHandler. When settings is non-nil
// the selected target time is persisted.
func NewChallengeHandler(engine *challenge.Engine, settings *store.SettingsRepository) *ChallengeHandler {
	return &ChallengeHandler{
		engine:     engine,
		settings:   settings,
		comparator: engine.Settings().Comparator,
	}
}

// ServeHTTP handles POST /api/challenge/{command}.
func (h *ChallengeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	command := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/challenge"), "/")

	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	switch command {
	case "target-time":
		h.targetTime(w, r)
	case "reset":
		h.run(w, h.engine.ResetChallenge())
	case "retry":
		h.run(w, h.engine.RetryPose())
	case "advance":
		h.run(w, h.engine.AdvancePose())
	case "goto":
		h.goTo(w, r)
	case "compare":
		h.compare(w, r)
	default:
		writeError(w, http.StatusNotFound, "Unknown command")
	}
}

// ServeState handles GET /api/state.
func (h *ChallengeHandler) ServeState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

// run answers a command with the resulting snapshot.
func (h *ChallengeHandler) run(w http.ResponseWriter, err error) {
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, challenge.ErrInvalidTargetTime):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, challenge.ErrNotRunning), errors.Is(err, challenge.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, "Challenge is not running")
	default:
		writeError(w, http.StatusInternalServerError, "Command failed")
	}
}

type targetTimeRequest struct {
	Seconds float64 `json:"seconds"`
}

type gotoRequest struct {
	Index *int `json:"index"`
}

// targetTime handles POST /api/challenge/target-time.
func (h *ChallengeHandler) targetTime(w http.ResponseWriter, r *http.Request) {
	var req targetTimeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	d := time.Duration(req.Seconds * float64(time.Second))
	if err := h.engine.SelectTargetTime(d); err != nil {
		writeEngineError(w, err)
		return
	}

	if h.settings != nil {
		if err := h.settings.SetInt(store.SettingTargetSeconds, int(d/time.Second)); err != nil {
			log.Warn("persist target time failed", "error", err)
		}
	}

	h.run(w, nil)
}

// goTo handles POST /api/challenge/goto. Out-of-range indexes are ignored
// by the engine and answered with the unchanged state.
func (h *ChallengeHandler) goTo(w http.ResponseWriter, r *http.Request) {
	var req gotoRequest
	if err := decodeJSON(r, &req); err != nil || req.Index == nil {
		writeError(w, http.StatusBadRequest, "index is required")
		return
	}
	h.run(w, h.engine.GoToPose(*req.Index))
}

type compareRequest struct {
	Live      []detector.Point3D `json:"live"`
	Reference []detector.Point3D `json:"reference"`
}

type compareResponse struct {
	Similarity float64          `json:"similarity"`
	Matched    bool             `json:"matched"`
	AvgDiff    float64          `json:"avg_diff"`
	Angles     []pose.AngleDiff `json:"angles"`
}

// compare handles POST /api/challenge/compare. It scores two landmark sets
// without touching the running challenge.
func (h *ChallengeHandler) compare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var live, ref *detector.Pose
	if len(req.Live) > 0 {
		live = &detector.Pose{Points: req.Live, Score: 1}
	}
	if len(req.Reference) > 0 {
		ref = &detector.Pose{Points: req.Reference, Score: 1}
	}

	c := h.comparator.Detail(live, ref)
	angles := c.Angles
	if angles == nil {
		angles = []pose.AngleDiff{}
	}

	writeJSON(w, http.StatusOK, compareResponse{
		Similarity: c.Similarity,
		Matched:    pose.IsMatch(c.Similarity, h.engine.Settings().MatchThreshold),
		AvgDiff:    c.AvgDiff,
		Angles:     angles,
	})
}
