package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/asana/internal/log"
	"github.com/ayusman/asana/internal/pose"
	"github.com/ayusman/asana/internal/store"
)

// SamplesHandler handles reference samples of a pose. Every upload
// recomputes the pose's reference landmarks from all stored samples.
type SamplesHandler struct {
	store    *store.Store
	reloader Reloader
}

// NewSamplesHandler creates a SamplesHandler. reloader may be nil.
func NewSamplesHandler(s *store.Store, reloader Reloader) *SamplesHandler {
	return &SamplesHandler{store: s, reloader: reloader}
}

// ServeHTTP handles /api/poses/{id}/samples.
func (h *SamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/poses/"), "/")
	parts := strings.Split(path, "/")

	if len(parts) != 2 || parts[0] == "" || parts[1] != "samples" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	poseID := parts[0]

	switch r.Method {
	case http.MethodGet:
		h.list(w, r, poseID)
	case http.MethodPost:
		h.create(w, r, poseID)
	case http.MethodDelete:
		h.clear(w, r, poseID)
	default:
		methodNotAllowed(w)
	}
}

type createSamplesRequest struct {
	Samples []json.RawMessage `json:"samples"`
}

type createSamplesResponse struct {
	Samples   int `json:"samples"`
	Landmarks int `json:"landmarks"`
}

type sampleResponse struct {
	ID          int64           `json:"id"`
	PoseID      string          `json:"pose_id"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   string          `json:"created_at"`
}

type listSamplesResponse struct {
	Samples []sampleResponse `json:"samples"`
}

func (h *SamplesHandler) requirePose(w http.ResponseWriter, poseID string) bool {
	if _, err := h.store.Poses().GetByID(poseID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Pose not found")
			return false
		}
		writeError(w, http.StatusInternalServerError, "Failed to verify pose")
		return false
	}
	return true
}

// list handles GET /api/poses/{id}/samples.
func (h *SamplesHandler) list(w http.ResponseWriter, r *http.Request, poseID string) {
	if !h.requirePose(w, poseID) {
		return
	}

	samples, err := h.store.Samples().GetByPoseID(poseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	response := listSamplesResponse{Samples: make([]sampleResponse, 0, len(samples))}
	for _, s := range samples {
		response.Samples = append(response.Samples, sampleResponse{
			ID:          s.ID,
			PoseID:      s.PoseID,
			SampleIndex: s.SampleIndex,
			Data:        s.Data,
			CreatedAt:   s.CreatedAt.Format(timeFormat),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// create handles POST /api/poses/{id}/samples.
func (h *SamplesHandler) create(w http.ResponseWriter, r *http.Request, poseID string) {
	if !h.requirePose(w, poseID) {
		return
	}

	var req createSamplesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "At least one sample is required")
		return
	}

	// Reject malformed captures before anything is stored.
	if _, err := pose.AverageReference(req.Samples); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stored, err := h.store.Samples().GetByPoseID(poseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load samples")
		return
	}
	data := make([]json.RawMessage, 0, len(stored)+len(req.Samples))
	for _, s := range stored {
		data = append(data, s.Data)
	}
	data = append(data, req.Samples...)

	ref, err := pose.AverageReference(data)
	if err != nil {
		// Stored samples disagree with the new ones on landmark count.
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	total, err := h.store.Samples().CreateWithReference(poseID, req.Samples, store.LandmarksFromPose(ref))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save samples")
		return
	}

	log.Info("pose reference trained", "pose", poseID, "samples", total)
	if h.reloader != nil {
		if err := h.reloader.ReloadPoses(); err != nil {
			log.Warn("reload poses failed", "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, createSamplesResponse{Samples: total, Landmarks: len(ref.Points)})
}

// clear handles DELETE /api/poses/{id}/samples. The trained reference is
// kept until new samples replace it.
func (h *SamplesHandler) clear(w http.ResponseWriter, r *http.Request, poseID string) {
	if !h.requirePose(w, poseID) {
		return
	}
	if err := h.store.Samples().DeleteByPoseID(poseID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete samples")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
