package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/asana/internal/log"
	"github.com/ayusman/asana/internal/store"
)

// Pose defaults for entries created without them.
const (
	DefaultPoints               = 100
	DefaultDifficultyMultiplier = 1.0
)

// Reloader rebuilds the running challenge sequence after the pose library
// changes.
type Reloader interface {
	ReloadPoses() error
}

// PoseHandler handles HTTP requests for the pose library.
type PoseHandler struct {
	store    *store.Store
	reloader Reloader
}

// NewPoseHandler creates a PoseHandler. reloader may be nil.
func NewPoseHandler(s *store.Store, reloader Reloader) *PoseHandler {
	return &PoseHandler{store: s, reloader: reloader}
}

// ServeHTTP routes /api/poses and /api/poses/{id}.
func (h *PoseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/poses"), "/")

	if id == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			methodNotAllowed(w)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		methodNotAllowed(w)
	}
}

type createPoseRequest struct {
	Name                 string  `json:"name"`
	ImagePath            string  `json:"image_path"`
	Points               int     `json:"points"`
	DifficultyMultiplier float64 `json:"difficulty_multiplier"`
}

type updatePoseRequest struct {
	Name                 string   `json:"name"`
	ImagePath            *string  `json:"image_path"`
	Points               *int     `json:"points"`
	DifficultyMultiplier *float64 `json:"difficulty_multiplier"`
	Position             *int     `json:"position"`
}

type poseResponse struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	ImagePath            string  `json:"image_path"`
	Points               int     `json:"points"`
	DifficultyMultiplier float64 `json:"difficulty_multiplier"`
	Position             int     `json:"position"`
	Samples              int     `json:"samples"`
	HasReference         bool    `json:"has_reference"`
	CreatedAt            string  `json:"created_at"`
	UpdatedAt            string  `json:"updated_at"`
}

type listPosesResponse struct {
	Poses []poseResponse `json:"poses"`
}

func (h *PoseHandler) toResponse(p *store.Pose) poseResponse {
	resp := poseResponse{
		ID:                   p.ID,
		Name:                 p.Name,
		ImagePath:            p.ImagePath,
		Points:               p.Points,
		DifficultyMultiplier: p.DifficultyMultiplier,
		Position:             p.Position,
		Samples:              p.Samples,
		CreatedAt:            p.CreatedAt.Format(timeFormat),
		UpdatedAt:            p.UpdatedAt.Format(timeFormat),
	}
	if landmarks, err := h.store.Poses().GetLandmarks(p.ID); err == nil {
		resp.HasReference = len(landmarks) > 0
	}
	return resp
}

// reload pushes library changes to the running challenge. A failure is
// logged; the library change itself already succeeded.
func (h *PoseHandler) reload() {
	if h.reloader == nil {
		return
	}
	if err := h.reloader.ReloadPoses(); err != nil {
		log.Warn("reload poses failed", "error", err)
	}
}

func validatePose(points int, multiplier float64) string {
	if points < 0 {
		return "points must not be negative"
	}
	if multiplier <= 0 {
		return "difficulty_multiplier must be positive"
	}
	return ""
}

// list handles GET /api/poses.
func (h *PoseHandler) list(w http.ResponseWriter, r *http.Request) {
	poses, err := h.store.Poses().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list poses")
		return
	}

	response := listPosesResponse{Poses: make([]poseResponse, 0, len(poses))}
	for _, p := range poses {
		response.Poses = append(response.Poses, h.toResponse(p))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/poses/{id}.
func (h *PoseHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Poses().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Pose not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get pose")
		return
	}

	writeJSON(w, http.StatusOK, h.toResponse(p))
}

// create handles POST /api/poses. New poses go to the end of the sequence.
func (h *PoseHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createPoseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if req.Points == 0 {
		req.Points = DefaultPoints
	}
	if req.DifficultyMultiplier == 0 {
		req.DifficultyMultiplier = DefaultDifficultyMultiplier
	}
	if msg := validatePose(req.Points, req.DifficultyMultiplier); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if _, err := h.store.Poses().GetByName(req.Name); err == nil {
		writeError(w, http.StatusConflict, "A pose with this name already exists")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "Failed to check pose name")
		return
	}

	position, err := h.store.Poses().NextPosition()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create pose")
		return
	}

	p := &store.Pose{
		ID:                   uuid.New().String(),
		Name:                 req.Name,
		ImagePath:            req.ImagePath,
		Points:               req.Points,
		DifficultyMultiplier: req.DifficultyMultiplier,
		Position:             position,
	}

	if err := h.store.Poses().Create(p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create pose")
		return
	}

	log.Info("pose created", "id", p.ID, "name", p.Name)
	h.reload()
	writeJSON(w, http.StatusCreated, h.toResponse(p))
}

// update handles PUT /api/poses/{id}. Omitted fields keep their value.
func (h *PoseHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Poses().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Pose not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get pose")
		return
	}

	var req updatePoseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if name := strings.TrimSpace(req.Name); name != "" && name != p.Name {
		if _, err := h.store.Poses().GetByName(name); err == nil {
			writeError(w, http.StatusConflict, "A pose with this name already exists")
			return
		}
		p.Name = name
	}
	if req.ImagePath != nil {
		p.ImagePath = *req.ImagePath
	}
	if req.Points != nil {
		p.Points = *req.Points
	}
	if req.DifficultyMultiplier != nil {
		p.DifficultyMultiplier = *req.DifficultyMultiplier
	}
	if req.Position != nil {
		p.Position = *req.Position
	}
	if msg := validatePose(p.Points, p.DifficultyMultiplier); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.store.Poses().Update(p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update pose")
		return
	}

	h.reload()
	writeJSON(w, http.StatusOK, h.toResponse(p))
}

// delete handles DELETE /api/poses/{id}.
func (h *PoseHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Poses().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Pose not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete pose")
		return
	}

	log.Info("pose deleted", "id", id)
	h.reload()
	w.WriteHeader(http.StatusNoContent)
}
