package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/asana/internal/store"
)

// DefaultSessionLimit caps GET /api/sessions without a limit parameter.
const DefaultSessionLimit = 50

// SessionHandler serves finished-session history.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

type sessionResponse struct {
	ID              string  `json:"id"`
	StartedAt       string  `json:"started_at"`
	EndedAt         string  `json:"ended_at"`
	DurationSeconds float64 `json:"duration_seconds"`
	Level           int     `json:"level"`
	Score           int     `json:"score"`
	PosesCompleted  int     `json:"poses_completed"`
	TargetSeconds   float64 `json:"target_seconds"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

func toSessionResponse(s *store.Session) sessionResponse {
	return sessionResponse{
		ID:              s.ID,
		StartedAt:       s.StartedAt.Format(timeFormat),
		EndedAt:         s.EndedAt.Format(timeFormat),
		DurationSeconds: s.Duration().Seconds(),
		Level:           s.Level,
		Score:           s.Score,
		PosesCompleted:  s.PosesCompleted,
		TargetSeconds:   s.TargetSeconds,
	}
}

// ServeHTTP handles GET /api/sessions and GET /api/sessions/best.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	switch strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/sessions"), "/") {
	case "":
		h.list(w, r)
	case "best":
		h.best(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := DefaultSessionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	sessions, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *SessionHandler) best(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.Sessions().Best()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No sessions recorded")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get best session")
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(s))
}
