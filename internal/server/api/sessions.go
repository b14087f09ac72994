package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ayusman/mindreader/internal/affect"
	"github.com/ayusman/mindreader/internal/store"
)

// SessionHandler handles HTTP requests for calibration sessions.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a new SessionHandler with the given store.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

type sessionResponse struct {
	ID               string                 `json:"id"`
	Baseline         affect.BaselineProfile `json:"baseline"`
	Thresholds       affect.ThresholdSet    `json:"thresholds"`
	Samples          int                    `json:"samples"`
	Rejected         int                    `json:"rejected"`
	ConfusionPolicy  string                 `json:"confusion_policy"`
	SmileSuppression bool                   `json:"smile_suppression"`
	StartedAt        string                 `json:"started_at"`
	EndedAt          string                 `json:"ended_at,omitempty"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type transitionResponse struct {
	From      affect.State `json:"from"`
	To        affect.State `json:"to"`
	Detail    string       `json:"detail"`
	Fatigue   float64      `json:"fatigue"`
	Confusion float64      `json:"confusion"`
	Joy       float64      `json:"joy"`
	At        string       `json:"at"`
}

type listTransitionsResponse struct {
	SessionID   string               `json:"session_id"`
	Transitions []transitionResponse `json:"transitions"`
	Counts      map[affect.State]int `json:"counts"`
}

func toSessionResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:               s.ID,
		Baseline:         s.Baseline,
		Thresholds:       s.Thresholds,
		Samples:          s.Samples,
		Rejected:         s.Rejected,
		ConfusionPolicy:  string(s.ConfusionPolicy),
		SmileSuppression: s.SmileSuppression,
		StartedAt:        formatTime(s.StartedAt),
	}
	if s.EndedAt != nil {
		resp.EndedAt = formatTime(*s.EndedAt)
	}
	return resp
}

// ServeHTTP routes /api/sessions, /api/sessions/{id} and
// /api/sessions/{id}/transitions. Sessions are read-only apart from delete.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/api/sessions")

	switch {
	case len(parts) == 0:
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, parts[0])
		case http.MethodDelete:
			h.delete(w, r, parts[0])
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "transitions":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.transitions(w, r, parts[0])
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// list handles GET /api/sessions?limit=N.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	sessions, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toSessionResponse(s))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/sessions/{id}.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	session, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

// delete handles DELETE /api/sessions/{id}.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// transitions handles GET /api/sessions/{id}/transitions.
func (h *SessionHandler) transitions(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.store.Sessions().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	transitions, err := h.store.Transitions().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transitions")
		return
	}
	counts, err := h.store.Transitions().CountByState(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count transitions")
		return
	}

	response := listTransitionsResponse{
		SessionID:   id,
		Transitions: make([]transitionResponse, 0, len(transitions)),
		Counts:      counts,
	}
	for _, t := range transitions {
		response.Transitions = append(response.Transitions, transitionResponse{
			From:      t.From,
			To:        t.To,
			Detail:    t.Detail,
			Fatigue:   t.Fatigue,
			Confusion: t.Confusion,
			Joy:       t.Joy,
			At:        formatTime(t.CreatedAt),
		})
	}

	writeJSON(w, http.StatusOK, response)
}
