package api

import (
	"net/http"

	"github.com/ayusman/mindreader/internal/affect"
)

// StateHandler serves the latest estimator result.
type StateHandler struct {
	estimator Estimator
}

// NewStateHandler creates a new StateHandler.
func NewStateHandler(e Estimator) *StateHandler {
	return &StateHandler{estimator: e}
}

type stateResponse struct {
	affect.Result
	SessionID string `json:"session_id,omitempty"`
	Enabled   bool   `json:"enabled"`
}

func newStateResponse(e Estimator) stateResponse {
	return stateResponse{
		Result:    e.Snapshot(),
		SessionID: e.SessionID(),
		Enabled:   e.IsEnabled(),
	}
}

// ServeHTTP handles GET /api/state.
func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, newStateResponse(h.estimator))
}

// CalibrationHandler restarts calibration.
type CalibrationHandler struct {
	estimator Estimator
}

// NewCalibrationHandler creates a new CalibrationHandler.
func NewCalibrationHandler(e Estimator) *CalibrationHandler {
	return &CalibrationHandler{estimator: e}
}

// ServeHTTP handles POST /api/calibration. The reset takes effect before the
// next tick; the response carries the post-reset snapshot.
func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.estimator.ResetCalibration()
	writeJSON(w, http.StatusAccepted, newStateResponse(h.estimator))
}
