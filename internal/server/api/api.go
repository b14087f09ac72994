// Package api provides HTTP API handlers for mindreader.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/mindreader/internal/affect"
)

// Estimator is the running pipeline as seen by the API.
type Estimator interface {
	Snapshot() affect.Result
	ResetCalibration()
	SessionID() string
	IsEnabled() bool
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// pathParts splits the request path below prefix into its segments.
func pathParts(r *http.Request, prefix string) []string {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}
